package storage

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Common errors
var (
	ErrNotFound = errors.New("generation not found")
	ErrClosed   = errors.New("history store closed")
)

// Log is an append-only record of values keyed by ULID.
//
// Implementations are safe for concurrent use.
type Log interface {
	// Append stores value under id. Entries beyond the retention limit
	// are pruned, oldest first.
	Append(ctx context.Context, id ulid.ULID, value []byte) error

	// Get returns the value stored under id, or ErrNotFound.
	Get(ctx context.Context, id ulid.ULID) ([]byte, error)

	// Scan visits at most limit entries, newest first. A non-positive
	// limit visits all of them. fn returns false to stop.
	Scan(ctx context.Context, limit int, fn func(id ulid.ULID, value []byte) bool) error

	// Prune keeps the newest keep entries and deletes the rest.
	// It returns the number deleted.
	Prune(ctx context.Context, keep int) (int, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the store.
	Close() error
}

// Stats contains storage statistics.
type Stats struct {
	// Entries is the number of stored generations.
	Entries int

	// LSMSize is the LSM tree size in bytes.
	LSMSize int64

	// ValueLogSize is the value log size in bytes.
	ValueLogSize int64

	// LastGCTime is the last GC run (zero if none).
	LastGCTime time.Time
}

// Config configures the history store.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Nothing survives Close.
	InMemory bool

	// ReadOnly opens an existing store for reading. Appends fail, and
	// opening fails while another process holds the store.
	ReadOnly bool

	// Retain is the number of generations kept. Zero keeps all.
	// Default: 100
	Retain int

	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the discard ratio that makes a value log file
	// eligible for rewrite (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// MemTableSize is the memtable size in bytes.
	// Default: 8MB
	MemTableSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64

	// SyncWrites fsyncs every append.
	// Default: true
	SyncWrites bool
}

// DefaultConfig returns the default configuration for a store in dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		Retain:           100,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		MemTableSize:     8 << 20,  // 8MB
		ValueLogFileSize: 64 << 20, // 64MB
		SyncWrites:       true,
	}
}

// InMemoryConfig returns a configuration for a store that lives in memory.
func InMemoryConfig() Config {
	cfg := DefaultConfig("")
	cfg.InMemory = true
	cfg.SyncWrites = false
	return cfg
}
