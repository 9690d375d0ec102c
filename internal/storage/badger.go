package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// keyPrefix namespaces generation keys. The ULID follows in its 16-byte
// binary form, which sorts like its timestamp.
var keyPrefix = []byte("gen/")

// BadgerStore implements Log on Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    Config
	logger logger.Logger

	closed     atomic.Bool
	lastGCTime atomic.Int64 // Unix milliseconds

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens or creates the store described by cfg.
func Open(cfg Config, log logger.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: log}
	opts.SyncWrites = cfg.SyncWrites
	opts.ReadOnly = cfg.ReadOnly
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	// Value log GC does not apply to in-memory or read-only databases.
	if cfg.InMemory || cfg.ReadOnly || cfg.GCInterval <= 0 {
		close(s.doneCh)
	} else {
		go s.gcLoop()
	}

	log.Debug("history store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"retain", cfg.Retain)

	return s, nil
}

// Append stores value under id and prunes beyond Config.Retain.
func (s *BadgerStore) Append(ctx context.Context, id ulid.ULID, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(id), value)
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", id, err)
	}

	if s.cfg.Retain > 0 {
		if _, err := s.Prune(ctx, s.cfg.Retain); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves the value stored under id.
func (s *BadgerStore) Get(ctx context.Context, id ulid.ULID) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Scan visits entries newest first.
func (s *BadgerStore) Scan(ctx context.Context, limit int, fn func(id ulid.ULID, value []byte) bool) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(reverseOptions(true))
		defer it.Close()

		n := 0
		for it.Seek(seekLast()); it.ValidForPrefix(keyPrefix); it.Next() {
			if limit > 0 && n == limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			id, ok := decodeKey(item.Key())
			if !ok {
				continue
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			n++
			if !fn(id, value) {
				break
			}
		}
		return nil
	})
}

// Prune deletes all but the newest keep entries.
func (s *BadgerStore) Prune(ctx context.Context, keep int) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if keep < 0 {
		keep = 0
	}

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(reverseOptions(false))
		defer it.Close()

		n := 0
		for it.Seek(seekLast()); it.ValidForPrefix(keyPrefix); it.Next() {
			n++
			if n > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("prune: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}

	s.logger.Debug("pruned generations",
		"kept", keep,
		"deleted_count", len(stale))

	return len(stale), nil
}

// GC runs value log garbage collection until nothing is left to rewrite.
// It returns the number of files rewritten.
func (s *BadgerStore) GC(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	rewritten := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
				break
			}
			return rewritten, fmt.Errorf("gc: %w", err)
		}
		rewritten++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.logger.Debug("gc completed", "files_rewritten", rewritten)

	return rewritten, nil
}

// Stats returns storage statistics.
func (s *BadgerStore) Stats(ctx context.Context) (*Stats, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	entries := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			entries++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lsm, vlog := s.db.Size()
	stats := &Stats{
		Entries:      entries,
		LSMSize:      lsm,
		ValueLogSize: vlog,
	}
	if ms := s.lastGCTime.Load(); ms > 0 {
		stats.LastGCTime = time.UnixMilli(ms)
	}
	return stats, nil
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	s.logger.Debug("history store closed")
	return nil
}

// RegisterMetrics registers size and entry gauges with reg. They are
// computed at scrape time.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	stat := func(pick func(*Stats) float64) func() float64 {
		return func() float64 {
			stats, err := s.Stats(context.Background())
			if err != nil {
				// The store may be closing.
				return 0
			}
			return pick(stats)
		}
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "herdsman",
			Subsystem: "history",
			Name:      "generations",
			Help:      "Number of configuration generations kept in the history store",
		}, stat(func(st *Stats) float64 { return float64(st.Entries) })),

		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "herdsman",
			Subsystem: "history",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, stat(func(st *Stats) float64 { return float64(st.LSMSize) })),

		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "herdsman",
			Subsystem: "history",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, stat(func(st *Stats) float64 { return float64(st.ValueLogSize) })),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register history metrics: %w", err)
		}
	}
	return nil
}

// gcLoop runs periodic garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("history gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

func encodeKey(id ulid.ULID) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(id))
	key = append(key, keyPrefix...)
	return append(key, id[:]...)
}

func decodeKey(key []byte) (ulid.ULID, bool) {
	var id ulid.ULID
	if len(key) != len(keyPrefix)+len(id) {
		return id, false
	}
	copy(id[:], key[len(keyPrefix):])
	return id, true
}

// seekLast is the largest possible generation key. Reverse iteration
// starts at the newest key at or below it.
func seekLast() []byte {
	var last ulid.ULID
	for i := range last {
		last[i] = 0xFF
	}
	return encodeKey(last)
}

func reverseOptions(values bool) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = keyPrefix
	opts.PrefetchValues = values
	return opts
}

// badgerLogger adapts logger.Logger to Badger's Logger interface. Badger
// is chatty at info level, so info goes to debug.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

var _ Log = (*BadgerStore)(nil)
