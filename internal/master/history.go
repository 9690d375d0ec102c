package master

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/herdsman/internal/storage"
)

// ErrNoHistory is returned by History when the master keeps none.
var ErrNoHistory = errors.New("master: no history store")

// historyTimeout bounds one append to the history store.
const historyTimeout = 5 * time.Second

// Record is one applied generation as kept in the history store.
type Record struct {
	Generation string    `json:"generation" yaml:"generation"`
	Trigger    string    `json:"trigger" yaml:"trigger"`
	AppliedAt  time.Time `json:"applied_at" yaml:"applied_at"`
	Digest     string    `json:"digest,omitempty" yaml:"digest,omitempty"`
	Settings   Snapshot  `json:"settings" yaml:"settings"`
}

// recordLocked appends the current generation to the history store. A
// failed append is logged and does not undo the commit.
func (m *Master) recordLocked(trigger string) {
	if m.history == nil {
		return
	}

	rec := Record{
		Generation: m.generation.String(),
		Trigger:    trigger,
		AppliedAt:  ulid.Time(m.generation.Time()).UTC(),
		Settings:   m.snapshotLocked(),
	}
	// snapshotLocked leaves Generation empty until the first Start returns.
	rec.Settings.Generation = rec.Generation
	if m.cfg.ConfigFile() != "" {
		rec.Digest = fmt.Sprintf("%016x", m.digest)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		m.log.Warn("encode history record failed", "generation", rec.Generation, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := m.history.Append(ctx, m.generation, data); err != nil {
		m.log.Warn("history append failed", "generation", rec.Generation, "error", err)
	}
}

// History returns up to limit applied generations, newest first. A
// non-positive limit returns all of them.
func (m *Master) History(ctx context.Context, limit int) ([]Record, error) {
	if m.history == nil {
		return nil, ErrNoHistory
	}
	return ReadHistory(ctx, m.history, limit)
}

// ReadHistory decodes up to limit records from log, newest first.
func ReadHistory(ctx context.Context, log storage.Log, limit int) ([]Record, error) {
	var (
		records []Record
		decErr  error
	)
	err := log.Scan(ctx, limit, func(id ulid.ULID, value []byte) bool {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			decErr = fmt.Errorf("decode generation %s: %w", id, err)
			return false
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if decErr != nil {
		return nil, decErr
	}
	return records, nil
}
