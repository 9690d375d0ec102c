package master

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spaolacci/murmur3"

	"github.com/yndnr/herdsman/internal/configurator"
	"github.com/yndnr/herdsman/internal/storage"
	"github.com/yndnr/herdsman/internal/telemetry/logger"
	"github.com/yndnr/herdsman/internal/telemetry/metric"
)

// Reload triggers.
const (
	TriggerStart  = "start"
	TriggerSignal = "sighup"
	TriggerWatch  = "watch"
	TriggerAPI    = "api"
)

// ErrNotStarted is returned by reloads before Start.
var ErrNotStarted = errors.New("master: not started")

// Master applies committed settings and runs hooks against itself.
type Master struct {
	mu sync.RWMutex

	cfg     *configurator.Configurator
	metrics *metric.Registry
	history storage.Log
	log     logger.Logger
	skip    []configurator.Key

	started    bool
	generation ulid.ULID
	digest     uint64

	state state
}

// state is the applied configuration. It is written only by commits,
// with mu held.
type state struct {
	timeout         time.Duration
	workerProcesses int
	listeners       []string
	backlog         int
	logger          configurator.Logger
	raw             map[configurator.Key]any
}

// Option configures a Master.
type Option func(*Master)

// WithMetrics records reloads and commits in reg.
func WithMetrics(reg *metric.Registry) Option {
	return func(m *Master) {
		m.metrics = reg
	}
}

// WithHistory records every successful commit in log.
func WithHistory(log storage.Log) Option {
	return func(m *Master) {
		m.history = log
	}
}

// WithLogger sets the logger for the master's own events.
func WithLogger(l logger.Logger) Option {
	return func(m *Master) {
		m.log = l
	}
}

// WithSkip excludes settings from every commit.
func WithSkip(keys ...configurator.Key) Option {
	return func(m *Master) {
		m.skip = append(m.skip, keys...)
	}
}

// New creates a Master for cfg. Nothing is applied until Start.
func New(cfg *configurator.Configurator, opts ...Option) *Master {
	m := &Master{
		cfg: cfg,
		log: logger.Default(),
		state: state{
			raw: make(map[configurator.Key]any),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start commits the settings the Configurator was built with.
func (m *Master) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.ConfigFile() != "" {
		digest, err := scriptDigest(m.cfg.ConfigFile())
		if err != nil {
			return err
		}
		m.digest = digest
	}
	if err := m.commitLocked(TriggerStart); err != nil {
		return err
	}
	m.started = true
	return nil
}

// Reload re-runs the configuration script and commits the result. A
// failed script leaves the applied settings untouched, although the
// statements before the failure are kept in the Configurator.
func (m *Master) Reload(trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloadLocked(trigger)
}

// ReloadIfChanged reloads only when the script's content differs from the
// last successful reload. It reports whether a reload happened.
func (m *Master) ReloadIfChanged(trigger string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.ConfigFile() == "" {
		return false, nil
	}
	digest, err := scriptDigest(m.cfg.ConfigFile())
	if err != nil {
		m.countReload(trigger, metric.ResultError)
		return false, err
	}
	if m.started && digest == m.digest {
		m.countReload(trigger, metric.ResultUnchanged)
		m.log.Debug("configuration unchanged", "trigger", trigger)
		return false, nil
	}
	if err := m.reloadLocked(trigger); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Master) reloadLocked(trigger string) error {
	if !m.started {
		return ErrNotStarted
	}

	start := time.Now()
	err := m.cfg.Reload()
	if m.metrics != nil {
		m.metrics.ReloadDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		m.countReload(trigger, metric.ResultError)
		return fmt.Errorf("reload configuration: %w", err)
	}

	if m.cfg.ConfigFile() != "" {
		if digest, err := scriptDigest(m.cfg.ConfigFile()); err == nil {
			m.digest = digest
		}
	}
	if err := m.commitLocked(trigger); err != nil {
		m.countReload(trigger, metric.ResultError)
		return err
	}
	m.countReload(trigger, metric.ResultOK)
	return nil
}

func (m *Master) commitLocked(trigger string) error {
	if err := m.cfg.Commit(m, m.skip...); err != nil {
		if m.metrics != nil {
			m.metrics.CommitsTotal.WithLabelValues(metric.ResultError).Inc()
		}
		return fmt.Errorf("commit configuration: %w", err)
	}

	m.generation = ulid.Make()
	if m.metrics != nil {
		m.metrics.CommitsTotal.WithLabelValues(metric.ResultOK).Inc()
		m.metrics.SettingsConfigured.Set(float64(len(m.cfg.Names())))
		m.metrics.LastReloadTimestamp.SetToCurrentTime()
	}
	m.log.Info("configuration applied",
		"generation", m.generation.String(),
		"trigger", trigger,
		"settings", len(m.cfg.Names()),
	)
	m.recordLocked(trigger)
	return nil
}

func (m *Master) countReload(trigger, result string) {
	if m.metrics != nil {
		m.metrics.ReloadsTotal.WithLabelValues(trigger, result).Inc()
	}
}

// Generation returns the ULID of the last successful commit, or "" before
// Start.
func (m *Master) Generation() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.started {
		return ""
	}
	return m.generation.String()
}

func scriptDigest(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read config file: %w", err)
	}
	return murmur3.Sum64(data), nil
}
