package confloader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "HERDSMAN_"

// Loader collects construction overrides from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	loaded    bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithOverridesFile sets the YAML overrides file path.
func WithOverridesFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new overrides loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads the overrides file (if set) and then the environment.
// Command-line assignments are layered on afterwards with LoadMap.
func (l *Loader) Load() error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load overrides file: %w", err)
		}
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	l.loaded = true
	return nil
}

// LoadFile loads overrides from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads overrides from environment variables.
// HERDSMAN_WORKER_PROCESSES=4 becomes worker_processes: 4.
func (l *Loader) LoadEnv() error {
	transform := func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, l.envPrefix))
		return key, ParseValue(value)
	}

	if err := l.k.Load(env.ProviderWithValue(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadMap loads overrides from a map (command-line assignments or tests).
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Get returns a single override.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// IsLoaded returns true if Load has completed.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// Overrides returns every loaded override as a fresh map.
func (l *Loader) Overrides() map[string]any {
	return l.k.All()
}

// Keys returns all loaded keys.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}

// ParseAssignments parses name=value pairs as given to --set.
func ParseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q: want name=value", pair)
		}
		out[name] = ParseValue(value)
	}
	return out, nil
}

// ParseValue types a string from the environment or the command line.
// List items stay strings.
func ParseValue(s string) any {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		items := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		return items
	}
	return s
}
