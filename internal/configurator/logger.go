package configurator

import (
	"reflect"
	"strings"
)

// Logger is the capability the logger setting requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	Close() error
}

// loggerCapabilities lists the Logger methods in the order errors name them.
var loggerCapabilities = []string{"debug", "info", "warn", "error", "fatal", "close"}

// loggerCandidate is implemented by script objects that may carry the
// logger capabilities.
type loggerCandidate interface {
	asLogger() (Logger, []string)
}

func validateLogger(_ *Configurator, key Key, v any) (any, error) {
	if l, ok := v.(Logger); ok && l != nil {
		return l, nil
	}
	if c, ok := v.(loggerCandidate); ok {
		l, missing := c.asLogger()
		if len(missing) > 0 {
			return nil, invalid(key, v, "does not respond to %s", strings.Join(missing, ", "))
		}
		return l, nil
	}

	missing := missingMethods(v)
	if len(missing) > 0 {
		return nil, invalid(key, v, "does not respond to %s", strings.Join(missing, ", "))
	}
	return nil, invalid(key, v, "logger methods have incompatible signatures")
}

// missingMethods probes v for each capability by exported method name.
func missingMethods(v any) []string {
	if v == nil {
		return append([]string(nil), loggerCapabilities...)
	}
	rv := reflect.ValueOf(v)
	var missing []string
	for _, name := range loggerCapabilities {
		method := strings.ToUpper(name[:1]) + name[1:]
		if !rv.MethodByName(method).IsValid() {
			missing = append(missing, name)
		}
	}
	return missing
}
