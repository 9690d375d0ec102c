package configurator

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrInvalidValue is matched by every validation failure.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnknownSetting is matched when an override or script statement
	// names a setting that has no setter.
	ErrUnknownSetting = errors.New("unknown setting")
)

// InvalidValueError describes a value rejected by a setter. Filesystem
// failures during path checks are wrapped in Err.
type InvalidValueError struct {
	Setting Key
	Value   any
	Reason  string
	Err     error
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("invalid value for %s (%s): %s", e.Setting, describe(e.Value), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrInvalidValue as a match.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

// UnknownSettingError names a setting with no setter.
type UnknownSettingError struct {
	Name string
}

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("unknown setting %q", e.Name)
}

// Is reports ErrUnknownSetting as a match.
func (e *UnknownSettingError) Is(target error) bool {
	return target == ErrUnknownSetting
}

func invalid(key Key, v any, format string, args ...any) error {
	return &InvalidValueError{Setting: key, Value: v, Reason: fmt.Sprintf(format, args...)}
}

// describe renders a value for error messages without dumping callables or
// loggers.
func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", x)
	case ForkHook, ExecHook, *luaFunction:
		return "function"
	case *luaObject:
		return "table"
	}
	if isFunc(v) {
		return fmt.Sprintf("%T", v)
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
