package configurator

import (
	"math"
	"strconv"
	"time"
)

// validator checks v for key and returns the normalized value to store.
type validator func(c *Configurator, key Key, v any) (any, error)

var validators = map[Key]validator{
	KeyBacklog:         validateBacklog,
	KeyTimeout:         validateTimeout,
	KeyWorkerProcesses: validateWorkerProcesses,
	KeyListeners:       validateListeners,
	KeyPID:             validatePath,
	KeyStderrPath:      validatePath,
	KeyStdoutPath:      validatePath,
	KeyPreloadApp:      validatePreloadApp,
	KeyLogger:          validateLogger,
	KeyAfterFork:       validateAfterFork,
	KeyBeforeFork:      validateBeforeFork,
	KeyBeforeExec:      validateBeforeExec,
}

func validateBacklog(_ *Configurator, key Key, v any) (any, error) {
	n, ok := asInt(v)
	if !ok {
		return nil, invalid(key, v, "not an integer")
	}
	return n, nil
}

func validateTimeout(_ *Configurator, key Key, v any) (any, error) {
	d, ok := asDuration(v)
	if !ok {
		return nil, invalid(key, v, "not a number")
	}
	if d <= 0 {
		if positiveFloat(v) {
			return nil, invalid(key, v, "below 1ns")
		}
		return nil, invalid(key, v, "must be positive")
	}
	return d, nil
}

func validateWorkerProcesses(_ *Configurator, key Key, v any) (any, error) {
	n, ok := asInt(v)
	if !ok {
		return nil, invalid(key, v, "not an integer")
	}
	if n < 0 {
		return nil, invalid(key, v, "must not be negative")
	}
	return n, nil
}

func validateListeners(c *Configurator, key Key, v any) (any, error) {
	var addrs []string
	switch x := v.(type) {
	case []string:
		addrs = x
	case []any:
		addrs = make([]string, 0, len(x))
		for _, item := range x {
			s, ok := addrString(item)
			if !ok {
				return nil, invalid(key, v, "address %s is not a string", describe(item))
			}
			addrs = append(addrs, s)
		}
	default:
		s, ok := addrString(v)
		if !ok {
			return nil, invalid(key, v, "not an address list")
		}
		addrs = []string{s}
	}

	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		expanded, err := c.expand(key, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return out, nil
}

func validatePreloadApp(_ *Configurator, key Key, v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, invalid(key, v, "not a boolean")
	}
	return b, nil
}

func validateAfterFork(_ *Configurator, key Key, v any) (any, error) {
	return toForkHook(key, v, DefaultAfterFork)
}

func validateBeforeFork(_ *Configurator, key Key, v any) (any, error) {
	return toForkHook(key, v, DefaultBeforeFork)
}

func validateBeforeExec(_ *Configurator, key Key, v any) (any, error) {
	return toExecHook(key, v, DefaultBeforeExec)
}

// listen appends one address, starting from an empty list when listeners
// does not hold a list.
func (c *Configurator) listen(v any) error {
	addr, ok := addrString(v)
	if !ok {
		return invalid(KeyListen, v, "not an address")
	}
	expanded, err := c.expand(KeyListen, addr)
	if err != nil {
		return err
	}

	current, _ := c.set.get(KeyListeners).([]string)
	next := make([]string, len(current), len(current)+1)
	copy(next, current)
	c.set.put(KeyListeners, append(next, expanded))
	return nil
}

func (c *Configurator) expand(key Key, addr string) (string, error) {
	if c.expandAddr == nil {
		return addr, nil
	}
	expanded, err := c.expandAddr(addr)
	if err != nil {
		return "", &InvalidValueError{Setting: key, Value: addr, Reason: "bad address", Err: err}
	}
	return expanded, nil
}

// addrString accepts an address string or a bare port number.
func addrString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if port, ok := asInt(v); ok {
		return strconv.Itoa(port), true
	}
	return "", false
}

// asInt accepts Go integer kinds only; floats are rejected even when
// integral.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// maxSeconds is the largest timeout a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// asDuration treats plain numbers as seconds.
func asDuration(v any) (time.Duration, bool) {
	switch n := v.(type) {
	case time.Duration:
		return n, true
	case float32:
		return secondsToDuration(float64(n))
	case float64:
		return secondsToDuration(n)
	}
	if i, ok := asInt(v); ok {
		return secondsToDuration(float64(i))
	}
	return 0, false
}

// positiveFloat reports whether v is a fractional number above zero.
func positiveFloat(v any) bool {
	switch n := v.(type) {
	case float32:
		return n > 0
	case float64:
		return n > 0
	}
	return false
}

func secondsToDuration(s float64) (time.Duration, bool) {
	if math.IsNaN(s) || s >= maxSeconds || s <= -maxSeconds {
		return 0, false
	}
	return time.Duration(s * float64(time.Second)), true
}
