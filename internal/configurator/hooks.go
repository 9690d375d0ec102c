package configurator

import (
	"os"
	"reflect"

	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// Server is what hooks receive: the object the settings were committed to.
type Server interface {
	Logger() Logger
}

// ForkHook runs around worker forks. workerNr is the worker's index.
// after_fork and before_fork take ForkHooks.
type ForkHook func(srv Server, workerNr int) error

// ExecHook runs in a forked child right before it re-executes the binary.
// before_exec takes an ExecHook.
type ExecHook func(srv Server) error

// DefaultAfterFork logs the spawned worker.
func DefaultAfterFork(srv Server, workerNr int) error {
	serverLogger(srv).Info("worker spawned", "worker", workerNr, "pid", os.Getpid())
	return nil
}

// DefaultBeforeFork does nothing.
func DefaultBeforeFork(Server, int) error {
	return nil
}

// DefaultBeforeExec logs the re-exec.
func DefaultBeforeExec(srv Server) error {
	serverLogger(srv).Info("forked child re-executing")
	return nil
}

func serverLogger(srv Server) Logger {
	if srv != nil {
		if l := srv.Logger(); l != nil {
			return l
		}
	}
	return logger.Default()
}

// toForkHook accepts a ForkHook, a plain func(Server, int) error or a Lua
// function declaring two parameters. nil selects fallback.
func toForkHook(key Key, v any, fallback ForkHook) (ForkHook, error) {
	switch h := v.(type) {
	case nil:
		return fallback, nil
	case ForkHook:
		if h == nil {
			return fallback, nil
		}
		return h, nil
	case func(Server, int) error:
		if h == nil {
			return fallback, nil
		}
		return ForkHook(h), nil
	case *luaFunction:
		if err := h.checkArity(key, 2); err != nil {
			return nil, err
		}
		return h.forkHook(), nil
	}
	return nil, badCallable(key, v, 2)
}

// toExecHook accepts an ExecHook, a plain func(Server) error or a Lua
// function declaring one parameter. nil selects fallback.
func toExecHook(key Key, v any, fallback ExecHook) (ExecHook, error) {
	switch h := v.(type) {
	case nil:
		return fallback, nil
	case ExecHook:
		if h == nil {
			return fallback, nil
		}
		return h, nil
	case func(Server) error:
		if h == nil {
			return fallback, nil
		}
		return ExecHook(h), nil
	case *luaFunction:
		if err := h.checkArity(key, 1); err != nil {
			return nil, err
		}
		return h.execHook(), nil
	}
	return nil, badCallable(key, v, 1)
}

func badCallable(key Key, v any, want int) error {
	if !isFunc(v) {
		return invalid(key, v, "not callable")
	}
	t := reflect.TypeOf(v)
	if t.NumIn() != want {
		return invalid(key, v, "arity %d, want %d", t.NumIn(), want)
	}
	return invalid(key, v, "wrong signature %s", t)
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}
