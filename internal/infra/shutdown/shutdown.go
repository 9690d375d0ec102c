package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// Hook is run on shutdown or reload.
type Hook func(context.Context) error

// Handler handles graceful shutdown and SIGHUP reloads.
type Handler struct {
	timeout     time.Duration
	hooks       []Hook
	reloadHooks []Hook
	mu          sync.Mutex
	done        chan struct{}
	once        sync.Once
	err         error
	logger      logger.Logger
}

// NewHandler creates a new shutdown handler.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout:     timeout,
		hooks:       make([]Hook, 0),
		reloadHooks: make([]Hook, 0),
		done:        make(chan struct{}),
		logger:      logger.Default(),
	}
}

// SetLogger sets the logger used to report reload failures.
func (h *Handler) SetLogger(l logger.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = l
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// OnReload registers a hook run on every SIGHUP, in registration order.
// A failing reload hook is logged and does not stop the process.
func (h *Handler) OnReload(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloadHooks = append(h.reloadHooks, hook)
}

// Wait waits for a shutdown signal and executes hooks.
func (h *Handler) Wait() error {
	return h.WaitContext(context.Background())
}

// WaitContext is Wait that also shuts down when ctx is done.
func (h *Handler) WaitContext(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

wait:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				h.reload()
				continue
			}
			h.log().Info("shutdown signal received", "signal", sig.String())
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	return h.Shutdown()
}

func (h *Handler) reload() {
	h.mu.Lock()
	hooks := make([]Hook, len(h.reloadHooks))
	copy(hooks, h.reloadHooks)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			h.log().Error("reload failed", "error", err)
		}
	}
}

// Shutdown runs the shutdown hooks without waiting for a signal. Only the
// first call runs them; later calls return the same result.
func (h *Handler) Shutdown() error {
	h.once.Do(func() {
		h.err = h.shutdown()
	})
	return h.err
}

func (h *Handler) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	// Execute hooks in reverse order
	h.mu.Lock()
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var lastErr error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			lastErr = err
		}
	}

	close(h.done)
	return lastErr
}

func (h *Handler) log() logger.Logger {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logger
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
