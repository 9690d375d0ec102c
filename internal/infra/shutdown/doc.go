// Package shutdown coordinates signal-driven shutdown and reload.
//
// This package handles process signals:
//
//   - SIGINT and SIGTERM run shutdown hooks in reverse order, bounded by
//     a timeout, and end the wait
//   - SIGHUP runs reload hooks in registration order and keeps waiting
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnReload(func(ctx context.Context) error { return m.Reload("sighup") })
//	h.OnShutdown(srv.Shutdown)
//	err := h.Wait()
package shutdown
