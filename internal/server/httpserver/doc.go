// Package httpserver provides the status HTTP server of a running herdsman.
//
// Endpoints:
//
//   - GET /health: liveness
//   - GET /metrics: Prometheus metrics
//   - GET /status: the applied settings and their generation
//   - GET /history: applied generations, newest first (?limit=N)
//   - POST /reload: re-run the configuration script
//
// Every route runs behind the Recover and RequestID middlewares. POST
// /reload is additionally rate limited and audited. The server binds
// loopback by default and has no authentication.
package httpserver
