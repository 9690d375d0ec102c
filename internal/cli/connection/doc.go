// Package connection is the CLI's client for a running herdsman's status
// server.
//
// Addresses are host:port, an http(s) URL, or unix:/path for a server
// listening on a Unix domain socket. Responses arrive in the server's
// JSON envelope; errors carry its code and message.
package connection
