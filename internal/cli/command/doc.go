// Package command provides CLI command definitions for herdsman.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: application, global flags, logging setup
//   - overrides.go: construction overrides from file, env and flags
//   - check.go: load the configuration and print the effective settings
//   - defaults.go: print the defaults table
//   - run.go: keep the configuration applied, reloading on SIGHUP, file
//     changes and POST /reload, and serve the status server
//   - history.go: list applied generations from a state directory or a
//     running process
//   - remote.go: status and reload against a running process
//
// Commands follow a consistent pattern of parsing flags, building a
// Configurator, and formatting output.
package command
