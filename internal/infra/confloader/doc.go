// Package confloader builds construction overrides and watches the
// configuration script.
//
// Overrides are flat setting-name keys collected with koanf from several
// sources. Later sources win:
//
//  1. Overrides file (YAML)
//  2. Environment variables (HERDSMAN_<NAME>)
//  3. Command-line assignments (--set name=value)
//
// Values from the environment and the command line are typed: integers,
// floats, booleans, durations and comma-separated lists are recognized;
// anything else stays a string.
//
// The Watcher reports changes to the configuration script itself, with
// bursts of filesystem events coalesced by a rate limiter.
package confloader
