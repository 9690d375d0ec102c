// Package master is the live target configuration is committed to.
//
// A Master keeps the applied settings of a running herdsman process. It
// serializes reloads coming from SIGHUP and from the file watcher, counts
// them in metrics and tags every successful commit with a ULID
// generation. Watcher-triggered reloads are skipped when the script's
// murmur3 digest did not change.
//
// Master never forks workers or binds sockets; it records what a
// supervisor would act on and runs the configured hooks on request.
package master
