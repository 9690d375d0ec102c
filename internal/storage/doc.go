// Package storage keeps the history of applied configuration generations.
//
// Each successful commit is appended to an embedded Badger database under
// its ULID generation. ULIDs sort by creation time, so key order is
// application order and the newest entries are read with a reverse scan.
//
// Features:
//   - Bounded retention, older generations pruned on append
//   - Periodic value log garbage collection
//   - In-memory mode for tests and one-shot commands
//   - Size and entry gauges on a Prometheus registry
package storage
