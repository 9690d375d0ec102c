// Package output renders command results for herdsman.
//
// Three formats are supported:
//
//   - table: aligned columns via text/tabwriter (default)
//   - json: indented JSON
//   - yaml: YAML documents
//
// Values that know how to lay themselves out as a table implement Tabular;
// anything else printed in table format falls back to JSON.
package output
