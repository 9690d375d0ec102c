// Package main provides the entry point for herdsman.
//
// herdsman runs a Lua configuration script for a pre-forking process
// manager and keeps the resulting settings applied:
//
//	herdsman -c herdsman.lua check       # validate and print settings
//	herdsman defaults                    # print the defaults table
//	herdsman -c herdsman.lua run         # apply, then reload on SIGHUP,
//	                                     # file change or POST /reload
//	herdsman history --state-dir DIR     # list applied generations
//
// Overrides come from a YAML file (--overrides), HERDSMAN_<SETTING>
// environment variables and --set name=value, in increasing priority.
package main
