// Package configurator is the settings overlay engine of herdsman.
//
// A Configurator collects settings into a sparse, insertion-ordered overlay
// over a fixed defaults table. Every setting has a validating setter; values
// that pass are normalized before they are stored, values that fail leave
// the overlay untouched and return an error matching ErrInvalidValue.
//
// Settings come from three places, applied in this order:
//
//  1. the defaults table, when the "use_defaults" override is true
//  2. construction overrides passed to New
//  3. the configuration script named by the "config_file" override
//
// The configuration script is Lua, run in a sandbox whose vocabulary is the
// setter names:
//
//	worker_processes(4)
//	timeout(30)
//	listen("0.0.0.0:8080")
//	after_fork(function(server, worker_nr)
//	    server:info("worker " .. worker_nr .. " ready")
//	end)
//
// Reload re-runs the script against the same overlay. Settings the script no
// longer mentions keep their previous values.
//
// Commit projects the overlay onto a Target. Targets implement a typed
// setter interface (TimeoutSetter, LoggerSetter, ...) for the settings they
// handle themselves and receive the rest through ApplyRaw.
//
// A Configurator is not safe for concurrent use. Callers serialize Reload,
// Commit and the setters.
package configurator
