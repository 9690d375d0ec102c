package configurator

import (
	"os"
	"path/filepath"
	"strings"
)

// validatePath accepts nil or a path whose directory is writable, and
// stores the absolute form.
func validatePath(_ *Configurator, key Key, v any) (any, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case string:
		if p == "" {
			return nil, invalid(key, v, "empty path")
		}
		abs, err := expandPath(p)
		if err != nil {
			return nil, &InvalidValueError{Setting: key, Value: v, Reason: "cannot resolve path", Err: err}
		}
		dir := filepath.Dir(abs)
		if err := checkWritable(dir); err != nil {
			return nil, &InvalidValueError{Setting: key, Value: v, Reason: "directory " + dir + " not writable", Err: err}
		}
		return abs, nil
	}
	return nil, invalid(key, v, "not a path")
}

// expandPath resolves a leading "~/" against the home directory and makes
// the result absolute.
func expandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
