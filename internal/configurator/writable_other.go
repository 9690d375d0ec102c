//go:build !unix

package configurator

import "os"

// checkWritable probes by creating and removing a temporary file.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".herdsman-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
