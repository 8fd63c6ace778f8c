//go:build !unix

package inbox

// Without flock only the in-process mutex guards the log.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
