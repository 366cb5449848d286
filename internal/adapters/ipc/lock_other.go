//go:build !unix && !windows

package ipc

import (
	"errors"
	"os"
)

var errLocked = errors.New("locked")

// lockFile only creates the file; there is no advisory locking here.
func lockFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
}

func unlockFile(f *os.File) error {
	return f.Close()
}
