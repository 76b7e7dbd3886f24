//go:build unix

package labelstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// tryLockExclusiveFast attempts a non-blocking exclusive flock on path,
// opening (and creating, if necessary) the file itself. It reports
// whether the lock was acquired immediately; on success, the returned
// func releases the lock and closes the file. A false, nil, nil result
// means the lock is currently held elsewhere and the caller should
// fall back to a blocking wait.
func tryLockExclusiveFast(path string) (bool, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, nil, err
	}
	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		f.Close()
		return false, nil, nil
	}
	if err != nil {
		f.Close()
		return false, nil, err
	}
	return true, func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
