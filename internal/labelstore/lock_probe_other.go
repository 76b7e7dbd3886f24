//go:build !unix

package labelstore

// tryLockExclusiveFast has no portable non-blocking flock primitive
// outside unix; callers always fall back to the blocking gofrs/flock
// path on other platforms.
func tryLockExclusiveFast(path string) (bool, func(), error) {
	return false, nil, nil
}
