//go:build darwin
// +build darwin

package linkop

import "golang.org/x/sys/unix"

const reflinkBuildSupport = true

// reflink creates dst as a copy-on-write clone of src via the APFS
// clonefile(2) syscall. dst must not already exist.
func reflink(src, dst string) error {
	return unix.Clonefile(src, dst, 0)
}
