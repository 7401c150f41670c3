//go:build linux
// +build linux

package linkop

import (
	"os"

	"golang.org/x/sys/unix"
)

const reflinkBuildSupport = true

// reflink creates dst as a copy-on-write clone of src's data using the
// FICLONE ioctl (supported by btrfs, xfs, and other filesystems that
// share extents). dst must not already exist.
func reflink(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if err := unix.IoctlFileClone(int(dstFile.Fd()), int(srcFile.Fd())); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
