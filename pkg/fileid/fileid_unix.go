//go:build !windows

package fileid

import (
	"fmt"
	"io/fs"
	"syscall"
)

// lstatInfo uses syscall.Lstat directly instead of os.Lstat, avoiding
// the extra os.FileInfo allocation when the caller needs the (device,
// inode) pair, link count, size and mode all from the same syscall.
func lstatInfo(path string) (Info, error) {
	var stat syscall.Stat_t
	if err := syscall.Lstat(path, &stat); err != nil {
		return Info{}, fmt.Errorf("lstat %q: %w", path, err)
	}

	return Info{
		ID: FileID{
			Dev: uint64(stat.Dev), //nolint:unconvert // Dev is int32 on some unix variants
			Ino: uint64(stat.Ino),
		},
		Nlink:   uint64(stat.Nlink),
		Size:    stat.Size,
		Mode:    unixFileMode(uint32(stat.Mode)),
		ModTime: modTime(&stat),
	}, nil
}

// unixFileMode translates a raw syscall.Stat_t mode word into the
// fs.FileMode bits the rest of the scan driver reasons about (regular
// vs. symlink vs. other specials), mirroring what os.Lstat itself does
// internally.
func unixFileMode(raw uint32) fs.FileMode {
	perm := fs.FileMode(raw & 0o777)

	switch raw & syscall.S_IFMT {
	case syscall.S_IFDIR:
		return perm | fs.ModeDir
	case syscall.S_IFLNK:
		return perm | fs.ModeSymlink
	case syscall.S_IFIFO:
		return perm | fs.ModeNamedPipe
	case syscall.S_IFSOCK:
		return perm | fs.ModeSocket
	case syscall.S_IFCHR:
		return perm | fs.ModeDevice | fs.ModeCharDevice
	case syscall.S_IFBLK:
		return perm | fs.ModeDevice
	case syscall.S_IFREG:
		return perm
	default:
		return perm | fs.ModeIrregular
	}
}
