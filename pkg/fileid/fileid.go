// Package fileid resolves the (device, inode) identity of a file the way
// the filesystem sees it, independent of any path that happens to name it.
package fileid

import (
	"fmt"
	"io/fs"
	"time"
)

// FileID uniquely identifies a physical file on a single machine.
// On Unix this is the (device, inode) pair; on Windows it is the
// (volume serial number, file index) pair. It is comparable and can be
// used as a map key without allocation.
type FileID struct {
	Dev uint64
	Ino uint64
}

// String returns a human-readable representation, e.g. for log fields.
func (f FileID) String() string {
	return fmt.Sprintf("%d:%d", f.Dev, f.Ino)
}

// IsZero reports whether this is the zero value (never a valid id).
func (f FileID) IsZero() bool {
	return f.Dev == 0 && f.Ino == 0
}

// Info is everything one lstat call yields. Nlink is carried for
// completeness (every platform backend already has it from the same
// syscall) even though the scan driver's own skip policy and FDR
// construction only need ID/Size/Mode/ModTime.
type Info struct {
	ID      FileID
	Nlink   uint64
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// Stat returns path's identity and metadata in a single lstat, using
// syscall.Stat_t directly rather than os.Lstat so the hot path (every
// scanned file) avoids an extra os.FileInfo allocation. It does not
// follow symlinks.
func Stat(path string) (Info, error) {
	return lstatInfo(path)
}
