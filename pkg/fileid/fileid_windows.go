//go:build windows

package fileid

import (
	"fmt"
	"io/fs"
	"syscall"
	"time"
)

// lstatInfo opens path without following reparse points and reads its
// identity through GetFileInformationByHandle, mirroring how the
// teacher's own Windows hardlink detection avoids os.Lstat.
func lstatInfo(path string) (Info, error) {
	pathp, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return Info{}, fmt.Errorf("convert path to UTF16: %w", err)
	}

	attrs := uint32(syscall.FILE_FLAG_BACKUP_SEMANTICS | syscall.FILE_FLAG_OPEN_REPARSE_POINT)

	h, err := syscall.CreateFile(pathp, 0, 0, nil, syscall.OPEN_EXISTING, attrs, 0)
	if err != nil {
		return Info{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer syscall.CloseHandle(h)

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(h, &info); err != nil {
		return Info{}, fmt.Errorf("get file info %q: %w", path, err)
	}

	size := int64(info.FileSizeHigh)<<32 | int64(info.FileSizeLow)
	mode := fs.FileMode(0o644)
	if info.FileAttributes&syscall.FILE_ATTRIBUTE_DIRECTORY != 0 {
		mode |= fs.ModeDir
	}
	if info.FileAttributes&syscall.FILE_ATTRIBUTE_REPARSE_POINT != 0 {
		mode |= fs.ModeSymlink
	}

	return Info{
		ID: FileID{
			Dev: uint64(info.VolumeSerialNumber),
			Ino: (uint64(info.FileIndexHigh) << 32) | uint64(info.FileIndexLow),
		},
		Nlink:   uint64(info.NumberOfLinks),
		Size:    size,
		Mode:    mode,
		ModTime: time.Unix(0, info.LastWriteTime.Nanoseconds()),
	}, nil
}
