//go:build linux

package fileid

import (
	"syscall"
	"time"
)

func modTime(stat *syscall.Stat_t) time.Time {
	return time.Unix(stat.Mtim.Sec, stat.Mtim.Nsec)
}
