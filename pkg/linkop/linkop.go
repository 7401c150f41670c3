// Package linkop performs the Link Operation: the atomic filesystem
// mutation that collapses a duplicate file onto its survivor's inode.
package linkop

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/twinlink/twinlink/pkg/fdr"
	"github.com/twinlink/twinlink/pkg/fileid"
)

// Mode selects how a duplicate is collapsed onto its survivor.
type Mode int

const (
	// Hardlink always creates a new directory entry for the survivor's
	// existing inode.
	Hardlink Mode = iota
	// Reflink clones the survivor's data into a new, independent inode
	// that shares storage via copy-on-write, falling back to Hardlink
	// wherever the underlying filesystem does not support it.
	Reflink
	// ReflinkOnly requires a true copy-on-write clone and fails the
	// operation outright when the platform or filesystem cannot provide
	// one, rather than silently falling back to a hardlink.
	ReflinkOnly
)

// Executor performs Link Operations for one run, following spec.md
// §4.4's seven-step atomic replace: create a uniquely-named temporary
// link next to the victim, then rename it over the victim's path. The
// victim's original inode is only ever unlinked by that final rename,
// so a crash at any point leaves the filesystem in a valid state: either
// the victim's original content is still there, or the new link is.
type Executor struct {
	Mode Mode
}

// New returns an Executor configured for mode.
func New(mode Mode) *Executor {
	return &Executor{Mode: mode}
}

// String returns mode's config-file/flag spelling.
func (m Mode) String() string {
	switch m {
	case Hardlink:
		return "hardlink"
	case Reflink:
		return "reflink"
	case ReflinkOnly:
		return "reflink-only"
	default:
		return fmt.Sprintf("linkop.Mode(%d)", int(m))
	}
}

// ParseMode parses a config file's link_mode setting. Unknown values are
// rejected rather than silently falling back to Hardlink, since a typo
// in a config file should surface immediately rather than quietly
// changing run behavior.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "hardlink":
		return Hardlink, nil
	case "reflink":
		return Reflink, nil
	case "reflink-only":
		return ReflinkOnly, nil
	default:
		return Hardlink, errors.Errorf("linkop: unknown link_mode %q", s)
	}
}

// Link collapses victimPath onto survivor's inode. It reports whether a
// reflink clone was actually used, as opposed to a hardlink (either
// because Mode is Hardlink, or because Mode is Reflink and the
// filesystem declined the clone and Link fell back).
//
// expected is the identity and metadata victimPath had when it was
// originally stat'd and queued for comparison; per spec.md §4.4 step 1,
// Link re-lstats victimPath immediately before mutating anything and
// refuses to proceed if the path no longer resolves to that same inode,
// size, or mtime. This closes the window between "a duplicate was
// confirmed" and "the link actually happens", during which something
// else could have replaced the victim out from under the scan.
func (e *Executor) Link(victimPath string, expected fdr.Expected, survivor *fdr.FDR) (bool, error) {
	survivorPath := survivor.FirstPath()
	if survivorPath == "" {
		return false, errors.Errorf("linkop: survivor for %q has no known path", victimPath)
	}

	info, err := fileid.Stat(victimPath)
	if err != nil {
		return false, errors.Wrapf(err, "linkop: stat victim %q", victimPath)
	}
	if !info.Mode.IsRegular() {
		return false, errors.Errorf("linkop: victim %q is no longer a regular file", victimPath)
	}
	if info.ID != expected.ID {
		return false, errors.Errorf("linkop: victim %q no longer resolves to the inode it was scanned at", victimPath)
	}
	if info.Size != expected.Size {
		return false, errors.Errorf("linkop: victim %q changed size since it was scanned (%d -> %d)", victimPath, expected.Size, info.Size)
	}
	if info.Mode != expected.Mode {
		return false, errors.Errorf("linkop: victim %q permissions changed since it was scanned (%s -> %s)", victimPath, expected.Mode, info.Mode)
	}
	if !info.ModTime.Equal(expected.ModTime) {
		return false, errors.Errorf("linkop: victim %q was modified since it was scanned", victimPath)
	}

	dir := filepath.Dir(victimPath)
	tmp := tempName(dir, filepath.Base(victimPath))

	switch e.Mode {
	case Hardlink:
		if err := os.Link(survivorPath, tmp); err != nil {
			return false, errors.Wrapf(err, "linkop: hardlink %q -> %q", survivorPath, tmp)
		}
		if err := os.Rename(tmp, victimPath); err != nil {
			_ = os.Remove(tmp)
			return false, errors.Wrapf(err, "linkop: rename %q -> %q", tmp, victimPath)
		}
		return false, nil

	case Reflink:
		if err := reflink(survivorPath, tmp); err == nil {
			if err := preserveMetadata(tmp, expected); err != nil {
				_ = os.Remove(tmp)
				return false, errors.Wrapf(err, "linkop: preserve metadata on %q", tmp)
			}
			if err := os.Rename(tmp, victimPath); err != nil {
				_ = os.Remove(tmp)
				return false, errors.Wrapf(err, "linkop: rename %q -> %q", tmp, victimPath)
			}
			return true, nil
		}
		// Fall back to a hardlink. tmp may or may not exist depending
		// on how far the failed reflink attempt got; remove it before
		// retrying under the hardlink path so tempName's uniqueness
		// guarantee is not relied on twice for the same name.
		_ = os.Remove(tmp)
		if err := os.Link(survivorPath, tmp); err != nil {
			return false, errors.Wrapf(err, "linkop: hardlink fallback %q -> %q", survivorPath, tmp)
		}
		if err := os.Rename(tmp, victimPath); err != nil {
			_ = os.Remove(tmp)
			return false, errors.Wrapf(err, "linkop: rename %q -> %q", tmp, victimPath)
		}
		return false, nil

	case ReflinkOnly:
		if err := reflink(survivorPath, tmp); err != nil {
			_ = os.Remove(tmp)
			return false, errors.Wrapf(err, "linkop: reflink %q -> %q", survivorPath, tmp)
		}
		if err := preserveMetadata(tmp, expected); err != nil {
			_ = os.Remove(tmp)
			return false, errors.Wrapf(err, "linkop: preserve metadata on %q", tmp)
		}
		if err := os.Rename(tmp, victimPath); err != nil {
			_ = os.Remove(tmp)
			return false, errors.Wrapf(err, "linkop: rename %q -> %q", tmp, victimPath)
		}
		return true, nil
	}

	return false, fmt.Errorf("linkop: unknown mode %d", e.Mode)
}

// preserveMetadata copies the victim's original permissions and mtime
// onto tmp before it is renamed over the victim's path. A reflinked file
// is a brand new inode (unlike a hardlink, which shares the survivor's
// inode and therefore its metadata for free), so without this step it
// would silently take on the platform reflink backend's own file-create
// mode (0o644 on linux, whatever CreateFile defaults to on windows)
// instead of the victim's actual permissions.
func preserveMetadata(tmp string, expected fdr.Expected) error {
	if err := os.Chmod(tmp, expected.Mode.Perm()); err != nil {
		return err
	}
	return os.Chtimes(tmp, expected.ModTime, expected.ModTime)
}

// notSupported is returned by the platform reflink backends that have
// no copy-on-write primitive to offer at all (every platform other than
// linux, darwin and windows).
var notSupported = errors.New("linkop: reflink is not supported on this platform")

// ReflinkBuildSupport reports whether this binary was built for a
// platform with a copy-on-write clone primitive wired up at all. It says
// nothing about whether the filesystem backing a given path actually
// honors it (FICLONE and clonefile both fail per-call on filesystems that
// don't support CoW), only whether Reflink/ReflinkOnly have anything to
// try before falling back or erroring.
func ReflinkBuildSupport() bool {
	return reflinkBuildSupport
}
