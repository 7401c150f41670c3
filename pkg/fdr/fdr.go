// Package fdr holds the File Descriptor Record: the per-inode metadata
// and path list a single inode accumulates as the scanner discovers
// paths that resolve to it.
package fdr

import (
	"io/fs"
	"sync"
	"time"

	"github.com/twinlink/twinlink/pkg/contentkey"
	"github.com/twinlink/twinlink/pkg/fileid"
)

// FDR is the per-inode record tracked while a file's content is still
// reachable from the duplicate index or the inode registry.
type FDR struct {
	ID fileid.FileID

	Size    int64
	Mode    fs.FileMode
	ModTime time.Time

	// Paths is the non-empty, order-of-discovery list of input paths
	// known to resolve to this inode. Guarded by pathsMu: the inode
	// registry can append to a survivor's Paths from a concurrent walk
	// worker at the same moment the single-threaded duplicate index
	// inserter is merging a newly-discovered duplicate onto it.
	Paths []string

	// Key is this inode's lazy content comparator. Nil once the FDR has
	// been merged away and its handle closed.
	Key *contentkey.Key

	pathsMu sync.Mutex
}

// New builds an FDR for the first path seen for a freshly registered inode.
func New(path string, id fileid.FileID, size int64, mode fs.FileMode, modTime time.Time, key *contentkey.Key) *FDR {
	return &FDR{
		ID:      id,
		Size:    size,
		Mode:    mode,
		ModTime: modTime,
		Paths:   []string{path},
		Key:     key,
	}
}

// AddPath appends path to the record's known path list unless it is
// already present.
func (f *FDR) AddPath(path string) {
	f.pathsMu.Lock()
	defer f.pathsMu.Unlock()
	for _, p := range f.Paths {
		if p == path {
			return
		}
	}
	f.Paths = append(f.Paths, path)
}

// TakePaths returns f's current path list and clears it, atomically with
// respect to AddPath. Used when f is being merged away onto a survivor:
// its paths are claimed for linking exactly once, even if another walk
// worker is still discovering new paths for the same inode concurrently.
func (f *FDR) TakePaths() []string {
	f.pathsMu.Lock()
	defer f.pathsMu.Unlock()
	paths := f.Paths
	f.Paths = nil
	return paths
}

// FirstPath returns the earliest-discovered path still known for f, or
// "" if f currently has none. Safe to call while another goroutine is
// concurrently appending via AddPath.
func (f *FDR) FirstPath() string {
	f.pathsMu.Lock()
	defer f.pathsMu.Unlock()
	if len(f.Paths) == 0 {
		return ""
	}
	return f.Paths[0]
}

// PathsSnapshot returns a copy of f's current path list. Safe to call
// while another goroutine is concurrently appending via AddPath.
func (f *FDR) PathsSnapshot() []string {
	f.pathsMu.Lock()
	defer f.pathsMu.Unlock()
	return append([]string(nil), f.Paths...)
}

// Expected captures the identity and metadata a victim path was known
// to have at stat time, for the Link Operation to re-validate against a
// fresh lstat immediately before mutating the filesystem.
type Expected struct {
	ID      fileid.FileID
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// Expected returns the identity/metadata snapshot of this record, as
// recorded at its own stat time. Every path in f.Paths was confirmed to
// share f.ID when it was added, so this single snapshot applies to all
// of them.
func (f *FDR) Expected() Expected {
	return Expected{ID: f.ID, Size: f.Size, Mode: f.Mode, ModTime: f.ModTime}
}

// Close releases this record's open content key handle, if any.
func (f *FDR) Close() error {
	if f.Key == nil {
		return nil
	}
	err := f.Key.Close()
	f.Key = nil
	return err
}
