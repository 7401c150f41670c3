// Package inoderegistry maps (device, inode) identities to the File
// Descriptor Record that owns them, so that multiple input paths
// resolving to the same inode are merged without ever being compared
// by content.
package inoderegistry

import (
	"sync"

	"github.com/twinlink/twinlink/pkg/fdr"
	"github.com/twinlink/twinlink/pkg/fileid"
)

// Registry is the single source of truth for "have we seen this inode
// before". Entries are created on first encounter and destroyed only
// when the registry itself is discarded at process end — they may
// still be referenced from the duplicate index after they have been
// removed from it, which Go's garbage collector handles without any of
// the reference-counting the original implementation needed.
//
// The scan driver's directory walk runs its visit callback from
// multiple fastwalk worker goroutines, so every access here is guarded
// by mu; this is the one piece of shared mutable state the walk phase
// touches outside of the single-threaded duplicate index insert.
type Registry struct {
	mu      sync.Mutex
	entries map[fileid.FileID]*fdr.FDR
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[fileid.FileID]*fdr.FDR)}
}

// Resolve is the atomic check-then-act every concurrent walk worker
// must use: if id is already registered, path is merged onto the
// existing FDR and existed is true; otherwise newRec is registered as
// id's FDR. Either way the returned FDR is the one now owned by the
// registry for id.
func (r *Registry) Resolve(id fileid.FileID, path string, newRec func() *fdr.FDR) (rec *fdr.FDR, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[id]; ok {
		existing.AddPath(path)
		return existing, true
	}

	rec = newRec()
	r.entries[id] = rec
	return rec, false
}

// Len returns the number of distinct inodes currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// All returns every registered FDR. Used at shutdown to report final
// equivalence classes without going through the duplicate index (which
// no longer holds merged-away entries).
func (r *Registry) All() []*fdr.FDR {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*fdr.FDR, 0, len(r.entries))
	for _, rec := range r.entries {
		out = append(out, rec)
	}
	return out
}
