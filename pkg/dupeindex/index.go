// Package dupeindex implements the Duplicate Index: an ordered
// collection keyed by Content Key, where insertion drives the lazy
// comparison ladder and, on equality, the Link Operation.
package dupeindex

import (
	"errors"
	"fmt"

	"github.com/twinlink/twinlink/pkg/contentkey"
	"github.com/twinlink/twinlink/pkg/fdr"
)

// Linker performs the atomic filesystem mutation that makes victimPath
// refer to survivor's inode (hardlink or reflink). It is the one
// dependency dupeindex takes on pkg/linkop, expressed as an interface
// so the merge logic can be tested without touching a real filesystem.
type Linker interface {
	Link(victimPath string, expected fdr.Expected, survivor *fdr.FDR) (reflinked bool, err error)
}

// Index is the ordered map of Content Key -> FDR. Per the design note in
// spec.md §9 there is no operator overloading here: every ordering
// decision goes through the explicit contentkey.Compare function. The
// backing store is a slice kept sorted by that comparator, searched with
// a manual binary search (see SPEC_FULL.md §9 for why a slice rather
// than a balanced tree: the example pack carries no ordered-map/B-tree
// library to reach for).
type Index struct {
	entries []*entry

	linker   Linker
	counters *Counters

	// dryRun performs the in-memory merge (so reporting and the final
	// equivalence classes look exactly like a real run) without ever
	// calling the Linker.
	dryRun bool

	// noMerging additionally skips the in-memory merge: used for
	// --json --dry-run, where the event stream should describe raw scan
	// results rather than speculative grouping (mirrors the reference
	// implementation's DryRunNoMerging mode).
	noMerging bool
}

type entry struct {
	key      *contentkey.Key
	survivor *fdr.FDR
}

// New returns an empty Index. linker is consulted on every confirmed
// duplicate unless dryRun is set.
func New(linker Linker, counters *Counters, dryRun, noMerging bool) *Index {
	return &Index{
		linker:    linker,
		counters:  counters,
		dryRun:    dryRun,
		noMerging: noMerging,
	}
}

// Result describes what happened to one inserted FDR.
type Result struct {
	// Duplicate is true if rec's content matched an existing entry.
	Duplicate bool
	// Survivor is the FDR that rec's paths were (or would be, in dry
	// run) merged onto. Valid only if Duplicate.
	Survivor *fdr.FDR
	// Linked holds the subset of rec's paths that were successfully
	// merged onto Survivor. A path can be missing here if its Link
	// Operation failed (reported via the returned error).
	Linked []string
}

// Insert places rec in the index, binary-searching the entries already
// present via the Content Key ladder. The first-seen inode for
// a given content is always the survivor (spec.md §5's "simpler,
// recommended" policy — see SPEC_FULL.md §4.3 for why the
// largest-hardlink-count alternative is rejected): rec is only ever the
// one mutated, never an inode that already settled as a survivor.
func (idx *Index) Insert(rec *fdr.FDR) (Result, error) {
	pos, found, err := idx.search(rec.Key)
	if err != nil {
		// The comparison ladder failed reading rec or some existing
		// entry. Per spec.md §4.1, the offending key is poisoned and
		// its FDR drops out of the index without linking; we know for
		// certain that rec itself must drop out (it was never placed),
		// so close its handle and propagate the error as a per-file
		// failure. Whichever existing entry's key actually failed to
		// read will fail identically on its own next comparison and be
		// evicted at that point.
		_ = rec.Close()
		return Result{}, fmt.Errorf("comparing %q against duplicate index: %w", firstPath(rec), err)
	}

	if !found {
		idx.insertAt(pos, rec)
		idx.counters.addUnique(rec.Size)
		return Result{}, nil
	}

	e := idx.entries[pos]

	if idx.noMerging {
		return Result{Duplicate: true, Survivor: e.survivor}, nil
	}

	linked, mergeErr := idx.mergeInto(e.survivor, rec)
	return Result{Duplicate: true, Survivor: e.survivor, Linked: linked}, mergeErr
}

// search returns the insertion point for key, and whether an equal
// entry already exists there.
func (idx *Index) search(key *contentkey.Key) (int, bool, error) {
	lo, hi := 0, len(idx.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		c, err := contentkey.Compare(idx.entries[mid].key, key)
		if err != nil {
			return 0, false, err
		}
		switch {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false, nil
}

func (idx *Index) insertAt(pos int, rec *fdr.FDR) {
	idx.entries = append(idx.entries, nil)
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = &entry{key: rec.Key, survivor: rec}
}

// Remove drops the entry anchored on rec's key, e.g. after rec's key is
// found poisoned on a later comparison. It is a no-op if rec is not the
// anchor entry for its position (only the anchor FDR can be removed;
// FDRs already merged away are not present as their own entry).
func (idx *Index) Remove(rec *fdr.FDR) {
	for i, e := range idx.entries {
		if e.survivor == rec {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			return
		}
	}
}

// mergeInto links every path of dup onto survivor, choosing hardlink or
// reflink per the configured Linker, and folds dup's path list into
// survivor's. dup itself is left with no paths and its content key
// closed: it no longer needs an open handle once its content is known.
func (idx *Index) mergeInto(survivor *fdr.FDR, dup *fdr.FDR) ([]string, error) {
	var linked []string
	var errs []error
	expected := dup.Expected()

	for _, p := range dup.TakePaths() {
		if idx.dryRun {
			survivor.AddPath(p)
			linked = append(linked, p)
			idx.counters.addDuplicate()
			idx.counters.addDedupedBytes(survivor.Size)
			continue
		}

		reflinked, err := idx.linker.Link(p, expected, survivor)
		if err != nil {
			errs = append(errs, fmt.Errorf("linking %q to %q: %w", p, firstPath(survivor), err))
			continue
		}

		survivor.AddPath(p)
		linked = append(linked, p)
		idx.counters.addDuplicate()
		idx.counters.addDedupedBytes(survivor.Size)
		if reflinked {
			idx.counters.addReflink(survivor.Size)
		} else {
			idx.counters.addHardlink()
		}
	}

	_ = dup.Close()

	return linked, errors.Join(errs...)
}

func firstPath(rec *fdr.FDR) string {
	if p := rec.FirstPath(); p != "" {
		return p
	}
	return "<no path>"
}

// Len returns the number of distinct content groups currently tracked.
func (idx *Index) Len() int {
	return len(idx.entries)
}
