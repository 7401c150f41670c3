// Package reporter implements the two external collaborators spec.md
// §1 keeps out of the deduplication core: a human-readable progress
// printer and a machine-readable end-of-run summary.
package reporter

import (
	"time"

	"github.com/twinlink/twinlink/pkg/dupeindex"
)

// Group is one equivalence class of byte-identical paths, reported once
// at the end of a run.
type Group struct {
	Paths []string
}

// Reporter receives every externally-visible event a run produces.
// Mirrors the reference implementation's ScanListener trait, split into
// Hardlinked/Reflinked rather than a single "linked" event so each
// reporter can describe the Link Operation precisely.
type Reporter interface {
	// FileScanned is called once per regular file the walker visits,
	// with the running totals at that point.
	FileScanned(path string, stats dupeindex.Snapshot)
	// DuplicateFound is called once per victim path after the index has
	// confirmed its content matches survivor's and has finished merging
	// it, so any Hardlinked/Reflinked event for that path comes first.
	DuplicateFound(victim, survivor string)
	// Hardlinked and Reflinked report a completed Link Operation.
	Hardlinked(victim, survivor string)
	Reflinked(victim, survivor string)
	// Error reports a non-fatal failure tied to one path.
	Error(path string, err error)
	// ScanOver is called exactly once, after the walk and every queued
	// comparison/link have finished.
	ScanOver(groups []Group, stats dupeindex.Snapshot, duration time.Duration)
}
