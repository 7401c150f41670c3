package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/twinlink/twinlink/pkg/dupeindex"
)

// TextReporter prints human-readable progress to an io.Writer (stdout
// in normal use). FileScanned lines are throttled to at most one per
// second, matching the reference implementation's ui.rs Timing struct,
// so a large scan does not drown its own terminal in output.
type TextReporter struct {
	out io.Writer

	mu         sync.Mutex
	start      time.Time
	nextUpdate time.Duration
}

// NewTextReporter returns a reporter that writes to out.
func NewTextReporter(out io.Writer) *TextReporter {
	return &TextReporter{out: out, start: time.Now()}
}

func (r *TextReporter) FileScanned(path string, stats dupeindex.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.start)
	if elapsed < r.nextUpdate {
		return
	}
	r.nextUpdate = elapsed + time.Second

	fmt.Fprintf(r.out, "%d+%d dupes. %d+%d files scanned. %s/…\n",
		stats.NewDupesLinked, stats.ExistingHardlinksResolved,
		stats.FilesScanned, stats.FilesSkipped,
		filepath.Dir(path))
}

func (r *TextReporter) DuplicateFound(victim, survivor string) {
	fmt.Fprintf(r.out, "Found dupe %s\n", CombinedPaths(victim, survivor))
}

func (r *TextReporter) Hardlinked(victim, survivor string) {
	fmt.Fprintf(r.out, "Hardlinked %s\n", CombinedPaths(victim, survivor))
}

func (r *TextReporter) Reflinked(victim, survivor string) {
	fmt.Fprintf(r.out, "Reflinked %s\n", CombinedPaths(victim, survivor))
}

func (r *TextReporter) Error(path string, err error) {
	fmt.Fprintf(r.out, "Error: %s: %v\n", path, err)
}

func (r *TextReporter) ScanOver(_ []Group, stats dupeindex.Snapshot, duration time.Duration) {
	saved := stats.BytesSaved
	fmt.Fprintf(r.out,
		"Dupes found: %d. Existing hardlinks: %d. Scanned: %d. Skipped %d. Reclaimed: %s. Total scan duration: %s\n",
		stats.NewDupesLinked, stats.ExistingHardlinksResolved, stats.FilesScanned, stats.FilesSkipped,
		humanize.IBytes(saved), niceDuration(duration))
}

// niceDuration mirrors the reference implementation's scan_over
// formatting: sub-second precision below five seconds, whole seconds up
// to a minute, minutes-and-seconds beyond that.
func niceDuration(d time.Duration) string {
	switch {
	case d < 5*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		total := int(d.Seconds())
		return fmt.Sprintf("%dm%ds", total/60, total%60)
	}
}
