// Package scandriver is the Scanner driver: it walks the input paths,
// classifies every regular file, feeds newly-seen inodes through the
// duplicate index, and reports every externally-visible event along
// the way. It is the one package that wires every other component
// (fileid, fdr, inoderegistry, contentkey, dupeindex, linkop, reporter)
// into a single run.
package scandriver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"

	"github.com/twinlink/twinlink/pkg/config"
	"github.com/twinlink/twinlink/pkg/contentkey"
	"github.com/twinlink/twinlink/pkg/dupeindex"
	"github.com/twinlink/twinlink/pkg/fdr"
	"github.com/twinlink/twinlink/pkg/fileid"
	"github.com/twinlink/twinlink/pkg/inoderegistry"
	"github.com/twinlink/twinlink/pkg/linkop"
	"github.com/twinlink/twinlink/pkg/logger"
	"github.com/twinlink/twinlink/pkg/reporter"
)

var log = logger.GetLogger("scandriver")

// Options configures one run of the Scanner driver.
type Options struct {
	Config config.Config

	// Small disables the one-block minimum-size skip (the -s/--small
	// flag).
	Small bool

	// LinkMode selects the Link Operation's hardlink/reflink strategy.
	LinkMode linkop.Mode

	// DryRun skips the Link Operation entirely; duplicates are still
	// found and merged in memory so reporting looks like a real run.
	DryRun bool

	// NoMerging additionally skips the in-memory merge, so the
	// reporter sees raw, ungrouped scan results (used for --json
	// --dry-run, mirroring the reference implementation's
	// DryRunNoMerging mode).
	NoMerging bool

	Reporter reporter.Reporter
}

// Driver runs one deduplication pass over a set of root paths.
type Driver struct {
	opts Options

	registry *inoderegistry.Registry
	index    *dupeindex.Index
	counters *dupeindex.Counters
	lru      *contentkey.HandleLRU
	ladder   contentkey.Ladder
	salt     []byte

	linker *reportingLinker

	excludes map[string]bool

	insertCh chan *fdr.FDR
	wg       sync.WaitGroup
}

// New builds a Driver ready to Run. salt must come from contentkey.NewSalt
// and is shared by every Content Key this run opens.
func New(opts Options, salt []byte) *Driver {
	counters := &dupeindex.Counters{}
	linker := &reportingLinker{
		exec:     linkop.New(opts.LinkMode),
		reporter: opts.Reporter,
	}

	excludes := make(map[string]bool, len(opts.Config.Excludes))
	for _, e := range opts.Config.Excludes {
		excludes[e] = true
	}

	return &Driver{
		opts:     opts,
		registry: inoderegistry.New(),
		index:    dupeindex.New(linker, counters, opts.DryRun, opts.NoMerging),
		counters: counters,
		lru:      contentkey.NewHandleLRU(opts.Config.MaxOpenHandles),
		ladder:   contentkey.Ladder{Min: opts.Config.MinChunkSize, Max: opts.Config.MaxChunkSize},
		salt:     salt,
		linker:   linker,
		excludes: excludes,
		insertCh: make(chan *fdr.FDR, 64),
	}
}

// reportingLinker adapts linkop.Executor to dupeindex.Linker, emitting
// the Reporter's Hardlinked/Reflinked event for every successful Link
// Operation. It is the one place a Link Operation's outcome becomes an
// externally-visible event.
type reportingLinker struct {
	exec     *linkop.Executor
	reporter reporter.Reporter
}

func (l *reportingLinker) Link(victimPath string, expected fdr.Expected, survivor *fdr.FDR) (bool, error) {
	reflinked, err := l.exec.Link(victimPath, expected, survivor)
	if err != nil {
		return reflinked, err
	}
	survivorPath := survivor.FirstPath()
	if l.reporter != nil {
		if reflinked {
			l.reporter.Reflinked(victimPath, survivorPath)
		} else {
			l.reporter.Hardlinked(victimPath, survivorPath)
		}
	}
	return reflinked, nil
}

// Run walks every root, deduplicating as it goes, and blocks until the
// walk and every queued comparison/link have finished or ctx is
// cancelled. It returns an error only for a root path that could not be
// resolved, a walk-level failure, or context cancellation; per-file
// errors are reported through the Reporter and never returned.
func (d *Driver) Run(ctx context.Context, roots []string) error {
	start := time.Now()

	d.wg.Add(1)
	go d.insertLoop(ctx)

	walkCfg := &fastwalk.Config{
		Follow: false,
	}

	var walkErr error
	for _, root := range roots {
		canon, err := filepath.EvalSymlinks(root)
		if err != nil {
			err = errors.Wrapf(err, "resolving root %q", root)
			d.reportError(root, err)
			if walkErr == nil {
				walkErr = err
			}
			continue
		}

		err = fastwalk.Walk(walkCfg, canon, func(path string, de fs.DirEntry, err error) error {
			return d.visit(ctx, path, de, err)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			walkErr = err
			break
		}
		if ctx.Err() != nil {
			walkErr = ctx.Err()
			break
		}
	}

	close(d.insertCh)
	d.wg.Wait()

	for _, rec := range d.registry.All() {
		_ = rec.Close()
	}

	groups := d.equivalenceClasses()
	if d.opts.Reporter != nil {
		d.opts.Reporter.ScanOver(groups, d.counters.Snapshot(), time.Since(start))
	}

	if walkErr != nil {
		return fmt.Errorf("walking input paths: %w", walkErr)
	}
	return nil
}

// visit classifies one directory entry, applying the exclude list, the
// small-file skip policy, and inode-registry merging, then hands newly
// seen inodes to the single-threaded insert loop. It runs concurrently
// across fastwalk's own worker pool.
func (d *Driver) visit(ctx context.Context, path string, de fs.DirEntry, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		d.reportError(path, err)
		return nil
	}

	base := filepath.Base(path)
	if d.excludes[base] {
		if de.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if de.IsDir() {
		return nil
	}
	if de.Type()&fs.ModeSymlink != 0 {
		return nil
	}
	if !de.Type().IsRegular() {
		d.counters.AddSkipped()
		return nil
	}

	d.counters.AddScanned()
	if d.opts.Reporter != nil {
		d.opts.Reporter.FileScanned(path, d.counters.Snapshot())
	}

	info, err := fileid.Stat(path)
	if err != nil {
		d.counters.AddSkipped()
		d.reportError(path, errors.Wrapf(err, "stat %q", path))
		return nil
	}

	// A zero-length file can never be a meaningful duplicate of anything
	// (every empty file is trivially "equal" to every other), so it is
	// always skipped regardless of --small; only the one-block cutoff
	// below is --small's to override.
	if info.Size == 0 {
		d.counters.AddSkipped()
		return nil
	}
	if !d.opts.Small && info.Size < d.opts.Config.BlockSize {
		d.counters.AddSkipped()
		return nil
	}

	rec, existed := d.registry.Resolve(info.ID, path, func() *fdr.FDR {
		key := contentkey.New(path, info.Size, d.salt, d.ladder, d.lru)
		return fdr.New(path, info.ID, info.Size, info.Mode, info.ModTime, key)
	})
	if existed {
		d.counters.AddExistingHardlink()
		return nil
	}

	select {
	case d.insertCh <- rec:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// insertLoop is the single goroutine that ever mutates the duplicate
// index, per the concurrency model's "no concurrent mutation" invariant.
func (d *Driver) insertLoop(ctx context.Context) {
	defer d.wg.Done()

	for rec := range d.insertCh {
		if ctx.Err() != nil {
			_ = rec.Close()
			continue
		}

		result, err := d.index.Insert(rec)
		if err != nil {
			// A failed search (poisoned comparator) leaves result zeroed
			// and rec already dropped; a failed merge still returns
			// whichever of rec's paths did get linked in Result.Linked,
			// so the two are reported independently below rather than
			// treating any error here as "nothing happened".
			d.reportError(firstPathOf(rec), err)
		}

		if result.Duplicate && d.opts.Reporter != nil {
			survivorPath := ""
			if result.Survivor != nil {
				survivorPath = result.Survivor.FirstPath()
			}
			for _, victim := range victimPaths(rec, result) {
				d.opts.Reporter.DuplicateFound(victim, survivorPath)
			}
		}
	}
}

// victimPaths reports the path(s) just discovered as duplicates of
// result.Survivor. In noMerging mode rec still holds its own path
// list (it was never merged away), so that is reported directly;
// otherwise result.Linked names exactly what got merged.
func victimPaths(rec *fdr.FDR, result dupeindex.Result) []string {
	if len(result.Linked) > 0 {
		return result.Linked
	}
	return rec.PathsSnapshot()
}

func firstPathOf(rec *fdr.FDR) string {
	if p := rec.FirstPath(); p != "" {
		return p
	}
	return "<unknown path>"
}

func (d *Driver) reportError(path string, err error) {
	log.WithError(err).WithField("path", path).Debug("scan error")
	if d.opts.Reporter != nil {
		d.opts.Reporter.Error(path, err)
	}
}

// equivalenceClasses reports every inode still registered that
// collected more than one path: these are exactly the groups
// spec.md's Reporter contract wants at scan end, whether or not their
// Link Operations actually ran (dry run). With merging skipped entirely
// (NoMerging), duplicates found by content are never merged onto a
// survivor, so only pre-existing hardlink groups appear here.
func (d *Driver) equivalenceClasses() []reporter.Group {
	var groups []reporter.Group
	for _, rec := range d.registry.All() {
		if len(rec.Paths) > 1 {
			groups = append(groups, reporter.Group{Paths: append([]string(nil), rec.Paths...)})
		}
	}
	return groups
}
