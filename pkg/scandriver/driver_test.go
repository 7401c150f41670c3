package scandriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinlink/twinlink/pkg/config"
	"github.com/twinlink/twinlink/pkg/contentkey"
	"github.com/twinlink/twinlink/pkg/dupeindex"
	"github.com/twinlink/twinlink/pkg/linkop"
	"github.com/twinlink/twinlink/pkg/reporter"
)

// capturingReporter records every event for assertion, guarded by a
// mutex since FileScanned/DuplicateFound/etc. can arrive from
// concurrent fastwalk workers.
type capturingReporter struct {
	mu         sync.Mutex
	duplicates [][2]string
	hardlinked [][2]string
	reflinked  [][2]string
	errors     []string
	groups     []reporter.Group
	stats      dupeindex.Snapshot
	scanOver   bool
}

func (c *capturingReporter) FileScanned(string, dupeindex.Snapshot) {}

func (c *capturingReporter) DuplicateFound(victim, survivor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duplicates = append(c.duplicates, [2]string{victim, survivor})
}

func (c *capturingReporter) Hardlinked(victim, survivor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hardlinked = append(c.hardlinked, [2]string{victim, survivor})
}

func (c *capturingReporter) Reflinked(victim, survivor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reflinked = append(c.reflinked, [2]string{victim, survivor})
}

func (c *capturingReporter) Error(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, path)
}

func (c *capturingReporter) ScanOver(groups []reporter.Group, stats dupeindex.Snapshot, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = groups
	c.stats = stats
	c.scanOver = true
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testOptions(rep reporter.Reporter, mode linkop.Mode, dryRun bool) Options {
	cfg := config.Default()
	cfg.BlockSize = 1 // every test file here is smaller than a real block; don't skip them
	return Options{
		Config:   cfg,
		Small:    true,
		LinkMode: mode,
		DryRun:   dryRun,
		Reporter: rep,
	}
}

func TestRunCollapsesDuplicateFilesOntoFirstSeenSurvivor(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	c := filepath.Join(dir, "c.txt")
	writeFile(t, a, "identical payload")
	writeFile(t, b, "identical payload")
	writeFile(t, c, "different payload")

	rep := &capturingReporter{}
	salt, err := contentkey.NewSalt()
	require.NoError(t, err)

	d := New(testOptions(rep, linkop.Hardlink, false), salt)
	require.NoError(t, d.Run(context.Background(), []string{dir}))

	require.True(t, rep.scanOver)
	assert.Equal(t, uint64(2), rep.stats.UniqueBodies)
	assert.Equal(t, uint64(1), rep.stats.NewDupesLinked)
	require.Len(t, rep.duplicates, 1)
	// Whichever of a/b the walk visited first becomes the survivor; the
	// other is reported as the victim merged onto it.
	victim, survivor := rep.duplicates[0][0], rep.duplicates[0][1]
	assert.ElementsMatch(t, []string{a, b}, []string{victim, survivor})
	require.Len(t, rep.hardlinked, 1)

	infoA, err := os.Lstat(a)
	require.NoError(t, err)
	infoB, err := os.Lstat(b)
	require.NoError(t, err)
	assert.True(t, os.SameFile(infoA, infoB), "a and b should now share an inode")
}

func TestRunDryRunNeverMutatesTheFilesystem(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "identical payload")
	writeFile(t, b, "identical payload")

	rep := &capturingReporter{}
	salt, err := contentkey.NewSalt()
	require.NoError(t, err)

	d := New(testOptions(rep, linkop.Hardlink, true), salt)
	require.NoError(t, d.Run(context.Background(), []string{dir}))

	assert.Empty(t, rep.hardlinked, "dry run must never call the linker")
	assert.Equal(t, uint64(1), rep.stats.NewDupesLinked)

	infoA, err := os.Lstat(a)
	require.NoError(t, err)
	infoB, err := os.Lstat(b)
	require.NoError(t, err)
	assert.False(t, os.SameFile(infoA, infoB), "dry run must leave separate inodes in place")
}

func TestRunResolvesExistingHardlinksWithoutContentComparison(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "shared inode payload")
	require.NoError(t, os.Link(a, b))

	rep := &capturingReporter{}
	salt, err := contentkey.NewSalt()
	require.NoError(t, err)

	d := New(testOptions(rep, linkop.Hardlink, false), salt)
	require.NoError(t, d.Run(context.Background(), []string{dir}))

	assert.Equal(t, uint64(1), rep.stats.ExistingHardlinksResolved)
	assert.Equal(t, uint64(1), rep.stats.UniqueBodies)
	assert.Empty(t, rep.duplicates, "pre-existing hardlinks must never reach the duplicate index")

	require.Len(t, rep.groups, 1)
	assert.ElementsMatch(t, []string{a, b}, rep.groups[0].Paths)
}

func TestRunSkipsFilesBelowBlockSizeUnlessSmall(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "x")
	writeFile(t, b, "x")

	rep := &capturingReporter{}
	salt, err := contentkey.NewSalt()
	require.NoError(t, err)

	opts := testOptions(rep, linkop.Hardlink, false)
	opts.Small = false
	opts.Config.BlockSize = 4096

	d := New(opts, salt)
	require.NoError(t, d.Run(context.Background(), []string{dir}))

	assert.Equal(t, uint64(2), rep.stats.FilesSkipped)
	assert.Equal(t, uint64(0), rep.stats.UniqueBodies)
}

func TestRunHonorsExcludeListByBaseName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "skipme"), 0o755))
	writeFile(t, filepath.Join(dir, "skipme", "a.txt"), "identical payload")
	writeFile(t, filepath.Join(dir, "b.txt"), "identical payload")

	rep := &capturingReporter{}
	salt, err := contentkey.NewSalt()
	require.NoError(t, err)

	opts := testOptions(rep, linkop.Hardlink, false)
	opts.Config.Excludes = []string{"skipme"}

	d := New(opts, salt)
	require.NoError(t, d.Run(context.Background(), []string{dir}))

	assert.Equal(t, uint64(1), rep.stats.FilesScanned)
	assert.Empty(t, rep.duplicates)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("file%d.txt", i)), "payload")
	}

	rep := &capturingReporter{}
	salt, err := contentkey.NewSalt()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(testOptions(rep, linkop.Hardlink, false), salt)
	err = d.Run(ctx, []string{dir})
	require.Error(t, err)
}

func TestEquivalenceClassesAreSortedDeterministicallyByCaller(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "same")
	writeFile(t, b, "same")

	rep := &capturingReporter{}
	salt, err := contentkey.NewSalt()
	require.NoError(t, err)

	d := New(testOptions(rep, linkop.Hardlink, false), salt)
	require.NoError(t, d.Run(context.Background(), []string{dir}))

	require.Len(t, rep.groups, 1)
	paths := append([]string(nil), rep.groups[0].Paths...)
	sort.Strings(paths)
	assert.Equal(t, []string{a, b}, paths)
}
