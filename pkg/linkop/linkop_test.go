package linkop

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinlink/twinlink/pkg/fdr"
	"github.com/twinlink/twinlink/pkg/fileid"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// expectedFor stats path and builds the fdr.Expected the victim was
// "recorded at" for a test, mirroring what the scan driver would have
// captured at enqueue time.
func expectedFor(t *testing.T, path string) fdr.Expected {
	t.Helper()
	info, err := fileid.Stat(path)
	require.NoError(t, err)
	return fdr.Expected{ID: info.ID, Size: info.Size, Mode: info.Mode, ModTime: info.ModTime}
}

func TestLinkHardlinkModeSharesInode(t *testing.T) {
	dir := t.TempDir()
	survivorPath := writeFile(t, dir, "survivor.txt", "shared content")
	victimPath := writeFile(t, dir, "victim.txt", "shared content")

	survivor := &fdr.FDR{Paths: []string{survivorPath}}
	exec := New(Hardlink)

	reflinked, err := exec.Link(victimPath, expectedFor(t, victimPath), survivor)
	require.NoError(t, err)
	assert.False(t, reflinked)

	survivorInfo, err := os.Stat(survivorPath)
	require.NoError(t, err)
	victimInfo, err := os.Stat(victimPath)
	require.NoError(t, err)
	assert.True(t, os.SameFile(survivorInfo, victimInfo), "victim must now share the survivor's inode")
}

func TestLinkReflinkModeFallsBackWhenUnsupported(t *testing.T) {
	dir := t.TempDir()
	survivorPath := writeFile(t, dir, "survivor.txt", "shared content")
	victimPath := writeFile(t, dir, "victim.txt", "shared content")

	survivor := &fdr.FDR{Paths: []string{survivorPath}}
	exec := New(Reflink)

	_, err := exec.Link(victimPath, expectedFor(t, victimPath), survivor)
	require.NoError(t, err)

	survivorInfo, err := os.Stat(survivorPath)
	require.NoError(t, err)
	victimInfo, err := os.Stat(victimPath)
	require.NoError(t, err)
	// Regardless of whether this ran as a true reflink or fell back to a
	// hardlink, the two paths must end up referring to the same data.
	data, err := os.ReadFile(victimPath)
	require.NoError(t, err)
	assert.Equal(t, "shared content", string(data))
	_ = survivorInfo
	_ = victimInfo
}

func TestLinkRejectsSurvivorWithNoPath(t *testing.T) {
	dir := t.TempDir()
	victimPath := writeFile(t, dir, "victim.txt", "x")

	survivor := &fdr.FDR{}
	exec := New(Hardlink)

	_, err := exec.Link(victimPath, expectedFor(t, victimPath), survivor)
	assert.Error(t, err)
}

func TestLinkRejectsNonRegularVictim(t *testing.T) {
	dir := t.TempDir()
	survivorPath := writeFile(t, dir, "survivor.txt", "x")
	victimDir := filepath.Join(dir, "subdir")
	require.NoError(t, os.Mkdir(victimDir, 0o755))

	survivor := &fdr.FDR{Paths: []string{survivorPath}}
	exec := New(Hardlink)

	_, err := exec.Link(victimDir, expectedFor(t, victimDir), survivor)
	assert.Error(t, err)
}

func TestLinkLeavesNoTempArtifactsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	survivorPath := writeFile(t, dir, "survivor.txt", "content")
	victimPath := writeFile(t, dir, "victim.txt", "content")

	survivor := &fdr.FDR{Paths: []string{survivorPath}}
	exec := New(Hardlink)

	_, err := exec.Link(victimPath, expectedFor(t, victimPath), survivor)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no leftover temp-named entries should remain after a successful link")
}

func TestLinkRejectsVictimModeChangedSinceScan(t *testing.T) {
	dir := t.TempDir()
	survivorPath := writeFile(t, dir, "survivor.txt", "shared content")
	victimPath := writeFile(t, dir, "victim.txt", "shared content")

	expected := expectedFor(t, victimPath)
	require.NoError(t, os.Chmod(victimPath, 0o600))

	survivor := &fdr.FDR{Paths: []string{survivorPath}}
	exec := New(Hardlink)

	_, err := exec.Link(victimPath, expected, survivor)
	assert.Error(t, err)
}

// TestLinkPreservesPermissionsInReflinkMode covers spec.md §4.4 step 5:
// a reflinked victim is a brand new inode, so unlike a hardlink it does
// not inherit the survivor's permissions for free. This must hold
// whether or not the platform actually performed a true reflink clone,
// since Reflink silently falls back to a hardlink when the filesystem
// declines the clone.
func TestLinkPreservesPermissionsInReflinkMode(t *testing.T) {
	dir := t.TempDir()
	survivorPath := writeFile(t, dir, "survivor.txt", "shared content")
	victimPath := writeFile(t, dir, "victim.txt", "shared content")
	require.NoError(t, os.Chmod(victimPath, 0o600))

	expected := expectedFor(t, victimPath)

	survivor := &fdr.FDR{Paths: []string{survivorPath}}
	exec := New(Reflink)

	_, err := exec.Link(victimPath, expected, survivor)
	require.NoError(t, err)

	info, err := os.Stat(victimPath)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())
}

func TestLinkRejectsVictimModifiedSinceScan(t *testing.T) {
	dir := t.TempDir()
	survivorPath := writeFile(t, dir, "survivor.txt", "shared content")
	victimPath := writeFile(t, dir, "victim.txt", "shared content")

	expected := expectedFor(t, victimPath)
	require.NoError(t, os.WriteFile(victimPath, []byte("shared content, but edited"), 0o644))

	survivor := &fdr.FDR{Paths: []string{survivorPath}}
	exec := New(Hardlink)

	_, err := exec.Link(victimPath, expected, survivor)
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "a rejected pre-check must leave no temp-named entries behind")
}
