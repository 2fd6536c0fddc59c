package collector

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func collect(t *testing.T, opts Options) ([]string, types.CollectionStats) {
	t.Helper()
	c := New(opts)
	candidates, stats, err := c.Collect(context.Background())
	require.NoError(t, err)
	return candidates, stats
}

func TestCollectMissingRoot(t *testing.T) {
	c := New(Options{Root: filepath.Join(t.TempDir(), "nope"), MaxDepth: 5, MaxFileSize: types.MiB})
	_, _, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestCollectRootNotDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	writeFile(t, file, 1)

	c := New(Options{Root: file, MaxDepth: 5, MaxFileSize: types.MiB})
	_, _, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestCollectCandidateSelection(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "wallet.dat"), 64)        // crypto extension + token
	writeFile(t, filepath.Join(dir, "notes.txt"), 10)         // text extension
	writeFile(t, filepath.Join(dir, "electrum-backup"), 5)    // wallet token, no extension
	writeFile(t, filepath.Join(dir, "movie.mkv"), 128)        // excluded
	writeFile(t, filepath.Join(dir, "sub", "keys.json"), 20)  // crypto extension
	writeFile(t, filepath.Join(dir, "huge.dat"), 4096)        // over size limit

	candidates, stats := collect(t, Options{Root: dir, MaxDepth: 5, MaxFileSize: 1024})

	want := []string{
		filepath.Join(dir, "electrum-backup"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "sub", "keys.json"),
		filepath.Join(dir, "wallet.dat"),
	}
	sort.Strings(want)
	assert.Equal(t, want, candidates)

	// Statistics count every regular file, excluded ones included.
	assert.Equal(t, int64(6), stats.TotalFiles)
	assert.Equal(t, int64(1), stats.TotalDirs)
	assert.Equal(t, int64(64+10+5+128+20+4096), stats.TotalBytes)
	assert.Equal(t, filepath.Join(dir, "huge.dat"), stats.Largest.Path)
	assert.Equal(t, int64(4096), stats.Largest.Size)
}

func TestCollectCandidatesSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.json"), 1)
	writeFile(t, filepath.Join(dir, "a.json"), 1)
	writeFile(t, filepath.Join(dir, "m.json"), 1)

	candidates, _ := collect(t, Options{Root: dir, MaxDepth: 5, MaxFileSize: types.MiB})
	assert.True(t, sort.StringsAreSorted(candidates))
	assert.Len(t, candidates, 3)
}

func TestCollectMaxDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.json"), 1)                    // depth 1
	writeFile(t, filepath.Join(dir, "a", "mid.json"), 1)               // depth 2
	writeFile(t, filepath.Join(dir, "a", "b", "deep.json"), 1)         // depth 3
	writeFile(t, filepath.Join(dir, "a", "b", "c", "deeper.json"), 1)  // depth 4

	candidates, stats := collect(t, Options{Root: dir, MaxDepth: 2, MaxFileSize: types.MiB})

	want := []string{
		filepath.Join(dir, "a", "mid.json"),
		filepath.Join(dir, "top.json"),
	}
	sort.Strings(want)
	assert.Equal(t, want, candidates)
	assert.Equal(t, int64(2), stats.TotalFiles)
	assert.LessOrEqual(t, stats.MaxDepth, 2)
}

func TestCollectSkipsMetadataDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "wallet.json"), 1)
	writeFile(t, filepath.Join(dir, ".Spotlight-V100", "index.json"), 1)
	writeFile(t, filepath.Join(dir, ".Trashes", "wallet.dat"), 1)
	writeFile(t, filepath.Join(dir, "System Volume Information", "x.json"), 1)

	candidates, stats := collect(t, Options{Root: dir, MaxDepth: 5, MaxFileSize: types.MiB})

	assert.Equal(t, []string{filepath.Join(dir, "wallet.json")}, candidates)
	assert.Equal(t, int64(1), stats.TotalFiles)
}

func TestCollectIgnoresSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real", "wallet.dat")
	writeFile(t, target, 8)
	link := filepath.Join(dir, "wallet-link.dat")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	candidates, stats := collect(t, Options{Root: dir, MaxDepth: 5, MaxFileSize: types.MiB})

	assert.Equal(t, []string{target}, candidates)
	assert.Equal(t, int64(1), stats.TotalFiles)
}

func TestCollectExtensionHistogram(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), 10)
	writeFile(t, filepath.Join(dir, "b.json"), 20)
	writeFile(t, filepath.Join(dir, "README"), 5)

	_, stats := collect(t, Options{Root: dir, MaxDepth: 5, MaxFileSize: types.MiB})

	assert.Equal(t, int64(2), stats.Extensions[".json"].Count)
	assert.Equal(t, int64(30), stats.Extensions[".json"].Bytes)
	assert.Equal(t, int64(1), stats.Extensions["no_extension"].Count)
}

func TestCollectTextBinarySplit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), 1)   // text extension
	writeFile(t, filepath.Join(dir, "wallet.dat"), 1)  // crypto extension, binary side
	writeFile(t, filepath.Join(dir, "keys.pem"), 1)    // crypto extension, binary side

	_, stats := collect(t, Options{Root: dir, MaxDepth: 5, MaxFileSize: types.MiB})

	assert.Equal(t, int64(1), stats.TextFiles)
	assert.Equal(t, int64(2), stats.BinaryFiles)
	assert.Equal(t, int64(3), stats.CryptoFlagged)
}

func TestCollectCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Options{Root: dir, MaxDepth: 5, MaxFileSize: types.MiB})
	candidates, _, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSeenAdvances(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), 1)
	writeFile(t, filepath.Join(dir, "b.json"), 1)

	c := New(Options{Root: dir, MaxDepth: 5, MaxFileSize: types.MiB})
	_, _, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Seen())
}
