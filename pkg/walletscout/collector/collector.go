// Package collector walks a file tree and produces the list of candidate
// files worth classifying, together with aggregate statistics about
// everything it saw. The walk is read-only: per-file errors are swallowed
// and never abort the traversal.
package collector

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/kestrelsec/walletscout/pkg/walletscout/detect"
	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// ErrPathNotFound indicates the scan root does not exist.
var ErrPathNotFound = errors.New("scan path does not exist")

// ErrNotDirectory indicates the scan root is not a directory.
var ErrNotDirectory = errors.New("scan path is not a directory")

// cryptoExtensions are extensions that mark a file as crypto-related.
var cryptoExtensions = map[string]struct{}{
	".wallet": {}, ".json": {}, ".dat": {}, ".key": {}, ".pem": {},
	".p12": {}, ".pfx": {}, ".txt": {}, ".csv": {}, ".kdbx": {},
	".db": {}, ".sqlite": {}, ".walletdb": {}, ".seed": {},
	".mnemonic": {}, ".backup": {}, ".keystore": {}, ".cert": {},
	".crt": {}, ".pub": {}, ".private": {}, ".store": {},
}

// textContentExtensions are generic text formats scanned for crypto
// content even without a crypto-specific extension.
var textContentExtensions = map[string]struct{}{
	".txt": {}, ".json": {}, ".csv": {}, ".log": {},
	".cfg": {}, ".conf": {}, ".ini": {},
}

// metadataDirs are volume bookkeeping directories never descended into.
var metadataDirs = map[string]struct{}{
	".Spotlight-V100":           {},
	".Trashes":                  {},
	".TemporaryItems":           {},
	".fseventsd":                {},
	".DocumentRevisions-V100":   {},
	"System Volume Information": {},
	"$RECYCLE.BIN":              {},
	"lost+found":                {},
}

// Options configures a collection walk.
type Options struct {
	// Root is the directory tree to walk.
	Root string

	// MaxDepth limits descent below Root; Root itself is depth 0.
	MaxDepth int

	// MaxFileSize is the candidate size ceiling in bytes. Larger files
	// still count toward statistics.
	MaxFileSize int64
}

// Collector walks one tree once. Statistics accumulate for the lifetime of
// the walk; Stats returns a snapshot at any point.
type Collector struct {
	opts   Options
	root   string
	logger *logging.Logger

	// seen counts files as the walk encounters them, readable without
	// the stats lock for coarse progress estimates.
	seen atomic.Int64

	mu         sync.Mutex
	stats      types.CollectionStats
	candidates []string

	walletTokens []string
}

// New creates a Collector for the given options.
func New(opts Options) *Collector {
	return &Collector{
		opts:   opts,
		logger: logging.Get("collector"),
		stats: types.CollectionStats{
			Extensions: make(map[string]types.ExtStat),
		},
		walletTokens: detect.WalletTokens(),
	}
}

// Seen returns the number of files encountered so far. Safe to call from
// any goroutine while the walk runs.
func (c *Collector) Seen() int64 {
	return c.seen.Load()
}

// Stats returns a snapshot of the statistics accumulated so far.
func (c *Collector) Stats() types.CollectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Clone()
}

// Collect walks the tree and returns the candidate file paths, sorted
// lexicographically, together with final statistics. It fails only when
// the root itself does not exist or is not a directory; everything below
// the root degrades to skipped entries.
func (c *Collector) Collect(ctx context.Context) ([]string, types.CollectionStats, error) {
	root, err := filepath.Abs(c.opts.Root)
	if err != nil {
		return nil, types.CollectionStats{}, err
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.CollectionStats{}, ErrPathNotFound
		}
		return nil, types.CollectionStats{}, err
	}
	if !info.IsDir() {
		return nil, types.CollectionStats{}, ErrNotDirectory
	}
	c.root = root

	conf := fastwalk.Config{
		Follow: false, // never follow symlinks
	}

	walkErr := fastwalk.Walk(&conf, root, c.walkFunc(ctx))
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		// Directory-level failures were already logged and skipped; a
		// residual error here concerns the root and was caught above.
		c.logger.Warn("walk finished with error", "error", walkErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Strings(c.candidates)
	return c.candidates, c.stats.Clone(), nil
}

// walkFunc returns the fastwalk callback for one collection walk.
func (c *Collector) walkFunc(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		if err != nil {
			// Permission or transient error: log, skip the entry.
			c.logger.Debug("skipping entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if path == c.root {
			return nil
		}

		depth := c.depthOf(path)

		if d.IsDir() {
			if _, skip := metadataDirs[d.Name()]; skip {
				return fastwalk.SkipDir
			}
			if depth > c.opts.MaxDepth {
				return fastwalk.SkipDir
			}
			c.recordDir(depth)
			return nil
		}

		// Symlinks and other non-regular entries are ignored entirely.
		if !d.Type().IsRegular() {
			return nil
		}
		if depth > c.opts.MaxDepth {
			return nil
		}

		c.recordFile(path, d)
		return nil
	}
}

// depthOf returns how many path components separate path from the root.
func (c *Collector) depthOf(path string) int {
	rel := strings.TrimPrefix(path, c.root+string(filepath.Separator))
	if rel == path || rel == "" {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// recordDir accounts for one directory below the root.
func (c *Collector) recordDir(depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.TotalDirs++
	if depth > c.stats.MaxDepth {
		c.stats.MaxDepth = depth
	}
}

// recordFile updates statistics for a regular file and appends it to the
// candidate list when it passes the inclusion rules.
func (c *Collector) recordFile(path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		c.logger.Debug("skipping file", "path", path, "error", err)
		return
	}

	size := info.Size()
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = "no_extension"
	}
	name := strings.ToLower(filepath.Base(path))

	_, cryptoExt := cryptoExtensions[ext]
	_, textExt := textContentExtensions[ext]
	tokenHit := c.nameHasWalletToken(name)

	c.seen.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Statistics update unconditionally, even for files excluded from
	// the candidate list.
	c.stats.TotalFiles++
	c.stats.TotalBytes += size
	es := c.stats.Extensions[ext]
	es.Count++
	es.Bytes += size
	c.stats.Extensions[ext] = es
	if size > c.stats.Largest.Size {
		c.stats.Largest = types.LargestFile{Size: size, Path: path}
	}
	if cryptoExt {
		c.stats.CryptoFlagged++
	}

	if size > c.opts.MaxFileSize {
		return
	}
	if !tokenHit && !cryptoExt && !textExt {
		return
	}

	if textExt {
		c.stats.TextFiles++
	} else {
		c.stats.BinaryFiles++
	}
	c.candidates = append(c.candidates, path)
}

// nameHasWalletToken reports whether a lower-cased base name carries one of
// the known wallet family tokens.
func (c *Collector) nameHasWalletToken(name string) bool {
	for _, token := range c.walletTokens {
		if strings.Contains(name, token) {
			return true
		}
	}
	return false
}
