// Package executor runs the classifier over a candidate list with a fixed
// pool of workers and exposes live progress while the run is underway.
package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// Classifier examines one file and reports a finding, or nil when the file
// is uninteresting.
type Classifier interface {
	Classify(path string) *types.Finding
}

// Options configures an execution run.
type Options struct {
	// Workers is the pool size. Values below 1 are raised to 1.
	Workers int

	// Total is the candidate count, used for percentage and ETA.
	Total int

	// Buffer is the dispatch channel capacity. Zero means unbuffered.
	Buffer int
}

// Executor fans a candidate list out to a worker pool. A single Executor
// runs once; create a new one per scan.
type Executor struct {
	opts       Options
	classifier Classifier
	logger     *logging.Logger

	filesScanned atomic.Int64
	filesFound   atomic.Int64
	currentPath  atomic.Value // string
	stopped      atomic.Bool
	started      time.Time // set once in New, read-only after

	mu       sync.Mutex
	findings []types.Finding
}

// New creates an Executor over the given classifier.
func New(opts Options, classifier Classifier) *Executor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	e := &Executor{
		opts:       opts,
		classifier: classifier,
		logger:     logging.Get("executor"),
		// The start time is fixed here rather than in Run so Progress
		// never races a write from another goroutine.
		started: time.Now(),
	}
	e.currentPath.Store("")
	return e
}

// Stop requests a graceful halt. Tasks already handed to workers finish;
// no further candidates are dispatched.
func (e *Executor) Stop() {
	e.stopped.Store(true)
}

// Stopped reports whether a stop was requested.
func (e *Executor) Stopped() bool {
	return e.stopped.Load()
}

// Run processes the candidates and returns the findings in completion
// order. It returns early when Stop is called or the context is cancelled,
// with whatever findings accumulated by then.
func (e *Executor) Run(ctx context.Context, candidates []string) []types.Finding {
	tasks := make(chan string, e.opts.Buffer)
	var wg sync.WaitGroup

	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range tasks {
				// Tasks already buffered when a stop arrives are drained
				// without classification.
				if e.stopped.Load() {
					continue
				}
				e.classifyOne(path)
			}
		}()
	}

dispatch:
	for _, path := range candidates {
		// The stop flag is checked before every dispatch so a stop takes
		// effect within one task per worker.
		if e.stopped.Load() {
			break
		}
		select {
		case tasks <- path:
		case <-ctx.Done():
			e.stopped.Store(true)
			break dispatch
		}
	}
	close(tasks)
	wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Finding, len(e.findings))
	copy(out, e.findings)
	return out
}

// classifyOne runs the classifier on a single file. A panicking classifier
// loses that one file; the run continues.
func (e *Executor) classifyOne(path string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("classifier panic", "path", path, "panic", r)
		}
		// Counted as scanned even when classification panicked.
		e.filesScanned.Add(1)
	}()

	e.currentPath.Store(path)

	finding := e.classifier.Classify(path)
	if finding == nil {
		return
	}

	e.filesFound.Add(1)
	e.mu.Lock()
	e.findings = append(e.findings, *finding)
	e.mu.Unlock()
}

// Progress returns a snapshot of the run. Safe to call from any goroutine
// while Run is in flight.
func (e *Executor) Progress() types.Progress {
	scanned := e.filesScanned.Load()
	total := int64(e.opts.Total)

	p := types.Progress{
		FilesScanned: scanned,
		FilesFound:   e.filesFound.Load(),
		TotalFiles:   total,
		CurrentPath:  e.currentPath.Load().(string),
	}

	p.Elapsed = time.Since(e.started)
	if total > 0 {
		p.Percent = float64(scanned) / float64(total) * 100
	}
	if p.Elapsed > 0 {
		p.FilesPerSecond = float64(scanned) / p.Elapsed.Seconds()
	}
	if p.FilesPerSecond > 0 && scanned < total {
		remaining := float64(total-scanned) / p.FilesPerSecond
		p.ETA = time.Duration(remaining * float64(time.Second))
	}
	return p
}
