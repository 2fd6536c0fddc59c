package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// funcClassifier adapts a function to the Classifier interface.
type funcClassifier func(path string) *types.Finding

func (f funcClassifier) Classify(path string) *types.Finding { return f(path) }

func paths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/vol/file-%03d.dat", i)
	}
	return out
}

func TestRunScansEverything(t *testing.T) {
	cl := funcClassifier(func(path string) *types.Finding {
		if strings.HasSuffix(path, "0.dat") {
			return &types.Finding{Path: path, Category: types.CategoryBitcoinCoreWallet, Confidence: 0.9}
		}
		return nil
	})

	e := New(Options{Workers: 4, Total: 50}, cl)
	findings := e.Run(context.Background(), paths(50))

	assert.Len(t, findings, 5) // 000, 010, 020, 030, 040
	p := e.Progress()
	assert.Equal(t, int64(50), p.FilesScanned)
	assert.Equal(t, int64(5), p.FilesFound)
	assert.InDelta(t, 100.0, p.Percent, 0.001)
}

func TestRunEmptyCandidates(t *testing.T) {
	e := New(Options{Workers: 2}, funcClassifier(func(string) *types.Finding { return nil }))
	findings := e.Run(context.Background(), nil)
	assert.Empty(t, findings)
	assert.Equal(t, int64(0), e.Progress().FilesScanned)
}

func TestRunSingleWorkerMinimum(t *testing.T) {
	e := New(Options{Workers: 0, Total: 3}, funcClassifier(func(string) *types.Finding { return nil }))
	e.Run(context.Background(), paths(3))
	assert.Equal(t, int64(3), e.Progress().FilesScanned)
}

func TestStopHaltsDispatch(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	cl := funcClassifier(func(string) *types.Finding {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	})

	e := New(Options{Workers: 1, Total: 100}, cl)
	done := make(chan []types.Finding)
	go func() { done <- e.Run(context.Background(), paths(100)) }()

	<-started
	e.Stop()
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	// The held task plus at most one already-dispatched task complete.
	assert.LessOrEqual(t, e.Progress().FilesScanned, int64(3))
	assert.True(t, e.Stopped())
}

func TestContextCancelStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once atomic.Bool

	cl := funcClassifier(func(string) *types.Finding {
		if once.CompareAndSwap(false, true) {
			close(started)
			<-ctx.Done()
		}
		return nil
	})

	e := New(Options{Workers: 1, Total: 100}, cl)
	done := make(chan struct{})
	go func() {
		e.Run(ctx, paths(100))
		close(done)
	}()

	<-started
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.True(t, e.Stopped())
}

func TestPanickingClassifierCountsAsScanned(t *testing.T) {
	cl := funcClassifier(func(path string) *types.Finding {
		if strings.HasSuffix(path, "005.dat") {
			panic("malformed file")
		}
		return &types.Finding{Path: path, Category: types.CategoryGenericPrivateKey, Confidence: 0.5}
	})

	e := New(Options{Workers: 2, Total: 10}, cl)
	findings := e.Run(context.Background(), paths(10))

	assert.Equal(t, int64(10), e.Progress().FilesScanned)
	assert.Len(t, findings, 9)
}

func TestProgressThroughputAndETA(t *testing.T) {
	cl := funcClassifier(func(string) *types.Finding {
		time.Sleep(time.Millisecond)
		return nil
	})

	e := New(Options{Workers: 2, Total: 20}, cl)
	e.Run(context.Background(), paths(20))

	p := e.Progress()
	require.Positive(t, p.Elapsed)
	assert.Positive(t, p.FilesPerSecond)
	assert.Equal(t, time.Duration(0), p.ETA) // nothing remaining
}

func TestProgressConcurrentWithRun(t *testing.T) {
	e := New(Options{Workers: 4, Total: 200, Buffer: 16},
		funcClassifier(func(string) *types.Finding {
			time.Sleep(time.Millisecond)
			return nil
		}))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Poll while Run is in flight; the race detector flags any
		// unsynchronized state shared with the run path.
		for {
			select {
			case <-stop:
				return
			default:
				p := e.Progress()
				assert.GreaterOrEqual(t, p.Elapsed, time.Duration(0))
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	findings := e.Run(context.Background(), paths(200))
	close(stop)
	wg.Wait()

	assert.Empty(t, findings)
	require.Equal(t, int64(200), e.Progress().FilesScanned)
}

func TestFindingsSnapshotIsCopy(t *testing.T) {
	cl := funcClassifier(func(path string) *types.Finding {
		return &types.Finding{Path: path, Category: types.CategoryElectrumWallet, Confidence: 0.8}
	})

	e := New(Options{Workers: 1, Total: 2}, cl)
	findings := e.Run(context.Background(), paths(2))
	require.Len(t, findings, 2)

	findings[0].Path = "mutated"
	assert.NotEqual(t, "mutated", e.findings[0].Path)
}
