package sysinfo

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSnapshot(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "usb-a"), 0o755))

	info, err := Collect(base)
	require.NoError(t, err)

	assert.Equal(t, runtime.GOOS, info.Platform)
	assert.Positive(t, info.CPUs)
	assert.NotEmpty(t, info.Hostname)
	assert.Positive(t, info.Memory.TotalBytes)
	require.Len(t, info.Volumes, 1)
	assert.Equal(t, "usb-a", info.Volumes[0].Name)
}

func TestListVolumesMissingBase(t *testing.T) {
	volumes, err := ListVolumes(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, volumes)
}

func TestListVolumesSortedSkipsFiles(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "stray.txt"), []byte("x"), 0o644))

	volumes, err := ListVolumes(base)
	require.NoError(t, err)
	require.Len(t, volumes, 3)

	names := []string{volumes[0].Name, volumes[1].Name, volumes[2].Name}
	assert.True(t, sort.StringsAreSorted(names))

	// Usage resolves for real paths.
	assert.Positive(t, volumes[0].TotalBytes)
}

func TestVolumeWatcherAttachDetach(t *testing.T) {
	base := t.TempDir()

	w, err := NewVolumeWatcher(base)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []VolumeEvent
	go w.Run(ctx, func(ev VolumeEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	volume := filepath.Join(base, "usb-b")
	require.NoError(t, os.Mkdir(volume, 0o755))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) >= 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(volume))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) >= 2
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, VolumeAttached, events[0].Type)
	assert.Equal(t, "usb-b", events[0].Name)
	assert.Equal(t, VolumeDetached, events[1].Type)
}

func TestVolumeWatcherMissingBase(t *testing.T) {
	_, err := NewVolumeWatcher(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
