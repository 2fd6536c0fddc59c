package sysinfo

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
)

// VolumeEventType enumerates volume attach and detach notifications.
type VolumeEventType string

const (
	VolumeAttached VolumeEventType = "attached"
	VolumeDetached VolumeEventType = "detached"
)

// VolumeEvent reports one volume appearing or disappearing under the
// watched mount directory.
type VolumeEvent struct {
	Type VolumeEventType
	Name string
	Path string
}

// VolumeWatcher watches the external-volume mount directory and reports
// attach/detach events. It watches one level only: volumes appear as
// directories directly under the base.
type VolumeWatcher struct {
	base    string
	watcher *fsnotify.Watcher
	logger  *logging.Logger
}

// NewVolumeWatcher creates a watcher over the given mount directory. The
// directory must exist at creation time.
func NewVolumeWatcher(base string) (*VolumeWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(base); err != nil {
		fsw.Close()
		return nil, err
	}
	return &VolumeWatcher{
		base:    base,
		watcher: fsw,
		logger:  logging.Get("sysinfo"),
	}, nil
}

// Run blocks delivering events to onEvent until the context is cancelled
// or the watcher is closed.
func (w *VolumeWatcher) Run(ctx context.Context, onEvent func(VolumeEvent)) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, onEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("volume watcher error", "error", err)
		}
	}
}

// handleEvent maps one filesystem event onto a volume event.
func (w *VolumeWatcher) handleEvent(event fsnotify.Event, onEvent func(VolumeEvent)) {
	name := event.Name

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(name)
		if err != nil || !info.IsDir() {
			return
		}
		w.logger.Info("volume attached", "path", name)
		onEvent(VolumeEvent{Type: VolumeAttached, Name: info.Name(), Path: name})

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.logger.Info("volume detached", "path", name)
		onEvent(VolumeEvent{Type: VolumeDetached, Name: baseName(name), Path: name})
	}
}

// Close releases the watcher.
func (w *VolumeWatcher) Close() error {
	return w.watcher.Close()
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[i+1:]
		}
	}
	return path
}
