package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelsec/walletscout/pkg/walletscout/session"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

func TestNewScanModel(t *testing.T) {
	m := NewScanModel("/Volumes/USB", func() session.Status { return session.Status{} }, func() error { return nil })

	if m.rootPath != "/Volumes/USB" {
		t.Errorf("expected root path '/Volumes/USB', got %s", m.rootPath)
	}
	if m.done {
		t.Error("expected done to be false initially")
	}
	if m.stopping {
		t.Error("expected stopping to be false initially")
	}
	if m.Err() != nil {
		t.Error("expected Err to be nil initially")
	}
}

func TestScanModelFirstKeyRequestsStop(t *testing.T) {
	stopped := false
	m := NewScanModel("/Volumes/USB",
		func() session.Status { return session.Status{State: session.StateRunning} },
		func() error { stopped = true; return nil })

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ScanModel)

	if !stopped {
		t.Error("expected stop function to be called on first key press")
	}
	if !m.stopping {
		t.Error("expected model to enter stopping state")
	}
	if cmd != nil {
		t.Error("expected no quit command on first key press")
	}
}

func TestScanModelSecondKeyQuits(t *testing.T) {
	m := NewScanModel("/Volumes/USB",
		func() session.Status { return session.Status{State: session.StateRunning} },
		func() error { return nil })
	m.stopping = true

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command on second key press")
	}
}

func TestScanModelQuitsWhenSessionReturnsToIdle(t *testing.T) {
	m := NewScanModel("/Volumes/USB",
		func() session.Status { return session.Status{} },
		func() error { return nil })

	msg := statusMsg(session.Status{
		State:    session.StateIdle,
		LastScan: &session.Summary{ScanID: "scan_1", State: session.StateCompleted},
	})

	updated, cmd := m.Update(msg)
	m = updated.(ScanModel)

	if !m.done {
		t.Error("expected done after session returned to idle")
	}
	if m.Err() != nil {
		t.Errorf("expected no error, got %v", m.Err())
	}
	if cmd == nil {
		t.Error("expected quit command once the scan finished")
	}
}

func TestScanModelSurfacesScanError(t *testing.T) {
	m := NewScanModel("/Volumes/USB",
		func() session.Status { return session.Status{} },
		func() error { return nil })

	msg := statusMsg(session.Status{
		State:    session.StateIdle,
		LastScan: &session.Summary{ScanID: "scan_1", State: session.StateError, Error: "walk failed"},
	})

	updated, _ := m.Update(msg)
	m = updated.(ScanModel)

	if m.Err() == nil {
		t.Fatal("expected error to be surfaced")
	}
	if m.Err().Error() != "walk failed" {
		t.Errorf("expected error 'walk failed', got %v", m.Err())
	}
}

func TestScanModelViewShowsPhases(t *testing.T) {
	m := NewScanModel("/Volumes/USB",
		func() session.Status { return session.Status{} },
		func() error { return nil })

	view := m.View()
	if !strings.Contains(view, "Collecting candidates") {
		t.Error("expected collecting message before any snapshot")
	}

	m.snapshot = session.Status{
		State: session.StateRunning,
		Phase: session.PhaseClassifying,
		Progress: &types.Progress{
			FilesScanned: 10,
			TotalFiles:   100,
			CurrentPath:  "/Volumes/USB/wallet.dat",
		},
	}
	view = m.View()
	if !strings.Contains(view, "Classifying") {
		t.Error("expected classifying message during classification phase")
	}

	m.stopping = true
	if !strings.Contains(m.View(), "Stopping") {
		t.Error("expected stopping message after stop requested")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{5 * time.Second, "0:05"},
		{65 * time.Second, "1:05"},
		{10 * time.Minute, "10:00"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	short := "/Volumes/USB"
	if got := truncatePath(short, 40); got != short {
		t.Errorf("expected short path unchanged, got %s", got)
	}

	long := "/Volumes/USB/some/deeply/nested/directory/wallet.dat"
	got := truncatePath(long, 20)
	if !strings.HasPrefix(got, "...") {
		t.Errorf("expected left truncation with ellipsis, got %s", got)
	}
	if !strings.HasSuffix(got, "wallet.dat") {
		t.Errorf("expected tail of path preserved, got %s", got)
	}
}
