package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, ts time.Time) types.ScanRecord {
	return types.ScanRecord{
		ID:             id,
		Timestamp:      ts,
		TargetName:     "usb-drive",
		TargetPath:     "/mnt/volumes/usb-drive",
		TargetSize:     32 * types.GiB,
		FilesFound:     3,
		TotalFilesSeen: 12000,
		Duration:       90 * time.Second,
		Reports:        map[string]string{"json": "report.json"},
		Status:         types.StatusCompleted,
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := openStore(t)

	ts := time.Now().UTC().Truncate(time.Millisecond)
	want := record("scan_20260830_aaaa1111", ts)
	require.NoError(t, s.Save(want))

	got, err := s.Get(want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("scan_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	s := openStore(t)

	rec := record("scan_x", time.Now())
	rec.Status = types.StatusRunning
	require.NoError(t, s.Save(rec))

	rec.Status = types.StatusCompleted
	rec.FilesFound = 7
	require.NoError(t, s.Save(rec))

	got, err := s.Get("scan_x")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, int64(7), got.FilesFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := record(fmt.Sprintf("scan_%02d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.Save(rec))
	}

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Timestamp.After(records[i].Timestamp))
	}
	assert.Equal(t, "scan_04", records[0].ID)
}

func TestTrimKeepsNewest(t *testing.T) {
	s := openStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("scan_%02d", i)
		require.NoError(t, s.Save(record(id, base.Add(time.Duration(i)*time.Minute))))
		dir, err := s.SubDir(id)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), []byte("{}"), 0o644))
	}

	removed, err := s.Trim(4)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "scan_05", records[0].ID)

	// Oldest two records and their artifact dirs are gone.
	_, err = s.Get("scan_00")
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(filepath.Join(s.Dir(), "scan_00"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(s.Dir(), "scan_05"))
	assert.NoError(t, statErr)
}

func TestTrimUnderRetentionNoop(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Save(record("scan_a", time.Now())))

	removed, err := s.Trim(50)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDeleteRemovesArtifacts(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save(record("scan_a", time.Now())))
	dir, err := s.SubDir("scan_a")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.html"), []byte("<html>"), 0o644))

	require.NoError(t, s.Delete("scan_a"))

	_, err = s.Get("scan_a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSchemaWrittenOnOpen(t *testing.T) {
	s := openStore(t)
	schema := s.getSchema()
	require.NotNil(t, schema)
	assert.Equal(t, CurrentSchemaVersion, schema.Version)
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(record("scan_persist", time.Now())))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get("scan_persist")
	require.NoError(t, err)
	assert.Equal(t, "scan_persist", got.ID)
}
