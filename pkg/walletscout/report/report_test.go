package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

func sampleResult() *Result {
	return &Result{
		ScanID:         "scan_20260830_abcd1234",
		Timestamp:      time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC),
		TargetName:     "usb-drive",
		TargetPath:     "/mnt/volumes/usb-drive",
		Duration:       95 * time.Second,
		TotalFilesSeen: 12000,
		FilesScanned:   340,
		Findings: []types.Finding{
			{
				Path:       "/mnt/volumes/usb-drive/old/keys.txt",
				Category:   types.CategoryGenericPrivateKey,
				Confidence: 0.5,
				Method:     "hex_64_pattern",
				SizeBytes:  128,
			},
			{
				Path:       "/mnt/volumes/usb-drive/wallet.dat",
				Category:   types.CategoryBitcoinCoreWallet,
				Confidence: 0.9,
				Method:     "bitcoin_wallet_magic",
				SizeBytes:  2 * types.MiB,
				Details:    map[string]string{"magic": "e6e1cffa"},
			},
			{
				Path:       "/mnt/volumes/usb-drive/seed.txt",
				Category:   types.CategoryBIP39SeedPhrase,
				Confidence: 0.6,
				Method:     "bip39_word_check",
				SizeBytes:  90,
			},
		},
	}
}

func TestRegistryLookup(t *testing.T) {
	names := Available()
	assert.Contains(t, names, "json")
	assert.Contains(t, names, "html")
	assert.Contains(t, names, "markdown")

	_, err := Get("xml")
	assert.Error(t, err)
}

func TestTierCounts(t *testing.T) {
	r := sampleResult()
	high, medium, low := r.TierCounts()
	assert.Equal(t, 1, high)
	assert.Equal(t, 2, medium) // 0.6 and 0.5 are both medium tier
	assert.Equal(t, 0, low)
}

func TestSortFindings(t *testing.T) {
	r := sampleResult()
	r.SortFindings()
	assert.Equal(t, 0.9, r.Findings[0].Confidence)
	assert.Equal(t, 0.6, r.Findings[1].Confidence)
	assert.Equal(t, 0.5, r.Findings[2].Confidence)
}

func TestJSONFormatter(t *testing.T) {
	r := sampleResult()
	r.SortFindings()

	var buf bytes.Buffer
	f, err := Get("json")
	require.NoError(t, err)
	require.NoError(t, f.Format(&buf, r))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	meta := out["meta"].(map[string]any)
	assert.Equal(t, "scan_20260830_abcd1234", meta["scan_id"])
	assert.Equal(t, "usb-drive", meta["target_name"])

	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(3), summary["files_found"])
	assert.Equal(t, float64(1), summary["high_confidence"])

	findings := out["findings"].([]any)
	require.Len(t, findings, 3)
	first := findings[0].(map[string]any)
	assert.Equal(t, "bitcoin_core_wallet", first["category"])
	assert.Equal(t, "high", first["tier"])
}

func TestHTMLFormatter(t *testing.T) {
	r := sampleResult()

	var buf bytes.Buffer
	f, err := Get("html")
	require.NoError(t, err)
	require.NoError(t, f.Format(&buf, r))

	html := buf.String()
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "usb-drive")
	assert.Contains(t, html, "wallet.dat")
	assert.Contains(t, html, "tier-high")
	assert.Contains(t, html, "1 high, 2 medium, 0 low")
}

func TestHTMLFormatterEscapesPaths(t *testing.T) {
	r := sampleResult()
	r.Findings = []types.Finding{{
		Path:       "/mnt/volumes/x/<script>alert(1)</script>.dat",
		Category:   types.CategoryBitcoinCoreWallet,
		Confidence: 0.9,
		Method:     "filename_pattern",
	}}

	var buf bytes.Buffer
	f, _ := Get("html")
	require.NoError(t, f.Format(&buf, r))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
}

func TestMarkdownFormatter(t *testing.T) {
	r := sampleResult()

	var buf bytes.Buffer
	f, err := Get("markdown")
	require.NoError(t, err)
	require.NoError(t, f.Format(&buf, r))

	md := buf.String()
	assert.True(t, strings.HasPrefix(md, "# Wallet Scan Report"))
	assert.Contains(t, md, "| `"+r.Findings[0].Path+"` |")
	assert.Contains(t, md, "bitcoin_wallet_magic")
}

func TestMarkdownEmptyFindings(t *testing.T) {
	r := sampleResult()
	r.Findings = nil

	var buf bytes.Buffer
	f, _ := Get("markdown")
	require.NoError(t, f.Format(&buf, r))
	assert.Contains(t, buf.String(), "No wallet material detected.")
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteAll(dir, []string{"json", "markdown"}, sampleResult())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"json": "report.json", "markdown": "report.md"}, written)
	for _, file := range written {
		_, err := os.Stat(filepath.Join(dir, file))
		assert.NoError(t, err)
	}
}

func TestWriteAllExpandsAll(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteAll(dir, []string{"all"}, sampleResult())
	require.NoError(t, err)
	assert.Len(t, written, len(Available()))
}

func TestWriteAllUnknownFormat(t *testing.T) {
	_, err := WriteAll(t.TempDir(), []string{"xml"}, sampleResult())
	assert.Error(t, err)
}
