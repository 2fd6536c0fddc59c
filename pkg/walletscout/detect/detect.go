// Package detect classifies individual files as crypto wallet material.
// The detector chain is an explicit ordered list of pure rule functions:
// rule order and the confidence fixed to each rule are part of the
// contract, so a file matching a stronger and a weaker rule is always
// reported under the stronger one.
package detect

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/h2non/filetype"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// sniffLen is how many leading bytes the binary/text decision inspects.
const sniffLen = 1024

// match is an intermediate rule result before file metadata is attached.
type match struct {
	Category   types.Category
	Confidence float64
	Method     string
	Details    map[string]string
}

// binaryRule inspects a file's base name and raw content. Content may be
// nil when the file could not be read; rules that need content must
// tolerate that.
type binaryRule func(name string, content []byte) *match

// textRule inspects a file's path and decoded content.
type textRule func(path string, content string) *match

// binaryRules in evaluation order. The wallet-database magic number is the
// most specific signal and outranks the filename token, which outranks
// loose product-name signatures.
var binaryRules = []binaryRule{
	matchWalletMagic,
	matchFilenameToken,
	matchBinarySignature,
}

// textRules in evaluation order: structured wallet files, then private key
// literals, then the mnemonic heuristic, then loose config signatures.
var textRules = []textRule{
	matchJSONWallet,
	matchPrivateKey,
	matchSeedPhrase,
	matchConfigSignature,
}

// Detector classifies files. It holds no mutable state; one Detector may
// be shared by any number of concurrent workers without synchronization.
type Detector struct{}

// New returns a Detector.
func New() *Detector {
	return &Detector{}
}

// Classify analyzes the file at path and returns a finding, or nil when no
// rule matches. A file that cannot be opened or decoded is a non-match,
// never an error.
func (d *Detector) Classify(path string) *types.Finding {
	content, err := os.ReadFile(path)

	var m *match
	if err != nil || isBinary(content) {
		m = classifyBinary(filepath.Base(path), content)
	} else {
		m = classifyText(path, string(content))
	}
	if m == nil {
		return nil
	}

	finding := &types.Finding{
		Path:         path,
		Category:     m.Category,
		Confidence:   m.Confidence,
		Method:       m.Method,
		Details:      m.Details,
		SizeBytes:    int64(len(content)),
		DiscoveredAt: time.Now(),
	}
	if info, statErr := os.Stat(path); statErr == nil {
		finding.SizeBytes = info.Size()
	}
	return finding
}

// isBinary decides binary vs text: a recognized binary file signature, a
// NUL byte within the first 1 KiB, or bytes that do not decode as UTF-8.
func isBinary(content []byte) bool {
	if kind, err := filetype.Match(content); err == nil && kind != filetype.Unknown {
		return true
	}

	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
		// The cut may split a multi-byte rune; drop trailing
		// continuation bytes so a long UTF-8 file isn't misjudged.
		for i := 0; i < 3 && len(head) > 0 && head[len(head)-1]&0xC0 == 0x80; i++ {
			head = head[:len(head)-1]
		}
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	return !utf8.Valid(head)
}

func classifyBinary(name string, content []byte) *match {
	for _, rule := range binaryRules {
		if m := rule(strings.ToLower(name), content); m != nil {
			return m
		}
	}
	return nil
}

func classifyText(path, content string) *match {
	for _, rule := range textRules {
		if m := rule(path, content); m != nil {
			return m
		}
	}
	return nil
}

// matchWalletMagic scans raw content for the wallet-database magic number.
func matchWalletMagic(_ string, content []byte) *match {
	if !bytes.Contains(content, walletDBMagic) {
		return nil
	}
	return &match{
		Category:   types.CategoryBitcoinCoreWallet,
		Confidence: 0.9,
		Method:     "bitcoin_wallet_magic",
	}
}

// matchFilenameToken checks the base name against the wallet family token
// table. It works without content, so unreadable files can still be
// flagged by name.
func matchFilenameToken(name string, _ []byte) *match {
	for _, fam := range walletFamilies {
		for _, pattern := range fam.Patterns {
			if strings.Contains(name, pattern) {
				return &match{
					Category:   fam.Family + "_wallet_file",
					Confidence: 0.8,
					Method:     "filename_pattern",
					Details: map[string]string{
						"pattern_matched": pattern,
						"wallet_family":   fam.Family,
					},
				}
			}
		}
	}
	return nil
}

// matchBinarySignature scans raw content for literal product-name
// signatures.
func matchBinarySignature(_ string, content []byte) *match {
	for _, sig := range binarySignatures {
		if bytes.Contains(content, sig.Signature) {
			return &match{
				Category:   sig.Category,
				Confidence: sig.Confidence,
				Method:     "binary_signature",
				Details: map[string]string{
					"signature": string(sig.Signature),
				},
			}
		}
	}
	return nil
}

// matchJSONWallet parses content as JSON and checks for known
// wallet/keystore shape markers, combined with filename hints.
func matchJSONWallet(path, content string) *match {
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil
	}

	if _, ok := data["crypto"]; ok && strings.Contains(strings.ToLower(path), "keystore") {
		return &match{
			Category:   types.CategoryEthereumKeystore,
			Confidence: 0.9,
			Method:     "ethereum_keystore_json",
		}
	}

	_, hasModel := data["walletModel"]
	_, hasWallets := data["wallets"]
	if hasModel || hasWallets {
		return &match{
			Category:   types.CategoryMultibitWallet,
			Confidence: 0.8,
			Method:     "multibit_json",
		}
	}

	if _, ok := data["primaryWallet"]; ok {
		return &match{
			Category:   types.CategoryExodusWallet,
			Confidence: 0.8,
			Method:     "exodus_json",
		}
	}

	return nil
}

// matchPrivateKey checks for private key literals: WIF Base58, then
// 0x-prefixed 64-hex, then bare 64-hex, most specific first.
func matchPrivateKey(_ string, content string) *match {
	trimmed := strings.TrimSpace(content)

	if wifPattern.MatchString(trimmed) {
		return &match{
			Category:   types.CategoryBitcoinPrivateKey,
			Confidence: 0.7,
			Method:     "wif_pattern",
		}
	}

	for _, line := range strings.Split(trimmed, "\n") {
		if ethKeyPattern.MatchString(strings.TrimSpace(line)) {
			return &match{
				Category:   types.CategoryEthereumPrivateKey,
				Confidence: 0.7,
				Method:     "eth_hex_pattern",
			}
		}
	}

	for _, line := range strings.Split(trimmed, "\n") {
		if hexKeyPattern.MatchString(strings.TrimSpace(line)) {
			return &match{
				Category:   types.CategoryGenericPrivateKey,
				Confidence: 0.5,
				Method:     "hex_64_pattern",
			}
		}
	}

	return nil
}

// matchSeedPhrase flags content that looks like a BIP39 mnemonic: 12 to 24
// whitespace-separated words with at least one of the first five in the
// reference wordlist.
func matchSeedPhrase(_ string, content string) *match {
	words := strings.Fields(strings.TrimSpace(content))
	if len(words) < 12 || len(words) > 24 {
		return nil
	}

	head := words
	if len(head) > 5 {
		head = head[:5]
	}
	for _, word := range head {
		if _, ok := seedWordlist[strings.ToLower(word)]; ok {
			return &match{
				Category:   types.CategoryBIP39SeedPhrase,
				Confidence: 0.6,
				Method:     "bip39_word_check",
				Details: map[string]string{
					"word_count": strconv.Itoa(len(words)),
				},
			}
		}
	}
	return nil
}

// matchConfigSignature checks content against the wallet-config signature
// table.
func matchConfigSignature(_ string, content string) *match {
	for _, sig := range configSignatures {
		if sig.Pattern.MatchString(content) {
			return &match{
				Category:   sig.Name + "_config",
				Confidence: 0.5,
				Method:     "config_pattern",
				Details: map[string]string{
					"pattern": sig.Pattern.String(),
				},
			}
		}
	}
	return nil
}
