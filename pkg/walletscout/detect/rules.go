package detect

import (
	"regexp"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// walletFamily pairs a wallet family name with the filename tokens that
// identify it. Families are evaluated in declaration order, first hit wins.
type walletFamily struct {
	Family   string
	Patterns []string
}

// walletFamilies is the filename token table. A file whose lower-cased base
// name contains one of the tokens is flagged as that family's wallet file.
var walletFamilies = []walletFamily{
	{Family: "bitcoin_core", Patterns: []string{"wallet.dat", "wallet"}},
	{Family: "electrum", Patterns: []string{"default_wallet", "electrum"}},
	{Family: "ethereum", Patterns: []string{"keystore", "utc--"}},
	{Family: "litecoin", Patterns: []string{"wallet.dat", "litecoin"}},
	{Family: "monero", Patterns: []string{"wallet"}},
	{Family: "dogecoin", Patterns: []string{"wallet.dat"}},
	{Family: "tron", Patterns: []string{"wallet"}},
	{Family: "binance", Patterns: []string{"binance"}},
	{Family: "coinbase", Patterns: []string{"coinbase"}},
	{Family: "trust_wallet", Patterns: []string{"trustwallet"}},
}

// binarySignature is a literal product-name byte signature searched for in
// raw binary content.
type binarySignature struct {
	Signature  []byte
	Category   types.Category
	Confidence float64
}

// binarySignatures is evaluated in declaration order, first hit wins.
var binarySignatures = []binarySignature{
	{Signature: []byte("Bitcoin"), Category: types.CategoryBitcoinCoreWallet, Confidence: 0.7},
	{Signature: []byte("Electrum"), Category: types.CategoryElectrumWallet, Confidence: 0.7},
	{Signature: []byte("Ethereum"), Category: types.CategoryEthereumWallet, Confidence: 0.6},
	{Signature: []byte("Litecoin"), Category: types.CategoryLitecoinWallet, Confidence: 0.7},
}

// walletDBMagic is the Berkeley DB magic number found in Bitcoin Core
// wallet.dat files. A content hit is the strongest binary signal.
var walletDBMagic = []byte{0xE6, 0xE1, 0xCF, 0xFA}

// Private key literal patterns.
var (
	// wifPattern matches a Base58 wallet-import-format key on its own line.
	wifPattern = regexp.MustCompile(`(?m)^[5KLNQ][1-9A-HJ-NP-Za-km-z]{50,51}$`)

	// ethKeyPattern matches a 0x-prefixed 64-hex-digit private key.
	ethKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

	// hexKeyPattern matches a bare 64-hex-digit private key.
	hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// seedWordlist is the reference wordlist for the mnemonic heuristic. Only
// the head of the standard list is carried; the check needs one hit among a
// phrase's first five tokens, and real mnemonics overwhelmingly start with
// common words.
var seedWordlist = map[string]struct{}{
	"abandon": {}, "ability": {}, "able": {}, "about": {}, "above": {},
	"absent": {}, "absolute": {}, "absorb": {}, "abstract": {}, "absurd": {},
	"accept": {}, "access": {}, "accident": {}, "account": {}, "accuse": {},
	"achieve": {}, "acid": {}, "acoustic": {}, "acquire": {}, "action": {},
	"actor": {}, "actual": {}, "adapt": {}, "addiction": {}, "address": {},
}

// configSignature is a loose keyword/regex signature for wallet
// configuration files.
type configSignature struct {
	Name    string
	Pattern *regexp.Regexp
}

// configSignatures is evaluated in declaration order, first hit wins.
var configSignatures = []configSignature{
	{Name: "bitcoin", Pattern: regexp.MustCompile(`(?i)bitcoin.*:.*true`)},
	{Name: "litecoin", Pattern: regexp.MustCompile(`(?i)litecoin.*:.*true`)},
	{Name: "database", Pattern: regexp.MustCompile(`(?i)db.*=.*wallet`)},
	{Name: "wallet", Pattern: regexp.MustCompile(`(?i)wallet.*pass`)},
	{Name: "electrum", Pattern: regexp.MustCompile(`(?i)electrum.*:.*true`)},
	{Name: "multibit", Pattern: regexp.MustCompile(`(?i)multibit.*wallet`)},
}

// WalletTokens returns every filename token in the family table. The
// collector uses this set for its inclusion rules.
func WalletTokens() []string {
	var tokens []string
	for _, fam := range walletFamilies {
		tokens = append(tokens, fam.Patterns...)
	}
	return tokens
}
