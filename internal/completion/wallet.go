package completion

import (
	"regexp"
	"sort"
)

// walletPatterns maps a coin name to the address formats that identify it.
// Scam messages ask victims to pay to an address pasted into the text.
var walletPatterns = map[string][]*regexp.Regexp{
	"bitcoin": {
		regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`),
		regexp.MustCompile(`\bbc1[a-z0-9]{39,59}\b`),
	},
	"ethereum": {
		regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`),
	},
	"monero": {
		regexp.MustCompile(`\b[48][0-9AB][1-9A-HJ-NP-Za-km-z]{93}\b`),
	},
	"litecoin": {
		regexp.MustCompile(`\bltc1[a-z0-9]{39,59}\b`),
	},
	"tron": {
		regexp.MustCompile(`\bT[1-9A-HJ-NP-Za-km-z]{33}\b`),
	},
	"dogecoin": {
		regexp.MustCompile(`\bD[5-9A-HJ-NP-U][1-9A-HJ-NP-Za-km-z]{32}\b`),
	},
}

// walletCoins returns the sorted names of coins whose addresses appear in text.
func walletCoins(text string) []string {
	var coins []string
	for coin, patterns := range walletPatterns {
		for _, p := range patterns {
			if p.MatchString(text) {
				coins = append(coins, coin)
				break
			}
		}
	}
	sort.Strings(coins)
	return coins
}
