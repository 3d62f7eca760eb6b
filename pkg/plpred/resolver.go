package plpred

import (
	"regexp"
	"sort"
	"strings"
)

// Name resolution maps free-text fixture names ("Wolverhampton Wanderers FC")
// onto strength-table keys. It is a best-effort layer: failure means neutral
// strengths, never an error, and the method used is surfaced on the
// prediction for observability.

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	fcTokenRe  = regexp.MustCompile(`\b(?:afc|a\.?f\.?c\.?|fc)\b`)
)

// aliasOverrides catches names canonicalization alone cannot bridge.
// Add entries only when needed; the resolver already handles FC/AFC,
// punctuation and case.
var aliasOverrides = map[string]string{
	"man utd":      "manchester united",
	"man united":   "manchester united",
	"man city":     "manchester city",
	"spurs":        "tottenham hotspur",
	"wolves":       "wolverhampton wanderers",
	"nottm forest": "nottingham forest",
}

// Resolution methods reported alongside a resolved key.
const (
	ResolveDirect     = "direct"
	ResolveTokenMatch = "token-match"
	ResolveUnmatched  = "unmatched"
)

// CanonicalName normalises a team display name to a canonical key:
// lowercase, "&" folded to "and", FC/AFC tokens stripped, punctuation
// collapsed to single spaces.
func CanonicalName(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")
	s = fcTokenRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(nonAlnumRe.ReplaceAllString(s, " "))
	if alias, ok := aliasOverrides[s]; ok {
		return alias
	}
	return s
}

// ResolveTeamKey maps a fixture name to a strength-table key.
// Returns the table key (or "" when unmatched) and the resolution method.
// An exact canonical hit is "direct"; otherwise the entry with the largest
// token-set overlap wins, ties broken by sorted canonical-key order so the
// result never depends on map iteration order.
func ResolveTeamKey(name string, table *StrengthTable) (string, string) {
	if table == nil || len(table.Teams) == 0 {
		return "", ResolveUnmatched
	}

	// canonical form -> original key. Built over sorted keys so two raw
	// names sharing a canonical form always resolve to the same entry.
	rawKeys := make([]string, 0, len(table.Teams))
	for key := range table.Teams {
		rawKeys = append(rawKeys, key)
	}
	sort.Strings(rawKeys)

	cidx := make(map[string]string, len(rawKeys))
	for _, key := range rawKeys {
		ck := CanonicalName(key)
		if _, taken := cidx[ck]; !taken {
			cidx[ck] = key
		}
	}

	c := CanonicalName(name)
	if original, ok := cidx[c]; ok {
		return original, ResolveDirect
	}

	tokens := map[string]bool{}
	for _, tok := range strings.Fields(c) {
		tokens[tok] = true
	}

	canonKeys := make([]string, 0, len(cidx))
	for ck := range cidx {
		canonKeys = append(canonKeys, ck)
	}
	sort.Strings(canonKeys)

	bestKey, bestScore := "", 0
	for _, ck := range canonKeys {
		score := 0
		for _, tok := range strings.Fields(ck) {
			if tokens[tok] {
				score++
			}
		}
		if score > bestScore {
			bestKey, bestScore = cidx[ck], score
		}
	}

	if bestScore > 0 {
		return bestKey, ResolveTokenMatch
	}
	return "", ResolveUnmatched
}
