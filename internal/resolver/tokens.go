// Package resolver maps model and material identifiers to texture files
// through the global asset index.
package resolver

import (
	"path"
	"regexp"
	"strings"
)

// GenericTokens are category markers that recur across thousands of assets
// and carry no discriminating power. They are stripped before fuzzy
// lookups.
var GenericTokens = map[string]bool{
	// prefixes
	"bt": true, "ba": true, "m": true, "t": true,
	// categories
	"reli": true, "buil": true, "grou": true, "ston": true,
	"wood": true, "debr": true, "acce": true, "common": true,
	"module": true,
}

// zonePattern matches area codes like "a01" or "a01b" that scope an asset
// to a map zone without identifying it.
var zonePattern = regexp.MustCompile(`^[a-z]\d{2}[a-z]?$`)

// trailingVariant matches the numbered-variant suffix of an asset token,
// e.g. the "01a" in "crackwall01a".
var trailingVariant = regexp.MustCompile(`\d+[a-z]?$`)

// Stem reduces an identifier (possibly a full path) to its normalized
// lookup stem: base name, extension dropped, lowercased, generic "m_"
// prefix removed.
func Stem(identifier string) string {
	stem := path.Base(strings.ReplaceAll(identifier, "\\", "/"))
	stem = strings.TrimSuffix(stem, path.Ext(stem))
	stem = strings.ToLower(stem)
	return strings.TrimPrefix(stem, "m_")
}

// Candidates generates fuzzy lookup keys for an identifier by removing
// generic category tokens. It is a pure function: same inputs, same
// ordered output. The caller decides what to do with keys that miss.
func Candidates(identifier string, generic map[string]bool) []string {
	stem := Stem(identifier)

	var kept []string
	for _, tok := range strings.Split(stem, "_") {
		switch {
		case generic[tok]:
		case zonePattern.MatchString(tok):
		case isNumeric(tok):
		case len(tok) <= 2:
		default:
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return []string{stem}
	}

	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(strings.Join(kept, "_"))
	// The last significant token is usually the specific object name.
	last := kept[len(kept)-1]
	add(last)
	add(trailingVariant.ReplaceAllString(last, ""))
	for _, tok := range kept[:len(kept)-1] {
		add(trailingVariant.ReplaceAllString(tok, ""))
	}
	return out
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
