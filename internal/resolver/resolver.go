package resolver

import (
	"sort"
	"strings"

	"github.com/valisthea-tools/stagemap/internal/assetindex"
	"github.com/valisthea-tools/stagemap/pkg/formats"
)

// MatchReason states how a resolution was found. It is part of the result
// contract, not diagnostics: consumers use it to flag low-confidence
// matches for manual review.
type MatchReason int

const (
	MatchNone         MatchReason = iota // nothing found; not an error
	MatchExactStem                       // identifier stem found directly
	MatchTokenReduced                    // found after generic-token stripping
	MatchShaderName                      // fell back to the shader identifier
)

// String returns the wire/report name of the reason.
func (r MatchReason) String() string {
	switch r {
	case MatchExactStem:
		return "exact-stem"
	case MatchTokenReduced:
		return "token-reduced"
	case MatchShaderName:
		return "shader-name-fallback"
	default:
		return "none"
	}
}

// Result is the outcome of one resolution. TexturePath is empty when
// Reason is MatchNone. Tried records every key attempted, for the batch
// report.
type Result struct {
	Identifier  string
	TexturePath string
	Reason      MatchReason
	Tried       []string
}

// Texture stem suffixes that mark a base-color map. Exact lookups retry
// with these appended; fuzzy scoring only considers stems carrying one.
var baseSuffixes = []string{"_base", "_diffuse", "_albedo", "_color"}

// Scoring weights for the token-reduced pass.
const (
	scoreIdentityBounded = 60 // identifier appears as a whole token
	scoreIdentityLoose   = 30 // identifier appears as a substring
	scoreCategoryPenalty = 10
	scoreThreshold       = 20
)

// Resolver answers identifier-to-texture queries against a built index.
// It holds no mutable state; concurrent use is safe once the index is
// built.
type Resolver struct {
	index   *assetindex.Index
	generic map[string]bool
}

// New creates a Resolver over idx using the default generic-token set.
func New(idx *assetindex.Index) *Resolver {
	return &Resolver{index: idx, generic: GenericTokens}
}

// NewWithTokens creates a Resolver with a custom generic-token set.
func NewWithTokens(idx *assetindex.Index, generic map[string]bool) *Resolver {
	return &Resolver{index: idx, generic: generic}
}

// Resolve maps an identifier (model or material name, possibly a path) to
// a texture file. Absence of a match is a normal outcome reported via
// MatchNone, never an error.
func (rv *Resolver) Resolve(identifier string) Result {
	res := Result{Identifier: identifier, Reason: MatchNone}
	stem := Stem(identifier)

	// 1. Exact stem, then exact stem with base-color suffixes.
	for _, key := range append([]string{stem}, suffixed(stem)...) {
		res.Tried = append(res.Tried, key)
		if path := rv.textureFor(key); path != "" {
			res.TexturePath = path
			res.Reason = MatchExactStem
			return res
		}
	}

	// 2. Generic tokens stripped, retried as direct keys first.
	candidates := Candidates(identifier, rv.generic)
	for _, cand := range candidates {
		if cand == stem {
			continue
		}
		for _, key := range append([]string{cand}, suffixed(cand)...) {
			res.Tried = append(res.Tried, key)
			if path := rv.textureFor(key); path != "" {
				res.TexturePath = path
				res.Reason = MatchTokenReduced
				return res
			}
		}
	}

	// Still nothing: scored substring scan over base-color stems.
	if path := rv.scan(candidates); path != "" {
		res.TexturePath = path
		res.Reason = MatchTokenReduced
		return res
	}

	return res
}

// ResolveMaterial resolves a parsed material record: its base-color slot
// path first, then every slot path, then the shader-name fallback.
func (rv *Resolver) ResolveMaterial(mat *formats.Material) Result {
	if base := mat.Texture("base"); base != "" {
		if res := rv.Resolve(base); res.Reason != MatchNone {
			return res
		}
	}
	for _, slot := range mat.Slots {
		if slot.TexturePath == "" {
			continue
		}
		if res := rv.Resolve(slot.TexturePath); res.Reason != MatchNone {
			return res
		}
	}

	// No path component resolves; the shader identifier is the last hint
	// worth trying, but only when some slot names a texture category.
	res := Result{Identifier: mat.ShaderName, Reason: MatchNone}
	if mat.ShaderName == "" || !hasCategoryHint(mat) {
		return res
	}
	for _, cand := range Candidates(mat.ShaderName, rv.generic) {
		for _, key := range append([]string{cand}, suffixed(cand)...) {
			res.Tried = append(res.Tried, key)
			if path := rv.textureFor(key); path != "" {
				res.TexturePath = path
				res.Reason = MatchShaderName
				return res
			}
		}
	}
	return res
}

func hasCategoryHint(mat *formats.Material) bool {
	for _, slot := range mat.Slots {
		name := strings.ToLower(slot.ShaderVariable)
		for _, kw := range []string{"base", "color", "diffuse", "albedo"} {
			if strings.Contains(name, kw) {
				return true
			}
		}
	}
	return false
}

// textureFor returns the path of the first texture entry indexed under
// key, skipping material entries.
func (rv *Resolver) textureFor(key string) string {
	for _, e := range rv.index.Lookup(key) {
		if !e.Material {
			return e.Path
		}
	}
	return ""
}

// scan scores every indexed base-color stem against the candidate
// identifiers. Results are ordered (score desc, stem asc) so repeated
// calls against an unchanged index return the same entry.
func (rv *Resolver) scan(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	type scored struct {
		stem string
		path string
		n    int
	}
	var hits []scored

	rv.index.Stems(func(stem string, entries []*assetindex.Entry) bool {
		if !hasBaseSuffix(stem) {
			return true
		}
		path := ""
		for _, e := range entries {
			if !e.Material {
				path = e.Path
				break
			}
		}
		if path == "" {
			return true
		}

		// Best identity score over all candidate keys.
		n := 0
		for _, cand := range candidates {
			switch {
			case strings.Contains(stem, "_"+cand+"_") || strings.HasSuffix(stem, "_"+cand):
				if n < scoreIdentityBounded {
					n = scoreIdentityBounded
				}
			case strings.Contains(stem, cand):
				if n < scoreIdentityLoose {
					n = scoreIdentityLoose
				}
			}
		}
		if n > 0 {
			for tok := range rv.generic {
				if len(tok) > 2 && strings.Contains(stem, "_"+tok+"_") && !containsAny(candidates, tok) {
					n -= scoreCategoryPenalty
					break
				}
			}
		}

		if n > scoreThreshold {
			hits = append(hits, scored{stem: stem, path: path, n: n})
		}
		return true
	})

	if len(hits) == 0 {
		return ""
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].n != hits[j].n {
			return hits[i].n > hits[j].n
		}
		return hits[i].stem < hits[j].stem
	})
	return hits[0].path
}

func suffixed(stem string) []string {
	out := make([]string, len(baseSuffixes))
	for i, suf := range baseSuffixes {
		out[i] = stem + suf
	}
	return out
}

func containsAny(candidates []string, tok string) bool {
	for _, c := range candidates {
		if strings.Contains(c, tok) {
			return true
		}
	}
	return false
}

func hasBaseSuffix(stem string) bool {
	for _, suf := range baseSuffixes {
		if strings.Contains(stem, suf) {
			return true
		}
	}
	return false
}
