// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps scanned citation markers to reference index entries.
package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/citation-decoder/internal/refindex"
	"github.com/pdiddy/citation-decoder/pkg/types"
)

// similarityFloor is the minimum normalized similarity for a fuzzy surname
// match. Below it a citation stays unresolved.
const similarityFloor = 0.8

// keyYearRe captures the trailing year (with optional suffix) of an
// author-year candidate key like "Smith et al., 2020a".
var keyYearRe = regexp.MustCompile(`,\s*(\d{4})([a-z]?)\s*$`)

// Resolve maps a marker to reference entries. List markers resolve each
// candidate key independently and produce one ResolvedCitation per
// sub-citation, all preserving the original marker's span. The returned
// slice always has one element per candidate key; unresolvable keys come
// back with a nil Reference and ResolutionUnresolved.
func Resolve(marker types.CitationMarker, idx *refindex.Index) []types.ResolvedCitation {
	resolved := make([]types.ResolvedCitation, 0, len(marker.CandidateKeys))
	for _, key := range marker.CandidateKeys {
		rc := types.ResolvedCitation{Marker: marker, Key: key}
		if isNumericKey(key) {
			resolveNumeric(&rc, idx)
		} else {
			resolveAuthorYear(&rc, idx)
		}
		resolved = append(resolved, rc)
	}
	return resolved
}

func isNumericKey(key string) bool {
	_, err := strconv.Atoi(key)
	return err == nil
}

// resolveNumeric looks the key up by bibliography number. Numbered entries
// either exist or they don't; there is no fuzzy form.
func resolveNumeric(rc *types.ResolvedCitation, idx *refindex.Index) {
	n, _ := strconv.Atoi(rc.Key)
	if entry := idx.ByNumber(n); entry != nil {
		rc.Reference = entry
		rc.Confidence = types.ResolutionExact
		return
	}
	rc.Confidence = types.ResolutionUnresolved
}

// resolveAuthorYear looks the key up by lead surname and year, then falls
// back through suffix disambiguation and fuzzy surname matching.
func resolveAuthorYear(rc *types.ResolvedCitation, idx *refindex.Index) {
	surname, year, suffix := splitAuthorYearKey(rc.Key)
	if surname == "" || year == 0 {
		rc.Confidence = types.ResolutionUnresolved
		return
	}

	candidates := idx.ByAuthorYear(surname, year)

	// A trailing letter in the marker ("2020a") narrows same surname+year
	// entries to the one carrying that suffix.
	if len(candidates) > 1 && suffix != "" {
		var narrowed []*types.ReferenceEntry
		for _, c := range candidates {
			if c.Suffix == suffix {
				narrowed = append(narrowed, c)
			}
		}
		if len(narrowed) > 0 {
			candidates = narrowed
		}
	}

	switch {
	case len(candidates) == 1:
		rc.Reference = candidates[0]
		rc.Confidence = types.ResolutionExact
	case len(candidates) > 1:
		// Still ambiguous: pick the first by document order and record
		// the competitors so the report can flag the ambiguity.
		rc.Reference = candidates[0]
		rc.Confidence = types.ResolutionFuzzy
		for _, c := range candidates[1:] {
			rc.Ambiguity = append(rc.Ambiguity, c.Key)
		}
	default:
		fuzzyMatch(rc, surname, idx)
	}
}

// splitAuthorYearKey breaks "Smith et al., 2020a" into its normalized lead
// surname, year, and suffix. Multi-author keys keep only the lead surname.
func splitAuthorYearKey(key string) (surname string, year int, suffix string) {
	m := keyYearRe.FindStringSubmatchIndex(key)
	if m == nil {
		return "", 0, ""
	}
	year, _ = strconv.Atoi(key[m[2]:m[3]])
	suffix = key[m[4]:m[5]]

	authors := strings.TrimSpace(key[:m[0]])
	authors = strings.TrimSuffix(authors, "et al.")
	authors = strings.TrimSuffix(authors, "et al")
	for _, sep := range []string{" and ", " & "} {
		if i := strings.Index(authors, sep); i >= 0 {
			authors = authors[:i]
		}
	}
	return refindex.NormalizeSurname(authors), year, suffix
}

// fuzzyMatch compares the marker surname against every bibliography surname
// using normalized edit-distance similarity. Ties at the best score break
// first-by-document-order; anything below the floor stays unresolved.
func fuzzyMatch(rc *types.ResolvedCitation, surname string, idx *refindex.Index) {
	var best *types.ReferenceEntry
	bestScore := 0.0
	var ties []string

	for _, se := range idx.SurnameEntries() {
		score := similarity(surname, se.Surname)
		switch {
		case score > bestScore:
			best = se.Entry
			bestScore = score
			ties = nil
		case score == bestScore && best != nil && se.Entry != best:
			ties = append(ties, se.Entry.Key)
		}
	}

	if best == nil || bestScore < similarityFloor {
		rc.Confidence = types.ResolutionUnresolved
		return
	}

	rc.Reference = best
	rc.Confidence = types.ResolutionFuzzy
	rc.Ambiguity = ties
}

// similarity is 1 minus the normalized Levenshtein distance of two
// already-normalized strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0.0
	}
	return 1.0 - float64(levenshtein([]rune(a), []rune(b)))/float64(maxLen)
}

// levenshtein computes edit distance with the two-row space optimization.
func levenshtein(s1, s2 []rune) int {
	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}
	m, n := len(s1), len(s2)
	if m == 0 {
		return n
	}

	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for i := 0; i <= m; i++ {
		prev[i] = i
	}

	for j := 1; j <= n; j++ {
		curr[0] = j
		for i := 1; i <= m; i++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[m]
}
