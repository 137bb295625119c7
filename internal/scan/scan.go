// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan locates in-text citation markers in body text. The scanner
// makes one left-to-right pass, never re-enters an already-matched span,
// and emits markers in start-offset order with their candidate keys
// populated but unresolved; it never consults the reference index.
package scan

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/citation-decoder/pkg/types"
)

// ErrInvalidText reports body text the scanner cannot process. Structural
// scan failures are fatal for the document run.
var ErrInvalidText = errors.New("body text is not valid UTF-8")

// Citation marker patterns, applied as one ordered set. Longest match wins
// when two patterns fire at the same start offset.
const authorPart = `[A-Z][A-Za-z'` + "`" + `-]+(?:\s+(?:et\s+al\.?|(?:and|&)\s+[A-Z][A-Za-z'` + "`" + `-]+))?`

var (
	// numericRe matches bracketed numeric markers and lists with ranges:
	// [3], [1, 2], [4-6], [1, 4-6].
	numericRe = regexp.MustCompile(
		`\[\s*\d{1,3}(?:\s*[-–]\s*\d{1,3})?(?:\s*[,;]\s*\d{1,3}(?:\s*[-–]\s*\d{1,3})?)*\s*\]`)

	// parentheticalRe matches author-year parentheticals and lists:
	// (Smith, 2020), (Smith et al., 2020a), (Smith, 2020; Jones and Lee, 2019).
	parentheticalRe = regexp.MustCompile(
		`\(` + authorPart + `,\s*\d{4}[a-z]?(?:\s*;\s*` + authorPart + `,\s*\d{4}[a-z]?)*\)`)

	// narrativeRe matches narrative citations: Smith (2020), Smith et al. (2021b).
	narrativeRe = regexp.MustCompile(authorPart + `\s+\(\d{4}[a-z]?\)`)

	// narrativeYearRe pulls the parenthesized year out of a narrative match.
	narrativeYearRe = regexp.MustCompile(`\s+\((\d{4}[a-z]?)\)$`)

	// rangeRe matches a numeric range inside a bracket list ("4-6").
	rangeRe = regexp.MustCompile(`^(\d+)\s*[-–]\s*(\d+)$`)
)

// markerKind tags which pattern produced a raw match.
type markerKind int

const (
	kindNumeric markerKind = iota
	kindParenthetical
	kindNarrative
)

// Scan locates citation markers in bodyText. Markers are returned in
// start-offset order with disjoint spans; on overlap at the same start the
// longest match is kept, and nothing inside a matched span is re-scanned.
func Scan(bodyText string) ([]types.CitationMarker, error) {
	if !utf8.ValidString(bodyText) {
		return nil, fmt.Errorf("scanning markers: %w", ErrInvalidText)
	}

	type rawMatch struct {
		start, end int
		kind       markerKind
	}

	var matches []rawMatch
	for _, p := range []struct {
		re   *regexp.Regexp
		kind markerKind
	}{
		{numericRe, kindNumeric},
		{parentheticalRe, kindParenthetical},
		{narrativeRe, kindNarrative},
	} {
		for _, loc := range p.re.FindAllStringIndex(bodyText, -1) {
			matches = append(matches, rawMatch{start: loc[0], end: loc[1], kind: p.kind})
		}
	}

	// Start-offset order; at equal starts the longest match sorts first so
	// the sweep below keeps it and drops the shorter alternatives.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	var markers []types.CitationMarker
	lastEnd := 0
	for _, m := range matches {
		if m.start < lastEnd {
			continue
		}
		raw := bodyText[m.start:m.end]
		marker := types.CitationMarker{
			RawText:     raw,
			StartOffset: m.start,
			EndOffset:   m.end,
		}
		switch m.kind {
		case kindNumeric:
			marker.CandidateKeys = numericKeys(raw)
			marker.Style = types.StyleNumeric
		case kindParenthetical:
			marker.CandidateKeys = authorYearKeys(raw)
			marker.Style = types.StyleAuthorYear
		case kindNarrative:
			marker.CandidateKeys = narrativeKeys(raw)
			marker.Style = types.StyleAuthorYear
		}
		if len(marker.CandidateKeys) == 0 {
			continue
		}
		if len(marker.CandidateKeys) > 1 {
			marker.Style = types.StyleMixed
		}
		markers = append(markers, marker)
		lastEnd = m.end
	}

	return markers, nil
}

// numericKeys expands a bracket list like "[1, 4-6]" into the individual
// entry numbers {"1", "4", "5", "6"}.
func numericKeys(raw string) []string {
	inner := strings.Trim(raw, "[] \t")
	var keys []string
	for _, part := range strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := rangeRe.FindStringSubmatch(part); m != nil {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			for n := lo; n <= hi && n-lo < 50; n++ {
				keys = append(keys, strconv.Itoa(n))
			}
			continue
		}
		if _, err := strconv.Atoi(part); err == nil {
			keys = append(keys, part)
		}
	}
	return keys
}

// authorYearKeys splits a parenthetical like "(Smith, 2020; Jones, 2019)"
// into per-citation keys {"Smith, 2020", "Jones, 2019"}.
func authorYearKeys(raw string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")")
	var keys []string
	for _, part := range strings.Split(inner, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}

// narrativeKeys normalizes "Smith (2020)" to the same key shape the
// parenthetical form produces: "Smith, 2020".
func narrativeKeys(raw string) []string {
	m := narrativeYearRe.FindStringSubmatchIndex(raw)
	if m == nil {
		return nil
	}
	author := strings.TrimSpace(raw[:m[0]])
	year := raw[m[2]:m[3]]
	return []string{author + ", " + year}
}
