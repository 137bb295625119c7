// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package window builds the bounded prose context surrounding a citation
// marker, respecting sentence boundaries.
package window

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/citation-decoder/pkg/types"
)

// abbreviations that end with a period but do not end a sentence.
var abbreviations = map[string]bool{
	"al.":   true, // et al.
	"e.g.":  true,
	"i.e.":  true,
	"cf.":   true,
	"vs.":   true,
	"fig.":  true,
	"figs.": true,
	"eq.":   true,
	"sec.":  true,
	"no.":   true,
	"vol.":  true,
	"pp.":   true,
	"dr.":   true,
	"prof.": true,
}

// span is a half-open byte range into the body text.
type span struct {
	start, end int
}

// Build extracts the context window for a marker. The window covers the
// sentence containing the marker plus cfg.SentenceRadius sentences on each
// side. When the result exceeds cfg.MaxChars, outermost sentences are
// trimmed first; the marker's own sentence is always kept whole, even when
// it alone exceeds the cap, because the window must contain the marker's
// full span.
func Build(marker types.CitationMarker, bodyText string, cfg types.WindowConfig) (types.ContextWindow, error) {
	cfg = cfg.WithDefaults()

	if marker.StartOffset < 0 || marker.EndOffset > len(bodyText) || marker.StartOffset >= marker.EndOffset {
		return types.ContextWindow{}, fmt.Errorf("marker span [%d, %d) out of range for body of %d bytes",
			marker.StartOffset, marker.EndOffset, len(bodyText))
	}

	sentences := segment(bodyText)

	// Locate the sentences covering the marker span. A marker that straddles
	// a mis-detected boundary merges the sentences it touches.
	markerLo, markerHi := -1, -1
	for i, s := range sentences {
		if markerLo < 0 && s.end > marker.StartOffset {
			markerLo = i
		}
		if s.start < marker.EndOffset {
			markerHi = i
		}
	}
	if markerLo < 0 || markerHi < markerLo {
		return types.ContextWindow{}, fmt.Errorf("marker at offset %d not covered by any sentence", marker.StartOffset)
	}

	lo := max(0, markerLo-cfg.SentenceRadius)
	hi := min(len(sentences)-1, markerHi+cfg.SentenceRadius)

	// Trim outward-in: drop the outermost sentence on the side farther from
	// the marker until the window fits or only the marker's sentences remain.
	for sentences[hi].end-sentences[lo].start > cfg.MaxChars && (lo < markerLo || hi > markerHi) {
		if markerLo-lo >= hi-markerHi {
			lo++
		} else {
			hi--
		}
	}

	start, end := sentences[lo].start, sentences[hi].end
	text := bodyText[start:end]

	// Trim surrounding whitespace without losing the marker offset.
	trimmedLeft := strings.TrimLeftFunc(text, unicode.IsSpace)
	start += len(text) - len(trimmedLeft)
	text = strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)

	return types.ContextWindow{
		Text:          text,
		SentenceCount: hi - lo + 1,
		MarkerAt:      marker.StartOffset - start,
	}, nil
}

// segment splits body text into sentence spans. A boundary is a '.', '?'
// or '!' followed by whitespace and a capital letter, digit or bracket,
// guarded against common abbreviations and single-letter initials. The
// spans cover the whole text; inter-sentence whitespace belongs to the
// preceding sentence.
func segment(body string) []span {
	var sentences []span
	start := 0

	runes := []rune(body)
	offsets := make([]int, len(runes)+1)
	{
		off := 0
		for i, r := range runes {
			offsets[i] = off
			off += len(string(r))
		}
		offsets[len(runes)] = off
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		if r == '.' && !endsSentence(runes, i) {
			continue
		}

		// Require whitespace then an upper-case letter, digit, or opening
		// bracket to start the next sentence.
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			if j >= len(runes) {
				// Terminal punctuation at end of text closes the sentence.
				sentences = append(sentences, span{start, offsets[len(runes)]})
				start = offsets[len(runes)]
			}
			continue
		}
		next := runes[j]
		if !unicode.IsUpper(next) && !unicode.IsDigit(next) && next != '[' && next != '(' && next != '"' {
			continue
		}

		sentences = append(sentences, span{start, offsets[j]})
		start = offsets[j]
	}

	if start < len(body) {
		sentences = append(sentences, span{start, len(body)})
	}
	return sentences
}

// endsSentence reports whether the period at position i plausibly ends a
// sentence, rejecting abbreviations and single-letter initials.
func endsSentence(runes []rune, i int) bool {
	// Walk back to the start of the token containing the period.
	tokStart := i
	for tokStart > 0 && !unicode.IsSpace(runes[tokStart-1]) {
		tokStart--
	}
	token := strings.ToLower(string(runes[tokStart : i+1]))

	if abbreviations[token] {
		return false
	}
	// Single-letter initials: "A.", "J.".
	if i-tokStart == 1 && unicode.IsUpper(runes[tokStart]) {
		return false
	}
	return true
}
