// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext extracts page-ordered text from a PDF and separates the
// references section from the body. It is the document-extraction
// collaborator in front of the analysis pipeline; the pipeline itself
// never touches PDF bytes.
package pdftext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/citation-decoder/pkg/types"
)

// sectionHeadingRe matches a references-section heading on its own line,
// optionally numbered ("7. References").
var sectionHeadingRe = regexp.MustCompile(`(?mi)^\s*(?:\d+\.?\s+)?(?:references|bibliography|works cited|literature cited)\s*:?\s*$`)

// ExtractText returns the plain text of every page in order.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken content streams are skipped, not fatal;
			// the paper's prose usually survives on the other pages.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return sb.String(), nil
}

// LoadDocument extracts a PDF's text and splits it into the pipeline's
// Document form. The title is best effort; callers with better metadata
// (e.g. from arXiv) should overwrite it.
func LoadDocument(path string) (types.Document, error) {
	text, err := ExtractText(path)
	if err != nil {
		return types.Document{}, err
	}

	body, bib := SplitReferences(text)
	return types.Document{
		Title:            guessTitle(text),
		BodyText:         body,
		BibliographyText: bib,
	}, nil
}

// SplitReferences separates body text from the references section at the
// last references heading. When no heading is found, the whole text is
// returned as both body and bibliography: the reference parser tolerates
// scanning a full-text tail, and scanning the full body keeps markers
// ahead of the heading visible.
func SplitReferences(fullText string) (body, bibliography string) {
	locs := sectionHeadingRe.FindAllStringIndex(fullText, -1)
	if len(locs) == 0 {
		return fullText, fullText
	}
	last := locs[len(locs)-1]
	return fullText[:last[0]], fullText[last[1]:]
}

// guessTitle takes the first non-empty line as the paper title. Layout
// extraction loses font sizes, so this is a heuristic only.
func guessTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 8 {
			return line
		}
	}
	return ""
}
