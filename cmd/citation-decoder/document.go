// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citation-decoder/internal/fetch"
	"github.com/pdiddy/citation-decoder/internal/pdftext"
	"github.com/pdiddy/citation-decoder/pkg/types"
)

const userAgent = "citation-decoder/0.1"

// addInputFlags registers the document-input flags shared by analyze,
// references, and scan.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("arxiv", "", "analyze a paper by arXiv ID or URL instead of a local file")
	cmd.Flags().String("body", "", "pre-extracted body text file (use with --bib)")
	cmd.Flags().String("bib", "", "pre-extracted bibliography text file (use with --body)")
	cmd.Flags().String("title", "", "host paper title (overrides extracted title)")
	cmd.Flags().String("papers-dir", "papers", "directory downloaded PDFs are written to")
}

// loadInput builds the pipeline Document from whichever input the flags
// selected: a local PDF path argument, an arXiv identifier, or a pair of
// pre-extracted text files.
func loadInput(cmd *cobra.Command, args []string) (types.Document, error) {
	arxivInput, _ := cmd.Flags().GetString("arxiv")
	bodyPath, _ := cmd.Flags().GetString("body")
	bibPath, _ := cmd.Flags().GetString("bib")
	title, _ := cmd.Flags().GetString("title")

	var doc types.Document
	switch {
	case arxivInput != "":
		id, err := fetch.NormalizeArxivID(arxivInput)
		if err != nil {
			return types.Document{}, err
		}

		papersDir, _ := cmd.Flags().GetString("papers-dir")
		cfg := types.FetchConfig{
			HTTPConfig: types.HTTPConfig{Timeout: 2 * time.Minute, UserAgent: userAgent},
			PapersDir:  papersDir,
		}
		client := &http.Client{Timeout: cfg.Timeout}

		paper, err := fetch.Fetch(context.Background(), client, id, cfg, os.Stderr)
		if err != nil {
			return types.Document{}, err
		}

		doc, err = pdftext.LoadDocument(paper.PDFPath)
		if err != nil {
			return types.Document{}, err
		}
		if paper.Title != "" {
			doc.Title = paper.Title
		}

	case bodyPath != "" || bibPath != "":
		if bodyPath == "" || bibPath == "" {
			return types.Document{}, fmt.Errorf("--body and --bib must be used together")
		}
		body, err := os.ReadFile(bodyPath)
		if err != nil {
			return types.Document{}, fmt.Errorf("reading body text: %w", err)
		}
		bib, err := os.ReadFile(bibPath)
		if err != nil {
			return types.Document{}, fmt.Errorf("reading bibliography text: %w", err)
		}
		doc = types.Document{BodyText: string(body), BibliographyText: string(bib)}

	case len(args) == 1:
		var err error
		doc, err = pdftext.LoadDocument(args[0])
		if err != nil {
			return types.Document{}, err
		}

	default:
		return types.Document{}, fmt.Errorf("provide a PDF path, --arxiv, or --body/--bib")
	}

	if title != "" {
		doc.Title = title
	}
	doc.Title = strings.TrimSpace(doc.Title)
	return doc, nil
}
