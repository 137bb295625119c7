// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads papers from arXiv for analysis. Input
// acquisition sits outside the analysis pipeline; this package only hands
// the CLI a local PDF plus the paper's title.
package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/citation-decoder/internal/httputil"
	"github.com/pdiddy/citation-decoder/pkg/types"
)

// Endpoints are package-level vars so tests can substitute an httptest
// server.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org/pdf"
)

// arxivIDRe matches a bare modern arXiv identifier like "2106.12423".
var arxivIDRe = regexp.MustCompile(`\d{4}\.\d{4,5}(?:v\d+)?`)

// Paper is the fetched artifact: the local PDF plus arXiv metadata.
type Paper struct {
	ArxivID string
	Title   string
	Authors []string
	PDFPath string
}

// NormalizeArxivID accepts a bare ID or an arxiv.org abs/pdf URL and
// returns the bare ID, or an error when nothing ID-shaped is present.
func NormalizeArxivID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if id := arxivIDRe.FindString(input); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("unrecognized arXiv identifier: %q", input)
}

// Fetch downloads the paper's PDF into cfg.PapersDir and looks up its
// title and authors via the arXiv API. A metadata failure degrades to a
// warning-level empty title rather than failing the fetch; the pipeline
// treats the paper title as best effort anyway.
func Fetch(ctx context.Context, client *http.Client, arxivID string, cfg types.FetchConfig, w io.Writer) (*Paper, error) {
	if client == nil {
		client = http.DefaultClient
	}

	paper := &Paper{ArxivID: arxivID}

	if err := fetchMetadata(ctx, client, paper, cfg); err != nil {
		fmt.Fprintf(w, "warning: arXiv metadata fetch failed: %v\n", err)
	}

	dir := cfg.PapersDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating papers directory %s: %w", dir, err)
	}

	paper.PDFPath = filepath.Join(dir, strings.ReplaceAll(arxivID, "/", "_")+".pdf")

	if _, err := os.Stat(paper.PDFPath); err == nil {
		fmt.Fprintf(w, "skipped download: %s (already exists)\n", paper.PDFPath)
		return paper, nil
	}

	fmt.Fprintf(w, "downloading: %s\n", arxivID)
	if err := downloadPDF(ctx, client, arxivID, paper.PDFPath, cfg); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", arxivID, err)
	}
	return paper, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title   string        `xml:"title"`
	Authors []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// fetchMetadata fills in the paper's title and authors from the arXiv API.
func fetchMetadata(ctx context.Context, client *http.Client, paper *Paper, cfg types.FetchConfig) error {
	apiURL := fmt.Sprintf("%s?id_list=%s", arxivAPIBase, paper.ArxivID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return fmt.Errorf("parsing arXiv response: %w", err)
	}
	if len(feed.Entries) == 0 {
		return fmt.Errorf("no arXiv entry for %s", paper.ArxivID)
	}

	entry := feed.Entries[0]
	paper.Title = strings.Join(strings.Fields(entry.Title), " ")
	for _, a := range entry.Authors {
		paper.Authors = append(paper.Authors, strings.TrimSpace(a.Name))
	}
	return nil
}

// downloadPDF fetches the paper PDF to destPath via a temp file renamed on
// success, so a partial download never masquerades as a complete PDF.
func downloadPDF(ctx context.Context, client *http.Client, arxivID, destPath string, cfg types.FetchConfig) error {
	url := fmt.Sprintf("%s/%s.pdf", arxivPDFBase, arxivID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
