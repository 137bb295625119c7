// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citation-decoder/internal/refindex"
)

var referencesCmd = &cobra.Command{
	Use:   "references [paper.pdf]",
	Short: "Parse and list the paper's bibliography entries",
	Long: `References parses the paper's reference list into structured entries
(key, authors, year, title) without running the classifier. Entries whose
structure could not be parsed are listed with their raw text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReferences,
}

func init() {
	addInputFlags(referencesCmd)
	referencesCmd.Flags().Bool("json", false, "emit JSON instead of a table")

	rootCmd.AddCommand(referencesCmd)
}

func runReferences(cmd *cobra.Command, args []string) error {
	doc, err := loadInput(cmd, args)
	if err != nil {
		return err
	}

	idx, err := refindex.Build(doc.BibliographyText)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(idx.Entries())
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-6s  %-30s  %s\n", "Key", "Year", "Authors", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, entry := range idx.Entries() {
		authors := strings.Join(entry.Authors, "; ")
		if len(authors) > 30 {
			authors = authors[:27] + "..."
		}
		title := entry.Title
		if title == "" {
			title = entry.RawText
		}
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		year := ""
		if entry.Year > 0 {
			year = fmt.Sprintf("%d%s", entry.Year, entry.Suffix)
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-6s  %-30s  %s\n", entry.Key, year, authors, title)
	}

	fmt.Fprintf(os.Stdout, "\n%d entries\n", idx.Len())
	return nil
}
