// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citation-decoder/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [paper.pdf]",
	Short: "List the in-text citation markers found in a paper",
	Long: `Scan locates citation markers (numeric brackets, author-year
parentheticals, narrative citations) in the paper's body text and lists
them with their offsets and candidate keys. No resolution or
classification happens; this is the raw scanner output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	addInputFlags(scanCmd)
	scanCmd.Flags().Bool("json", false, "emit JSON instead of a table")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	doc, err := loadInput(cmd, args)
	if err != nil {
		return err
	}

	markers, err := scan.Scan(doc.BodyText)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(markers)
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-11s  %-30s  %s\n", "Offset", "Style", "Marker", "Candidate keys")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))

	for _, m := range markers {
		raw := m.RawText
		if len(raw) > 30 {
			raw = raw[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-10d  %-11s  %-30s  %s\n",
			m.StartOffset, m.Style, raw, strings.Join(m.CandidateKeys, " | "))
	}

	fmt.Fprintf(os.Stdout, "\n%d markers\n", len(markers))
	return nil
}
