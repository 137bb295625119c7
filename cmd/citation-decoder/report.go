// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citation-decoder/internal/report"
	"github.com/pdiddy/citation-decoder/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect stored citation reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analysis runs",
	RunE:  runReportList,
}

var reportExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a stored run as YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportExport,
}

func init() {
	reportCmd.PersistentFlags().String("reports-dir", "reports", "directory holding the report database")
	reportExportCmd.Flags().Bool("json", false, "emit JSON instead of YAML")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}

func openStore(cmd *cobra.Command) (*report.Store, error) {
	dir, _ := cmd.Flags().GetString("reports-dir")
	return report.NewStore(types.ReportStoreConfig{Dir: dir})
}

func runReportList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No stored runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-6s  %-20s  %-9s  %s\n", "ID", "Created", "Citations", "Paper")
	for _, run := range runs {
		title := run.PaperTitle
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-6d  %-20s  %-9d  %s\n", run.ID, run.CreatedAt, run.Citations, title)
	}
	return nil
}

func runReportExport(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing run ID %q: %w", args[0], err)
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rep, err := store.Load(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.WriteJSON(os.Stdout, rep)
	}
	return report.WriteYAML(os.Stdout, rep)
}
