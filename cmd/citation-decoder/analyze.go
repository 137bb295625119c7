// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/citation-decoder/internal/classify"
	"github.com/pdiddy/citation-decoder/internal/pipeline"
	"github.com/pdiddy/citation-decoder/internal/report"
	"github.com/pdiddy/citation-decoder/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paper.pdf]",
	Short: "Run the full citation-analysis pipeline over a paper",
	Long: `Analyze extracts citation markers, resolves them against the paper's
bibliography, and classifies every occurrence with the configured
language-model backend. The report groups occurrences by reference key;
markers with no matching bibliography entry appear under "unresolved".

The classifier needs an Anthropic API key, taken from --api-key, the
CITATION_DECODER_API_KEY environment variable, or .secrets/anthropic-api-key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	addInputFlags(analyzeCmd)

	analyzeCmd.Flags().String("model", "", "classifier model identifier (default "+defaultModel+")")
	analyzeCmd.Flags().String("api-key", "", "classifier API key")
	analyzeCmd.Flags().Int("workers", 4, "maximum concurrent classifier calls")
	analyzeCmd.Flags().Float64("rate-limit", 2, "classifier calls per second")
	analyzeCmd.Flags().Duration("timeout", 10*time.Minute, "whole-document timeout (0 disables)")
	analyzeCmd.Flags().Int("sentence-radius", 1, "sentences of context on each side of a marker")
	analyzeCmd.Flags().Int("max-chars", 800, "hard cap on context window length")
	analyzeCmd.Flags().Bool("json", false, "emit JSON instead of YAML")
	analyzeCmd.Flags().Bool("store", false, "persist the report to the report store")
	analyzeCmd.Flags().String("reports-dir", "reports", "directory for the report store")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	doc, err := loadInput(cmd, args)
	if err != nil {
		return err
	}

	cfg := pipelineConfigFromFlags(cmd)
	if cfg.Classifier.APIKey == "" {
		return fmt.Errorf("classifier API key required: use --api-key, CITATION_DECODER_API_KEY, or .secrets/anthropic-api-key")
	}

	logger, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	backend := &classify.ClaudeBackend{Config: cfg.Classifier}

	result, runErr := pipeline.Run(context.Background(), doc, backend, cfg, logger)
	if result == nil {
		return runErr
	}
	if runErr != nil && errors.Is(runErr, context.DeadlineExceeded) {
		fmt.Fprintln(os.Stderr, "warning: timeout elapsed, report is partial")
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		err = report.WriteJSON(os.Stdout, result)
	} else {
		err = report.WriteYAML(os.Stdout, result)
	}
	if err != nil {
		return err
	}

	if persist, _ := cmd.Flags().GetBool("store"); persist {
		reportsDir, _ := cmd.Flags().GetString("reports-dir")
		store, err := report.NewStore(types.ReportStoreConfig{Dir: reportsDir})
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := store.Save(context.Background(), result)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "stored as run %d\n", runID)
	}

	return runErr
}

const defaultModel = "claude-sonnet-4-5-20250929"

// pipelineConfigFromFlags assembles the explicit configuration struct the
// pipeline entry point takes.
func pipelineConfigFromFlags(cmd *cobra.Command) types.PipelineConfig {
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	workers, _ := cmd.Flags().GetInt("workers")
	rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	radius, _ := cmd.Flags().GetInt("sentence-radius")
	maxChars, _ := cmd.Flags().GetInt("max-chars")

	model = secretDefault("model", "model", model)
	if model == "" {
		model = defaultModel
	}

	return types.PipelineConfig{
		Window: types.WindowConfig{SentenceRadius: radius, MaxChars: maxChars},
		Classifier: types.ClassifierConfig{
			Model:  model,
			APIKey: secretDefault("api_key", "anthropic-api-key", apiKey),
		},
		Workers:   workers,
		RateLimit: rateLimit,
		Timeout:   timeout,
	}
}

// buildLogger creates the stderr zap logger used for pipeline progress.
func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
