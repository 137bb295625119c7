// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citation-decoder CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-decoder/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault resolves a configuration value: an explicit flag value
// wins, then the environment/config via viper, then the .secrets/ file.
func secretDefault(viperKey, secretFile, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := viper.GetString(viperKey); v != "" {
		return v
	}
	return loadedSecrets[secretFile]
}

// rootCmd is the base command for the citation-decoder CLI.
var rootCmd = &cobra.Command{
	Use:   "citation-decoder",
	Short: "Explains what each citation in a paper actually contributes",
	Long: `citation-decoder extracts in-text citation markers from a research paper,
matches each one to its bibliography entry, recovers the surrounding prose,
and asks a language-model classifier what the cited work contributes, why it
was cited, and whether the authors agree with, critique, or extend it.

Each stage is usable on its own: scan lists raw markers, references parses
the bibliography, analyze runs the full pipeline, and report manages stored
results.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citation-decoder.yaml or ~/.config/citation-decoder/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citation-decoder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citation-decoder"))
		}
	}

	viper.SetEnvPrefix("CITATION_DECODER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
