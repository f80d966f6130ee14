// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litfetch CLI. It submits batch
// PDF retrieval tasks, queries and deletes their records, and exercises
// the resolution cascade directly.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litfetch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value for
// key if one was loaded.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the litfetch CLI.
var rootCmd = &cobra.Command{
	Use:   "litfetch",
	Short: "Batch literature PDF retrieval and packaging",
	Long: `litfetch resolves and downloads article PDFs in batches and packages the
results into ZIP archives. Submissions are content-addressed: resubmitting
the same article set is idempotent, and at most one processing run exists
per submission at a time.

Task state lives in a locked, crash-safe record store shared by every
litfetch process on this host.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litfetch.yaml or ~/.config/litfetch/litfetch.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable development logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
