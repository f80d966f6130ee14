// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litfetch/internal/config"
	"github.com/pdiddy/litfetch/internal/logging"
	"github.com/pdiddy/litfetch/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run the PDF resolution cascade for one article",
	Long: `Resolve tries the configured resolution stages (mirror scrape,
open-access lookup, preprint search) for a single DOI and/or title and
prints the first verified PDF URL found.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().String("doi", "", "article DOI")
	resolveCmd.Flags().String("title", "", "article title")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	doi, _ := cmd.Flags().GetString("doi")
	title, _ := cmd.Flags().GetString("title")
	if doi == "" && title == "" {
		return fmt.Errorf("provide --doi and/or --title")
	}
	if doi != "" && !resolver.ValidDOI(doi) {
		return fmt.Errorf("malformed DOI %q", doi)
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Resolver.ContactEmail == "" {
		cfg.Resolver.ContactEmail = secretDefault("unpaywall-email", cfg.Resolver.ContactEmail)
	}

	logger, err := logging.New(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := &http.Client{Timeout: cfg.Resolver.Timeout}
	cascade := resolver.NewCascade(client, cfg.Resolver, logger)

	url, ok := cascade.Resolve(cmd.Context(), doi, title)
	if !ok {
		return fmt.Errorf("no PDF URL found")
	}
	fmt.Println(url)
	return nil
}
