// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/internal/batch"
	"github.com/pdiddy/litfetch/internal/config"
	"github.com/pdiddy/litfetch/internal/download"
	"github.com/pdiddy/litfetch/internal/logging"
	"github.com/pdiddy/litfetch/internal/records"
	"github.com/pdiddy/litfetch/internal/resolver"
	"github.com/pdiddy/litfetch/pkg/types"
)

// app bundles the wired collaborators a command needs.
type app struct {
	cfg     *types.Config
	logger  *zap.Logger
	store   records.Store
	service *batch.Service
}

// newApp loads configuration and builds the store, cascade, downloader and
// service. The caller is responsible for app.close.
func newApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	// The secrets directory backs an unset contact email.
	if cfg.Resolver.ContactEmail == "" {
		cfg.Resolver.ContactEmail = secretDefault("unpaywall-email", cfg.Resolver.ContactEmail)
	}

	logger, err := logging.New(verbose)
	if err != nil {
		return nil, err
	}

	var store records.Store
	switch cfg.Batch.StoreBackend {
	case "sqlite":
		store, err = records.NewSQLiteStore(cfg.Batch.RecordsFile+".db", logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite record store: %w", err)
		}
	default:
		store = records.NewFileStore(cfg.Batch.RecordsFile, cfg.Batch.LockTimeout, logger)
	}

	resolverClient := &http.Client{Timeout: cfg.Resolver.Timeout}
	cascade := resolver.NewCascade(resolverClient, cfg.Resolver, logger)

	downloadClient := &http.Client{Timeout: cfg.Batch.Timeout}
	dl := download.New(downloadClient, cfg.Batch.UserAgent, logger)

	svc := batch.NewService(store, cascade, dl, cfg.Batch, logger)

	return &app{cfg: cfg, logger: logger, store: store, service: svc}, nil
}

func (a *app) close() {
	a.service.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing record store", zap.Error(err))
	}
	a.logger.Sync()
}
