// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads service configuration via Viper with environment
// overrides (LITFETCH_*) and typed defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/litfetch/pkg/types"
)

// Load reads the config file at cfgFile (or the default search path when
// empty) and returns the merged configuration. A missing config file is
// not an error; defaults and environment variables apply.
func Load(cfgFile string) (*types.Config, error) {
	v := viper.New()

	v.SetDefault("batch.timeout", 90*time.Second)
	v.SetDefault("batch.user_agent", "litfetch/0.1")
	v.SetDefault("batch.temp_root_dir", "batch_processing_temp")
	v.SetDefault("batch.archive_dir", "zipped_downloads")
	v.SetDefault("batch.records_file", "download_records.json")
	v.SetDefault("batch.store_backend", "json")
	v.SetDefault("batch.zip_prefix", "literature_pack")
	v.SetDefault("batch.download_delay", time.Second)
	v.SetDefault("batch.lock_timeout", 10*time.Second)

	v.SetDefault("resolver.timeout", 30*time.Second)
	v.SetDefault("resolver.user_agent", "litfetch/0.1")
	v.SetDefault("resolver.mirror_domains", []string{})
	v.SetDefault("resolver.contact_email", "")
	v.SetDefault("resolver.probe_timeout", 15*time.Second)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("litfetch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/litfetch")
	}

	v.SetEnvPrefix("LITFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Only a config file that does not exist on the search path is
	// ignorable; a file that exists but fails to parse is an error even
	// when it was found implicitly.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *types.Config) error {
	if cfg.Batch.TempRootDir == "" {
		return fmt.Errorf("batch.temp_root_dir must be set")
	}
	if cfg.Batch.ArchiveDir == "" {
		return fmt.Errorf("batch.archive_dir must be set")
	}
	if cfg.Batch.RecordsFile == "" {
		return fmt.Errorf("batch.records_file must be set")
	}
	switch cfg.Batch.StoreBackend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("batch.store_backend must be \"json\" or \"sqlite\", got %q", cfg.Batch.StoreBackend)
	}
	return nil
}
