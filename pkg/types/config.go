// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litfetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ResolverConfig holds settings for the PDF resolution cascade.
type ResolverConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MirrorDomains is the ordered list of mirror base URLs tried by the
	// scrape stage. An empty list disables the stage.
	MirrorDomains []string `json:"mirror_domains" yaml:"mirror_domains" mapstructure:"mirror_domains"`

	// ContactEmail identifies the caller to the open-access lookup API.
	// Unset or placeholder values disable the stage.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty" mapstructure:"contact_email"`

	// ProbeTimeout bounds the HEAD probe used to verify scraped candidates
	// (default 15s).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout" mapstructure:"probe_timeout"`
}

// BatchConfig holds settings for the batch download pipeline.
type BatchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// TempRootDir is the parent of the per-task download directories.
	TempRootDir string `json:"temp_root_dir" yaml:"temp_root_dir" mapstructure:"temp_root_dir"`

	// ArchiveDir is where completed ZIP archives are stored.
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir" mapstructure:"archive_dir"`

	// RecordsFile is the path of the JSON record store. Its .bak, .tmp and
	// .lock siblings live in the same directory.
	RecordsFile string `json:"records_file" yaml:"records_file" mapstructure:"records_file"`

	// StoreBackend selects the record store implementation: "json" or "sqlite".
	StoreBackend string `json:"store_backend" yaml:"store_backend" mapstructure:"store_backend"`

	// ZipPrefix is the filename prefix of produced archives (default
	// "literature_pack").
	ZipPrefix string `json:"zip_prefix" yaml:"zip_prefix" mapstructure:"zip_prefix"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// LockTimeout bounds record store lock acquisition (default 10s).
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout" mapstructure:"lock_timeout"`
}

// Config groups all stage configurations for the service.
type Config struct {
	Batch    BatchConfig    `json:"batch" yaml:"batch" mapstructure:"batch"`
	Resolver ResolverConfig `json:"resolver" yaml:"resolver" mapstructure:"resolver"`
}
