// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "batch_processing_temp", cfg.Batch.TempRootDir)
	assert.Equal(t, "zipped_downloads", cfg.Batch.ArchiveDir)
	assert.Equal(t, "download_records.json", cfg.Batch.RecordsFile)
	assert.Equal(t, "json", cfg.Batch.StoreBackend)
	assert.Equal(t, "literature_pack", cfg.Batch.ZipPrefix)
	assert.Equal(t, time.Second, cfg.Batch.DownloadDelay)
	assert.Equal(t, 10*time.Second, cfg.Batch.LockTimeout)
	assert.Equal(t, 90*time.Second, cfg.Batch.Timeout)

	assert.Equal(t, 30*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Resolver.ProbeTimeout)
	assert.Empty(t, cfg.Resolver.MirrorDomains)
	assert.Empty(t, cfg.Resolver.ContactEmail)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "litfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
batch:
  zip_prefix: my_papers
  store_backend: sqlite
  download_delay: 250ms
resolver:
  contact_email: research@lab.edu
  mirror_domains:
    - https://mirror-one.example
    - https://mirror-two.example
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my_papers", cfg.Batch.ZipPrefix)
	assert.Equal(t, "sqlite", cfg.Batch.StoreBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.Batch.DownloadDelay)
	assert.Equal(t, "research@lab.edu", cfg.Resolver.ContactEmail)
	assert.Equal(t, []string{"https://mirror-one.example", "https://mirror-two.example"}, cfg.Resolver.MirrorDomains)

	// Values absent from the file keep their defaults.
	assert.Equal(t, "download_records.json", cfg.Batch.RecordsFile)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LITFETCH_BATCH_ZIP_PREFIX", "env_pack")
	t.Setenv("LITFETCH_RESOLVER_CONTACT_EMAIL", "env@lab.edu")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env_pack", cfg.Batch.ZipPrefix)
	assert.Equal(t, "env@lab.edu", cfg.Resolver.ContactEmail)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "litfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  store_backend: postgres\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store_backend")
}

func TestLoadMalformedFileOnSearchPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "litfetch.yaml"), []byte("batch: [unclosed\n"), 0o644))
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	_, err = Load("")
	require.Error(t, err, "a broken config file found implicitly must not fall back to defaults")
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
