// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litfetch/pkg/types"
)

// Manifest describes the contents of a produced archive. A copy is
// written into the ZIP as manifest.yaml.
type Manifest struct {
	TaskID       string             `yaml:"task_id"`
	GeneratedAt  time.Time          `yaml:"generated_at"`
	NumRequested int                `yaml:"num_requested"`
	NumSuccess   int                `yaml:"num_success"`
	Files        []string           `yaml:"files"`
	Failed       []types.FailedItem `yaml:"failed,omitempty"`
}

const manifestName = "manifest.yaml"

// buildZip writes the downloaded files plus the manifest to zipPath. Files
// are stored under their base names. Any error leaves it to the caller to
// remove the partial archive.
func buildZip(zipPath string, files []string, manifest *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			zw.Close()
			return err
		}
	}

	if manifest != nil {
		data, err := yaml.Marshal(manifest)
		if err != nil {
			zw.Close()
			return fmt.Errorf("marshaling manifest: %w", err)
		}
		w, err := zw.Create(manifestName)
		if err != nil {
			zw.Close()
			return fmt.Errorf("adding manifest to archive: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("writing manifest: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("writing %s to archive: %w", path, err)
	}
	return nil
}
