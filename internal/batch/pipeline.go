// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/internal/download"
	"github.com/pdiddy/litfetch/internal/sanitize"
	"github.com/pdiddy/litfetch/internal/taskid"
	"github.com/pdiddy/litfetch/pkg/types"
)

// Process runs one batch to completion. It always reaches exactly one
// terminal record write, removes the per-task temp directory on every exit
// path, and never lets a panic escape the worker goroutine.
func (s *Service) Process(ctx context.Context, id string, articles []types.Article) {
	log := s.logger.With(zap.String("task_id", taskid.Short(id)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("batch run panicked", zap.Any("panic", r))
			s.writeTerminal(id, terminalUpdate{
				status:       types.StatusFailed,
				errorMessage: fmt.Sprintf("internal error: %v", r),
				numRequested: len(articles),
			})
		}
	}()

	s.markProcessing(ctx, id)

	tempDir := filepath.Join(s.cfg.TempRootDir, id)
	// A leftover directory from a crashed run is stale; start clean.
	if _, err := os.Stat(tempDir); err == nil {
		log.Info("removing stale temp directory", zap.String("dir", tempDir))
		os.RemoveAll(tempDir)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		log.Error("creating temp directory failed", zap.String("dir", tempDir), zap.Error(err))
		s.writeTerminal(id, terminalUpdate{
			status:       types.StatusFailed,
			errorMessage: fmt.Sprintf("creating temp directory: %v", err),
			numRequested: len(articles),
		})
		return
	}
	defer os.RemoveAll(tempDir)

	var downloaded []string
	var failed []types.FailedItem

	for i, article := range articles {
		if i > 0 && s.cfg.DownloadDelay > 0 {
			time.Sleep(s.cfg.DownloadDelay)
		}

		title := strings.TrimSpace(article.Title)
		link := strings.TrimSpace(article.Link)

		// An article with a DOI or title but no usable link goes through
		// the resolution cascade before we give up on it.
		if link == "" && s.resolver != nil && (article.DOI != "" || title != "") {
			if url, ok := s.resolver.Resolve(ctx, article.DOI, title); ok {
				link = url
			}
		}

		if link == "" || title == "" {
			log.Warn("article missing PDF link or title",
				zap.Int("index", i+1), zap.String("title", title), zap.String("doi", article.DOI))
			failed = append(failed, types.FailedItem{
				Title:  fallback(title, "unknown"),
				DOI:    fallback(article.DOI, "N/A"),
				Reason: "missing PDF link or title",
			})
			continue
		}

		log.Info("downloading article",
			zap.Int("index", i+1), zap.Int("total", len(articles)), zap.String("title", title))
		path, err := s.downloader.Fetch(ctx, link, title, tempDir)
		if err != nil {
			log.Warn("article download failed",
				zap.String("title", title), zap.String("url", link), zap.Error(err))
			failed = append(failed, types.FailedItem{
				Title:  title,
				DOI:    fallback(article.DOI, "N/A"),
				Link:   link,
				Reason: fmt.Sprintf("download failed: %s", download.Reason(err)),
			})
			continue
		}
		downloaded = append(downloaded, path)
	}

	if len(downloaded) == 0 {
		log.Warn("no PDFs downloaded for batch")
		s.writeTerminal(id, terminalUpdate{
			status:       types.StatusFailedNoDownloads,
			message:      "no PDFs were successfully downloaded",
			numRequested: len(articles),
			failedItems:  failed,
		})
		return
	}

	zipName := sanitize.FileName(fmt.Sprintf("%s_%s", s.cfg.ZipPrefix, taskid.Short(id)), ".zip")
	zipPath := filepath.Join(s.cfg.ArchiveDir, zipName)

	manifest := &Manifest{
		TaskID:       id,
		GeneratedAt:  s.now().UTC(),
		NumRequested: len(articles),
		NumSuccess:   len(downloaded),
		Failed:       failed,
	}
	for _, p := range downloaded {
		manifest.Files = append(manifest.Files, filepath.Base(p))
	}

	log.Info("building archive", zap.String("zip", zipName), zap.Int("files", len(downloaded)))
	if err := buildZip(zipPath, downloaded, manifest); err != nil {
		log.Error("archive creation failed", zap.String("zip", zipPath), zap.Error(err))
		os.Remove(zipPath)
		s.writeTerminal(id, terminalUpdate{
			status:       types.StatusFailedZipCreation,
			errorMessage: err.Error(),
			numRequested: len(articles),
			numSuccess:   len(downloaded),
			failedItems:  failed,
		})
		return
	}

	s.writeTerminal(id, terminalUpdate{
		status:       types.StatusCompleted,
		zipFilename:  zipName,
		message:      fmt.Sprintf("%d of %d articles archived", len(downloaded), len(articles)),
		numRequested: len(articles),
		numSuccess:   len(downloaded),
		failedItems:  failed,
	})
	log.Info("batch completed",
		zap.String("zip", zipName),
		zap.Int("success", len(downloaded)), zap.Int("requested", len(articles)))
}

// markProcessing flips the record to PROCESSING. A failure here is logged
// and the run continues; the terminal write at the end is what matters.
func (s *Service) markProcessing(ctx context.Context, id string) {
	err := s.store.Update(ctx, func(recs map[string]*types.TaskRecord) error {
		rec, ok := recs[id]
		if !ok {
			rec = &types.TaskRecord{TaskID: id, TimestampSubmitted: s.now().UTC()}
			recs[id] = rec
		}
		rec.Status = types.StatusProcessing
		rec.Message = "batch processing in progress"
		return nil
	})
	if err != nil {
		s.logger.Error("marking task as processing failed",
			zap.String("task_id", taskid.Short(id)), zap.Error(err))
	}
}

// terminalUpdate carries the fields of a final record write.
type terminalUpdate struct {
	status       types.TaskStatus
	zipFilename  string
	message      string
	errorMessage string
	numRequested int
	numSuccess   int
	failedItems  []types.FailedItem
}

// writeTerminal merges the update into the stored record under lock. The
// submission timestamp is never overwritten once set, and counters are
// only raised, never lowered. A write failure (including lock timeout) is
// logged; there is nothing further the worker can do.
func (s *Service) writeTerminal(id string, u terminalUpdate) {
	err := s.store.Update(context.Background(), func(recs map[string]*types.TaskRecord) error {
		rec, ok := recs[id]
		if !ok {
			rec = &types.TaskRecord{TaskID: id}
			recs[id] = rec
		}
		rec.Status = u.status
		rec.TimestampProcessed = s.now().UTC()
		if rec.TimestampSubmitted.IsZero() {
			rec.TimestampSubmitted = rec.TimestampProcessed
		}
		rec.ZipFilename = u.zipFilename
		rec.Message = u.message
		rec.ErrorMessage = u.errorMessage
		if u.numRequested > rec.NumRequested {
			rec.NumRequested = u.numRequested
		}
		if u.numSuccess > rec.NumSuccess {
			rec.NumSuccess = u.numSuccess
		}
		if u.failedItems != nil {
			rec.FailedItems = u.failedItems
		} else if rec.FailedItems == nil {
			rec.FailedItems = []types.FailedItem{}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("terminal record write failed",
			zap.String("task_id", taskid.Short(id)),
			zap.String("status", string(u.status)), zap.Error(err))
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
