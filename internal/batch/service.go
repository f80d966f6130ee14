// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch orchestrates batch PDF retrieval: it deduplicates
// submissions through the content-addressed task identifier, guarantees
// at most one concurrent processing run per task, and drives each run
// through resolution, download, ZIP assembly and the terminal record
// write.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/internal/records"
	"github.com/pdiddy/litfetch/internal/resolver"
	"github.com/pdiddy/litfetch/internal/taskid"
	"github.com/pdiddy/litfetch/pkg/types"
)

// Resolver finds a verified PDF URL for an article missing a usable link.
type Resolver interface {
	Resolve(ctx context.Context, doi, title string) (string, bool)
}

// Downloader retrieves one URL into dir, named from title.
type Downloader interface {
	Fetch(ctx context.Context, pdfURL, title, dir string) (string, error)
}

// SubmitStatus classifies the outcome of a submission.
type SubmitStatus string

const (
	// SubmitAccepted means a fresh task record was created and a
	// processing run dispatched.
	SubmitAccepted SubmitStatus = "accepted"

	// SubmitAlreadyCompleted means an identical submission already
	// completed and its archive still exists.
	SubmitAlreadyCompleted SubmitStatus = "already_completed"

	// SubmitAlreadyInFlight means an identical submission is currently
	// SUBMITTED or PROCESSING; no second run is started.
	SubmitAlreadyInFlight SubmitStatus = "already_in_flight"
)

// SubmitResult reports what happened to a submission.
type SubmitResult struct {
	Status      SubmitStatus
	TaskID      string
	ZipFilename string
	Message     string
}

// ErrEmptySubmission rejects submissions with no articles.
var ErrEmptySubmission = errors.New("submission contains no articles")

// Service is the submission entry point and pipeline owner.
type Service struct {
	store      records.Store
	resolver   Resolver
	downloader Downloader
	cfg        types.BatchConfig
	logger     *zap.Logger
	now        func() time.Time

	wg sync.WaitGroup
}

// NewService wires the collaborators together. resolver may be nil when no
// resolution cascade is configured; articles without links then fail
// individually.
func NewService(store records.Store, res Resolver, dl Downloader, cfg types.BatchConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ZipPrefix == "" {
		cfg.ZipPrefix = "literature_pack"
	}
	return &Service{
		store:      store,
		resolver:   res,
		downloader: dl,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Wait blocks until all dispatched processing runs have finished. Used by
// the CLI and tests; a long-running server has no need to call it.
func (s *Service) Wait() { s.wg.Wait() }

// Submit computes the task identity, consults the record store under lock
// to short-circuit duplicate or in-flight submissions, and otherwise marks
// the task SUBMITTED and dispatches a processing run on its own goroutine.
//
// The duplicate check and the SUBMITTED write happen inside one critical
// section, so two racing identical submissions cannot both be accepted.
func (s *Service) Submit(ctx context.Context, articles []types.Article) (*SubmitResult, error) {
	if len(articles) == 0 {
		return nil, ErrEmptySubmission
	}

	// Malformed DOIs are blanked at the boundary so they never reach the
	// cascade; the article can still succeed through its link or title.
	cleaned := make([]types.Article, len(articles))
	copy(cleaned, articles)
	for i := range cleaned {
		if doi := strings.TrimSpace(cleaned[i].DOI); doi != "" && !resolver.ValidDOI(doi) {
			s.logger.Warn("dropping malformed DOI from submission",
				zap.String("doi", doi), zap.String("title", cleaned[i].Title))
			cleaned[i].DOI = ""
		}
	}

	id, err := taskid.Generate(cleaned)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("task_id", taskid.Short(id)))

	var result *SubmitResult
	err = s.store.Update(ctx, func(recs map[string]*types.TaskRecord) error {
		if rec, ok := recs[id]; ok {
			switch {
			case rec.Status == types.StatusCompleted && rec.ZipFilename != "":
				if _, statErr := os.Stat(filepath.Join(s.cfg.ArchiveDir, rec.ZipFilename)); statErr == nil {
					result = &SubmitResult{
						Status:      SubmitAlreadyCompleted,
						TaskID:      id,
						ZipFilename: rec.ZipFilename,
						Message:     "identical submission already completed",
					}
					return nil
				}
				// Archive vanished: fall through and resubmit.
				log.Warn("completed record references a missing archive, resubmitting",
					zap.String("zip", rec.ZipFilename))
			case rec.Status.InFlight():
				result = &SubmitResult{
					Status:  SubmitAlreadyInFlight,
					TaskID:  id,
					Message: fmt.Sprintf("identical submission is %s", rec.Status),
				}
				return nil
			}
		}

		recs[id] = &types.TaskRecord{
			TaskID:             id,
			Status:             types.StatusSubmitted,
			TimestampSubmitted: s.now().UTC(),
			NumRequested:       len(cleaned),
			FailedItems:        []types.FailedItem{},
			Message:            "task submitted, awaiting processing",
		}
		result = &SubmitResult{
			Status:  SubmitAccepted,
			TaskID:  id,
			Message: "batch processing task submitted",
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, records.ErrLockTimeout) {
			return nil, fmt.Errorf("record store busy: %w", err)
		}
		return nil, fmt.Errorf("recording submission: %w", err)
	}

	if result.Status == SubmitAccepted {
		log.Info("submission accepted", zap.Int("articles", len(cleaned)))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			// The run outlives the submitting request.
			s.Process(context.Background(), id, cleaned)
		}()
	} else {
		log.Info("submission short-circuited", zap.String("status", string(result.Status)))
	}

	return result, nil
}

// Status returns the record for id, with ok=false when no such task exists.
func (s *Service) Status(ctx context.Context, id string) (*types.TaskRecord, bool, error) {
	recs, err := s.store.Load()
	if err != nil {
		return nil, false, fmt.Errorf("loading records: %w", err)
	}
	rec, ok := recs[id]
	return rec, ok, nil
}

// Delete removes the record for id under lock and then best-effort removes
// the associated ZIP archive. It returns ok=false when no record existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	var removed *types.TaskRecord
	err := s.store.Update(ctx, func(recs map[string]*types.TaskRecord) error {
		rec, ok := recs[id]
		if !ok {
			return nil
		}
		removed = rec
		delete(recs, id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("deleting record: %w", err)
	}
	if removed == nil {
		return false, nil
	}

	if removed.ZipFilename != "" {
		zipPath := filepath.Join(s.cfg.ArchiveDir, removed.ZipFilename)
		if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
			s.logger.Error("removing archive for deleted record failed",
				zap.String("task_id", taskid.Short(id)),
				zap.String("zip", zipPath), zap.Error(err))
		}
	}
	return true, nil
}

// ArchivePath resolves filename against the archive directory for the
// file-serving layer. It accepts only bare .zip filenames, so a traversal
// attempt like "../records.json" is rejected before touching the
// filesystem.
func (s *Service) ArchivePath(filename string) (string, error) {
	if filename == "" ||
		filename != filepath.Base(filename) ||
		strings.Contains(filename, "..") ||
		!strings.HasSuffix(filename, ".zip") {
		return "", fmt.Errorf("invalid archive filename %q", filename)
	}
	path := filepath.Join(s.cfg.ArchiveDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("archive %s: %w", filename, err)
	}
	return path, nil
}
