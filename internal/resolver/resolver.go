// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolver locates a verified PDF URL for an article given its DOI
// and/or title. Strategies are tried in a fixed priority order — mirror
// scrape, open-access metadata lookup, preprint-server search — and the
// cascade short-circuits on the first hit. Each stage degrades
// independently: a timeout, malformed response, or missing configuration
// logs a warning and falls through to the next stage.
package resolver

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/pkg/types"
)

// doiPattern is a conservative match for the DOI prefix/suffix grammar,
// e.g. "10.1038/s41586-024-07487-w".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// ValidDOI reports whether doi matches the conservative DOI grammar.
// Callers validate before invoking the cascade.
func ValidDOI(doi string) bool {
	return doiPattern.MatchString(strings.TrimSpace(doi))
}

// Strategy is one stage of the cascade. Resolve returns the verified PDF
// URL, or "" when the article was not found through this stage. A non-nil
// error indicates the stage itself failed (network, parse); "not found" is
// not an error.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, doi, title string) (string, error)
}

// Cascade tries strategies in order until one yields a URL.
type Cascade struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewCascade builds the standard cascade from cfg. Stages whose
// configuration is absent are omitted entirely: no mirror domains disables
// the scrape stage, and an unset or placeholder contact email disables the
// open-access stage.
func NewCascade(client *http.Client, cfg types.ResolverConfig, logger *zap.Logger) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}

	var strategies []Strategy
	if len(cfg.MirrorDomains) > 0 {
		strategies = append(strategies, &MirrorStrategy{
			Client:       client,
			Domains:      cfg.MirrorDomains,
			UserAgent:    cfg.UserAgent,
			ProbeTimeout: cfg.ProbeTimeout,
			Logger:       logger,
		})
	} else {
		logger.Info("mirror scrape stage disabled: no mirror domains configured")
	}

	if email := strings.TrimSpace(cfg.ContactEmail); email != "" && !strings.Contains(email, "example.com") {
		strategies = append(strategies, &OpenAccessStrategy{
			Client:    client,
			Email:     email,
			UserAgent: cfg.UserAgent,
		})
	} else {
		logger.Info("open-access lookup stage disabled: no contact email configured")
	}

	strategies = append(strategies, &PreprintStrategy{
		Client:    client,
		UserAgent: cfg.UserAgent,
	})

	return &Cascade{strategies: strategies, logger: logger}
}

// NewCascadeFrom builds a cascade from explicit strategies, preserving
// order. Used by tests and callers with custom stages.
func NewCascadeFrom(logger *zap.Logger, strategies ...Strategy) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{strategies: strategies, logger: logger}
}

// Resolve returns the first verified PDF URL found, or ok=false when every
// stage came up empty. At least one of doi and title must be non-empty.
func (c *Cascade) Resolve(ctx context.Context, doi, title string) (string, bool) {
	doi = strings.TrimSpace(doi)
	title = strings.TrimSpace(title)
	if doi == "" && title == "" {
		return "", false
	}

	for _, s := range c.strategies {
		url, err := s.Resolve(ctx, doi, title)
		if err != nil {
			c.logger.Warn("resolver stage failed, falling through",
				zap.String("stage", s.Name()),
				zap.String("doi", doi),
				zap.Error(err))
			continue
		}
		if url != "" {
			c.logger.Info("PDF URL resolved",
				zap.String("stage", s.Name()),
				zap.String("doi", doi),
				zap.String("url", url))
			return url, true
		}
	}

	c.logger.Info("no PDF URL found after exhausting all stages",
		zap.String("doi", doi), zap.String("title", title))
	return "", false
}
