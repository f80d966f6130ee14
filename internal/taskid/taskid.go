// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package taskid derives the content-addressed identifier of a batch
// submission. The identifier is a pure function of the article set: two
// submissions with the same (link, title) pairs produce the same identifier
// regardless of order, whitespace, or letter case, making resubmission
// idempotent.
package taskid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"github.com/pdiddy/litfetch/pkg/types"
)

// ErrEmptyBatch is returned when the article list is empty. Callers reject
// empty submissions at the boundary before reaching the pipeline.
var ErrEmptyBatch = errors.New("cannot derive task identifier for an empty article list")

// Generate returns the hex digest identifying the article set.
func Generate(articles []types.Article) (string, error) {
	if len(articles) == 0 {
		return "", ErrEmptyBatch
	}

	keys := make([]string, 0, len(articles))
	for _, a := range articles {
		link := strings.ToLower(strings.TrimSpace(a.Link))
		title := strings.ToLower(strings.TrimSpace(a.Title))
		keys = append(keys, link+"|"+title)
	}
	sort.Strings(keys)

	sum := sha256.Sum256([]byte(strings.Join(keys, "||")))
	return hex.EncodeToString(sum[:]), nil
}

// Short returns the leading hex fragment of id used in archive filenames.
func Short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
