// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sanitize produces filesystem-safe file and directory names from
// arbitrary user-supplied titles.
package sanitize

import (
	"regexp"
	"strings"
)

const maxStemLen = 50

var (
	pathSeparators  = regexp.MustCompile(`[/\\]`)
	illegalFileRune = regexp.MustCompile(`[<>:"|?*]`)
	illegalDirRune  = regexp.MustCompile(`[<>:"/\\|?*]`)
	spaceRuns       = regexp.MustCompile(`[\s_]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// FileName converts base into a safe filename and appends ext (which should
// include its dot, e.g. ".pdf"). Illegal characters become underscores,
// whitespace runs collapse, and the stem is capped at 50 characters with a
// best-effort cut at a word boundary.
func FileName(base, ext string) string {
	if base == "" {
		base = "untitled_document"
	}
	base = pathSeparators.ReplaceAllString(base, "_")
	base = illegalFileRune.ReplaceAllString(base, "_")
	base = spaceRuns.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_.")
	base = truncateAtWord(base)
	if base == "" {
		base = "document"
	}
	return base + ext
}

// DirName converts name into a safe directory name using the same rules as
// FileName but with no extension and a different empty fallback.
func DirName(name string) string {
	if name == "" {
		name = "untitled_article_data"
	}
	name = illegalDirRune.ReplaceAllString(name, "_")
	name = whitespaceRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._ ")
	name = truncateAtWord(name)
	if name == "" {
		name = "article_data"
	}
	return name
}

// truncateAtWord caps s at maxStemLen and, when the cut lands past the
// midpoint of the stem, backs up to the last underscore so words are not
// split.
func truncateAtWord(s string) string {
	if len(s) <= maxStemLen {
		return s
	}
	s = s[:maxStemLen]
	if i := strings.LastIndex(s, "_"); i > maxStemLen/2 {
		s = s[:i]
	}
	return s
}
