// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolver

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests can
// substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivPDFBase is the URL template an abstract-page identifier substitutes
// into when a result carries no explicit PDF link.
var arxivPDFBase = "https://arxiv.org/pdf/"

// versionSuffix matches a trailing arXiv version marker such as "v2".
var versionSuffix = regexp.MustCompile(`v\d+$`)

// arXiv Atom feed structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID    string      `xml:"id"`
	Links []arxivLink `xml:"link"`
}

type arxivLink struct {
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

// PreprintStrategy searches arXiv for an exact title match. It prefers a
// result's explicitly tagged PDF link and otherwise derives a PDF URL from
// the abstract-page identifier. Used when DOI-based stages fail or no DOI
// is available.
type PreprintStrategy struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the stage identifier.
func (p *PreprintStrategy) Name() string { return "preprint" }

// Resolve requires a title; without one the stage reports not-found.
func (p *PreprintStrategy) Resolve(ctx context.Context, doi, title string) (string, error) {
	title = strings.ReplaceAll(title, " ", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "", nil
	}

	apiURL := fmt.Sprintf(`%s?search_query=ti:%s&start=0&max_results=1`,
		arxivAPIBase, url.QueryEscape(`"`+title+`"`))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating arXiv request: %w", err)
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return "", fmt.Errorf("parsing arXiv response: %w", err)
	}

	if len(feed.Entries) == 0 {
		return "", nil
	}
	entry := feed.Entries[0]

	// Prefer the explicitly tagged PDF link.
	for _, link := range entry.Links {
		if link.Title == "pdf" && link.Href != "" {
			return link.Href, nil
		}
	}

	// Fall back to deriving the PDF URL from the abstract-page identifier.
	return pdfURLFromAbstract(entry.ID), nil
}

// pdfURLFromAbstract converts an abstract-page URL such as
// "http://arxiv.org/abs/2301.07041v1" into its PDF counterpart.
func pdfURLFromAbstract(absURL string) string {
	const marker = "/abs/"
	idx := strings.Index(absURL, marker)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(absURL[idx+len(marker):])
	if id == "" {
		return ""
	}
	pdfURL := arxivPDFBase + id
	if !versionSuffix.MatchString(id) && !strings.HasSuffix(pdfURL, ".pdf") {
		pdfURL += ".pdf"
	}
	return pdfURL
}
