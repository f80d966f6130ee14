// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// candidateSelectors lists, in priority order, the places a mirror landing
// page embeds its PDF: viewer frames, download anchors, and inline script
// redirects.
var candidateSelectors = []string{
	"#pdf",
	"iframe#viewer",
	"embed#viewer",
	"div#viewer iframe",
	"div#viewer embed",
	`div.buttons > ul > li > a[onclick*=".pdf"]`,
	`div.download-buttons a[href*=".pdf"]`,
	"a#download",
	`button[onclick*="location.href"]`,
}

// onclickHref extracts the target of an inline "location.href = '...pdf...'"
// assignment.
var onclickHref = regexp.MustCompile(`location\.href=['"]([^'"]+\.pdf[^'"]*)['"]`)

// MirrorStrategy fetches a landing page keyed by DOI from each configured
// mirror domain, in order. A response that is already a PDF is accepted
// directly; otherwise the HTML is scraped for candidate URLs, each of
// which is verified with a HEAD probe before being accepted.
type MirrorStrategy struct {
	Client       *http.Client
	Domains      []string
	UserAgent    string
	ProbeTimeout time.Duration
	Logger       *zap.Logger
}

// Name returns the stage identifier.
func (m *MirrorStrategy) Name() string { return "mirror" }

// Resolve requires a DOI; without one the stage reports not-found.
func (m *MirrorStrategy) Resolve(ctx context.Context, doi, title string) (string, error) {
	if doi == "" {
		return "", nil
	}

	var lastErr error
	for _, domain := range m.Domains {
		pdfURL, err := m.scrapeDomain(ctx, domain, doi)
		if err != nil {
			m.Logger.Warn("mirror domain failed",
				zap.String("domain", domain), zap.String("doi", doi), zap.Error(err))
			lastErr = err
			continue
		}
		if pdfURL != "" {
			return pdfURL, nil
		}
	}

	// Only report an error when every domain errored out; a clean
	// "nothing found" lets the cascade continue without a warning.
	if lastErr != nil {
		return "", fmt.Errorf("all mirror domains failed, last error: %w", lastErr)
	}
	return "", nil
}

func (m *MirrorStrategy) scrapeDomain(ctx context.Context, domain, doi string) (string, error) {
	landing := strings.TrimRight(domain, "/") + "/" + doi

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, landing, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", m.UserAgent)

	resp, err := m.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching landing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("landing page returned HTTP %d", resp.StatusCode)
	}

	// The mirror may serve the PDF directly instead of a landing page.
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/pdf") {
		return resp.Request.URL.String(), nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}

	// Relative candidates resolve against the final URL after redirects.
	finalURL := resp.Request.URL

	for _, selector := range candidateSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		candidate := candidateFromElement(sel)
		if candidate == "" {
			continue
		}
		candidate = absolutize(candidate, finalURL)
		if candidate == "" {
			continue
		}
		if verified := m.probe(ctx, candidate); verified {
			return candidate, nil
		}
		m.Logger.Debug("candidate failed verification probe",
			zap.String("selector", selector), zap.String("candidate", candidate))
	}

	return "", nil
}

// candidateFromElement pulls a URL out of an element: embedded viewer src,
// a .pdf-looking href, or an inline location.href assignment.
func candidateFromElement(sel *goquery.Selection) string {
	if src, ok := sel.Attr("src"); ok && src != "" {
		return src
	}
	if href, ok := sel.Attr("href"); ok && href != "" {
		lower := strings.ToLower(href)
		if strings.Contains(lower, ".pdf") || strings.Contains(lower, "doi.org") {
			return href
		}
	}
	if onclick, ok := sel.Attr("onclick"); ok {
		if match := onclickHref.FindStringSubmatch(onclick); match != nil {
			return match[1]
		}
	}
	return ""
}

// absolutize turns a possibly protocol-relative or page-relative candidate
// into an absolute URL against base.
func absolutize(candidate string, base *url.URL) string {
	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	}
	ref, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// probe issues a lightweight HEAD request and accepts the candidate when
// the response is a success and either the content type declares a PDF or
// the path ends in .pdf. A probe transport error still accepts candidates
// whose URL plainly names a PDF, since some mirrors reject HEAD.
func (m *MirrorStrategy) probe(ctx context.Context, candidate string) bool {
	timeout := m.ProbeTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, candidate, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", m.UserAgent)

	resp, err := m.Client.Do(req)
	if err != nil {
		return strings.Contains(strings.ToLower(candidate), ".pdf")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	return strings.Contains(contentType, "application/pdf") ||
		strings.Contains(strings.ToLower(candidate), ".pdf")
}
