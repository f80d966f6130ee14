// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// unpaywallAPIBase is the open-access resolution endpoint. Declared as a
// var so tests can substitute an httptest server.
var unpaywallAPIBase = "https://api.unpaywall.org/v2/"

// unpaywallResponse captures the fields we need from an Unpaywall record.
type unpaywallResponse struct {
	BestOALocation *unpaywallLocation `json:"best_oa_location"`
}

// unpaywallLocation is one open-access location for a work.
type unpaywallLocation struct {
	URLForPDF string `json:"url_for_pdf"`
	URL       string `json:"url"`
}

// OpenAccessStrategy queries the Unpaywall API for a DOI and accepts the
// best open-access location's direct PDF URL when present. The API
// requires a contact email; the cascade omits this stage when none is
// configured.
type OpenAccessStrategy struct {
	Client    *http.Client
	Email     string
	UserAgent string
}

// Name returns the stage identifier.
func (o *OpenAccessStrategy) Name() string { return "openaccess" }

// Resolve requires a DOI; without one the stage reports not-found. A work
// whose best open-access location is only a landing page (no url_for_pdf)
// is treated as not found.
func (o *OpenAccessStrategy) Resolve(ctx context.Context, doi, title string) (string, error) {
	if doi == "" {
		return "", nil
	}

	apiURL := unpaywallAPIBase + url.PathEscape(doi) + "?email=" + url.QueryEscape(o.Email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating Unpaywall request: %w", err)
	}
	req.Header.Set("User-Agent", o.UserAgent)

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("Unpaywall API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Unpaywall API returned HTTP %d", resp.StatusCode)
	}

	var oa unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return "", fmt.Errorf("parsing Unpaywall response: %w", err)
	}

	if oa.BestOALocation == nil {
		return "", nil
	}
	return oa.BestOALocation.URLForPDF, nil
}
