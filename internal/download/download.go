// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download retrieves a single PDF URL to a named file with strict
// post-download validation. Responses stream to disk in bounded chunks,
// and every failure path deletes whatever was partially written: the
// caller either gets a valid file on disk or nothing.
package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/internal/httputil"
	"github.com/pdiddy/litfetch/internal/sanitize"
)

// RejectReason classifies why a fetched URL was not accepted as a PDF.
type RejectReason string

const (
	RejectNetwork     RejectReason = "network_error"
	RejectHTTPStatus  RejectReason = "http_error_status"
	RejectEmptyFile   RejectReason = "empty_file"
	RejectHTMLContent RejectReason = "html_content"
	RejectBadMagic    RejectReason = "bad_magic_bytes"
)

// RejectError reports a failed or invalid download. The Reason set is
// closed; callers branch on it rather than parsing message text.
type RejectError struct {
	Reason RejectReason
	URL    string
	Err    error
}

func (e *RejectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download rejected (%s) for %s: %v", e.Reason, e.URL, e.Err)
	}
	return fmt.Sprintf("download rejected (%s) for %s", e.Reason, e.URL)
}

func (e *RejectError) Unwrap() error { return e.Err }

// Reason extracts the reject reason from err, or RejectNetwork when err is
// not a RejectError.
func Reason(err error) RejectReason {
	if re, ok := err.(*RejectError); ok {
		return re.Reason
	}
	return RejectNetwork
}

// pdfMagic is the leading byte signature of a PDF document.
var pdfMagic = []byte("%PDF-")

const copyChunkSize = 32 * 1024

// Downloader fetches PDF URLs into target directories.
type Downloader struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// New returns a Downloader using client for all requests.
func New(client *http.Client, userAgent string, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{client: client, userAgent: userAgent, logger: logger}
}

// Fetch downloads pdfURL into dir under a name sanitized from title (never
// from the remote URL) with a .pdf extension. It returns the written path,
// or a *RejectError and a guarantee that no file remains in dir.
//
// A download is rejected when the response status is not 2xx, the file is
// empty, the server declares an HTML content type, or the server declares
// a generic binary stream whose leading bytes are not the PDF signature.
func (d *Downloader) Fetch(ctx context.Context, pdfURL, title, dir string) (string, error) {
	if pdfURL == "" || title == "" {
		return "", fmt.Errorf("pdf URL and title are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, sanitize.FileName(title, ".pdf"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, d.client, req, 0, d.logger)
	if err != nil {
		return "", &RejectError{Reason: RejectNetwork, URL: pdfURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RejectError{
			Reason: RejectHTTPStatus,
			URL:    pdfURL,
			Err:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))

	written, err := streamToFile(path, resp.Body)
	if err != nil {
		os.Remove(path)
		return "", &RejectError{Reason: RejectNetwork, URL: pdfURL, Err: err}
	}

	if reason, verr := validate(path, contentType, written); verr != nil {
		os.Remove(path)
		return "", &RejectError{Reason: reason, URL: pdfURL, Err: verr}
	}

	d.logger.Info("downloaded PDF",
		zap.String("url", pdfURL),
		zap.String("path", path),
		zap.Int64("bytes", written))
	return path, nil
}

// streamToFile copies body to path in bounded chunks, never holding the
// whole payload in memory.
func streamToFile(path string, body io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	buf := make([]byte, copyChunkSize)
	written, copyErr := io.CopyBuffer(f, body, buf)
	closeErr := f.Close()
	if copyErr != nil {
		return written, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("closing file: %w", closeErr)
	}
	return written, nil
}

// validate applies the post-download checks from the declared content type
// and file size. It reads the leading bytes from disk only for the
// octet-stream case.
func validate(path, contentType string, written int64) (RejectReason, error) {
	if written == 0 {
		return RejectEmptyFile, fmt.Errorf("downloaded file is empty")
	}

	if strings.Contains(contentType, "html") && !strings.Contains(contentType, "application/pdf") {
		return RejectHTMLContent, fmt.Errorf("server declared HTML content type %q", contentType)
	}

	if strings.Contains(contentType, "application/octet-stream") {
		head := make([]byte, len(pdfMagic))
		f, err := os.Open(path)
		if err != nil {
			return RejectBadMagic, fmt.Errorf("reopening file for signature check: %w", err)
		}
		_, err = io.ReadFull(f, head)
		f.Close()
		if err != nil || !bytes.Equal(head, pdfMagic) {
			return RejectBadMagic, fmt.Errorf("octet-stream payload does not start with %%PDF-")
		}
	}

	return "", nil
}
