package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"AssetVault/config"
	"AssetVault/utils"
)

// HTTPStatusError reports a non-OK response from the source server.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected http status: %s", e.Status)
}

// PendingFetch describes an in-flight asynchronous fetch. The file at Path is
// grown by a background writer until Done yields the final result.
type PendingFetch struct {
	Path         string
	ExpectedSize int64
	Done         <-chan error
}

// Fetcher retrieves a remote asset onto local disk. It may be slow; on
// success a fully written file exists at the returned path.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destDir string) (string, error)
}

// AsyncFetcher starts a fetch whose file grows in the background, letting the
// caller observe progress on disk while the transfer is running.
type AsyncFetcher interface {
	Start(ctx context.Context, sourceURL, destDir string) (*PendingFetch, error)
}

// HTTPFetcher fetches assets over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher with the configured timeout and redirect
// validation.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.AppConfig.FetchHTTPTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return ValidateSourceURL(req.URL.String())
			},
		},
	}
}

// Start issues the request and copies the body to disk in the background.
func (f *HTTPFetcher) Start(ctx context.Context, sourceURL, destDir string) (*PendingFetch, error) {
	if err := ValidateSourceURL(sourceURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	max := config.AppConfig.MaxFileBytes
	if max > 0 && resp.ContentLength > max {
		resp.Body.Close()
		return nil, fmt.Errorf("content too large: %d bytes", resp.ContentLength)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		resp.Body.Close()
		return nil, err
	}
	destPath := filepath.Join(destDir, fileNameFor(sourceURL, resp))
	out, err := os.Create(destPath)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		defer resp.Body.Close()
		defer out.Close()
		// Chunked responses carry no Content-Length, so the cap has to be
		// enforced on the bytes actually written.
		body := io.Reader(resp.Body)
		if max > 0 {
			body = io.LimitReader(resp.Body, max+1)
		}
		written, copyErr := io.Copy(out, body)
		if copyErr != nil {
			done <- copyErr
			return
		}
		if max > 0 && written > max {
			done <- fmt.Errorf("content too large: exceeds %d bytes", max)
			return
		}
		done <- out.Sync()
	}()

	expected := resp.ContentLength
	if expected < 0 {
		expected = 0
	}
	return &PendingFetch{Path: destPath, ExpectedSize: expected, Done: done}, nil
}

// Fetch retrieves an asset synchronously.
func (f *HTTPFetcher) Fetch(ctx context.Context, sourceURL, destDir string) (string, error) {
	pending, err := f.Start(ctx, sourceURL, destDir)
	if err != nil {
		return "", err
	}
	if err := <-pending.Done; err != nil {
		_ = os.Remove(pending.Path)
		return "", err
	}
	return pending.Path, nil
}

// fileNameFor derives a destination file name from the response headers,
// falling back to the URL path.
func fileNameFor(sourceURL string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := utils.SanitizeHeaderFilename(params["filename"]); name != "" && name != "download" {
				return filepath.Base(name)
			}
		}
	}
	if parsed, err := url.Parse(sourceURL); err == nil {
		name := filepath.Base(parsed.Path)
		if name != "" && name != "." && name != "/" {
			return name
		}
	}
	return "asset.bin"
}

// ExtractAssetID pulls the trailing path segment of a source URL, used to
// label the asset while its real file name is still unknown.
func ExtractAssetID(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return "unknown"
	}
	segment := filepath.Base(strings.TrimSuffix(parsed.Path, "/"))
	if segment == "" || segment == "." || segment == "/" {
		return "unknown"
	}
	return segment
}
