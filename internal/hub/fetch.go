package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/samcharles93/intervene/internal/logger"
	"github.com/samcharles93/intervene/internal/metrics"
)

const (
	DefaultEndpoint = "https://huggingface.co"
	DefaultRevision = "main"
)

// Fetcher turns (model name, file) into a readable local path. Missing
// files are reported with ErrNotFound.
type Fetcher interface {
	Fetch(ctx context.Context, name, file, cacheDir string) (string, error)
}

// DirFetcher serves models already laid out as <Root>/<name>/<file>. The
// cache directory is ignored.
type DirFetcher struct {
	Root string
}

func (d DirFetcher) Fetch(_ context.Context, name, file, _ string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := validateFile(file); err != nil {
		return "", err
	}
	p := filepath.Join(d.Root, filepath.FromSlash(name), filepath.FromSlash(file))
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s/%s", ErrNotFound, name, file)
		}
		return "", err
	}
	if st.IsDir() {
		return "", fmt.Errorf("%w: %s/%s is a directory", ErrNotFound, name, file)
	}
	return p, nil
}

// HTTPFetcher downloads from a hub using the resolve URL layout
// <Endpoint>/<name>/resolve/<Revision>/<file> and keeps files under
// <cacheDir>/<org>--<repo>/<Revision>/<file>.
type HTTPFetcher struct {
	Endpoint string
	Revision string
	Token    string
	HTTP     *http.Client

	limiter *rate.Limiter
}

// NewHTTPFetcher returns a fetcher for endpoint. rps <= 0 disables rate
// limiting.
func NewHTTPFetcher(endpoint, revision, token string, rps float64) *HTTPFetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if revision == "" {
		revision = DefaultRevision
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPFetcher{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Revision: revision,
		Token:    token,
		HTTP:     &http.Client{Timeout: 30 * time.Minute},
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// URL is the download location of file.
func (h *HTTPFetcher) URL(name, file string) string {
	return h.Endpoint + "/" + name + "/resolve/" + url.PathEscape(h.Revision) + "/" + file
}

// CachePath is where file is stored under cacheDir.
func (h *HTTPFetcher) CachePath(cacheDir, name, file string) string {
	return filepath.Join(cacheDir, cacheKey(name), h.Revision, filepath.FromSlash(file))
}

func (h *HTTPFetcher) Fetch(ctx context.Context, name, file, cacheDir string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := validateFile(file); err != nil {
		return "", err
	}
	if cacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return "", err
		}
		cacheDir = dir
	}

	dest := h.CachePath(cacheDir, name, file)
	if st, err := os.Stat(dest); err == nil && !st.IsDir() {
		metrics.HubFetches.WithLabelValues(metrics.OutcomeCached).Inc()
		return dest, nil
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return "", err
	}

	started := time.Now()
	n, err := h.download(ctx, h.URL(name, file), dest)
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.ObserveFetch(metrics.OutcomeNotFound, 0, started)
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, name, file)
	case errors.Is(err, ErrUnauthorized):
		metrics.ObserveFetch(metrics.OutcomeUnauthorized, 0, started)
		return "", fmt.Errorf("%w: %s/%s", ErrUnauthorized, name, file)
	case err != nil:
		metrics.ObserveFetch(metrics.OutcomeError, 0, started)
		return "", err
	}
	metrics.ObserveFetch(metrics.OutcomeOK, n, started)
	logger.FromContext(ctx).Debug("downloaded", "model", name, "file", file, "bytes", n)
	return dest, nil
}

func (h *HTTPFetcher) download(ctx context.Context, src, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, err
	}
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	client := h.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, ErrNotFound
	// The hub answers 401 for missing repos to anonymous callers.
	case resp.StatusCode == http.StatusUnauthorized && h.Token == "":
		return 0, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return 0, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("GET %s: HTTP %d: %s", src, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	tmp := dest + "." + uuid.NewString() + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("GET %s: %w", src, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return n, nil
}
