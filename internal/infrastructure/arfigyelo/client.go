package arfigyelo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/time/rate"

	"github.com/pricewatch/backend/internal/domain"
)

// DefaultURL is the daily Árfigyelő product export
const DefaultURL = "https://cdnarfigyeloprodweu.azureedge.net/excel/arfigyelo_napi_termekadatok.xlsx"

// schemaSampleRows is how many data rows the column detector inspects
const schemaSampleRows = 20

// maxCacheAge is how long a cached export is served without checking the
// source again; the export refreshes daily
const maxCacheAge = 24 * time.Hour

// Config holds configuration for the dataset client
type Config struct {
	URL       string
	CacheDir  string
	LocalFile string // bypasses downloading entirely when set
	Timeout   time.Duration
	Debug     bool
}

// Client downloads the price-catalog Excel export, keeps a cached copy on
// disk, and maps its rows into the domain model. It implements
// domain.RowProvider.
type Client struct {
	httpClient  *http.Client
	url         string
	cacheDir    string
	localFile   string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a dataset client
func NewClient(config Config) *Client {
	url := config.URL
	if url == "" {
		url = DefaultURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cacheDir := config.CacheDir
	if cacheDir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(base, "pricewatch")
		} else {
			cacheDir = os.TempDir()
		}
	}

	// The export refreshes daily; one download a minute is already generous
	limiter := rate.NewLimiter(rate.Every(time.Minute), 2)

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		url:         url,
		cacheDir:    cacheDir,
		localFile:   config.LocalFile,
		rateLimiter: limiter,
		debug:       config.Debug,
	}
}

// SetDebug enables or disables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// FetchRows downloads (or reuses the cached copy of) the export and returns
// the mapped snapshot. force bypasses the cache. Returns a wrapped
// ErrSourceUnavailable when no file can be produced at all; a stale cached
// copy is preferred over failing.
func (c *Client) FetchRows(ctx context.Context, force bool) (*domain.Snapshot, error) {
	path, version, err := c.ensureFile(ctx, force)
	if err != nil {
		return nil, err
	}
	return c.parseWorkbook(path, version)
}

// LatestVersion returns the source's current version marker without
// downloading the dataset. A local-file source versions by file mtime.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	if c.localFile != "" {
		return fileVersion(c.localFile)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "PriceWatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	// No Last-Modified header; fall back to the cached copy's marker so a
	// headerless source does not force a rebuild on every check
	return c.cachedVersion(), nil
}

// ensureFile returns the path and version of a usable export file
func (c *Client) ensureFile(ctx context.Context, force bool) (string, string, error) {
	if c.localFile != "" {
		version, err := fileVersion(c.localFile)
		if err != nil {
			return "", "", fmt.Errorf("%w: local file: %v", domain.ErrSourceUnavailable, err)
		}
		return c.localFile, version, nil
	}

	path := c.cachePath()
	if !force {
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < maxCacheAge {
			version := c.cachedVersion()
			if c.debug {
				log.Printf("[DATASET] Using cached export %s (version %s)", path, version)
			}
			return path, version, nil
		}
	}

	version, err := c.download(ctx, path)
	if err != nil {
		// Stale but available beats unavailable
		if _, statErr := os.Stat(path); statErr == nil && !force {
			log.Printf("[DATASET] Download failed, using cached export: %v", err)
			return path, c.cachedVersion(), nil
		}
		return "", "", err
	}
	return path, version, nil
}

// download fetches the export to the cache path via a temp file and atomic
// rename, retrying transient failures with exponential backoff
func (c *Client) download(ctx context.Context, path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		version, err := c.downloadOnce(ctx, path)
		if err == nil {
			if c.debug {
				log.Printf("[DATASET] Downloaded export to %s (version %s)", path, version)
			}
			return version, nil
		}

		log.Printf("[DATASET] Download error (attempt %d): %v", attempt, err)
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}

	return "", fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "PriceWatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	// The remote Last-Modified is the snapshot's version marker; record it
	// beside the cached copy so LatestVersion comparisons stay meaningful
	version := time.Now().UTC().Format(time.RFC3339)
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			version = t.UTC().Format(time.RFC3339)
		}
	}
	if err := os.WriteFile(c.versionPath(), []byte(version), 0o644); err != nil {
		log.Printf("[DATASET] Failed to record version marker: %v", err)
	}

	return version, nil
}

// parseWorkbook reads the export's first sheet and maps it into a snapshot
func (c *Client) parseWorkbook(path, version string) (*domain.Snapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open export: %v", domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", domain.ErrSourceUnavailable, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: export is empty", domain.ErrSourceUnavailable)
	}

	header := rows[0]
	data := rows[1:]
	sampleEnd := len(data)
	if sampleEnd > schemaSampleRows {
		sampleEnd = schemaSampleRows
	}
	schema := DetectColumns(header, data[:sampleEnd])

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = col
	}

	snapshot := &domain.Snapshot{
		Version:   version,
		Columns:   columns,
		Rows:      MapRows(header, data, schema),
		FetchedAt: time.Now(),
	}

	if c.debug {
		log.Printf("[DATASET] Parsed %d export lines into %d raw rows (version %s)",
			len(data), len(snapshot.Rows), version)
	}

	return snapshot, nil
}

// cachePath keys the cached export by a digest of its URL
func (c *Client) cachePath() string {
	digest := sha256.Sum256([]byte(c.url))
	return filepath.Join(c.cacheDir, hex.EncodeToString(digest[:])[:16]+".xlsx")
}

// versionPath is the sidecar file recording the cached export's version marker
func (c *Client) versionPath() string {
	return c.cachePath() + ".version"
}

// cachedVersion returns the cached copy's version marker, falling back to its
// mtime when the sidecar is missing
func (c *Client) cachedVersion() string {
	if data, err := os.ReadFile(c.versionPath()); err == nil {
		if version := string(data); version != "" {
			return version
		}
	}
	if version, err := fileVersion(c.cachePath()); err == nil {
		return version
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// fileVersion derives the version marker of an on-disk export from its mtime
func fileVersion(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return info.ModTime().UTC().Format(time.RFC3339), nil
}

// exponentialBackoff returns the wait before the next retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}
