// Package manifest downloads Text2SQL question-set JSON files and
// produces an analysis manifest with per-dataset complexity stats.
//
// Unlike the staging pipeline, question-set downloads retry with
// backoff: the files are small and the upstream host is rate-limited.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// QuestionSource describes one downloadable question-set JSON file.
type QuestionSource struct {
	URL         string
	Description string
}

// BuiltinQuestionSources lists the question sets of the usual Text2SQL
// benchmark datasets.
func BuiltinQuestionSources() map[string]QuestionSource {
	const base = "https://raw.githubusercontent.com/jkkummerfeld/text2sql-data/master/data/"
	return map[string]QuestionSource{
		"academic":    {URL: base + "academic.json", Description: "Academic publications database - 196 queries, 8 tables"},
		"imdb":        {URL: base + "imdb.json", Description: "Internet Movie Database - 131 queries, 7 tables"},
		"yelp":        {URL: base + "yelp.json", Description: "Yelp reviews database - 128 queries, 6 tables"},
		"geography":   {URL: base + "geography.json", Description: "US Geography database - 877 queries, 2 tables"},
		"restaurants": {URL: base + "restaurants.json", Description: "Restaurant database (GeoQuery)"},
		"advising":    {URL: base + "advising.json", Description: "University advising database"},
		"atis":        {URL: base + "atis.json", Description: "Airline travel information system"},
	}
}

const (
	maxDownloadRetries = 5
	retryBaseDelay     = 500 * time.Millisecond
	requestTimeout     = 30 * time.Second
)

// Downloader fetches question sets into an output directory.
type Downloader struct {
	httpc  *http.Client
	outDir string
	logger *slog.Logger
}

// NewDownloader creates a downloader writing <name>.json files under
// outDir.
func NewDownloader(outDir string, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpc:  &http.Client{Timeout: requestTimeout},
		outDir: outDir,
		logger: logger,
	}
}

// Download fetches the question set for name unless it is already
// cached. 429 and 5xx responses are retried with exponential backoff;
// other failures are terminal. The returned entries are the decoded
// dataset rows.
func (d *Downloader) Download(ctx context.Context, name string, src QuestionSource, force bool) ([]map[string]any, string, error) {
	outPath := filepath.Join(d.outDir, name+".json")

	if !force {
		if data, err := os.ReadFile(outPath); err == nil {
			entries, err := decodeEntries(data)
			if err == nil {
				d.logger.Debug("using cached question set", "dataset", name)
				return entries, outPath, nil
			}
			d.logger.Warn("cached question set unreadable, refetching", "dataset", name, "error", err)
		}
	}

	var data []byte
	backoff := retry.WithMaxRetries(maxDownloadRetries, retry.NewExponential(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, err := d.get(ctx, src.URL)
		if err != nil {
			if isRetryableStatus(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("downloading question set %s: %w", name, err)
	}

	entries, err := decodeEntries(data)
	if err != nil {
		return nil, "", fmt.Errorf("question set %s: %w", name, err)
	}

	if err := os.MkdirAll(d.outDir, 0o755); err != nil {
		return nil, "", err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return nil, "", err
	}
	d.logger.Info("downloaded question set", "dataset", name, "path", outPath, "entries", len(entries))
	return entries, outPath, nil
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "sqlstage-dataset-downloader/1.0")

	resp, err := d.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.TransferError{URL: url, Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func isRetryableStatus(err error) bool {
	var terr *core.TransferError
	if !errors.As(err, &terr) {
		return false
	}
	return terr.Status == http.StatusTooManyRequests || terr.Status >= 500
}

func decodeEntries(data []byte) ([]map[string]any, error) {
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding dataset json: %w", err)
	}
	return entries, nil
}
