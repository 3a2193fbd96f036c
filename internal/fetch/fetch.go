// Package fetch downloads remote SQL assets into the local cache.
//
// All downloads share the same write discipline: the body is streamed to
// a uniquely-named temporary file next to the destination and atomically
// renamed into place only after the full body is written, so a partial
// file can never appear at the final path.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// responseHeaderTimeout bounds how long we wait for a server to start
// responding. Body streaming itself is bounded only by completion, since
// bundle downloads can be large.
const responseHeaderTimeout = 30 * time.Second

// tempCleanupAttempts bounds best-effort removal of leftover temp files,
// tolerating transient "file busy" conditions.
const tempCleanupAttempts = 5

// Client performs HTTP(S) fetches with caching and atomic-replace
// semantics.
type Client struct {
	httpc  *http.Client
	logger *slog.Logger

	// driveEndpoint is the canonical interactive-host download endpoint.
	// Overridden in tests.
	driveEndpoint string
}

// NewClient creates a fetch client.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpc: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: responseHeaderTimeout,
				Proxy:                 http.ProxyFromEnvironment,
			},
		},
		logger:        logger,
		driveEndpoint: defaultDriveEndpoint,
	}
}

// Fetch downloads url into dest. If dest already exists and force is
// false the cached file is returned without any network call. A non-2xx
// response fails with *core.TransferError and leaves dest untouched.
func (c *Client) Fetch(ctx context.Context, url, dest string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			c.logger.Debug("using cached file", "path", dest)
			return dest, nil
		}
	}

	c.logger.Info("downloading", "url", url, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &core.TransferError{URL: url, Status: resp.StatusCode}
	}

	if err := c.saveStream(resp.Body, dest); err != nil {
		return "", fmt.Errorf("saving %s: %w", url, err)
	}
	return dest, nil
}

// saveStream writes r to dest via a temp file and an atomic rename.
// The temp name embeds pid and timestamp so an accidental concurrent run
// cannot corrupt an in-flight write.
func (c *Client) saveStream(r io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.part.%d.%d", dest, os.Getpid(), time.Now().UnixNano())
	defer c.removeTemp(tmp)

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, dest)
}

// removeTemp deletes a leftover temp file with bounded retries.
func (c *Client) removeTemp(tmp string) {
	for i := 0; i < tempCleanupAttempts; i++ {
		err := os.Remove(tmp)
		if err == nil || os.IsNotExist(err) {
			return
		}
		time.Sleep(300 * time.Millisecond)
	}
	c.logger.Warn("could not remove temp file", "path", tmp)
}
