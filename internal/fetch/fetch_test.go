package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlstage/internal/testutil"
	"github.com/leapstack-labs/sqlstage/pkg/core"
)

func TestFetchDownloadsAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("-- advising schema\n"))
	}))
	defer srv.Close()

	c := NewClient(testutil.NewTestLogger(t))
	dest := filepath.Join(t.TempDir(), "staged-sql", "advising.sql")

	got, err := c.Fetch(context.Background(), srv.URL, dest, false)
	require.NoError(t, err)
	assert.Equal(t, dest, got)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "-- advising schema\n", string(content))
	assert.Equal(t, int64(1), hits.Load())

	// Second call is a cache hit: zero network activity.
	got, err = c.Fetch(context.Background(), srv.URL, dest, false)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.Equal(t, int64(1), hits.Load())

	// Force always re-fetches.
	_, err = c.Fetch(context.Background(), srv.URL, dest, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestFetchBadStatusLeavesDestinationUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testutil.NewTestLogger(t))
	dest := filepath.Join(t.TempDir(), "x.sql")

	_, err := c.Fetch(context.Background(), srv.URL, dest, false)
	require.Error(t, err)

	var terr *core.TransferError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.Status)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "destination must not exist after failed transfer")
}

func TestFetchInterruptedBodyLeavesNoPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Promise more bytes than we deliver so the client sees a
		// truncated body.
		w.Header().Set("Content-Length", "1024")
		_, _ = w.Write([]byte("partial"))
	}))
	defer srv.Close()

	c := NewClient(testutil.NewTestLogger(t))
	dir := t.TempDir()
	dest := filepath.Join(dir, "x.sql")

	_, err := c.Fetch(context.Background(), srv.URL, dest, false)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "destination must not exist after interrupted transfer")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files may be left behind")
}

func TestFetchKeepsCachedFileOnForcedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testutil.NewTestLogger(t))
	dest := filepath.Join(t.TempDir(), "x.sql")
	require.NoError(t, os.WriteFile(dest, []byte("cached"), 0o644))

	_, err := c.Fetch(context.Background(), srv.URL, dest, true)
	require.Error(t, err)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(content), "failed forced fetch must keep the complete cached file")
}
