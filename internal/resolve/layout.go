package resolve

import (
	"fmt"
	"os"
	"path/filepath"
)

// CacheLayout holds the directory roots of the on-disk cache. It is
// injected into every component so tests can point the whole pipeline at
// an isolated temporary root. Cache artifacts are never deleted
// automatically; staleness is caller-driven via the force flag.
type CacheLayout struct {
	// Archives caches raw downloaded archives (zip, tgz).
	Archives string

	// Extracted holds one extraction directory per bundle id.
	Extracted string

	// StagedSQL holds the canonical <dataset>.sql files consumed by the
	// import step.
	StagedSQL string

	// Questions holds companion <dataset>.questions.txt files.
	Questions string

	// Schemas holds structure-only dumps under <engine>/<db>.schema.sql.
	Schemas string
}

// DefaultLayout returns the standard layout rooted at dir.
func DefaultLayout(dir string) CacheLayout {
	return CacheLayout{
		Archives:  filepath.Join(dir, "archives"),
		Extracted: filepath.Join(dir, "extracted"),
		StagedSQL: filepath.Join(dir, "staged-sql"),
		Questions: filepath.Join(dir, "staged-questions"),
		Schemas:   filepath.Join(dir, "schemas"),
	}
}

// EnsureRoots creates all cache roots. A failure here is fatal to the
// run: there is no degraded mode without a writable cache.
func (l CacheLayout) EnsureRoots() error {
	for _, dir := range []string{l.Archives, l.Extracted, l.StagedSQL, l.Questions, l.Schemas} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache root %s: %w", dir, err)
		}
	}
	return nil
}

// ExtractDir returns the extraction directory for a bundle.
func (l CacheLayout) ExtractDir(bundleID string) string {
	return filepath.Join(l.Extracted, bundleID)
}
