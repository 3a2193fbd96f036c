// Package resolve maps logical dataset names to canonical staged SQL
// files, downloading and extracting whatever the source descriptor
// requires.
package resolve

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sqlstage/internal/archive"
	"github.com/leapstack-labs/sqlstage/internal/fetch"
	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// entryPreviewLimit bounds how many archive entries are listed in a
// MemberNotFound error.
const entryPreviewLimit = 20

// Resolver turns dataset names into staged local SQL files.
type Resolver struct {
	layout  CacheLayout
	sources map[string]core.Source
	bundles map[string]core.Bundle
	client  *fetch.Client
	stager  *archive.Stager
	logger  *slog.Logger
}

// NewResolver creates a resolver over the given source and bundle
// tables. The cache layout is injected, never ambient.
func NewResolver(layout CacheLayout, sources map[string]core.Source, bundles map[string]core.Bundle, client *fetch.Client, stager *archive.Stager, logger *slog.Logger) *Resolver {
	return &Resolver{
		layout:  layout,
		sources: sources,
		bundles: bundles,
		client:  client,
		stager:  stager,
		logger:  logger,
	}
}

// Resolve returns the canonical staged SQL path for dataset, fetching
// and extracting as needed. A dataset with no registered source returns
// ("", nil): absence of a source is a normal state, not a failure.
// With force=false repeated calls perform at most one network transfer
// and one extraction.
func (r *Resolver) Resolve(ctx context.Context, dataset string, force bool) (string, error) {
	src, ok := r.sources[dataset]
	if !ok {
		r.logger.Warn("no sql source configured for dataset", "dataset", dataset)
		return "", nil
	}

	switch s := src.(type) {
	case core.DirectSQL:
		return r.client.Fetch(ctx, s.URL, r.stagedPath(dataset, src), force)
	case core.ZipMember:
		return r.resolveZip(ctx, dataset, s, force)
	case core.BundleMember:
		return r.resolveBundle(ctx, dataset, s, force)
	default:
		return "", fmt.Errorf("dataset %q: unhandled source kind %T", dataset, src)
	}
}

func (r *Resolver) stagedPath(dataset string, src core.Source) string {
	return filepath.Join(r.layout.StagedSQL, src.OutName(dataset))
}

func (r *Resolver) resolveZip(ctx context.Context, dataset string, s core.ZipMember, force bool) (string, error) {
	archiveName := s.ArchiveName
	if archiveName == "" {
		archiveName = dataset + ".zip"
	}
	zipPath, err := r.client.Fetch(ctx, s.URL, filepath.Join(r.layout.Archives, archiveName), force)
	if err != nil {
		return "", err
	}

	staged := r.stagedPath(dataset, s)
	if !force {
		if _, err := os.Stat(staged); err == nil {
			r.logger.Debug("using cached staged sql", "path", staged)
			return staged, nil
		}
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrArchiveCorrupt, err)
	}
	defer func() { _ = zr.Close() }()

	var member *zip.File
	for _, f := range zr.File {
		if f.Name == s.Member {
			member = f
			break
		}
	}
	if member == nil {
		return "", fmt.Errorf("%w: %q in %s (entries: %v)", core.ErrMemberNotFound, s.Member, archiveName, zipEntryPreview(zr))
	}

	rc, err := member.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrArchiveCorrupt, err)
	}
	defer func() { _ = rc.Close() }()

	r.logger.Info("staging sql from zip", "member", s.Member, "dest", staged)
	if err := writeAll(staged, rc); err != nil {
		return "", err
	}
	return staged, nil
}

func (r *Resolver) resolveBundle(ctx context.Context, dataset string, s core.BundleMember, force bool) (string, error) {
	bundle, ok := r.bundles[s.Bundle]
	if !ok {
		return "", fmt.Errorf("%w: %q (available: %v)", core.ErrUnknownBundle, s.Bundle, bundleIDs(r.bundles))
	}
	if bundle.Kind != core.BundleTarGzip {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedBundleKind, bundle.Kind)
	}

	archiveName := bundle.ArchiveName
	if archiveName == "" {
		archiveName = s.Bundle + ".tgz"
	}
	archivePath := filepath.Join(r.layout.Archives, archiveName)

	// A locally dropped-in archive counts as a cache hit too; bundle
	// URLs may be flaky enough that users fetch them by hand.
	if _, err := os.Stat(archivePath); err != nil || force {
		archivePath, err = r.fetchByShape(ctx, bundle.URL, archivePath, force)
		if err != nil {
			return "", err
		}
	} else {
		r.logger.Debug("using local cached bundle", "path", archivePath)
	}

	root, err := r.stager.Extract(archivePath, r.layout.ExtractDir(s.Bundle), force)
	if err != nil {
		return "", err
	}

	memberName, ok := bundle.SQLMembers[s.Key]
	if !ok {
		return "", fmt.Errorf("%w: bundle %q has no sql member for key %q", core.ErrMemberNotFound, s.Bundle, s.Key)
	}
	memberPath, err := r.stager.LocateMember(root, memberName)
	if err != nil {
		return "", err
	}

	staged := r.stagedPath(dataset, s)
	if err := r.stageCopy(memberPath, staged, force); err != nil {
		return "", err
	}

	// Questions staging is best-effort and independently retryable: it
	// is not required for import correctness.
	if qName, ok := bundle.QuestionMembers[s.Key]; ok {
		if err := r.stageQuestions(root, qName, dataset, force); err != nil {
			r.logger.Warn("could not stage questions", "dataset", dataset, "member", qName, "error", err)
		}
	}

	return staged, nil
}

// fetchByShape dispatches between the plain and the interactive-host
// download protocols based on the URL.
func (r *Resolver) fetchByShape(ctx context.Context, url, dest string, force bool) (string, error) {
	if fetch.IsInteractiveHost(url) {
		return r.client.FetchInteractive(ctx, url, dest, force)
	}
	return r.client.Fetch(ctx, url, dest, force)
}

func (r *Resolver) stageQuestions(root, memberName, dataset string, force bool) error {
	memberPath, err := r.stager.LocateMember(root, memberName)
	if err != nil {
		return err
	}
	dest := filepath.Join(r.layout.Questions, dataset+".questions.txt")
	return r.stageCopy(memberPath, dest, force)
}

// stageCopy copies src to dest unless dest is already staged and force
// is false.
func (r *Resolver) stageCopy(src, dest string, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			r.logger.Debug("using cached staged file", "path", dest)
			return nil
		}
	}
	r.logger.Info("staging file", "src", src, "dest", dest)

	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return writeAll(dest, f)
}

func writeAll(dest string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func zipEntryPreview(zr *zip.ReadCloser) []string {
	names := make([]string, 0, entryPreviewLimit)
	for _, f := range zr.File {
		if len(names) == entryPreviewLimit {
			break
		}
		names = append(names, f.Name)
	}
	return names
}

func bundleIDs(bundles map[string]core.Bundle) []string {
	ids := make([]string, 0, len(bundles))
	for id := range bundles {
		ids = append(ids, id)
	}
	return ids
}
