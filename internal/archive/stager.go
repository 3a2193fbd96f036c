// Package archive extracts compressed dataset bundles into canonical
// directories and locates named members in the extracted tree.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// markerName is the zero-byte sentinel written after a successful
// extraction. Its absence means the directory contents are not
// trustworthy and must be re-extracted.
const markerName = ".extracted.ok"

// Stager extracts tar-gzip archives exactly once per destination.
type Stager struct {
	logger *slog.Logger
}

// NewStager creates a stager.
func NewStager(logger *slog.Logger) *Stager {
	return &Stager{logger: logger}
}

// Extract unpacks the tar-gzip archive at archivePath into destDir. If
// the completion marker is present and force is false, destDir is
// returned unchanged. Any pre-existing contents are wiped before
// extraction; extraction directories are disposable. A corrupt or
// truncated archive fails with core.ErrArchiveCorrupt and leaves no
// marker, so a retry re-extracts from scratch.
func (s *Stager) Extract(archivePath, destDir string, force bool) (string, error) {
	marker := filepath.Join(destDir, markerName)
	if !force {
		if _, err := os.Stat(marker); err == nil {
			s.logger.Debug("using cached extracted bundle", "dir", destDir)
			return destDir, nil
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	s.clearDir(destDir)

	s.logger.Info("extracting archive", "archive", archivePath, "dest", destDir)
	if err := s.extractTarGz(archivePath, destDir); err != nil {
		return "", err
	}

	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return "", err
	}
	return destDir, nil
}

// clearDir removes all entries of dir, best-effort.
func (s *Stager) clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			s.logger.Warn("could not remove stale entry", "path", filepath.Join(dir, e.Name()), "error", err)
		}
	}
}

func (s *Stager) extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrArchiveCorrupt, err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrArchiveCorrupt, err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr); err != nil {
				return err
			}
		default:
			// Symlinks and special files are not expected in dataset
			// bundles; skip them.
			s.logger.Warn("skipping archive entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

// safeJoin joins an archive entry name onto dir, rejecting entries that
// would escape the extraction directory. Entries like "./" resolve to
// dir itself, which archives built with "tar -C dir ." always carry.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.Clean("/"+name))
	if target == filepath.Clean(dir) {
		return target, nil
	}
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %v", core.ErrArchiveCorrupt, err)
	}
	return f.Close()
}

// LocateMember finds a file named name under root. The direct path
// root/name wins; otherwise the whole subtree is searched for an exact
// filename match in lexicographic walk order. Multiple matches resolve
// to the first one with a warning: dataset bundles sometimes nest the
// same filename under sibling folders, so ambiguity is not an error.
func (s *Stager) LocateMember(root, name string) (string, error) {
	direct := filepath.Join(root, name)
	if info, err := os.Stat(direct); err == nil && !info.IsDir() {
		return direct, nil
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %q under %s", core.ErrMemberNotFound, name, root)
	}
	if len(matches) > 1 {
		// WalkDir visits entries in lexical order, so matches[0] is
		// stable across runs.
		s.logger.Warn("multiple matches for member", "name", name, "using", matches[0], "total", len(matches))
	}
	return matches[0], nil
}
