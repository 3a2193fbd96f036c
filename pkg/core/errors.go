package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the staging and bootstrap pipeline. Callers match
// them with errors.Is after any number of fmt.Errorf("%w") wraps.
var (
	// ErrIdentifier means no file identifier could be extracted from an
	// interactive-host URL.
	ErrIdentifier = errors.New("could not extract file identifier from URL")

	// ErrConfirmToken means the confirmation page yielded no token in
	// links, form fields or cookies.
	ErrConfirmToken = errors.New("confirmation token not found: the resource might not be shared publicly")

	// ErrPermissionDenied means the host returned HTML again after the
	// confirmation round trip; the resource requires authentication.
	ErrPermissionDenied = errors.New("host returned another confirmation page: the resource requires authentication")

	// ErrArchiveCorrupt means an archive could not be fully extracted.
	ErrArchiveCorrupt = errors.New("archive corrupt or truncated")

	// ErrMemberNotFound means a named member is absent from an archive
	// or extracted tree.
	ErrMemberNotFound = errors.New("member not found")

	// ErrUnknownBundle means a source references a bundle id with no
	// registered descriptor.
	ErrUnknownBundle = errors.New("unknown bundle")

	// ErrUnsupportedBundleKind means a bundle declares a kind other than
	// tar-gzip.
	ErrUnsupportedBundleKind = errors.New("unsupported bundle kind")

	// ErrDBAdmin means an administrative statement (drop/create) failed.
	ErrDBAdmin = errors.New("database administrative command failed")

	// ErrImportFailed means the SQL import subprocess exited non-zero.
	// The driver treats it as fatal for the remaining datasets of the
	// affected engine.
	ErrImportFailed = errors.New("sql import failed")
)

// TransferError reports a non-2xx HTTP response during a fetch. The
// destination path is left untouched when it is returned.
type TransferError struct {
	URL    string
	Status int
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s failed with status %d", e.URL, e.Status)
}
