package core

// BundleKind identifies the archive format of a bundle.
type BundleKind string

// BundleTarGzip is the only supported bundle kind.
const BundleTarGzip BundleKind = "tar-gzip"

// Bundle describes a single downloadable archive containing SQL and/or
// question assets for multiple datasets, keyed by per-dataset member
// filenames.
type Bundle struct {
	Kind        BundleKind
	URL         string
	ArchiveName string

	// SQLMembers maps a dataset key to the SQL member filename inside the
	// extracted tree. Every key referenced by a BundleMember source must
	// be present here.
	SQLMembers map[string]string

	// QuestionMembers maps a dataset key to an optional companion
	// questions file. A missing key is not an error.
	QuestionMembers map[string]string
}
