package core

// Source describes where a dataset's SQL dump comes from.
// It is a sealed variant type: resolvers switch exhaustively over the
// concrete types below, so adding a source kind is a localized change.
type Source interface {
	// OutName returns the canonical staged filename for the dataset,
	// defaulting to "<dataset>.sql" when unset.
	OutName(dataset string) string

	sourceKind()
}

// DirectSQL is a plain .sql file served at a URL.
type DirectSQL struct {
	URL        string
	StagedName string
}

// ZipMember is a single member inside a zip archive served at a URL.
type ZipMember struct {
	URL         string
	ArchiveName string
	Member      string
	StagedName  string
}

// BundleMember references a key inside a named multi-dataset bundle.
type BundleMember struct {
	Bundle     string
	Key        string
	StagedName string
}

func (s DirectSQL) OutName(dataset string) string    { return defaultOutName(s.StagedName, dataset) }
func (s ZipMember) OutName(dataset string) string    { return defaultOutName(s.StagedName, dataset) }
func (s BundleMember) OutName(dataset string) string { return defaultOutName(s.StagedName, dataset) }

func (DirectSQL) sourceKind()    {}
func (ZipMember) sourceKind()    {}
func (BundleMember) sourceKind() {}

func defaultOutName(name, dataset string) string {
	if name != "" {
		return name
	}
	return dataset + ".sql"
}
