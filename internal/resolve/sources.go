package resolve

import "github.com/leapstack-labs/sqlstage/pkg/core"

// BuiltinSources maps dataset names to their SQL origins. Datasets
// without an entry have no configured origin yet; resolving them is a
// no-op, not an error.
func BuiltinSources() map[string]core.Source {
	return map[string]core.Source{
		"advising": core.DirectSQL{
			URL:        "https://raw.githubusercontent.com/jkkummerfeld/text2sql-data/refs/heads/master/data/advising-db.sql",
			StagedName: "advising.sql",
		},
		"atis": core.DirectSQL{
			URL:        "https://raw.githubusercontent.com/jkkummerfeld/text2sql-data/refs/heads/master/data/atis-db.sql",
			StagedName: "atis.sql",
		},
		"academic": core.BundleMember{Bundle: "sqlizer", Key: "academic", StagedName: "academic.sql"},
		"imdb":     core.BundleMember{Bundle: "sqlizer", Key: "imdb", StagedName: "imdb.sql"},
		"yelp":     core.BundleMember{Bundle: "sqlizer", Key: "yelp", StagedName: "yelp.sql"},
	}
}

// BuiltinBundles maps bundle ids to their descriptors.
func BuiltinBundles() map[string]core.Bundle {
	return map[string]core.Bundle{
		"sqlizer": {
			Kind:        core.BundleTarGzip,
			URL:         "https://drive.google.com/uc?export=download&id=11qRUfkEVj7Lapa9ypPfwrDGUFsJRsVx9",
			ArchiveName: "sqlizer.tgz",
			SQLMembers: map[string]string{
				"academic": "MAS.database.sql",
				"imdb":     "IMDB.database.sql",
				"yelp":     "YELP.database.sql",
			},
			QuestionMembers: map[string]string{
				"academic": "MAS.questions.txt",
				"imdb":     "IMDB.questions.txt",
				"yelp":     "YELP.questions.txt",
			},
		},
	}
}

// DefaultDatasets are bootstrapped when the user selects none explicitly.
var DefaultDatasets = []string{"academic", "imdb", "yelp", "advising", "atis"}
