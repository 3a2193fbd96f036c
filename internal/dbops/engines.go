package dbops

import "github.com/leapstack-labs/sqlstage/pkg/core"

// BuiltinEngines returns the supported engines. The containers are
// expected to be already running.
func BuiltinEngines() map[string]core.Engine {
	return map[string]core.Engine{
		"mysql": {
			Name:      "mysql",
			Container: "text2sql-mysql",
			Client:    "mysql",
			DumpTool:  "mysqldump",
		},
		"mariadb": {
			Name:      "mariadb",
			Container: "text2sql-mariadb",
			Client:    "mariadb",
			DumpTool:  "mariadb-dump",
		},
	}
}
