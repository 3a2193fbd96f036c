package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Complexity buckets question SQL by a cheap structural heuristic.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// sqlKeys are the field names that may hold SQL in a dataset entry,
// checked in order.
var sqlKeys = []string{"sql", "query", "query_sql", "sql_query", "sqls"}

// Analysis summarizes one question set.
type Analysis struct {
	Name       string             `json:"name"`
	Total      int                `json:"total"`
	Keys       []string           `json:"keys,omitempty"`
	SQLKey     string             `json:"sql_key,omitempty"`
	Complexity map[Complexity]int `json:"complexity"`
}

// Manifest is the aggregate report written after a datasets run.
type Manifest struct {
	GeneratedAtEpoch int64           `json:"generated_at_epoch"`
	Datasets         []DatasetReport `json:"datasets"`
}

// DatasetReport is one manifest row.
type DatasetReport struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	File        string `json:"file"`
	Cached      bool   `json:"cached"`
	Analysis
}

// DetectSQLField returns the key of sample that most likely stores SQL,
// or "" when none matches.
func DetectSQLField(sample map[string]any) string {
	for _, k := range sqlKeys {
		if _, ok := sample[k]; ok {
			return k
		}
	}
	return ""
}

// NormalizeSQL converts possibly-tokenized SQL (a string or a list of
// tokens) to a single uppercase string.
func NormalizeSQL(value any) string {
	if list, ok := value.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, x := range list {
			parts = append(parts, fmt.Sprint(x))
		}
		return strings.ToUpper(strings.Join(parts, " "))
	}
	return strings.ToUpper(fmt.Sprint(value))
}

// EstimateComplexity scores normalized SQL into simple/medium/complex.
func EstimateComplexity(sql string) Complexity {
	joins := strings.Count(sql, "JOIN")
	selects := strings.Count(sql, "SELECT")
	subqueries := selects - 1
	if subqueries < 0 {
		subqueries = 0
	}

	score := joins * 2
	score += subqueries * 3
	if strings.Contains(sql, "GROUP BY") {
		score += 2
	}
	if strings.Contains(sql, "HAVING") {
		score += 2
	}
	for _, op := range []string{"UNION", "INTERSECT", "EXCEPT"} {
		if strings.Contains(sql, op) {
			score += 3
			break
		}
	}

	switch {
	case score <= 1:
		return ComplexitySimple
	case score <= 6:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}

// Analyze summarizes a question set: detected SQL key and the
// complexity distribution across all entries.
func Analyze(entries []map[string]any, name string) Analysis {
	a := Analysis{
		Name:       name,
		Total:      len(entries),
		Complexity: map[Complexity]int{ComplexitySimple: 0, ComplexityMedium: 0, ComplexityComplex: 0},
	}
	if len(entries) == 0 {
		return a
	}

	sample := entries[0]
	a.Keys = sortedKeys(sample)
	a.SQLKey = DetectSQLField(sample)
	if a.SQLKey == "" {
		return a
	}

	for _, entry := range entries {
		sql := NormalizeSQL(entry[a.SQLKey])
		a.Complexity[EstimateComplexity(sql)]++
	}
	return a
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(path string, reports []DatasetReport) error {
	m := Manifest{
		GeneratedAtEpoch: time.Now().Unix(),
		Datasets:         reports,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
