package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectSQLField(t *testing.T) {
	tests := []struct {
		name   string
		sample map[string]any
		want   string
	}{
		{name: "plain sql key", sample: map[string]any{"sql": "SELECT 1", "question": "q"}, want: "sql"},
		{name: "query key", sample: map[string]any{"query": "SELECT 1"}, want: "query"},
		{name: "tokenized sqls key", sample: map[string]any{"sqls": []any{"SELECT", "1"}}, want: "sqls"},
		{name: "sql preferred over query", sample: map[string]any{"query": "x", "sql": "y"}, want: "sql"},
		{name: "nothing sql-like", sample: map[string]any{"question": "q", "answer": "a"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSQLField(tt.sample))
		})
	}
}

func TestNormalizeSQL(t *testing.T) {
	assert.Equal(t, "SELECT * FROM MOVIES", NormalizeSQL("select * from movies"))
	assert.Equal(t, "SELECT COUNT( * ) FROM MOVIE", NormalizeSQL([]any{"select", "count(", "*", ")", "from", "movie"}))
	assert.Equal(t, "42", NormalizeSQL(42))
}

func TestEstimateComplexity(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want Complexity
	}{
		{name: "flat select", sql: "SELECT NAME FROM MOVIE", want: ComplexitySimple},
		{name: "single join", sql: "SELECT M.NAME FROM MOVIE M JOIN DIRECTOR D ON M.DID = D.ID", want: ComplexityMedium},
		{name: "group by only", sql: "SELECT GENRE, COUNT(*) FROM MOVIE GROUP BY GENRE", want: ComplexityMedium},
		{name: "subquery", sql: "SELECT NAME FROM MOVIE WHERE ID IN (SELECT MID FROM CAST)", want: ComplexityMedium},
		{
			name: "joins plus aggregation plus having",
			sql:  "SELECT G, COUNT(*) FROM A JOIN B ON A.X = B.X JOIN C ON B.Y = C.Y GROUP BY G HAVING COUNT(*) > 2",
			want: ComplexityComplex,
		},
		{name: "set operation with subquery", sql: "SELECT X FROM A UNION SELECT Y FROM B", want: ComplexityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateComplexity(tt.sql))
		})
	}
}

func TestAnalyze(t *testing.T) {
	entries := []map[string]any{
		{"question": "how many movies", "sql": "SELECT COUNT(*) FROM MOVIE"},
		{"question": "who directed x", "sql": "SELECT D.NAME FROM MOVIE M JOIN DIRECTOR D ON M.DID = D.ID WHERE M.TITLE = 'X'"},
	}

	a := Analyze(entries, "imdb")
	assert.Equal(t, "imdb", a.Name)
	assert.Equal(t, 2, a.Total)
	assert.Equal(t, "sql", a.SQLKey)
	assert.Equal(t, []string{"question", "sql"}, a.Keys)
	assert.Equal(t, 1, a.Complexity[ComplexitySimple])
	assert.Equal(t, 1, a.Complexity[ComplexityMedium])
	assert.Equal(t, 0, a.Complexity[ComplexityComplex])
}

func TestAnalyzeWithoutSQLField(t *testing.T) {
	entries := []map[string]any{{"question": "q", "answer": "a"}}

	a := Analyze(entries, "quiz")
	assert.Equal(t, 1, a.Total)
	assert.Empty(t, a.SQLKey)
	assert.Equal(t, 0, a.Complexity[ComplexitySimple]+a.Complexity[ComplexityMedium]+a.Complexity[ComplexityComplex])
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze(nil, "empty")
	assert.Equal(t, 0, a.Total)
	assert.Empty(t, a.Keys)
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "manifest.json")
	reports := []DatasetReport{
		{
			Name:     "imdb",
			URL:      "https://example.com/imdb.json",
			File:     "imdb.json",
			Cached:   true,
			Analysis: Analyze(nil, "imdb"),
		},
	}

	require.NoError(t, WriteManifest(path, reports))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Positive(t, m.GeneratedAtEpoch)
	require.Len(t, m.Datasets, 1)
	assert.Equal(t, "imdb", m.Datasets[0].Name)
	assert.True(t, m.Datasets[0].Cached)
}
