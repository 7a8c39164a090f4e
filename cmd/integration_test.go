package cmd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const usersCSV = `age,score,plan,signup
25,37.5,free,2024-01-05
32,48.0,pro,2024-01-06
47,70.5,free,2024-02-10
51,76.5,pro,2024-03-01
38,57.0,free,2024-03-15
29,43.5,,2024-04-20
61,91.5,free,2024-05-02
44,66.0,pro,2024-06-30
`

// resetFlags restores every flag to its default so invocations don't leak state.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command in an isolated HOME and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	require.NoError(t, err, "command %v", args)
	return out
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TABLESCOPE_INSIGHT_PROVIDER", "none")
	return home
}

func TestCLI_AnalyzeMarkdown(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "users.csv"), usersCSV)

	out := mustRun(t, "analyze", path)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "File: users.csv")
	assert.Contains(t, out, "Rows: 8")
	assert.Contains(t, out, "- age: numeric")
	assert.Contains(t, out, "[CORRELATIONS]")
	assert.NotContains(t, out, "[INSIGHT]")
}

func TestCLI_AnalyzeJSONAndOverride(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "users.csv"), usersCSV)

	out := mustRun(t, "analyze", path, "--format", "json", "--override", "plan=text", "--no-correlations")
	var rep struct {
		Overview struct {
			Rows    int `json:"rows"`
			Columns int `json:"columns"`
		} `json:"overview"`
		Columns map[string]struct {
			Type       string  `json:"type"`
			Confidence float64 `json:"confidence"`
		} `json:"columns"`
		Correlations json.RawMessage `json:"correlations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 8, rep.Overview.Rows)
	assert.Equal(t, 4, rep.Overview.Columns)
	assert.Equal(t, "numeric", rep.Columns["age"].Type)
	assert.Equal(t, "text", rep.Columns["plan"].Type)
	assert.Equal(t, 1.0, rep.Columns["plan"].Confidence)
	assert.Empty(t, rep.Correlations)
}

func TestCLI_AnalyzeYAMLToFile(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "users.csv"), usersCSV)
	dest := filepath.Join(home, "out", "users.yaml")

	out := mustRun(t, "analyze", path, "--format", "yaml", "-o", dest)
	assert.Contains(t, out, "Wrote analysis to")

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, yaml.Unmarshal(b, &rep))
	assert.Equal(t, "users.csv", rep["name"])
}

func TestCLI_AnalyzeErrors(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "users.csv"), usersCSV)

	tests := [][]string{
		{"analyze", path, "--override", "plan"},
		{"analyze", path, "--override", "plan=colour"},
		{"analyze", path, "--override", "missing=text"},
		{"analyze", path, "--format", "xml"},
		{"analyze", path, "--policy", "guess"},
		{"analyze", path, "--delimiter", "#"},
		{"analyze", filepath.Join(home, "notes.pdf")},
	}
	for _, args := range tests {
		_, err := runCmd(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestCLI_Formats(t *testing.T) {
	isolate(t)
	out := mustRun(t, "formats")
	assert.Contains(t, out, ".csv")
	assert.Contains(t, out, ".xlsx")
	assert.Contains(t, out, "postgres")
	assert.Contains(t, out, "sqlite")
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)

	out := mustRun(t, "config", "set", "sample_size", "120")
	assert.Contains(t, out, "Saved config")
	_, err := os.Stat(filepath.Join(home, ".tablescope", "config.yaml"))
	require.NoError(t, err)

	out = mustRun(t, "config", "show")
	var shown map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Equal(t, 120, shown["sample_size"])

	_, err = runCmd(t, "config", "set", "confidence_threshold", "2")
	assert.Error(t, err)
	_, err = runCmd(t, "config", "set", "nope", "1")
	assert.Error(t, err)

	out = mustRun(t, "config", "keys")
	assert.Contains(t, out, "insight_model\n")
}

func TestCLI_AnalyzeDB(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "shop.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE orders (id INTEGER, item TEXT, price REAL);
		INSERT INTO orders VALUES (1, 'pen', 1.5), (2, 'ink', 2.0), (3, 'pen', 1.5), (4, 'pad', 3.25);
		CREATE TABLE empty_log (note TEXT);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out := mustRun(t, "analyze-db", "--dialect", "sqlite", "--dsn", path, "--list-tables")
	assert.Equal(t, "orders\nempty_log\n", out)

	out = mustRun(t, "analyze-db", "--dialect", "sqlite", "--dsn", path)
	assert.Contains(t, out, "File: orders")
	assert.Contains(t, out, "Rows: 4")

	out = mustRun(t, "analyze-db", "--dialect", "sqlite", "--dsn", path,
		"--query", "SELECT item, price FROM orders WHERE price < 3", "--format", "json")
	var rep struct {
		Name     string `json:"name"`
		Overview struct {
			Rows int `json:"rows"`
		} `json:"overview"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "query", rep.Name)
	assert.Equal(t, 3, rep.Overview.Rows)

	_, err = runCmd(t, "analyze-db", "--dialect", "sqlite", "--dsn", path, "--table", "empty_log")
	assert.ErrorContains(t, err, "no rows")
	_, err = runCmd(t, "analyze-db", "--dialect", "sqlite", "--dsn", path, "--table", "orders", "--query", "SELECT 1")
	assert.Error(t, err)
	_, err = runCmd(t, "analyze-db", "--dialect", "oracle", "--dsn", path)
	assert.Error(t, err)
}
