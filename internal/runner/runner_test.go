package runner

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QTest-hq/antenna/internal/errs"
	"github.com/QTest-hq/antenna/internal/worker"
)

const todoPattern = `((line_comment) @comment (#match? @comment "TODO"))`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// todoWorkspace creates three rust files, two of which hold one TODO comment
func todoWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rs"), "// TODO: first\nfn a() {}\n")
	writeFile(t, filepath.Join(dir, "b.rs"), "fn b() {\n    // TODO: second\n}\n")
	writeFile(t, filepath.Join(dir, "c.rs"), "// nothing to do\nfn c() {}\n")
	return dir
}

func newRunner(t *testing.T, dir, configuration string, stdout *bytes.Buffer) *Runner {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "antenna.yml")
	writeFile(t, configFile, configuration)

	r, err := New(Options{ConfigurationFile: configFile, Repository: dir, Stdout: stdout})
	require.NoError(t, err)
	return r
}

func TestRun_Occurrences(t *testing.T) {
	dir := todoWorkspace(t)
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
queries:
  - name: todo-comments
    include: "*.rs"
    query: '`+todoPattern+`'
    output:
      - occurrences
`, &stdout)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Equal(t, []string{
		filepath.Join(dir, "a.rs") + " = 1",
		filepath.Join(dir, "b.rs") + " = 1",
		filepath.Join(dir, "c.rs") + " = 0",
	}, lines)

	assert.Equal(t, 1, summary.Queries)
	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, 3, summary.Results)
	assert.Equal(t, 2, summary.Matches)
	assert.Zero(t, summary.Errors)
	assert.NotEmpty(t, summary.RunID)
}

func TestRun_DefaultOutputIsOccurrences(t *testing.T) {
	dir := todoWorkspace(t)
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
queries:
  - name: todo-comments
    include: "*.rs"
    query: '`+todoPattern+`'
`, &stdout)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(stdout.String(), "\n"))
}

func TestRun_CSVOutput(t *testing.T) {
	dir := todoWorkspace(t)
	out := filepath.Join(t.TempDir(), "out.csv")
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
queries:
  - name: todo-comments
    include: "*.rs"
    query: '`+todoPattern+`'
    output:
      - csv:
          path: `+out+`
`, &stdout)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	for _, row := range rows[1:] {
		assert.Equal(t, "0", row[0])
		assert.Equal(t, "todo-comments", row[1])
		assert.Contains(t, row[4], "TODO")
	}
}

func TestRun_ZeroMatchingFiles(t *testing.T) {
	dir := todoWorkspace(t)
	out := filepath.Join(t.TempDir(), "out.json")
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
queries:
  - name: python-todos
    include: "**/*.py"
    query: '(comment) @comment'
    output:
      - occurrences
      - json:
          path: `+out+`
`, &stdout)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
	assert.Zero(t, summary.Results)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestRun_InvalidPatternDoesNotStopOtherQueries(t *testing.T) {
	dir := todoWorkspace(t)
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
queries:
  - name: broken
    include: "*.rs"
    query: '((line_comment'
  - name: todo-comments
    include: "*.rs"
    query: '`+todoPattern+`'
`, &stdout)

	summary, err := r.Run(context.Background())
	require.Error(t, err)

	patternErrs := errs.Of(err, errs.KindPattern)
	require.Len(t, patternErrs, 1)
	assert.Equal(t, "broken", patternErrs[0].Query)
	assert.Equal(t, "rust", patternErrs[0].Language)
	assert.Contains(t, err.Error(), "query=broken")
	assert.Equal(t, 1, summary.Errors)

	assert.Contains(t, stdout.String(), filepath.Join(dir, "a.rs")+" = 1")
	assert.Equal(t, 2, summary.Matches)
}

func TestRun_PartialFileFailures(t *testing.T) {
	dir := todoWorkspace(t)
	writeFile(t, filepath.Join(dir, "notes.xyz"), "TODO")
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
queries:
  - name: everything
    include: "*"
    query: '`+todoPattern+`'
`, &stdout)

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	unsupported := errs.Of(err, errs.KindUnsupported)
	require.Len(t, unsupported, 1)
	assert.Equal(t, filepath.Join(dir, "notes.xyz"), unsupported[0].Path)

	assert.Equal(t, 3, summary.Results)
	assert.Equal(t, 2, summary.Matches)
}

func TestRun_ExcludeAndGitignore(t *testing.T) {
	dir := todoWorkspace(t)
	writeFile(t, filepath.Join(dir, ".gitignore"), "vendor/\n")
	writeFile(t, filepath.Join(dir, "vendor", "dep.rs"), "// TODO: vendored\n")
	writeFile(t, filepath.Join(dir, "target", "gen.rs"), "// TODO: generated\n")
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
exclude:
  - "target/**"
respect_gitignore: true
queries:
  - name: todo-comments
    include: "**/*.rs"
    query: '`+todoPattern+`'
`, &stdout)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Results)
	assert.NotContains(t, stdout.String(), "vendor")
	assert.NotContains(t, stdout.String(), "target")
}

func TestRun_TOMLConfiguration(t *testing.T) {
	dir := todoWorkspace(t)
	configFile := filepath.Join(t.TempDir(), "antenna.toml")
	writeFile(t, configFile, `
[[queries]]
name = "todo-comments"
include = "*.rs"
query = '`+todoPattern+`'
output = ["occurrences"]
`)

	var stdout bytes.Buffer
	r, err := New(Options{ConfigurationFile: configFile, Repository: dir, Stdout: &stdout})
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Matches)
}

func TestRun_Idempotent(t *testing.T) {
	dir := todoWorkspace(t)
	var stdout bytes.Buffer
	r := newRunner(t, dir, `
queries:
  - name: todo-comments
    include: "*.rs"
    query: '`+todoPattern+`'
`, &stdout)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	first := stdout.String()

	stdout.Reset()
	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, stdout.String())
}

func TestNew_FatalErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := New(Options{ConfigurationFile: filepath.Join(dir, "missing.yml"), Repository: dir})
	require.Error(t, err)
	assert.Len(t, errs.Of(err, errs.KindConfig), 1)

	configFile := filepath.Join(dir, "antenna.yml")
	writeFile(t, configFile, "queries: []\n")
	_, err = New(Options{ConfigurationFile: configFile, Repository: filepath.Join(dir, "nope")})
	require.Error(t, err)
}

func TestPoolSizePrecedence(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "antenna.yml")
	writeFile(t, configFile, "workers: 3\nqueries: []\n")

	r, err := New(Options{ConfigurationFile: configFile, Repository: dir})
	require.NoError(t, err)
	assert.Equal(t, 3, r.poolSize())

	r, err = New(Options{ConfigurationFile: configFile, Repository: dir, Workers: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, r.poolSize())

	writeFile(t, configFile, "queries: []\n")
	require.NoError(t, r.Reload())
	r.opts.Workers = 0
	assert.Equal(t, worker.DefaultSize, worker.NewPool(r.poolSize()).Size())
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "antenna.yml")
	writeFile(t, configFile, "queries:\n  - name: q\n    include: '*.rs'\n    query: '(identifier) @id'\n")

	r, err := New(Options{ConfigurationFile: configFile, Repository: dir})
	require.NoError(t, err)

	writeFile(t, configFile, "queries: [")
	require.Error(t, r.Reload())
	assert.Equal(t, []string{"q"}, r.Configuration().QueryNames())
}

func TestSetLogLevel(t *testing.T) {
	assert.NoError(t, SetLogLevel("debug"))
	assert.Error(t, SetLogLevel("loud"))
	assert.NoError(t, SetLogLevel("info"))
}

// syncBuffer is a bytes.Buffer safe for the watch loop and the test to share
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_RerunsOnChange(t *testing.T) {
	dir := todoWorkspace(t)
	configFile := filepath.Join(t.TempDir(), "antenna.yml")
	writeFile(t, configFile, `
queries:
  - name: todo-comments
    include: "*.rs"
    query: '`+todoPattern+`'
`)

	stdout := &syncBuffer{}
	r, err := New(Options{ConfigurationFile: configFile, Repository: dir, Stdout: stdout})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), filepath.Join(dir, "c.rs")+" = 0")
	}, 5*time.Second, 20*time.Millisecond)

	// give the watcher time to register directories
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "c.rs"), "// TODO: now\nfn c() {}\n")

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), filepath.Join(dir, "c.rs")+" = 1")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
