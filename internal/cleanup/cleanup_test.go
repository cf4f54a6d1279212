package cleanup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parnexcodes/dbxup/internal/logging"
)

func newTestCleaner(t *testing.T) (*Cleaner, *bytes.Buffer) {
	t.Helper()
	var sink bytes.Buffer
	logger, err := logging.New(logging.Options{
		Verbosity: logging.VerbosityQuiet,
		Console:   &bytes.Buffer{},
		Sink:      &sink,
	})
	require.NoError(t, err)
	return New(logger, DefaultRules()), &sink
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWorst(t *testing.T) {
	assert.Equal(t, Success, Worst(Success, Success))
	assert.Equal(t, NoneFound, Worst(Success, NoneFound))
	assert.Equal(t, NoneFound, Worst(NoneFound, Success))
	assert.Equal(t, Failure, Worst(NoneFound, Failure))
	assert.Equal(t, Failure, Worst(Failure, Success))
}

func TestRules(t *testing.T) {
	rules := DefaultRules()
	assert.True(t, rules.IsSource("/x/mod.py"))
	assert.False(t, rules.IsSource("/x/mod.pyc"))
	assert.False(t, rules.IsSource("/x/readme.md"))
	assert.Equal(t, "mod.pyc", rules.Artifact("mod.py"))

	assert.False(t, Rules{SourceSuffixes: []string{".py"}}.IsSource("mod.py"), "empty marker would delete the source itself")
}

func TestClean_SourceFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "mod.py")
	writeFile(t, source)
	writeFile(t, source+"c")

	cleaner, sink := newTestCleaner(t)

	assert.Equal(t, Success, cleaner.Clean(source))
	assert.NoFileExists(t, source+"c")
	assert.FileExists(t, source)
	assert.Contains(t, sink.String(), "[*] Removed")

	assert.Equal(t, NoneFound, cleaner.Clean(source), "second pass finds nothing")
}

func TestClean_NonSourceIsNoop(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	writeFile(t, other)
	writeFile(t, other+"c")

	cleaner, sink := newTestCleaner(t)

	assert.Equal(t, NoneFound, cleaner.Clean(other))
	assert.FileExists(t, other+"c")
	assert.Empty(t, sink.String())
}

func TestClean_Directory(t *testing.T) {
	t.Run("all removed", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.py"))
		writeFile(t, filepath.Join(dir, "a.pyc"))
		writeFile(t, filepath.Join(dir, "pkg", "b.py"))
		writeFile(t, filepath.Join(dir, "pkg", "b.pyc"))
		writeFile(t, filepath.Join(dir, "pkg", "data.json"))

		cleaner, _ := newTestCleaner(t)
		assert.Equal(t, Success, cleaner.Clean(dir))
		assert.NoFileExists(t, filepath.Join(dir, "a.pyc"))
		assert.NoFileExists(t, filepath.Join(dir, "pkg", "b.pyc"))
		assert.FileExists(t, filepath.Join(dir, "pkg", "data.json"))
	})

	t.Run("one deletable and one missing is partial", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.py"))
		writeFile(t, filepath.Join(dir, "a.pyc"))
		writeFile(t, filepath.Join(dir, "b.py"))

		cleaner, _ := newTestCleaner(t)
		assert.Equal(t, NoneFound, cleaner.Clean(dir))
		assert.NoFileExists(t, filepath.Join(dir, "a.pyc"))
	})

	t.Run("no sources", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "image.png"))

		cleaner, _ := newTestCleaner(t)
		assert.Equal(t, NoneFound, cleaner.Clean(dir))
	})

	t.Run("undeletable artifact is failure", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission checks do not apply to root")
		}
		dir := t.TempDir()
		locked := filepath.Join(dir, "locked")
		writeFile(t, filepath.Join(dir, "a.py"))
		writeFile(t, filepath.Join(dir, "a.pyc"))
		writeFile(t, filepath.Join(locked, "b.py"))
		writeFile(t, filepath.Join(locked, "b.pyc"))
		require.NoError(t, os.Chmod(locked, 0o555))
		t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

		cleaner, sink := newTestCleaner(t)
		assert.Equal(t, Failure, cleaner.Clean(dir))
		assert.Contains(t, sink.String(), "Error while removing")
		assert.NoFileExists(t, filepath.Join(dir, "a.pyc"))
	})
}

func TestClean_MissingPath(t *testing.T) {
	cleaner, _ := newTestCleaner(t)
	assert.Equal(t, NoneFound, cleaner.Clean(filepath.Join(t.TempDir(), "gone.py")))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "none-found", NoneFound.String())
	assert.Equal(t, "failure", Failure.String())
}
