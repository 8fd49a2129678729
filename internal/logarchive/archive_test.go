package logarchive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestListDates(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	writeFile(t, dir, "log_2024-03-01.log", "")
	writeFile(t, dir, "log_2024-03-03.log", "")
	writeFile(t, dir, "log_2024-03-02.log", "")
	writeFile(t, dir, "exception_2024-03-05.log", "")
	writeFile(t, dir, "invalid.log", "")

	dates, err := a.ListDates(KindLog)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-03", "2024-03-02", "2024-03-01"}, dates)

	dates, err = a.ListDates(KindException)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-05"}, dates)
}

func TestListDatesEmptyDir(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	dates, err := a.ListDates(KindLog)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestReadLogFile(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	content := `{"time": "2024-03-01 10:00:00", "level": "INFO", "msg": "started"}
{"time": "2024-03-01 10:00:01", "level": "ERROR", "msg": "boom"}
{"time": "2024-03-01 10:00:02", "level": "WARNING", "msg": "slow"}
{"time": "2024-03-01 10:00:03", "level": "INFO", "msg": "request"}
`
	writeFile(t, dir, "log_2024-03-01.log", content)

	doc, err := a.Read("2024-03-01", KindLog)
	require.NoError(t, err)

	assert.Equal(t, "success", doc.Status)
	assert.Equal(t, "2024-03-01", doc.Date)
	assert.Equal(t, 4, doc.TotalEntries)
	assert.Len(t, doc.Entries, 4)
	assert.Equal(t, 2, doc.Metadata.InfoCount)
	assert.Equal(t, 1, doc.Metadata.ErrorCount)
	assert.Equal(t, 1, doc.Metadata.WarningCount)
	assert.Equal(t, 0, doc.Metadata.DebugCount)
}

func TestReadNotFound(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = a.Read("2024-03-01", KindLog)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadExceptionFile(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	content := `[req-123]

Traceback (most recent call last):
  frame one
  frame two
Exception: something broke
------------------
[req-456]

  lone frame
Exception: other failure
------------------
`
	writeFile(t, dir, "exception_2024-03-01.log", content)

	doc, err := a.Read("2024-03-01", KindException)
	require.NoError(t, err)

	require.Len(t, doc.Entries, 2)
	assert.Equal(t, 2, doc.Metadata.ErrorCount)

	first := doc.Entries[0]
	assert.Equal(t, "req-123", first["request_id"])
	assert.Equal(t, "something broke", first["error_message"])
	assert.Equal(t, []string{"frame one", "frame two"}, first["traceback"])
	assert.Equal(t, "ERROR", first["level"])

	second := doc.Entries[1]
	assert.Equal(t, "req-456", second["request_id"])
	assert.Equal(t, "other failure", second["error_message"])
}

func TestReadExceptionBlockWithoutSentinelAtEOF(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	content := "[req-789]\n\nframe\nException: truncated"
	writeFile(t, dir, "exception_2024-03-02.log", content)

	doc, err := a.Read("2024-03-02", KindException)
	require.NoError(t, err)

	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "req-789", doc.Entries[0]["request_id"])
	assert.Equal(t, "truncated", doc.Entries[0]["error_message"])
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	writeFile(t, dir, "log_2024-03-01.log", "{}")

	require.NoError(t, a.Delete("2024-03-01", KindLog))
	_, err = os.Stat(filepath.Join(dir, "log_2024-03-01.log"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, a.Delete("2024-03-01", KindLog), ErrNotFound)
}
