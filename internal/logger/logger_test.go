package logger_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crut0i/weatherapp/internal/logarchive"
	"github.com/crut0i/weatherapp/internal/logger"
)

func TestWritesJSONLinesToDatedFile(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.New(dir)
	require.NoError(t, err)
	defer log.Close()

	log.Info("service started", zap.String("type", "server"))
	log.Warn("upstream slow")
	require.NoError(t, log.Sync())

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, "log_"+date+".log"))
	require.NoError(t, err)

	var levels []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		levels = append(levels, entry["level"].(string))
	}
	assert.Equal(t, []string{"INFO", "WARNING"}, levels)
}

func TestErrorWithTracebackWritesExceptionBlock(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.New(dir)
	require.NoError(t, err)
	defer log.Close()

	stack := "goroutine 1 [running]:\nmain.main()\n\t/app/main.go:10\n"
	log.Error("request failed",
		zap.String("request_id", "req-42"),
		logger.Traceback([]byte(stack)),
	)
	require.NoError(t, log.Sync())

	date := time.Now().Format("2006-01-02")

	// The log entry keeps request_id but not the raw traceback.
	logData, err := os.ReadFile(filepath.Join(dir, "log_"+date+".log"))
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(logData))), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.NotContains(t, entry, "traceback")

	excData, err := os.ReadFile(filepath.Join(dir, "exception_"+date+".log"))
	require.NoError(t, err)
	text := string(excData)
	assert.True(t, strings.HasPrefix(text, "[req-42]\n"))
	assert.Contains(t, text, "main.main()")
	assert.Contains(t, text, logger.Sentinel+"\n")
}

func TestExceptionBlocksReadableByArchive(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.New(dir)
	require.NoError(t, err)
	defer log.Close()

	log.Error("first failure",
		zap.String("request_id", "req-1"),
		logger.Traceback([]byte("frame a\nframe b\nException: kaboom")),
	)
	log.Error("second failure",
		zap.String("request_id", "req-2"),
		logger.Traceback([]byte("frame c")),
	)
	require.NoError(t, log.Sync())

	archive, err := logarchive.New(dir)
	require.NoError(t, err)

	date := time.Now().Format("2006-01-02")
	doc, err := archive.Read(date, logarchive.KindException)
	require.NoError(t, err)

	require.Len(t, doc.Entries, 2)
	assert.Equal(t, "req-1", doc.Entries[0]["request_id"])
	assert.Equal(t, "kaboom", doc.Entries[0]["error_message"])
	assert.Equal(t, "req-2", doc.Entries[1]["request_id"])
}
