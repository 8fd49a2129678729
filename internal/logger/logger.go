// Package logger writes structured JSON log lines to date-stamped files the
// way the log archive endpoints expect them: one JSON object per line in
// log_<date>.log, and multi-line exception blocks terminated by a sentinel
// line in exception_<date>.log.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sentinel terminates an exception block inside exception_<date>.log.
const Sentinel = "------------------"

// Logger wraps zap with an extra sink for exception tracebacks. A "traceback"
// field attached to an error entry is stripped before emission and written to
// the exception file instead.
type Logger struct {
	zap     *zap.Logger
	logFile *rollingFile
	excFile *rollingFile
}

// Traceback attaches a stack trace to a log entry. The logger extracts it
// before the entry is emitted.
func Traceback(stack []byte) zap.Field {
	return zap.String("traceback", string(stack))
}

// New creates a Logger writing to dir, creating it if needed.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create dir: %w", err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	logFile := newRollingFile(dir, "log")
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(logFile)),
		zapcore.InfoLevel,
	)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)

	return &Logger{
		zap:     zap.New(zapcore.NewTee(fileCore, consoleCore)),
		logFile: logFile,
		excFile: newRollingFile(dir, "exception"),
	}, nil
}

// encodeLevel emits the level names the archive reader counts on.
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == zapcore.WarnLevel {
		enc.AppendString("WARNING")
		return
	}
	enc.AppendString(l.CapitalString())
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs an error entry. If a Traceback field is present it is stripped
// and written as a block to the exception file, keyed by the entry's
// request_id field when one is given.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	kept, traceback, requestID := splitTraceback(fields)
	if traceback != "" {
		l.writeException(requestID, traceback)
	}
	l.zap.Error(msg, kept...)
}

func splitTraceback(fields []zap.Field) (kept []zap.Field, traceback, requestID string) {
	kept = make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch f.Key {
		case "traceback":
			traceback = f.String
			continue
		case "request_id":
			requestID = f.String
		}
		kept = append(kept, f)
	}
	return kept, traceback, requestID
}

func (l *Logger) writeException(requestID, traceback string) {
	block := fmt.Sprintf("[%s]\n\n%s\n%s\n", requestID, strings.TrimRight(traceback, "\n"), Sentinel)
	if _, err := l.excFile.Write([]byte(block)); err != nil {
		l.zap.Error("failed to write exception block", zap.Error(err))
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Close flushes and closes the underlying files.
func (l *Logger) Close() error {
	_ = l.zap.Sync()
	if err := l.logFile.Close(); err != nil {
		return err
	}
	return l.excFile.Close()
}
