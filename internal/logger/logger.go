// Package logger provides a run-scoped file+stdout logger for the
// backtest and walk-forward-analysis engine, adapted from the teacher's
// per-symbol file logger (internal/logger/file_logger.go) but scoped to a
// run id instead of a trading symbol/interval.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level tags the kind of line being written.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelDebug Level = "DEBUG"
	LevelBatch Level = "BATCH"
	LevelWFA   Level = "WFA"
)

// Logger writes timestamped, leveled lines to a log file and to stdout.
type Logger struct {
	runID     string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	debugMode bool
}

// New creates a logger for one engine run, writing under dir/<runID>.log.
// dir is created if missing; an empty dir disables file output (stdout only).
func New(runID, dir string, debugMode bool) (*Logger, error) {
	l := &Logger{runID: runID, debugMode: debugMode}

	var writers []io.Writer = []io.Writer{os.Stdout}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, runID+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.logFile = f
		writers = append(writers, f)
	}

	l.logger = log.New(io.MultiWriter(writers...), "", 0)
	return l, nil
}

// Close releases the underlying file handle, if any.
func (l *Logger) Close() error {
	if l.logFile == nil {
		return nil
	}
	return l.logFile.Close()
}

func (l *Logger) write(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("%s [%s] run=%s %s", time.Now().UTC().Format(time.RFC3339), level, l.runID, msg)
}

func (l *Logger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.write(LevelError, format, args...) }
func (l *Logger) Batch(format string, args ...any) { l.write(LevelBatch, format, args...) }
func (l *Logger) WFA(format string, args ...any)   { l.write(LevelWFA, format, args...) }

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugMode {
		return
	}
	l.write(LevelDebug, format, args...)
}
