// Package logging holds the process-wide charmbracelet logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// KeepLogs is how many dated log files Init leaves behind.
const KeepLogs = 7

const filePrefix = "emograph-"

var (
	// Logger is nil until Init or InitWriter runs.
	Logger *log.Logger

	logFile *os.File
)

// Init opens today's log file under dir/logs and prunes older ones. The TUI
// owns stdout, so play logs here.
func Init(dir string) error {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	name := filePrefix + time.Now().Format("2006-01-02") + ".log"
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	Logger = log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.DebugLevel,
	})

	if removed, err := Prune(logDir, KeepLogs); err != nil {
		Logger.Warn("log prune", "err", err)
	} else if removed > 0 {
		Logger.Debug("pruned old logs", "removed", removed)
	}
	return nil
}

// InitWriter logs to w at the given level. serve uses stderr.
func InitWriter(w io.Writer, level log.Level) {
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
	})
}

// Prune deletes all but the newest keep dated log files in logDir. File
// names sort by date, so lexical order is age order.
func Prune(logDir string, keep int) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return 0, err
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= keep {
		return 0, nil
	}
	sort.Strings(logs)

	removed := 0
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(logDir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Path returns the open log file, or "" when logging elsewhere.
func Path() string {
	if logFile == nil {
		return ""
	}
	return logFile.Name()
}

func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// WithPrefix returns a prefixed logger. Before Init it discards.
func WithPrefix(prefix string) *log.Logger {
	if Logger != nil {
		return Logger.WithPrefix(prefix)
	}
	return log.New(io.Discard)
}
