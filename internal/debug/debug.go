package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/jslibsig/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// LevelCritical sits above slog.LevelError for failures that lose work
// but do not stop the run.
const LevelCritical = slog.Level(12)

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugFile holds the open file handle if debug output goes to a file
var debugFile *os.File

// verbose is set by the CLI --verbose flag
var verbose bool

// debugMutex protects access to debug output and the leveled logger
var debugMutex sync.Mutex

var logger = newLogger(os.Stderr)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}))
}

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// SetVerbose turns debug output on regardless of the environment.
func SetVerbose(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	verbose = enabled
}

// SetLogger replaces the leveled logger used by Info, Warn, Error and Critical.
func SetLogger(l *slog.Logger) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	if l == nil {
		l = newLogger(os.Stderr)
	}
	logger = l
}

// SetLogOutput points the leveled logger at w with the default text format.
func SetLogOutput(w io.Writer) {
	SetLogger(newLogger(w))
}

// Logger returns the current leveled logger.
func Logger() *slog.Logger {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return logger
}

// InitDebugLogFile initializes debug logging to a file.
// Returns the path to the log file, or an error if initialization fails.
// Call CloseDebugLog when done to ensure the file is properly closed.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "jslibsig-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled returns true if debug mode is enabled
func IsDebugEnabled() bool {
	debugMutex.Lock()
	v := verbose
	debugMutex.Unlock()
	if v {
		return true
	}

	// Check build flag first
	if EnableDebug == "true" {
		return true
	}

	// Allow runtime override via environment variable
	if os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		return true
	}

	return false
}

// getDebugWriter returns the writer for debug output, or nil if none is configured
func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information only when debug mode is enabled and output is configured
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG] "+format, args...)
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogIndexing provides debug logging specifically for indexing operations
func LogIndexing(format string, args ...interface{}) {
	Log("INDEX", format, args...)
}

// LogRecognition provides debug logging for corpus loading and matching
func LogRecognition(format string, args ...interface{}) {
	Log("RECOGNIZE", format, args...)
}

// LogParser provides debug logging for parsing and feature extraction
func LogParser(format string, args ...interface{}) {
	Log("PARSER", format, args...)
}

// Info logs a run-level progress message.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a recoverable failure, typically one skipped file.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs a failure that ends the current run.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Critical logs lost work that the run survives, such as a batch that
// exhausted its insert retries.
func Critical(msg string, args ...any) {
	Logger().Log(context.Background(), LevelCritical, msg, args...)
}
