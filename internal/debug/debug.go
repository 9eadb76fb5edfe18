package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/opensquiggly/spinach-sub000/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	debugMutex  sync.Mutex
	debugOutput io.Writer
	debugFile   *os.File
	forced      bool

	// logger is rebuilt whenever the output or enablement changes.
	logger = zap.NewNop()
)

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
	rebuildLocked()
}

// SetLogger installs a caller-built logger (tests use an observer core).
// Passing nil restores the writer-based logger.
func SetLogger(l *zap.Logger) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	if l == nil {
		rebuildLocked()
		return
	}
	logger = l
}

// Enable forces debug output on regardless of build flag and environment.
func Enable(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	forced = enabled
	rebuildLocked()
}

// InitDebugLogFile initializes debug logging to a file.
// Returns the path to the log file, or an error if initialization fails.
// Call CloseDebugLog when done to ensure the file is properly closed.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "spinach-debug-logs")
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
	rebuildLocked()
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile == nil {
		return nil
	}
	_ = logger.Sync()
	err := debugFile.Close()
	debugFile = nil
	debugOutput = nil
	rebuildLocked()
	return err
}

// IsDebugEnabled returns true if debug mode is enabled by build flag,
// environment (DEBUG=1|true) or Enable.
func IsDebugEnabled() bool {
	if forced || EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func rebuildLocked() {
	if debugOutput == nil || !IsDebugEnabled() {
		logger = zap.NewNop()
		return
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(debugOutput),
		zapcore.DebugLevel,
	)
	logger = zap.New(core)
}

// Logger returns the structured debug logger. It is a no-op logger unless
// debugging is enabled and an output is configured.
func Logger() *zap.Logger {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return logger
}

// Printf prints debug information only when debug mode is enabled and output is configured
func Printf(format string, args ...interface{}) {
	Logger().Sugar().Debugf(format, args...)
}

// Log provides component-scoped debug logging
func Log(component, format string, args ...interface{}) {
	Logger().Named(component).Sugar().Debugf(format, args...)
}

// LogIndexing provides debug logging specifically for indexing operations
func LogIndexing(format string, args ...interface{}) {
	Log("INDEX", format, args...)
}

// LogSearch provides debug logging specifically for search operations
func LogSearch(format string, args ...interface{}) {
	Log("SEARCH", format, args...)
}
