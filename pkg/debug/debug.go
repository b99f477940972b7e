// Package debug provides conditional debug logging for dt.
//
// Debug logging is enabled by setting the DT_DEBUG environment variable:
//
//	DT_DEBUG=1 dt --edit-profile p-123
//
// Messages go to stderr (or the file named by DT_DEBUG_FILE, which keeps the
// TUI screen clean) with timestamps. When disabled, every function returns
// immediately.
package debug

import (
	"io"
	"log"
	"os"
	"time"
)

var (
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("DT_DEBUG") == "" {
		return
	}
	var out io.Writer = os.Stderr
	if path := os.Getenv("DT_DEBUG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}
	SetOutput(out)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetOutput enables logging to w. A nil writer disables logging.
func SetOutput(w io.Writer) {
	if w == nil {
		enabled = false
		logger = nil
		return
	}
	enabled = true
	logger = log.New(w, "[DT_DEBUG] ", log.Ltime|log.Lmicroseconds)
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes how long name took.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs function entry and exit with timing:
//
//	defer debug.LogEnterExit("LoadCatalogs")()
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}
