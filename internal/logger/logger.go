package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
)

var (
	currentLevel = LevelInfo
	mu           sync.Mutex
)

// SetLevel sets the global log level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = l
}

// ParseLevel maps a config string ("error", "warn", "info") to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Setup initializes the standard logger output.
func Setup(w io.Writer) {
	log.SetOutput(w)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

func enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel >= l
}

// Info logs informative messages if the level allows.
func Info(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		output("INFO: "+format, v...)
	}
}

// Warn logs conditions that were handled but deserve attention.
func Warn(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		output("WARN: "+format, v...)
	}
}

// Error logs error messages.
func Error(format string, v ...interface{}) {
	if enabled(LevelError) {
		output("ERROR: "+format, v...)
	}
}

// Fatal logs independent of error level and exits.
func Fatal(format string, v ...interface{}) {
	output("FATAL: "+format, v...)
	os.Exit(1)
}

func output(format string, v ...interface{}) {
	// Calldepth 3 to skip this function, Info/Warn/Error, and get to caller
	log.Output(3, fmt.Sprintf(format, v...))
}
