// Package logx is the levelled logger shared by all services. Host builds
// colour the output; MCU builds print plain lines.
package logx

import (
	"strings"
	"sync"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	OffLevel
)

var (
	mu    sync.Mutex
	level = InfoLevel
)

// ParseLevel maps "debug", "info", "warn", "error" and "off" to a Level.
// Unknown strings map to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "off", "none":
		return OffLevel
	default:
		return InfoLevel
	}
}

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func Debug(format string, v ...any) { logf(DebugLevel, "[DEBUG] ", format, v) }
func Info(format string, v ...any)  { logf(InfoLevel, "[INFO] ", format, v) }
func Warn(format string, v ...any)  { logf(WarnLevel, "[WARN] ", format, v) }
func Error(format string, v ...any) { logf(ErrorLevel, "[ERROR] ", format, v) }

func logf(lvl Level, prefix, format string, v []any) {
	mu.Lock()
	defer mu.Unlock()
	if level > lvl {
		return
	}
	write(lvl, prefix, format, v)
}
