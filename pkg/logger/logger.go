// Package logger provides leveled logging on top of the standard log package.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type Logger struct {
	level  Level
	json   bool
	logger *log.Logger
}

type entry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
}

var (
	mu            sync.RWMutex
	defaultLogger = &Logger{level: InfoLevel, logger: log.New(os.Stderr, "", log.LstdFlags)}
)

// Init replaces the default logger. format "text" writes prefixed lines with
// the caller file, "json" writes one object per line with time, level and msg.
func Init(level string, format string) {
	InitWithWriter(os.Stderr, level, format)
}

func InitWithWriter(w io.Writer, level string, format string) {
	asJSON := strings.ToLower(format) == "json"
	flags := log.LstdFlags | log.Lmicroseconds
	switch {
	case asJSON:
		flags = 0
	case strings.ToLower(format) == "text":
		flags |= log.Lshortfile
	}

	mu.Lock()
	defer mu.Unlock()
	defaultLogger = &Logger{
		level:  ParseLevel(level),
		json:   asJSON,
		logger: log.New(w, "", flags),
	}
}

func output(l Level, prefix, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if defaultLogger.level > l {
		return
	}
	if !defaultLogger.json {
		_ = defaultLogger.logger.Output(3, fmt.Sprintf(prefix+format, args...))
		return
	}
	line, err := json.Marshal(entry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   strings.ToLower(strings.Trim(prefix, "[] ")),
		Message: fmt.Sprintf(format, args...),
	})
	if err != nil {
		line = []byte(fmt.Sprintf(prefix+format, args...))
	}
	_ = defaultLogger.logger.Output(3, string(line))
}

func Debug(format string, args ...interface{}) {
	output(DebugLevel, "[DEBUG] ", format, args...)
}

func Info(format string, args ...interface{}) {
	output(InfoLevel, "[INFO] ", format, args...)
}

func Warn(format string, args ...interface{}) {
	output(WarnLevel, "[WARN] ", format, args...)
}

func Error(format string, args ...interface{}) {
	output(ErrorLevel, "[ERROR] ", format, args...)
}

// Fatal logs regardless of level and exits.
func Fatal(format string, args ...interface{}) {
	output(ErrorLevel+1, "[FATAL] ", format, args...)
	os.Exit(1)
}
