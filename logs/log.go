package logs

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Log levels, lowest (most verbose) first.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarning
	LevelError
)

var logLevel atomic.Int32

type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

var logger *Logger

func init() {
	logLevel.Store(LevelInfo)
	logger = &Logger{
		debugLogger: log.New(os.Stdout, "[DEBUG] ", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile),
		infoLogger:  log.New(os.Stdout, "[INFO]  ", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile),
		warnLogger:  log.New(os.Stdout, "[WARN]  ", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile),
		errorLogger: log.New(os.Stderr, "[ERROR] ", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile),
	}
}

// SetLevel sets the global level from its name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged and return false.
func SetLevel(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		logLevel.Store(LevelDebug)
	case "info", "":
		logLevel.Store(LevelInfo)
	case "warn", "warning":
		logLevel.Store(LevelWarning)
	case "error":
		logLevel.Store(LevelError)
	default:
		return false
	}
	return true
}

func Level() int {
	return int(logLevel.Load())
}

func Debug(format string, v ...interface{}) {
	if Level() <= LevelDebug {
		logger.debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if Level() <= LevelInfo {
		logger.infoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warn(format string, v ...interface{}) {
	if Level() <= LevelWarning {
		logger.warnLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Error(format string, v ...interface{}) {
	if Level() <= LevelError {
		logger.errorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}
