package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	UserID    *string                `json:"user_id,omitempty"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// Logger writes one JSON object per line.
type Logger struct {
	mu     sync.Mutex
	output io.Writer
	debug  bool
}

var globalLogger *Logger

func New(output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{output: output}
}

// Init installs a stdout logger as the package-level logger.
func Init() {
	globalLogger = New(os.Stdout)
}

// SetOutput replaces the package-level logger. Passing nil disables package-level logging.
func SetOutput(output io.Writer) {
	if output == nil {
		globalLogger = nil
		return
	}
	globalLogger = New(output)
}

// EnableDebug turns on debug entries for l.
func (l *Logger) EnableDebug(enabled bool) *Logger {
	l.debug = enabled
	return l
}

func (l *Logger) log(level LogLevel, action string, userID *string, details map[string]interface{}, err error) {
	if level == LevelDebug && !l.debug {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		UserID:    userID,
		Action:    action,
		Details:   details,
		Caller:    caller(),
	}

	if err != nil {
		entry.Error = err.Error()
	}

	data, _ := json.Marshal(entry)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.output == os.Stdout {
		var colorCode string
		switch level {
		case LevelError:
			colorCode = "\033[31m"
		case LevelWarn:
			colorCode = "\033[33m"
		case LevelDebug:
			colorCode = "\033[90m"
		default:
			colorCode = "\033[36m"
		}
		fmt.Fprintf(l.output, "%s%s\033[0m\n", colorCode, string(data))
		return
	}
	fmt.Fprintf(l.output, "%s\n", string(data))
}

func (l *Logger) Debug(action string, details map[string]interface{}) {
	l.log(LevelDebug, action, nil, details, nil)
}

func (l *Logger) Info(action string, details map[string]interface{}) {
	l.log(LevelInfo, action, nil, details, nil)
}

func (l *Logger) Warn(action string, details map[string]interface{}) {
	l.log(LevelWarn, action, nil, details, nil)
}

func (l *Logger) Error(action string, err error, details map[string]interface{}) {
	l.log(LevelError, action, nil, details, err)
}

func Info(action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelInfo, action, nil, details, nil)
	}
}

func InfoWithUser(userID string, action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelInfo, action, &userID, details, nil)
	}
}

func Warn(action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelWarn, action, nil, details, nil)
	}
}

func WarnWithUser(userID string, action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelWarn, action, &userID, details, nil)
	}
}

func Error(action string, err error, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelError, action, nil, details, err)
	}
}

func ErrorWithUser(userID string, action string, err error, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelError, action, &userID, details, err)
	}
}

func caller() string {
	if _, file, line, ok := runtime.Caller(3); ok {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}

func GenerateRequestID() string {
	return uuid.New().String()
}
