package core

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

var loggerInstance Logger = *NewDevelopmentLogger()

// SetLogger sets the global logger instance.
func SetLogger(logger Logger) {
	loggerInstance = logger
}

// GetLogger retrieves the global logger instance.
func GetLogger() *Logger {
	return &loggerInstance
}

// Logger routes leveled log lines through a pluggable handler function,
// carrying a set of bound attributes.
type Logger struct {
	handlerFunc func(level string, msg string, attrs map[string]interface{})
	attrs       map[string]interface{}
}

func NewLogger(handler func(level string, msg string, attrs map[string]interface{})) *Logger {
	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
	}
}

// NewDevelopmentLogger creates a logger with plain console output.
func NewDevelopmentLogger() *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		var b strings.Builder
		b.WriteString(time.Now().Format(time.RFC3339))
		b.WriteString(" [" + level + "] " + msg)
		if len(attrs) > 0 {
			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString(" |")
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, attrs[k])
			}
		}
		b.WriteByte('\n')
		if level == "FATAL" {
			fmt.Fprint(os.Stderr, b.String())
			os.Exit(1)
		}
		fmt.Print(b.String())
	}

	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
	}
}

func (l *Logger) log(level string, msg string, args ...interface{}) {
	if l.handlerFunc == nil {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.handlerFunc(level, msg, l.attrs)
}

func (l *Logger) Debug(msg string)                          { l.log("DEBUG", msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.log("DEBUG", format, args...) }
func (l *Logger) Info(msg string)                           { l.log("INFO", msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log("INFO", format, args...) }
func (l *Logger) Warn(msg string)                           { l.log("WARN", msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log("WARN", format, args...) }
func (l *Logger) Error(msg string)                          { l.log("ERROR", msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log("ERROR", format, args...) }
func (l *Logger) Fatal(msg string)                          { l.log("FATAL", msg) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.log("FATAL", format, args...) }

// With returns a child logger carrying additional bound attributes.
func (l *Logger) With(attrs map[string]interface{}) *Logger {
	combined := make(map[string]interface{}, len(l.attrs)+len(attrs))
	for k, v := range l.attrs {
		combined[k] = v
	}
	for k, v := range attrs {
		combined[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       combined,
	}
}
