package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a config value such as "debug" or "WARN" to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return INFO, nil
	case "DEBUG":
		return DEBUG, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

type Logger struct {
	level  Level
	prefix string
	logger *log.Logger
}

func New(out io.Writer, level Level) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(out, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// Discard returns a logger that drops everything, used when a caller passes nil
func Discard() *Logger {
	return New(io.Discard, ERROR+1)
}

// OrDiscard lets every layer accept a nil logger
func OrDiscard(l *Logger) *Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// With returns a child logger that tags every line with the component name
func (l *Logger) With(component string) *Logger {
	return &Logger{
		level:  l.level,
		prefix: l.prefix + "[" + component + "] ",
		logger: l.logger,
	}
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.logger.Printf(level.String()+" "+l.prefix+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logf(DEBUG, format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logf(INFO, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logf(WARN, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logf(ERROR, format, args...)
}
