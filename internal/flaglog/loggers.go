// Package flaglog provides the small level-aware logging abstraction used throughout this module.
//
// It is deliberately independent of any particular logging backend: callers configure it with any
// type satisfying BaseLogger (which *log.Logger already does), optionally overriding the backend
// used for a single level. This mirrors the way the rest of the pipeline treats its other external
// collaborators (event sender, feature store): behavior is pluggable, the default is a thin stdlib
// wrapper.
package flaglog

import (
	"io/ioutil"
	"log"
	"os"
)

// LogLevel represents a logging level.
type LogLevel int

// Defined log levels, in ascending order of severity.
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	None
)

func (l LogLevel) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return ""
	}
}

// BaseLogger is the minimal interface a logging backend must provide. *log.Logger satisfies it.
type BaseLogger interface {
	Println(values ...interface{})
	Printf(format string, values ...interface{})
}

// Loggers holds a set of per-level loggers plus a minimum level below which output is discarded.
// The zero value is ready to use: on first use it logs Info level and above to os.Stderr, until
// SetBaseLogger, SetBaseLoggerForLevel or SetMinLevel changes that.
type Loggers struct {
	loggersByLevel [4]BaseLogger
	minLevel       LogLevel
	initialized    bool
}

func (l *Loggers) init() {
	if l.initialized {
		return
	}
	l.minLevel = Info
	basic := log.New(os.Stderr, "", log.LstdFlags)
	for i := range l.loggersByLevel {
		if l.loggersByLevel[i] == nil {
			l.loggersByLevel[i] = basic
		}
	}
	l.initialized = true
}

// SetBaseLogger sets the underlying logger used for all levels that have not been individually
// overridden with SetBaseLoggerForLevel.
func (l *Loggers) SetBaseLogger(logger BaseLogger) {
	l.init()
	for i := range l.loggersByLevel {
		l.loggersByLevel[i] = logger
	}
}

// SetBaseLoggerForLevel overrides the logger used for a single level.
func (l *Loggers) SetBaseLoggerForLevel(level LogLevel, logger BaseLogger) {
	l.init()
	l.loggersByLevel[level] = logger
}

// SetMinLevel sets the minimum level that will be logged; messages below it are discarded.
func (l *Loggers) SetMinLevel(level LogLevel) {
	l.init()
	l.minLevel = level
}

func (l *Loggers) loggerAt(level LogLevel) BaseLogger {
	l.init()
	if level < l.minLevel {
		return nil
	}
	return l.loggersByLevel[level]
}

func (l *Loggers) print(level LogLevel, values ...interface{}) {
	if logger := l.loggerAt(level); logger != nil {
		logger.Println(append([]interface{}{level.String() + ":"}, values...)...)
	}
}

func (l *Loggers) printf(level LogLevel, format string, values ...interface{}) {
	if logger := l.loggerAt(level); logger != nil {
		logger.Printf(level.String()+": "+format, values...)
	}
}

// Debug logs a message at Debug level.
func (l *Loggers) Debug(values ...interface{}) { l.print(Debug, values...) }

// Debugf logs a formatted message at Debug level.
func (l *Loggers) Debugf(format string, values ...interface{}) { l.printf(Debug, format, values...) }

// Info logs a message at Info level.
func (l *Loggers) Info(values ...interface{}) { l.print(Info, values...) }

// Infof logs a formatted message at Info level.
func (l *Loggers) Infof(format string, values ...interface{}) { l.printf(Info, format, values...) }

// Warn logs a message at Warn level.
func (l *Loggers) Warn(values ...interface{}) { l.print(Warn, values...) }

// Warnf logs a formatted message at Warn level.
func (l *Loggers) Warnf(format string, values ...interface{}) { l.printf(Warn, format, values...) }

// Error logs a message at Error level.
func (l *Loggers) Error(values ...interface{}) { l.print(Error, values...) }

// Errorf logs a formatted message at Error level.
func (l *Loggers) Errorf(format string, values ...interface{}) { l.printf(Error, format, values...) }

// NewDisabledLoggers returns a Loggers value that discards all output, useful in tests.
func NewDisabledLoggers() Loggers {
	l := Loggers{}
	l.SetBaseLogger(log.New(ioutil.Discard, "", 0))
	l.SetMinLevel(None)
	return l
}
