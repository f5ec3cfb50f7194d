// Package minilog extends Go's logging functionality to allow for multiple
// loggers, each one with their own logging level. Call AddLogger() to set up
// each desired logger, then use the package-level logging functions to send
// messages to all defined loggers.
package minilog

import (
	"errors"
	"fmt"
)

type Level int

// Log levels supported, lowest to highest severity.
const (
	_ Level = iota
	TRACE
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
)

// ParseLevel returns the log level for a string, as used by -level flags.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "trace":
		return TRACE, nil
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return 0, errors.New("invalid log level")
}

func (l *Level) Set(s string) (err error) {
	*l, err = ParseLevel(s)
	return
}

func (l Level) String() string {
	switch l {
	case TRACE:
		return "trace"
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	case FATAL:
		return "fatal"
	}
	return fmt.Sprintf("Level(%d)", l)
}
