package minilog

import (
	"fmt"
	"io"
	golog "log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

type logger interface {
	Println(...interface{})
}

type minilogger struct {
	logger

	Level   Level
	Color   bool
	filters []string
}

func (l *minilogger) prologue(level Level, name string) (msg string) {
	switch level {
	case TRACE:
		msg += "TRACE "
	case DEBUG:
		msg += "DEBUG "
	case INFO:
		msg += "INFO "
	case WARN:
		msg += "WARN "
	case ERROR:
		msg += "ERROR "
	default:
		msg += "FATAL "
	}

	if name == "" {
		_, file, line, _ := runtime.Caller(4)
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		msg += short + ":" + strconv.Itoa(line) + ": "
	} else {
		msg += name + ": "
	}

	if l.Color {
		msg = FgYellow + msg
		switch level {
		case TRACE, DEBUG:
			msg += FgBlue
		case INFO:
			msg += FgGreen
		case WARN:
			msg += FgYellow
		default:
			msg += FgRed
		}
	}
	return
}

func (l *minilogger) epilogue() string {
	if l.Color {
		return Reset
	}
	return ""
}

func (l *minilogger) log(level Level, name, format string, arg ...interface{}) {
	msg := l.prologue(level, name) + fmt.Sprintf(format, arg...) + l.epilogue()
	for _, f := range l.filters {
		if strings.Contains(msg, f) {
			return
		}
	}
	l.Println(msg)
}

func (l *minilogger) logln(level Level, name string, arg ...interface{}) {
	msg := l.prologue(level, name) + fmt.Sprint(arg...) + l.epilogue()
	for _, f := range l.filters {
		if strings.Contains(msg, f) {
			return
		}
	}
	l.Println(msg)
}

var (
	loggers = make(map[string]*minilogger)
	logLock sync.RWMutex
)

// AddLogger adds a logger that only emits events at level or higher.
func AddLogger(name string, output io.Writer, level Level, color bool) {
	logLock.Lock()
	defer logLock.Unlock()

	loggers[name] = &minilogger{
		logger: golog.New(output, "", golog.LstdFlags),
		Level:  level,
		Color:  color,
	}
}

// DelLogger removes a named logger previously added with AddLogger.
func DelLogger(name string) {
	logLock.Lock()
	defer logLock.Unlock()

	delete(loggers, name)
}

func Loggers() []string {
	logLock.RLock()
	defer logLock.RUnlock()

	var ret []string
	for k := range loggers {
		ret = append(ret, k)
	}
	return ret
}

// WillLog reports whether logging at level would reach any registered
// logger. Useful when the message itself is expensive to build.
func WillLog(level Level) bool {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, v := range loggers {
		if v.Level <= level {
			return true
		}
	}
	return false
}

func SetLevel(name string, level Level) error {
	logLock.Lock()
	defer logLock.Unlock()

	if loggers[name] == nil {
		return fmt.Errorf("no such logger %v", name)
	}
	loggers[name].Level = level
	return nil
}

func AddFilter(name, filter string) error {
	logLock.Lock()
	defer logLock.Unlock()

	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("no such logger %v", name)
	}
	for _, f := range l.filters {
		if f == filter {
			return nil
		}
	}
	l.filters = append(l.filters, filter)
	return nil
}

func DelFilter(name, filter string) error {
	logLock.Lock()
	defer logLock.Unlock()

	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("no such logger %v", name)
	}
	for i, f := range l.filters {
		if f == filter {
			l.filters = append(l.filters[:i], l.filters[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("filter %v does not exist", filter)
}

func logAll(level Level, name, format string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, logger := range loggers {
		if logger.Level <= level {
			logger.log(level, name, format, arg...)
		}
	}
}

func loglnAll(level Level, name string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, logger := range loggers {
		if logger.Level <= level {
			logger.logln(level, name, arg...)
		}
	}
}

func Trace(format string, arg ...interface{}) { logAll(TRACE, "", format, arg...) }
func Debug(format string, arg ...interface{}) { logAll(DEBUG, "", format, arg...) }
func Info(format string, arg ...interface{})  { logAll(INFO, "", format, arg...) }
func Warn(format string, arg ...interface{})  { logAll(WARN, "", format, arg...) }
func Error(format string, arg ...interface{}) { logAll(ERROR, "", format, arg...) }

func Fatal(format string, arg ...interface{}) {
	logAll(FATAL, "", format, arg...)
	os.Exit(1)
}

func Debugln(arg ...interface{}) { loglnAll(DEBUG, "", arg...) }
func Infoln(arg ...interface{})  { loglnAll(INFO, "", arg...) }
func Warnln(arg ...interface{})  { loglnAll(WARN, "", arg...) }
func Errorln(arg ...interface{}) { loglnAll(ERROR, "", arg...) }

func Fatalln(arg ...interface{}) {
	loglnAll(FATAL, "", arg...)
	os.Exit(1)
}
