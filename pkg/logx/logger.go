package logx

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelTrace = zerolog.TraceLevel
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel

	// LevelCritical is written as "fatal" but never terminates the process.
	LevelCritical = zerolog.FatalLevel
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// callerDepth skips runtime.Caller, emit and the exported level method.
const callerDepth = 3

var globalsOnce sync.Once

func initGlobals() {
	globalsOnce.Do(func() {
		zerolog.ErrorFieldName = "err"
		zerolog.TimeFieldFormat = timeLayout
	})
}

// Logger writes structured events. Loggers derived from a Service follow its
// reconfigurations. The zero Logger discards everything.
type Logger struct {
	svc    *Service
	fixed  *zerolog.Logger
	fields []Field
}

// Nop returns a logger that never writes anything.
func Nop() Logger {
	zl := zerolog.Nop()
	return Logger{fixed: &zl}
}

// NewConsole is a standalone human-readable logger on stdout, used before the
// config has been read.
func NewConsole(level string) Logger {
	initGlobals()
	zl := build(LevelInfo, level, consoleWriter(Stdout()))
	return Logger{fixed: &zl}
}

// NewJSON is a standalone logger writing one JSON object per line to w.
func NewJSON(w io.Writer, level string) Logger {
	initGlobals()
	zl := build(LevelDebug, level, w)
	return Logger{fixed: &zl}
}

func build(def Level, level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level, def)).With().Timestamp().Logger()
}

func (l Logger) IsZero() bool { return l.svc == nil && l.fixed == nil && len(l.fields) == 0 }

func (l Logger) target() *zerolog.Logger {
	switch {
	case l.svc != nil:
		return l.svc.current()
	case l.fixed != nil:
		return l.fixed
	}
	return nil
}

// With returns a child logger carrying fields on every event.
func (l Logger) With(fields ...Field) Logger {
	if len(fields) > 0 {
		l.fields = append(l.fields[:len(l.fields):len(l.fields)], fields...)
	}
	return l
}

func (l Logger) Trace(msg string, fields ...Field) { l.emit(LevelTrace, msg, fields) }
func (l Logger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

// Critical logs at the highest level and returns; exiting is up to the caller.
func (l Logger) Critical(msg string, fields ...Field) { l.emit(LevelCritical, msg, fields) }

func (l Logger) emit(level Level, msg string, fields []Field) {
	zl := l.target()
	if zl == nil {
		return
	}
	e := zl.WithLevel(level)
	if e == nil {
		return
	}
	if _, file, line, ok := runtime.Caller(callerDepth - 1); ok {
		e.Str(zerolog.CallerFieldName, filepath.Base(file)+":"+strconv.Itoa(line))
	}
	apply(e, l.fields, fields)
	e.Msg(msg)
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:          w,
		TimeFormat:   timeLayout,
		FormatCaller: plainCaller,
	}
}

func plainCaller(i any) string {
	s, _ := i.(string)
	return s
}

var levelAliases = map[string]Level{
	"warning":  LevelWarn,
	"critical": LevelCritical,
}

// ParseLevel maps a config string to a level, falling back to def for empty or
// unknown input. Besides zerolog's own names it accepts "warning" and
// "critical".
func ParseLevel(s string, def Level) Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if lvl, ok := levelAliases[s]; ok {
		return lvl
	}
	if s == "" {
		return def
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel || lvl == zerolog.Disabled || lvl == zerolog.PanicLevel {
		return def
	}
	return lvl
}

// Stdout returns the configured stdout sink.
func Stdout() io.Writer { return os.Stdout }

// Stderr returns the configured stderr sink.
func Stderr() io.Writer { return os.Stderr }
