package log

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// Only the first stack line is needed: "goroutine 123 [running]:".
	stackBufSize = 32
	// Shortest stack header that can still carry an id.
	minStackHeaderLen = 12
	// len("goroutine ").
	goroutinePrefixLen = 10

	consoleTimeFormat = "15:04:05"

	rotateMaxSizeMB  = 50
	rotateMaxBackups = 5
	rotateMaxAgeDays = 28
)

var (
	Logger zerolog.Logger

	stackBufPool = sync.Pool{
		New: func() interface{} {
			return make([]byte, stackBufSize)
		},
	}

	level   = zerolog.InfoLevel
	outMu   sync.Mutex
	rotator *lumberjack.Logger
)

// goroutineID returns the id of the calling goroutine, or "unknown".
func goroutineID() string {
	buf, ok := stackBufPool.Get().([]byte)
	if !ok {
		return "unknown"
	}
	defer stackBufPool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	n := runtime.Stack(buf, false)
	if n < minStackHeaderLen {
		return "unknown"
	}

	idx := goroutinePrefixLen
	start := idx
	for idx < n && buf[idx] >= '0' && buf[idx] <= '9' {
		idx++
	}

	if idx > start {
		return string(buf[start:idx])
	}
	return "unknown"
}

func newLogger(out io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: consoleTimeFormat,
	}
}

func init() {
	Logger = newLogger(consoleWriter(), level)
	log.Logger = Logger
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with goroutine ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	outMu.Lock()
	defer outMu.Unlock()

	level = zerolog.DebugLevel
	Logger = Logger.Level(level)
	log.Logger = Logger
}

// SetOutputFile sends log output to a size-rotated file instead of stderr.
// The watch view owns the terminal, so the dashboard logs there.
func SetOutputFile(path string) {
	outMu.Lock()
	defer outMu.Unlock()

	if rotator != nil {
		_ = rotator.Close()
	}
	rotator = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxBackups,
		MaxAge:     rotateMaxAgeDays,
		Compress:   true,
	}

	Logger = newLogger(rotator, level)
	log.Logger = Logger
}

// Close flushes and closes the rotating log file, if one is open.
func Close() error {
	outMu.Lock()
	defer outMu.Unlock()

	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	Logger = newLogger(consoleWriter(), level)
	log.Logger = Logger
	return err
}
