// Package logger provides a singleton structured logger backed by zerolog.
//
// Initialise once at startup with Init, then retrieve anywhere with Get.
// New builds a standalone logger with the same options.
//
//	TRACE (-1) → DEBUG (0) → INFO (1) → WARN (2) → ERROR (3)
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// Pretty enables coloured console output. Leave false in production to
	// emit pure JSON.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// File, when set, also receives JSON entries. The file rotates at
	// MaxSizeMB and keeps MaxBackups old copies.
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Fields are attached to every entry, e.g. the service name.
	Fields map[string]string
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
)

var (
	mu       sync.Mutex
	once     sync.Once
	instance *zerolog.Logger
)

// Init builds the process logger on first call and returns it. Later calls
// ignore opts and return the existing logger.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		lvl := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(lvl)

		l := New(opts)
		mu.Lock()
		instance = &l
		mu.Unlock()
	})
	return Get()
}

// New returns a logger for opts without touching the singleton.
func New(opts Options) zerolog.Logger {
	ctx := zerolog.New(sink(opts)).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Caller()
	for k, v := range opts.Fields {
		ctx = ctx.Str(k, v)
	}
	return ctx.Logger()
}

// Get returns the process logger. It panics if Init has not run.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		panic("logger: Get() called before Init()")
	}
	return *instance
}

// Reset forgets the process logger so the next Init rebuilds it. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	instance = nil
}

func sink(opts Options) io.Writer {
	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if opts.File == "" {
		return out
	}

	size, backups := opts.MaxSizeMB, opts.MaxBackups
	if size <= 0 {
		size = defaultMaxSizeMB
	}
	if backups <= 0 {
		backups = defaultMaxBackups
	}
	return zerolog.MultiLevelWriter(out, &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    size,
		MaxBackups: backups,
	})
}

// parseLevel maps a level name to zerolog, accepting "warning" as an alias.
// Anything unrecognised is info.
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	switch lvl, err := zerolog.ParseLevel(s); {
	case err != nil, s == "", lvl == zerolog.NoLevel:
		return zerolog.InfoLevel
	default:
		return lvl
	}
}
