package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/micasa/marketer/internal/config"
)

// TypeEnum tags a log line with the subsystem that produced it.
type TypeEnum int

const (
	TypeApp TypeEnum = iota
	TypeCollect
	TypeGenerate
	TypePublish
	TypeWeb
)

func (t TypeEnum) String() string {
	switch t {
	case TypeCollect:
		return "collect"
	case TypeGenerate:
		return "generate"
	case TypePublish:
		return "publish"
	case TypeWeb:
		return "web"
	default:
		return "app"
	}
}

// Logger is the logging surface every component depends on.
type Logger interface {
	Debugf(t TypeEnum, format string, args ...any)
	Infof(t TypeEnum, format string, args ...any)
	Warnf(t TypeEnum, format string, args ...any)
	Errorf(t TypeEnum, format string, args ...any)
	Close()
}

type zeroLogger struct {
	log  zerolog.Logger
	file *os.File
}

// NewLogProvider builds a zerolog-backed Logger. Console output goes to stderr so
// that JSON command results on stdout stay machine readable. When conf.Dir is set,
// JSON lines are also appended to <dir>/marketer.log.
func NewLogProvider(conf config.LoggerConfig) (Logger, error) {
	return newLogProvider(conf, os.Stderr)
}

func newLogProvider(conf config.LoggerConfig, console io.Writer) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", conf.Level, err)
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}}

	var file *os.File
	if conf.Dir != "" {
		mode := os.FileMode(conf.Mode)
		if mode == 0 {
			mode = 0644
		}
		file, err = os.OpenFile(filepath.Join(conf.Dir, "marketer.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zeroLogger{log: l, file: file}, nil
}

func (z *zeroLogger) Debugf(t TypeEnum, format string, args ...any) {
	z.log.Debug().Str("type", t.String()).Msgf(format, args...)
}

func (z *zeroLogger) Infof(t TypeEnum, format string, args ...any) {
	z.log.Info().Str("type", t.String()).Msgf(format, args...)
}

func (z *zeroLogger) Warnf(t TypeEnum, format string, args ...any) {
	z.log.Warn().Str("type", t.String()).Msgf(format, args...)
}

func (z *zeroLogger) Errorf(t TypeEnum, format string, args ...any) {
	z.log.Error().Str("type", t.String()).Msgf(format, args...)
}

func (z *zeroLogger) Close() {
	if z.file != nil {
		_ = z.file.Close()
	}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zeroLogger{log: zerolog.Nop()}
}
