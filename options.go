package lvfs

import (
	"errors"
	"fmt"
	"time"

	"github.com/mwantia/lvfs/data"
	"github.com/mwantia/lvfs/log"
)

type Options struct {
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool

	// Logger replaces the logger built from the settings above
	Logger *log.Logger

	// Clock supplies modification times
	Clock func() time.Time

	// Compression applied to newly written chunks
	Compression data.CompressionTag
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		LogLevel:    log.Warn,
		Clock:       time.Now,
		Compression: data.CompressionNone,
	}
}

func WithLogLevel(logLevel log.LogLevel) Option {
	return func(opts *Options) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() Option {
	return func(opts *Options) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) Option {
	return func(opts *Options) error {
		opts.LogFile = logFile
		return nil
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		if logger == nil {
			return errors.New("lvfs: logger must not be nil")
		}
		opts.Logger = logger
		return nil
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts *Options) error {
		if clock == nil {
			return errors.New("lvfs: clock must not be nil")
		}
		opts.Clock = clock
		return nil
	}
}

func WithCompression(tag data.CompressionTag) Option {
	return func(opts *Options) error {
		if !tag.Valid() {
			return fmt.Errorf("lvfs: unsupported compression tag: %d", tag)
		}
		opts.Compression = tag
		return nil
	}
}
