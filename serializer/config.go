package serializer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/fsys"
	"github.com/arloliu/fitsimg/internal/options"
)

// Config holds the collaborators of a Serializer.
type Config struct {
	fs       fsys.FS
	now      func() time.Time
	logger   *slog.Logger
	tileRows int
}

// newConfig returns the default configuration: the wall clock, a discarding
// logger and default tiling. A nil fs is replaced by the OS filesystem in New.
func newConfig() *Config {
	return &Config{
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
}

// Option represents a functional option for configuring a Serializer.
type Option = options.Option[*Config]

// WithFS sets the filesystem files are created on.
func WithFS(fs fsys.FS) Option {
	return options.New(func(c *Config) error {
		if fs == nil {
			return fmt.Errorf("%w: nil filesystem", errs.ErrInvalidOption)
		}
		c.fs = fs

		return nil
	})
}

// WithClock sets the time source used when an image carries no timestamp.
func WithClock(now func() time.Time) Option {
	return options.New(func(c *Config) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", errs.ErrInvalidOption)
		}
		c.now = now

		return nil
	})
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		c.logger = logger
	})
}

// WithTileRows sets the number of image rows per compressed tile.
// Zero keeps the writer default.
func WithTileRows(rows int) Option {
	return options.New(func(c *Config) error {
		if rows < 0 {
			return fmt.Errorf("%w: %d tile rows", errs.ErrInvalidOption, rows)
		}
		c.tileRows = rows

		return nil
	})
}
