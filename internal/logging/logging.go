// Package logging opens the log channel a run writes to.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Cyclone1070/polish/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultFile is the log file name under the config directory.
const DefaultFile = "polish.log"

// StderrPath selects stderr instead of a file.
const StderrPath = "-"

// Channel is an open log destination with a logger bound to one run.
type Channel struct {
	Logger zerolog.Logger
	RunID  string
	Path   string

	mu     sync.Mutex
	closer io.Closer
}

// Open creates the channel described by cfg. An empty path logs to
// ~/.config/polish/polish.log and "-" logs to stderr.
func Open(cfg config.LogConfig) (*Channel, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	path := cfg.Path
	if path == StderrPath {
		return newChannel(os.Stderr, nil, StderrPath, level), nil
	}
	if path == "" {
		dir, err := config.NewLoader().Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, DefaultFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Errorf("opening log file: %w", err)
	}
	return newChannel(f, f, path, level), nil
}

// New creates a channel writing to w. Close does not close w.
func New(w io.Writer, level zerolog.Level) *Channel {
	return newChannel(w, nil, "", level)
}

func newChannel(w io.Writer, closer io.Closer, path string, level zerolog.Level) *Channel {
	runID := uuid.NewString()
	return &Channel{
		Logger: zerolog.New(w).Level(level).With().Timestamp().Str("run_id", runID).Logger(),
		RunID:  runID,
		Path:   path,
		closer: closer,
	}
}

// WithContext returns ctx carrying the channel's logger.
func (c *Channel) WithContext(ctx context.Context) context.Context {
	return c.Logger.WithContext(ctx)
}

// SetLevel changes the minimum level logged.
func (c *Channel) SetLevel(level zerolog.Level) {
	c.Logger = c.Logger.Level(level)
}

// Close releases the destination. It is safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
