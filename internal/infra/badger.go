package infra

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// NewBadger opens the embedded session database at path. An empty path keeps
// everything in memory.
func NewBadger(path string, logger *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// badgerLogger routes badger's printf logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}
