package catalog

import (
	"io"
	"log/slog"
)

// ============================================================================
// CATALOG OPTIONS: Functional options for New()
// ============================================================================

// Option configures a Catalog.
type Option func(*config)

// SnapshotSink receives a delimited-text export of every table the
// catalog materializes.
type SnapshotSink interface {
	Snapshot(name, delimited string) error
}

type config struct {
	dsn    string
	logger *slog.Logger
	print  io.Writer
	sink   SnapshotSink
}

// WithDSN backs the catalog with a SQLite database other than the
// default private in-memory one.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithPrint renders every materialized table to w. Nil disables it.
func WithPrint(w io.Writer) Option {
	return func(c *config) {
		c.print = w
	}
}

// WithSnapshots hands every materialized table to sink as delimited text.
func WithSnapshots(sink SnapshotSink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		dsn:    ":memory:",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
