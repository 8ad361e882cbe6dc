package sqlbridge

import "log/slog"

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger routes statement logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
