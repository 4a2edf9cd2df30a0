package logcrate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/logcrate/logcrate/internal/reader"
)

// DefaultSegmentMaxSize is the soft cap on segment size used when no
// WithSegmentMaxSize option is given: 512 MiB.
const DefaultSegmentMaxSize = 512 * 1024 * 1024

// Options configures a Crate at Create or Open time.
type Options struct {
	segmentMaxSize uint64
	logger         zerolog.Logger
	registerer     prometheus.Registerer
	readCacheSize  int
}

// Option mutates an Options during Create or Open.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		segmentMaxSize: DefaultSegmentMaxSize,
		logger:         zerolog.Nop(),
		readCacheSize:  reader.DefaultCacheSize,
	}
}

// WithReadCacheSize overrides the number of open segment handles the
// crate's reader keeps cached across Read/ReadBatch calls.
func WithReadCacheSize(n int) Option {
	return func(o *Options) {
		o.readCacheSize = n
	}
}

// WithSegmentMaxSize overrides the soft cap checked against each incoming
// append batch when deciding whether to roll to a new segment.
func WithSegmentMaxSize(n uint64) Option {
	return func(o *Options) {
		o.segmentMaxSize = n
	}
}

// WithLogger sets the logger the crate uses for lifecycle events: segment
// rolls, one summary line when Open finishes recovery, and a coordinator
// invariant violation. Tail truncation and failed appends are not logged.
// The default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// WithRegisterer enables Prometheus instrumentation, registering the
// crate's metrics against reg. Metrics are disabled by default.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.registerer = reg
	}
}

func buildOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
