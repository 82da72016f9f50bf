package wowgo

// Options configures the facade and the underlying core.
type Options struct {
	// M is the maximum out-degree per node per layer.
	M int

	// EFConstruction is the beam width used during build.
	EFConstruction int

	// O is the geometric ratio between successive window sizes.
	O int

	// WP is the maximum permitted layer index.
	WP int

	// AutoRaiseWP raises WP so the widest window covers the capacity.
	AutoRaiseWP bool

	// Logger receives operation and structural events. Defaults to a
	// noop logger.
	Logger *Logger

	// Metrics receives operation timings. Defaults to
	// NoopMetricsCollector.
	Metrics MetricsCollector
}

// DefaultOptions contains the default facade options.
var DefaultOptions = Options{
	M:              24,
	EFConstruction: 256,
	O:              4,
	WP:             10,
	AutoRaiseWP:    true,
	Metrics:        NoopMetricsCollector{},
}

// WithM sets the maximum out-degree per node per layer.
func WithM(m int) func(o *Options) {
	return func(o *Options) { o.M = m }
}

// WithEFConstruction sets the build beam width.
func WithEFConstruction(efc int) func(o *Options) {
	return func(o *Options) { o.EFConstruction = efc }
}

// WithO sets the geometric window growth ratio.
func WithO(ratio int) func(o *Options) {
	return func(o *Options) { o.O = ratio }
}

// WithWP sets the maximum permitted layer index.
func WithWP(wp int) func(o *Options) {
	return func(o *Options) { o.WP = wp }
}

// WithAutoRaiseWP controls automatic raising of WP.
func WithAutoRaiseWP(raise bool) func(o *Options) {
	return func(o *Options) { o.AutoRaiseWP = raise }
}

// WithLogger sets the logger.
func WithLogger(l *Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) func(o *Options) {
	return func(o *Options) { o.Metrics = m }
}
