package cistash

// Defaults for upload behavior.
const (
	// DefaultCacheThreshold is the size boundary below which (inclusive)
	// files are stored inline per-cache rather than deduplicated. Tiny files
	// produce directory churn disproportionate to the space dedup saves.
	DefaultCacheThreshold = 256 << 10

	// DefaultMaxInFlight is the default cap on concurrent blob uploads.
	DefaultMaxInFlight = 4
)

// Options configures a Cache.
type Options struct {
	CacheThreshold uint64
	MaxInFlight    int
	Recursive      bool
	DryRun         bool
	Logger         Logger
}

// Option is a functional option for configuring New.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		CacheThreshold: DefaultCacheThreshold,
		MaxInFlight:    DefaultMaxInFlight,
		Logger:         defaultLogger(),
	}
}

// WithCacheThreshold sets the inline/dedup size boundary in bytes. Files of
// exactly this size are stored inline.
func WithCacheThreshold(n uint64) Option {
	return func(o *Options) { o.CacheThreshold = n }
}

// WithMaxInFlight caps the number of concurrent blob uploads.
func WithMaxInFlight(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxInFlight = n
		}
	}
}

// WithRecursive expands directories passed to Upload into the files they
// contain. Without it, directories are skipped with a notice.
func WithRecursive(recursive bool) Option {
	return func(o *Options) { o.Recursive = recursive }
}

// WithDryRun makes Upload report its decisions without mutating the store.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) { o.DryRun = dryRun }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
