package processor

// Option configures a Processor.
type Option func(*options)

type options struct {
	id               string
	ids              IDGenerator
	logger           Logger
	logEnabled       bool
	descriptionFirst bool
	observer         Observer
	autoCancel       bool
}

func defaultOptions() options {
	return options{
		ids:              UUIDv7Generator{},
		logger:           NewSlogLogger(nil),
		logEnabled:       true,
		descriptionFirst: true,
	}
}

// WithID sets the Processor id instead of generating one.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithIDGenerator sets the generator for effect ids (and the Processor id when
// WithID is not given).
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithLogger sets the logging collaborator. A nil logger disables logging.
//
// Default: slog.Default() at debug level.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLogEnabled turns dispatch logging on or off. Default: on.
func WithLogEnabled(enabled bool) Option {
	return func(o *options) {
		o.logEnabled = enabled
	}
}

// WithDescriptionFirst makes log lines prefer an action's String method over
// a field dump. Default: true.
func WithDescriptionFirst(enabled bool) Option {
	return func(o *options) {
		o.descriptionFirst = enabled
	}
}

// WithObserver attaches a structured event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithAutoCancelLatestAction cancels every registered effect before a newly
// sent action is reduced, giving "latest wins" semantics.
func WithAutoCancelLatestAction(enabled bool) Option {
	return func(o *options) {
		o.autoCancel = enabled
	}
}
