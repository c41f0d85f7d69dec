package remind

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Option[T any] func(*T)

type Config struct {
	resolver  Resolver
	clock     func() time.Time
	logger    zerolog.Logger
	notifier  Notifier
	newID     func() string
	listeners []ErrorListener
}

func DefaultConfig(options ...Option[Config]) *Config {
	config := &Config{
		resolver: DefaultResolver,
		clock:    time.Now,
		logger:   log.Logger,
		newID:    uuid.NewString,
	}

	for _, option := range options {
		option(config)
	}

	return config
}

func WithResolver(resolver Resolver) Option[Config] {
	return func(config *Config) {
		config.resolver = resolver
	}
}

func WithMaxScanDays(days int) Option[Config] {
	return func(config *Config) {
		config.resolver.MaxScanDays = days
	}
}

func WithConvergenceIterations(n int) Option[Config] {
	return func(config *Config) {
		config.resolver.ConvergenceIterations = n
	}
}

func WithClock(clock func() time.Time) Option[Config] {
	return func(config *Config) {
		config.clock = clock
	}
}

func WithLogger(logger zerolog.Logger) Option[Config] {
	return func(config *Config) {
		config.logger = logger
	}
}

func WithNotifier(notifier Notifier) Option[Config] {
	return func(config *Config) {
		config.notifier = notifier
	}
}

func WithIDGenerator(newID func() string) Option[Config] {
	return func(config *Config) {
		config.newID = newID
	}
}

func WithErrorListeners(listeners ...ErrorListener) Option[Config] {
	return func(config *Config) {
		config.listeners = append(config.listeners, listeners...)
	}
}

const DefaultTaskIdentifier = "schedule-reminder"

type PqConfig struct {
	conn string

	taskIdentifier string
	queueName      string
	maxAttempts    int
	timezoneQuery  string
	errorListeners []ErrorListener
}

func DefaultPqConfig(options ...Option[PqConfig]) *PqConfig {
	config := &PqConfig{
		taskIdentifier: DefaultTaskIdentifier,
	}

	for _, option := range options {
		option(config)
	}

	return config
}

func WithConn(conn string) Option[PqConfig] {
	return func(config *PqConfig) {
		config.conn = conn
	}
}

func WithTaskIdentifier(identifier string) Option[PqConfig] {
	return func(config *PqConfig) {
		config.taskIdentifier = identifier
	}
}

func WithQueueName(name string) Option[PqConfig] {
	return func(config *PqConfig) {
		config.queueName = name
	}
}

func WithMaxAttempts(attempts int) Option[PqConfig] {
	return func(config *PqConfig) {
		config.maxAttempts = attempts
	}
}

// WithTimezoneQuery sets the query that returns an owner's timezone. It takes
// the owner id as $1, e.g. SELECT timezone FROM users WHERE id = $1.
func WithTimezoneQuery(query string) Option[PqConfig] {
	return func(config *PqConfig) {
		config.timezoneQuery = query
	}
}

func WithErrorObservers(listeners ...ErrorListener) Option[PqConfig] {
	return func(config *PqConfig) {
		config.errorListeners = append(config.errorListeners, listeners...)
	}
}
