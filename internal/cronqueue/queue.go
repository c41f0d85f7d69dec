// Package cronqueue is an in-process keyed job queue on top of robfig/cron.
// It keeps at most one pending job per key and forgets everything on exit, so
// it serves local runs and tests rather than production.
package cronqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gobwas/glob"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-tick/remind"
)

// Handler runs a job. A returned error schedules a retry until the attempts
// are used up.
type Handler func(ctx context.Context, payload remind.JobPayload) error

type Option func(*Queue)

func WithLogger(logger zerolog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

func WithMaxAttempts(attempts int) Option {
	return func(q *Queue) {
		q.maxAttempts = attempts
	}
}

// WithBackoff sets the delay before the first retry. It doubles per attempt.
func WithBackoff(backoff time.Duration) Option {
	return func(q *Queue) {
		q.backoff = backoff
	}
}

type Queue struct {
	cron        *cron.Cron
	handler     Handler
	logger      zerolog.Logger
	maxAttempts int
	backoff     time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*job
}

func New(handler Handler, options ...Option) *Queue {
	q := &Queue{
		handler:     handler,
		logger:      log.Logger,
		maxAttempts: 25,
		backoff:     time.Second,
		jobs:        make(map[string]*job),
	}

	for _, option := range options {
		option(q)
	}

	l := cronLogger{logger: q.logger.With().Str("component", "cronqueue").Logger()}
	q.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l)),
	)
	q.ctx, q.cancel = context.WithCancel(context.Background())

	return q
}

func (q *Queue) Start() {
	q.cron.Start()
}

// Stop stops dispatching and waits for running jobs or ctx, whichever ends
// first.
func (q *Queue) Stop(ctx context.Context) error {
	done := q.cron.Stop()
	defer q.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replace schedules payload under key, dropping whatever was pending there.
// A runAt in the past runs as soon as the queue is started.
func (q *Queue) Replace(_ context.Context, key string, runAt time.Time, payload remind.JobPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.schedule(key, runAt, payload, 1)
	return nil
}

// Remove drops every pending job whose key matches the glob pattern.
func (q *Queue) Remove(_ context.Context, keyPattern string) error {
	g, err := glob.Compile(keyPattern)
	if err != nil {
		return errors.Wrapf(err, "compiling key pattern %q", keyPattern)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for key, j := range q.jobs {
		if g.Match(key) {
			q.cron.Remove(j.id)
			delete(q.jobs, key)
		}
	}

	return nil
}

// Pending reports the run time of the job under key.
func (q *Queue) Pending(key string) (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[key]
	if !ok {
		return time.Time{}, false
	}

	return j.runAt, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.jobs)
}

// schedule must be called with q.mu held.
func (q *Queue) schedule(key string, runAt time.Time, payload remind.JobPayload, attempt int) {
	if prev, ok := q.jobs[key]; ok {
		q.cron.Remove(prev.id)
	}

	j := &job{
		queue:   q,
		key:     key,
		runAt:   runAt,
		payload: payload,
		attempt: attempt,
	}
	j.id = q.cron.Schedule(&onceAt{at: runAt}, j)
	q.jobs[key] = j
}

type job struct {
	queue   *Queue
	id      cron.EntryID
	key     string
	runAt   time.Time
	payload remind.JobPayload
	attempt int
}

func (j *job) Run() {
	q := j.queue

	// The entry may have been replaced between dispatch and now.
	q.mu.Lock()
	current, ok := q.jobs[j.key]
	if !ok || current != j {
		q.mu.Unlock()
		return
	}
	delete(q.jobs, j.key)
	q.cron.Remove(j.id)
	q.mu.Unlock()

	logger := q.logger.With().Str("job_key", j.key).Int("attempt", j.attempt).Logger()

	err := q.handler(q.ctx, j.payload)
	if err == nil {
		logger.Debug().Msg("Job completed")
		return
	}

	if j.attempt >= q.maxAttempts {
		logger.Error().Err(err).Msg("Job failed permanently")
		return
	}

	retryAt := time.Now().Add(q.backoff << (j.attempt - 1))
	logger.Warn().Err(err).Time("retry_at", retryAt).Msg("Job failed, retrying")

	q.mu.Lock()
	defer q.mu.Unlock()

	// A replace that arrived while the handler ran wins over the retry.
	if _, ok := q.jobs[j.key]; ok {
		return
	}
	q.schedule(j.key, retryAt, j.payload, j.attempt+1)
}

// onceAt fires once. The first Next call comes from cron registering the
// entry; every later call follows a run.
type onceAt struct {
	at    time.Time
	armed atomic.Bool
}

func (s *onceAt) Next(t time.Time) time.Time {
	if s.armed.Swap(true) {
		return time.Time{}
	}

	if t.Before(s.at) {
		return s.at
	}

	return t
}

var _ remind.JobScheduler = &Queue{}
