// Package queue is the background job layer: named queues with named jobs,
// at-least-once delivery, fixed-backoff retry and per-queue worker
// concurrency, built on a Watermill router over NATS JetStream.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/apperr"
)

// metadata key carrying the job name on every queued message.
const jobNameKey = "job"

// Job is a dequeued task: its name plus the enqueue-time payload.
type Job struct {
	ID      string
	Name    string
	Payload json.RawMessage
}

// Decode unmarshals the job payload into dest.
func (j *Job) Decode(dest any) error {
	return json.Unmarshal(j.Payload, dest)
}

// HandlerFunc processes one job. A returned error triggers the retry
// policy; after retries are exhausted the job is dropped and logged.
type HandlerFunc func(ctx context.Context, job *Job) error

// Config tunes delivery and retry behaviour for every queue.
type Config struct {
	// MaxAttempts is the total number of tries per job, initial delivery
	// included.
	MaxAttempts int
	// RetryBackoff is the fixed delay between attempts.
	RetryBackoff time.Duration
	// Concurrency is the number of jobs one queue processes in parallel.
	Concurrency int
	// CloseTimeout bounds the drain on shutdown.
	CloseTimeout time.Duration
}

// DefaultConfig mirrors the production defaults: three attempts, fixed 5s
// backoff, five workers per queue.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		RetryBackoff: 5 * time.Second,
		Concurrency:  5,
		CloseTimeout: 30 * time.Second,
	}
}

// SubscriberFactory builds a subscriber for one queue. Factories exist so
// the NATS transport and the in-memory test transport share the MQ wiring.
type SubscriberFactory func(queue string) (message.Subscriber, error)

// MQ owns the publisher, the per-queue subscribers and the routing of jobs
// to their handlers.
type MQ struct {
	cfg    Config
	pub    message.Publisher
	subFn  SubscriberFactory
	router *message.Router
	log    zerolog.Logger
	queues map[string]*Queue
}

// NewWithPubSub wires an MQ over an arbitrary Watermill transport.
func NewWithPubSub(cfg Config, pub message.Publisher, subFn SubscriberFactory, log zerolog.Logger) (*MQ, error) {
	wmLogger := newLoggerAdapter(log)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create job router: %w", err)
	}

	mq := &MQ{
		cfg:    cfg,
		pub:    pub,
		subFn:  subFn,
		router: router,
		log:    log.With().Str("component", "queue").Logger(),
		queues: make(map[string]*Queue),
	}

	// Middleware, outermost first. The terminal-failure middleware swallows
	// the error once Retry gives up: exhausted jobs are acked and only
	// surfaced through the log. There is no dead-letter queue.
	router.AddMiddleware(mq.dropExhausted)
	retry := middleware.Retry{
		MaxRetries:      cfg.MaxAttempts - 1,
		InitialInterval: cfg.RetryBackoff,
		MaxInterval:     cfg.RetryBackoff,
		Multiplier:      1,
		Logger:          wmLogger,
	}
	router.AddMiddleware(retry.Middleware)
	router.AddMiddleware(middleware.Recoverer)

	return mq, nil
}

// Queue returns (creating on first use) the named queue.
func (m *MQ) Queue(name string) *Queue {
	if q, ok := m.queues[name]; ok {
		return q
	}
	q := &Queue{name: name, pub: m.pub, log: m.log}
	m.queues[name] = q
	m.log.Info().Str("queue", name).Msg("queue created")
	return q
}

// Process registers the job handlers consuming from a queue. Each queue has
// its own subscription so its concurrency limit is independent.
func (m *MQ) Process(queue string, handlers map[string]HandlerFunc) error {
	sub, err := m.subFn(queue)
	if err != nil {
		return fmt.Errorf("subscribe queue %s: %w", queue, err)
	}

	m.router.AddNoPublisherHandler(queue, queue, sub, func(msg *message.Message) error {
		job := &Job{
			ID:      msg.UUID,
			Name:    msg.Metadata.Get(jobNameKey),
			Payload: json.RawMessage(msg.Payload),
		}

		handler, ok := handlers[job.Name]
		if !ok {
			m.log.Warn().Str("queue", queue).Str("job", job.Name).Str("id", job.ID).Msg("no handler for job")
			return nil
		}

		if err := handler(msg.Context(), job); err != nil {
			m.log.Error().Err(err).Str("queue", queue).Str("job", job.Name).Str("id", job.ID).Msg("job failed")
			return err
		}
		m.log.Info().Str("queue", queue).Str("job", job.Name).Str("id", job.ID).Msg("job completed")
		return nil
	})
	return nil
}

// Run starts consuming until the context is canceled.
func (m *MQ) Run(ctx context.Context) error {
	return m.router.Run(ctx)
}

// Running is closed once every handler is consuming.
func (m *MQ) Running() <-chan struct{} {
	return m.router.Running()
}

// Close drains handlers and closes the transport.
func (m *MQ) Close() error {
	return m.router.Close()
}

// dropExhausted acks a job whose retries are exhausted, logging the loss.
func (m *MQ) dropExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			m.log.Error().
				Err(err).
				Str("id", msg.UUID).
				Str("job", msg.Metadata.Get(jobNameKey)).
				Int("attempts", m.cfg.MaxAttempts).
				Msg("job failed after all attempts, dropping")
			return nil, nil
		}
		return out, nil
	}
}

// Queue publishes named jobs onto one topic.
type Queue struct {
	name string
	pub  message.Publisher
	log  zerolog.Logger
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Enqueue publishes one job. The payload is marshaled once at enqueue time;
// replays deliver the identical bytes.
func (q *Queue) Enqueue(ctx context.Context, jobName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), body)
	msg.Metadata.Set(jobNameKey, jobName)
	msg.SetContext(ctx)

	if err := q.pub.Publish(q.name, msg); err != nil {
		q.log.Error().Err(err).Str("queue", q.name).Str("job", jobName).Msg("failed to enqueue job")
		return apperr.Queue()
	}
	q.log.Info().Str("queue", q.name).Str("job", jobName).Str("id", msg.UUID).Msg("job enqueued")
	return nil
}

// loggerAdapter bridges Watermill's logging onto zerolog.
type loggerAdapter struct {
	log zerolog.Logger
}

func newLoggerAdapter(log zerolog.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{log: log.With().Str("component", "watermill").Logger()}
}

func (l *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), msg, fields)
}

func (l *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Info(), msg, fields)
}

func (l *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), msg, fields)
}

func (l *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), msg, fields)
}

func (l *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &loggerAdapter{log: ctx.Logger()}
}

func (l *loggerAdapter) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
