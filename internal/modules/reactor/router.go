package reactor

import (
	"context"
	"fmt"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/metrics"
	"anoa.com/shuttleapi/internal/store"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

type Config struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

func DefaultConfig() Config {
	return Config{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     30 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// HandlerFunc reacts to one committed change. Returning an error triggers a retry.
type HandlerFunc func(ctx context.Context, event store.ChangeEvent) error

// Router runs reactor handlers over the store's change feed.
//
// Middleware, outer to inner:
//  1. resolve - log and ack once retries are exhausted, record metrics
//  2. Recoverer - turn panics into errors
//  3. Retry - exponential backoff for store failures
type Router struct {
	router     *message.Router
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

func NewRouter(cfg Config, subscriber message.Subscriber, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:     wmRouter,
		subscriber: subscriber,
		logger:     logger,
	}

	wmRouter.AddMiddleware(r.resolve)
	wmRouter.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	return r, nil
}

// Handle subscribes fn to changes of coll. An empty kind matches every change.
func (r *Router) Handle(name string, coll entity.Collection, kind store.ChangeKind, fn HandlerFunc) {
	r.router.AddConsumerHandler(name, store.Topic(coll), r.subscriber, func(msg *message.Message) error {
		event, err := store.DecodeEvent(msg)
		if err != nil {
			r.logger.Error("undecodable change event dropped", err, watermill.LogFields{
				"handler":      name,
				"message_uuid": msg.UUID,
			})
			return nil
		}
		if kind != "" && event.Kind != kind {
			return nil
		}
		return fn(msg.Context(), event)
	})
}

// Run blocks until ctx is cancelled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	return r.router.Close()
}

// resolve acks a message whose handler still fails after retries. Nobody is
// waiting on a reactor, so the failure is logged and derived state stays stale
// until the reconciler repairs it.
func (r *Router) resolve(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		name := message.HandlerNameFromCtx(msg.Context())
		start := time.Now()

		produced, err := h(msg)
		metrics.RecordReactorEvent(name, time.Since(start), err)

		if err != nil {
			r.logger.Error("reactor handler failed, giving up", err, watermill.LogFields{
				"handler":      name,
				"topic":        message.SubscribeTopicFromCtx(msg.Context()),
				"message_uuid": msg.UUID,
			})
			return nil, nil
		}
		return produced, nil
	}
}
