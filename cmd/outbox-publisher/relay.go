package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const (
	sendTimeout   = 15 * time.Second
	maxIdleJitter = 250 * time.Millisecond
	maxRetryDelay = 10 * time.Second
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	OrdersPublisher() *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

// sender publishes one message and blocks until the server acks it.
type sender interface {
	Send(context.Context, *gcppubsub.Message) (string, error)
}

type topicSender struct {
	pub *gcppubsub.Publisher
}

func (s topicSender) Send(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return s.pub.Publish(ctx, msg).Get(ctx)
}

// outcome is what happens to an outbox row after one delivery attempt.
type outcome int

const (
	delivered outcome = iota
	retryLater
	deadLetter
)

type RelayDeps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      txRunner
	Topic   topicSource
	Store   outboxStore
	Sender  sender
	Metrics *metrics.OutboxMetrics
}

// Relay moves committed outbox rows onto the order events topic.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	topic       topicSource
	store       outboxStore
	sender      sender
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	idle        time.Duration
}

func NewRelay(deps RelayDeps) (*Relay, error) {
	var missing error
	for name, ok := range map[string]bool{
		"config":            deps.Config != nil,
		"logger":            deps.Logger != nil,
		"database client":   deps.DB != nil,
		"pubsub client":     deps.Topic != nil,
		"outbox repository": deps.Store != nil,
	} {
		if !ok {
			missing = multierr.Append(missing, fmt.Errorf("%s is required", name))
		}
	}
	if missing != nil {
		return nil, missing
	}

	send := deps.Sender
	if send == nil {
		pub := deps.Topic.OrdersPublisher()
		if pub == nil {
			return nil, errors.New("orders topic publisher is required")
		}
		send = topicSender{pub: pub}
	}

	cfg := deps.Config.Outbox
	return &Relay{
		logg:        deps.Logger,
		db:          deps.DB,
		topic:       deps.Topic,
		store:       deps.Store,
		sender:      send,
		metrics:     deps.Metrics,
		batchSize:   positiveOr(cfg.BatchSize, 50),
		maxAttempts: positiveOr(cfg.MaxAttempts, 10),
		idle:        cfg.PollInterval(),
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run drains the outbox until ctx ends. A full batch is followed
// immediately by the next one; an empty poll waits one interval; an aborted
// batch waits with exponential backoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.topic.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	var wait time.Duration
	aborted := 0
	for {
		if err := pause(ctx, wait); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		report, err := r.relayBatch(ctx)
		switch {
		case err != nil:
			aborted++
			wait = retryDelay(r.idle, aborted)
			r.logg.Error(r.logg.WithField(ctx, "retry_in", wait.String()), "outbox batch aborted", err)
		case report.fetched == 0:
			aborted = 0
			wait = r.idle + rand.N(maxIdleJitter)
		default:
			aborted = 0
			wait = 0
		}
	}
}

// retryDelay doubles the idle interval per consecutive aborted batch.
func retryDelay(idle time.Duration, aborted int) time.Duration {
	if idle <= 0 {
		idle = 100 * time.Millisecond
	}
	d := idle
	for i := 0; i < aborted && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type batchReport struct {
	fetched, delivered, retried, dead int
	failures                          error
}

// relayBatch handles one locked batch. Delivery failures are recorded on
// their rows; only bookkeeping errors abort the batch and roll it back.
func (r *Relay) relayBatch(ctx context.Context) (batchReport, error) {
	var report batchReport
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		report.fetched = len(events)
		for _, event := range events {
			result, cause := r.deliver(ctx, event)
			if err := r.record(ctx, tx, event, result, cause); err != nil {
				return err
			}
			switch result {
			case delivered:
				report.delivered++
			case retryLater:
				report.retried++
			case deadLetter:
				report.dead++
			}
			if cause != nil {
				report.failures = multierr.Append(report.failures, fmt.Errorf("%s %s: %w", event.EventType, event.ID, cause))
			}
		}
		return nil
	})
	if err != nil {
		return batchReport{}, err
	}
	if report.fetched > 0 {
		summary := r.logg.WithFields(ctx, map[string]any{
			"fetched":   report.fetched,
			"delivered": report.delivered,
			"retried":   report.retried,
			"dead":      report.dead,
		})
		if report.failures != nil {
			r.logg.Warn(r.logg.WithField(summary, "failures", multierr.Errors(report.failures)), "outbox batch relayed with failures")
		} else {
			r.logg.Info(summary, "outbox batch relayed")
		}
	}
	return report, nil
}

func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) (outcome, error) {
	msg, err := buildMessage(event)
	if err != nil {
		return deadLetter, err
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, err := r.sender.Send(sendCtx, msg); err != nil {
		if permanentSendError(err) || event.AttemptCount+1 >= r.maxAttempts {
			return deadLetter, err
		}
		return retryLater, err
	}
	return delivered, nil
}

// permanentSendError is true for rejections a retry cannot fix.
func permanentSendError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition:
		return true
	}
	return false
}

func (r *Relay) record(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, result outcome, cause error) error {
	label := string(event.EventType)
	switch result {
	case delivered:
		if err := r.store.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.metrics.IncPublished(label)
	case retryLater:
		if err := r.store.MarkFailedTx(tx, event.ID, cause); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		r.metrics.IncFailed(label)
	case deadLetter:
		if err := r.store.MarkTerminalTx(tx, event.ID, cause, r.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		r.metrics.IncTerminal(label)
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"outbox_id":     event.ID.String(),
			"event_type":    event.EventType,
			"aggregate_id":  event.AggregateID.String(),
			"attempt_count": event.AttemptCount + 1,
			"cause":         cause.Error(),
		}), "outbox event dead-lettered")
	}
	return nil
}

// orderRef is the part of every order event payload used for routing.
type orderRef struct {
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
}

// buildMessage turns a stored row into a Pub/Sub message. Rows with an
// unknown type or an unreadable envelope can never be delivered.
func buildMessage(event models.OutboxEvent) (*gcppubsub.Message, error) {
	if !event.EventType.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", event.EventType)
	}
	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	eventID := env.EventID
	if eventID == "" {
		eventID = event.ID.String()
	}
	attrs := map[string]string{
		"event_id":       eventID,
		"event_type":     string(event.EventType),
		"schema_version": fmt.Sprint(env.Version),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"occurred_at":    env.OccurredAt.UTC().Format(time.RFC3339Nano),
	}

	var ref orderRef
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &ref) == nil {
		if ref.OrderNumber != "" {
			attrs["order_number"] = ref.OrderNumber
		}
		if ref.UserID != uuid.Nil {
			attrs["user_id"] = ref.UserID.String()
		}
	}
	return &gcppubsub.Message{Data: event.Payload, Attributes: attrs}, nil
}
