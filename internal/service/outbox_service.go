package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
	"github.com/edustack/lms-api/pkg/mailer"
)

const outboxBatchSize = 50

var errNoMailer = errors.New("no mailer configured")

func mailerMessage(entry models.NotificationOutbox) mailer.Message {
	return mailer.Message{
		ToAddress: entry.Recipient,
		Subject:   entry.Subject,
		HTMLBody:  entry.Body,
	}
}

// Notification is a notification-worthy event recorded next to the primary
// mutation. Delivery is decoupled from the workflow that raised it.
type Notification struct {
	Topic     string
	Recipient string
	Subject   string
	Body      string
	Payload   map[string]interface{}
}

// Notifier records notifications for later dispatch. Implementations must
// never fail the caller's workflow.
type Notifier interface {
	Enqueue(ctx context.Context, notification Notification)
}

type outboxNotifier struct {
	repo   repository.OutboxRepository
	logger zerolog.Logger
}

// NewOutboxNotifier constructs a Notifier backed by the outbox table.
func NewOutboxNotifier(repo repository.OutboxRepository, logger zerolog.Logger) Notifier {
	return &outboxNotifier{
		repo:   repo,
		logger: logger.With().Str("component", "outbox_notifier").Logger(),
	}
}

// Enqueue writes the outbox row. Failures are logged and swallowed: the
// primary operation's success never depends on the notification.
func (n *outboxNotifier) Enqueue(ctx context.Context, notification Notification) {
	entry := models.NotificationOutbox{
		Topic:     notification.Topic,
		Recipient: notification.Recipient,
		Subject:   notification.Subject,
		Body:      notification.Body,
		Payload:   notification.Payload,
		Status:    models.OutboxStatusPending,
	}

	if err := n.repo.Create(ctx, &entry); err != nil {
		n.logger.Error().Err(err).Str("topic", notification.Topic).Msg("failed to enqueue notification")
	}
}

// OutboxDispatcher polls pending outbox rows and delivers them. Failed rows
// are marked failed and never retried; the caller already succeeded.
type OutboxDispatcher struct {
	repo        repository.OutboxRepository
	mailer      Mailer
	nats        *nats.Conn
	natsSubject string
	interval    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOutboxDispatcher constructs a dispatcher. The mailer may be nil (rows are
// marked failed), and the NATS connection may be nil (event publication off).
func NewOutboxDispatcher(repo repository.OutboxRepository, mail Mailer, natsConn *nats.Conn, interval time.Duration, logger zerolog.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		repo:        repo,
		mailer:      mail,
		nats:        natsConn,
		natsSubject: "lms.notifications",
		interval:    interval,
		logger:      logger.With().Str("component", "outbox_dispatcher").Logger(),
		now:         time.Now,
	}
}

// Start runs the dispatch loop until the context is cancelled.
func (d *OutboxDispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchPending(ctx)
		}
	}
}

// DispatchPending delivers one batch of pending rows.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) {
	entries, err := d.repo.ListPending(ctx, outboxBatchSize)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to list pending notifications")
		return
	}

	for _, entry := range entries {
		d.dispatch(ctx, entry)
	}
}

func (d *OutboxDispatcher) dispatch(ctx context.Context, entry models.NotificationOutbox) {
	if err := d.send(ctx, entry); err != nil {
		d.logger.Warn().Err(err).Uint("outbox_id", entry.ID).Str("topic", entry.Topic).Msg("notification dispatch failed")
		if markErr := d.repo.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			d.logger.Error().Err(markErr).Uint("outbox_id", entry.ID).Msg("failed to mark notification failed")
		}
		return
	}

	if err := d.repo.MarkSent(ctx, entry.ID, d.now()); err != nil {
		d.logger.Error().Err(err).Uint("outbox_id", entry.ID).Msg("failed to mark notification sent")
		return
	}

	d.publishEvent(entry)
}

func (d *OutboxDispatcher) send(ctx context.Context, entry models.NotificationOutbox) error {
	if d.mailer == nil {
		return errNoMailer
	}

	return d.mailer.Send(ctx, mailerMessage(entry))
}

// publishEvent mirrors the delivered notification onto NATS for any
// downstream consumers. Nil connection means publication is disabled.
func (d *OutboxDispatcher) publishEvent(entry models.NotificationOutbox) {
	if d.nats == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"topic":     entry.Topic,
		"recipient": entry.Recipient,
		"payload":   entry.Payload,
		"sent_at":   d.now(),
	})
	if err != nil {
		d.logger.Error().Err(err).Uint("outbox_id", entry.ID).Msg("failed to marshal event")
		return
	}

	subject := d.natsSubject + "." + entry.Topic
	if err := d.nats.Publish(subject, payload); err != nil {
		d.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
