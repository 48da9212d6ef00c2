// Package notify delivers completed-registration summaries to the
// operator. Delivery is best-effort: the flow never waits on Telegram,
// and failures are retried through the job queue when Redis is available.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/pkg/queue"
)

// Sender delivers one notification to the operator channel.
type Sender interface {
	Send(ctx context.Context, payload queue.NotificationPayload) error
}

// Publisher fans a completed registration out to live admin listeners.
type Publisher interface {
	PublishRegistration(payload queue.NotificationPayload)
}

// Service implements the flow's Notifier: it enqueues the operator job
// (or sends directly when no queue is configured) and feeds the live
// admin stream.
type Service struct {
	queue     *queue.Queue // nil when Redis is not configured
	sender    Sender
	publisher Publisher // optional
	logger    *zap.Logger
}

// NewService creates a notification service. q may be nil (direct send);
// publisher may be nil (no live feed).
func NewService(q *queue.Queue, sender Sender, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{queue: q, sender: sender, publisher: publisher, logger: logger}
}

// NotifyOperator queues (or sends) the summary for one registration.
func (s *Service) NotifyOperator(ctx context.Context, reg *registration.Registration) error {
	payload := PayloadFor(reg)

	if s.publisher != nil {
		s.publisher.PublishRegistration(payload)
	}

	if s.queue != nil {
		if err := s.queue.EnqueueNotification(ctx, payload); err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}
		return nil
	}
	if s.sender == nil {
		s.logger.Warn("no notification channel configured",
			zap.String("registration_id", reg.ID.String()))
		return nil
	}
	return s.sender.Send(ctx, payload)
}

// PayloadFor converts a persisted registration into the job payload.
func PayloadFor(reg *registration.Registration) queue.NotificationPayload {
	return queue.NotificationPayload{
		RegistrationID: reg.ID,
		FullName:       reg.FullName,
		Contact:        reg.Contact,
		DateLabel:      reg.DateLabel,
		TimeLabel:      reg.TimeLabel,
		AllergyNote:    reg.AllergyNote,
		ProofURL:       reg.ProofURL,
		ProofFileID:    reg.ProofFileID,
	}
}

// Summary renders the operator-facing text for a registration.
func Summary(p queue.NotificationPayload) string {
	return fmt.Sprintf(
		"New registration\n"+
			"Name: %s\n"+
			"Contact: %s\n"+
			"Date: %s\n"+
			"Time: %s\n"+
			"Allergies: %s",
		p.FullName, p.Contact, p.DateLabel, p.TimeLabel, p.AllergyNote,
	)
}
