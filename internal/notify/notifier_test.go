package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/pkg/queue"
)

type fakeSender struct {
	sent []queue.NotificationPayload
	err  error
}

func (s *fakeSender) Send(ctx context.Context, p queue.NotificationPayload) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, p)
	return nil
}

type fakePublisher struct {
	published []queue.NotificationPayload
}

func (p *fakePublisher) PublishRegistration(payload queue.NotificationPayload) {
	p.published = append(p.published, payload)
}

func testRegistration() *registration.Registration {
	return &registration.Registration{
		ID:          uuid.New(),
		FullName:    "Anna Ivanova",
		Contact:     "@anna",
		DateLabel:   "21 Jan — Location A",
		TimeLabel:   "10:00",
		AllergyNote: "none",
		ProofURL:    "https://example.com/proofs/anna.jpg",
		ProofFileID: "file-123",
	}
}

func TestNotifyOperator_DirectSendAndPublish(t *testing.T) {
	sender := &fakeSender{}
	publisher := &fakePublisher{}
	svc := NewService(nil, sender, publisher, nil)

	reg := testRegistration()
	require.NoError(t, svc.NotifyOperator(context.Background(), reg))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, reg.ID, sender.sent[0].RegistrationID)
	assert.Equal(t, "Anna Ivanova", sender.sent[0].FullName)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "@anna", publisher.published[0].Contact)
}

func TestNotifyOperator_SenderErrorSurfaces(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	svc := NewService(nil, sender, nil, nil)

	err := svc.NotifyOperator(context.Background(), testRegistration())
	assert.Error(t, err)
}

func TestNotifyOperator_NoChannelConfigured(t *testing.T) {
	svc := NewService(nil, nil, nil, nil)
	assert.NoError(t, svc.NotifyOperator(context.Background(), testRegistration()))
}

func TestSummaryContainsAllFields(t *testing.T) {
	p := PayloadFor(testRegistration())
	text := Summary(p)
	assert.Contains(t, text, "Anna Ivanova")
	assert.Contains(t, text, "@anna")
	assert.Contains(t, text, "21 Jan — Location A")
	assert.Contains(t, text, "10:00")
	assert.Contains(t, text, "none")
}
