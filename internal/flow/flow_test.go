package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-events/bookingbot/config"
	"github.com/atelier-events/bookingbot/internal/capacity"
	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/internal/schedule"
	"github.com/atelier-events/bookingbot/internal/session"
	"github.com/atelier-events/bookingbot/pkg/storage"
)

const (
	testChat int64 = 100
	testUser int64 = 200
)

type fakeGateway struct {
	persisted []registration.Registration
	proofs    []session.Attachment
	err       error
}

func (g *fakeGateway) UploadAndRecord(ctx context.Context, sess *session.Session, proof session.Attachment) (*registration.Registration, error) {
	if g.err != nil {
		return nil, g.err
	}
	reg := registration.Registration{
		ID:          uuid.New(),
		FullName:    sess.FullName,
		Contact:     sess.Contact,
		DateLabel:   sess.DateLabel,
		TimeLabel:   sess.TimeLabel,
		AllergyNote: sess.AllergyNote,
		ProofKey:    "proofs/test-key.jpg",
		ProofURL:    "https://example.com/proofs/test-key.jpg",
		ProofFileID: proof.FileID,
	}
	g.persisted = append(g.persisted, reg)
	g.proofs = append(g.proofs, proof)
	return &reg, nil
}

type fakeNotifier struct {
	notified []registration.Registration
	err      error
}

func (n *fakeNotifier) NotifyOperator(ctx context.Context, reg *registration.Registration) error {
	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, *reg)
	return nil
}

type fixture struct {
	machine  *Machine
	store    *session.MemoryStore
	tracker  *capacity.MemoryTracker
	gateway  *fakeGateway
	notifier *fakeNotifier
}

func newFixture(t *testing.T, slotMax int, retain bool) *fixture {
	t.Helper()
	catalog, err := schedule.Parse(config.DefaultOfferings)
	require.NoError(t, err)
	store := session.NewMemoryStore(0)
	t.Cleanup(store.Close)
	tracker := capacity.NewMemoryTracker(slotMax)
	gw := &fakeGateway{}
	nt := &fakeNotifier{}
	return &fixture{
		machine:  NewMachine(store, tracker, catalog, gw, nt, retain, nil),
		store:    store,
		tracker:  tracker,
		gateway:  gw,
		notifier: nt,
	}
}

func (f *fixture) mustSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.store.Get(context.Background(), session.Key(testChat, testUser))
	require.NoError(t, err)
	return sess
}

func (f *fixture) handle(t *testing.T, in Input) Reply {
	t.Helper()
	reply, err := f.machine.Handle(context.Background(), testChat, testUser, in)
	require.NoError(t, err)
	return reply
}

// advanceToConfirm walks a fresh conversation up to the review state.
func (f *fixture) advanceToConfirm(t *testing.T) {
	t.Helper()
	_, err := f.machine.Start(context.Background(), testChat, testUser)
	require.NoError(t, err)
	f.handle(t, Input{Text: "Anna Ivanova"})
	f.handle(t, Input{Text: "@anna"})
	f.handle(t, Input{Callback: "21 Jan — Location A"})
	f.handle(t, Input{Callback: "10:00"})
	f.handle(t, Input{Text: "none"})
}

func TestHappyPathPersistsEnteredValues(t *testing.T) {
	f := newFixture(t, 15, true)
	f.advanceToConfirm(t)

	f.handle(t, Input{Callback: ActionConfirm})
	reply := f.handle(t, Input{Attachment: &session.Attachment{FileID: "file-123", FileName: "receipt.jpg", MIMEType: "image/jpeg", Size: 1024}})
	assert.Equal(t, msgDone, reply.Text)

	require.Len(t, f.gateway.persisted, 1)
	reg := f.gateway.persisted[0]
	assert.Equal(t, "Anna Ivanova", reg.FullName)
	assert.Equal(t, "@anna", reg.Contact)
	assert.Equal(t, "21 Jan — Location A", reg.DateLabel)
	assert.Equal(t, "10:00", reg.TimeLabel)
	assert.Equal(t, "none", reg.AllergyNote)
	assert.NotEmpty(t, reg.ProofKey)
	assert.Equal(t, "file-123", reg.ProofFileID)

	// Exactly one operator notification, carrying the same name and contact.
	require.Len(t, f.notifier.notified, 1)
	assert.Equal(t, "Anna Ivanova", f.notifier.notified[0].FullName)
	assert.Equal(t, "@anna", f.notifier.notified[0].Contact)

	// Session is cleared on success.
	_, err := f.store.Get(context.Background(), session.Key(testChat, testUser))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestInvalidInputDoesNotMutateOrAdvance(t *testing.T) {
	f := newFixture(t, 15, true)
	_, err := f.machine.Start(context.Background(), testChat, testUser)
	require.NoError(t, err)

	// Empty text at NAME.
	f.handle(t, Input{Text: "   "})
	sess := f.mustSession(t)
	assert.Equal(t, session.StateName, sess.State)
	assert.Empty(t, sess.FullName)

	f.handle(t, Input{Text: "Anna Ivanova"})
	f.handle(t, Input{Text: "@anna"})

	// Unknown date label.
	f.handle(t, Input{Text: "30 Feb — Nowhere"})
	sess = f.mustSession(t)
	assert.Equal(t, session.StateDate, sess.State)
	assert.Empty(t, sess.DateLabel)

	f.handle(t, Input{Callback: "21 Jan — Location A"})

	// Time not offered on the chosen date.
	f.handle(t, Input{Callback: "11:00"})
	sess = f.mustSession(t)
	assert.Equal(t, session.StateTime, sess.State)
	assert.Empty(t, sess.TimeLabel)

	f.handle(t, Input{Callback: "10:00"})
	f.handle(t, Input{Text: "none"})

	// Free text in the review state re-prompts the summary.
	reply := f.handle(t, Input{Text: "yes please"})
	assert.Contains(t, reply.Text, "Anna Ivanova")
	assert.Equal(t, session.StateConfirm, f.mustSession(t).State)

	f.handle(t, Input{Callback: ActionConfirm})

	// Non-file input at PAYMENT.
	reply = f.handle(t, Input{Text: "I paid, honest"})
	assert.Contains(t, reply.Text, msgNeedAttachment)
	assert.Equal(t, session.StatePayment, f.mustSession(t).State)
	assert.Empty(t, f.gateway.persisted)
}

func TestRestartClearsAllFields(t *testing.T) {
	f := newFixture(t, 15, true)
	f.advanceToConfirm(t)

	reply := f.handle(t, Input{Callback: ActionRestart})
	assert.Contains(t, reply.Text, msgAskName)

	sess := f.mustSession(t)
	assert.Equal(t, session.StateName, sess.State)
	assert.Empty(t, sess.FullName)
	assert.Empty(t, sess.Contact)
	assert.Empty(t, sess.DateLabel)
	assert.Empty(t, sess.TimeLabel)
	assert.Empty(t, sess.AllergyNote)
	assert.False(t, sess.TermsAgreed)
}

func TestBackToDatesKeepsEarlierFields(t *testing.T) {
	f := newFixture(t, 15, true)
	_, err := f.machine.Start(context.Background(), testChat, testUser)
	require.NoError(t, err)
	f.handle(t, Input{Text: "Anna Ivanova"})
	f.handle(t, Input{Text: "@anna"})
	f.handle(t, Input{Callback: "21 Jan — Location A"})

	reply := f.handle(t, Input{Callback: ActionBackToDates})
	assert.Contains(t, reply.Text, msgAskDate)

	sess := f.mustSession(t)
	assert.Equal(t, session.StateDate, sess.State)
	assert.Empty(t, sess.DateLabel)
	assert.Empty(t, sess.TimeLabel)
	assert.Equal(t, "Anna Ivanova", sess.FullName)
	assert.Equal(t, "@anna", sess.Contact)

	// The other date's slots are selectable after going back.
	f.handle(t, Input{Callback: "22 Jan — Location B"})
	f.handle(t, Input{Callback: "13:00"})
	sess = f.mustSession(t)
	assert.Equal(t, session.StateAllergies, sess.State)
	assert.Equal(t, "22 Jan — Location B", sess.DateLabel)
	assert.Equal(t, "13:00", sess.TimeLabel)
}

func TestFullSlotRejectedAtTimeStep(t *testing.T) {
	f := newFixture(t, 1, true)

	// Occupy the only place.
	ok, err := f.tracker.TryReserve(context.Background(), "21 Jan — Location A", "10:00")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.machine.Start(context.Background(), testChat, testUser)
	require.NoError(t, err)
	f.handle(t, Input{Text: "Anna Ivanova"})
	f.handle(t, Input{Text: "@anna"})
	f.handle(t, Input{Callback: "21 Jan — Location A"})

	// Two attempts at the full slot: both rejected, count unchanged.
	for i := 0; i < 2; i++ {
		reply := f.handle(t, Input{Callback: "10:00"})
		assert.Contains(t, reply.Text, msgSlotFull)
		sess := f.mustSession(t)
		assert.Equal(t, session.StateTime, sess.State)
		assert.Empty(t, sess.TimeLabel)
	}
	n, err := f.tracker.Reserved(context.Background(), "21 Jan — Location A", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Another slot on the same date still works.
	f.handle(t, Input{Callback: "12:00"})
	assert.Equal(t, session.StateAllergies, f.mustSession(t).State)
}

func TestPersistFailureRetainPolicy(t *testing.T) {
	f := newFixture(t, 15, true)
	f.advanceToConfirm(t)
	f.handle(t, Input{Callback: ActionConfirm})

	f.gateway.err = errors.New("tabular store unreachable")
	reply := f.handle(t, Input{Attachment: &session.Attachment{FileID: "file-1", FileName: "receipt.jpg", MIMEType: "image/jpeg"}})
	assert.Equal(t, msgPersistFailedRetry, reply.Text)

	// Session intact, still waiting for the proof.
	sess := f.mustSession(t)
	assert.Equal(t, session.StatePayment, sess.State)
	assert.Equal(t, "Anna Ivanova", sess.FullName)
	assert.Empty(t, f.notifier.notified)

	// Retry succeeds without re-entering anything.
	f.gateway.err = nil
	reply = f.handle(t, Input{Attachment: &session.Attachment{FileID: "file-2", FileName: "receipt.jpg", MIMEType: "image/jpeg"}})
	assert.Equal(t, msgDone, reply.Text)
	require.Len(t, f.gateway.persisted, 1)
	require.Len(t, f.notifier.notified, 1)
}

func TestPersistFailureResetPolicy(t *testing.T) {
	f := newFixture(t, 15, false)
	f.advanceToConfirm(t)
	f.handle(t, Input{Callback: ActionConfirm})

	f.gateway.err = errors.New("tabular store unreachable")
	reply := f.handle(t, Input{Attachment: &session.Attachment{FileID: "file-1", FileName: "receipt.jpg", MIMEType: "image/jpeg"}})
	assert.Equal(t, msgPersistFailedReset, reply.Text)

	_, err := f.store.Get(context.Background(), session.Key(testChat, testUser))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestUnsupportedProofTypeRepromptsKeepingSession(t *testing.T) {
	// Reset policy: a destructive outcome would wipe the session, so this
	// proves a bad file never reaches the persistence path at all.
	f := newFixture(t, 15, false)
	f.advanceToConfirm(t)
	f.handle(t, Input{Callback: ActionConfirm})

	reply := f.handle(t, Input{Attachment: &session.Attachment{FileID: "file-1", FileName: "proof.mp4", MIMEType: "video/mp4"}})
	assert.Equal(t, msgProofRejected, reply.Text)

	sess := f.mustSession(t)
	assert.Equal(t, session.StatePayment, sess.State)
	assert.Equal(t, "Anna Ivanova", sess.FullName)
	assert.Empty(t, f.gateway.persisted)
	assert.Empty(t, f.notifier.notified)

	// A valid file on the next try completes normally.
	reply = f.handle(t, Input{Attachment: &session.Attachment{FileID: "file-2", FileName: "receipt.jpg", MIMEType: "image/jpeg"}})
	assert.Equal(t, msgDone, reply.Text)
	require.Len(t, f.gateway.persisted, 1)
}

func TestOversizeProofRepromptsKeepingSession(t *testing.T) {
	f := newFixture(t, 15, false)
	f.advanceToConfirm(t)
	f.handle(t, Input{Callback: ActionConfirm})

	reply := f.handle(t, Input{Attachment: &session.Attachment{
		FileID: "file-1", FileName: "receipt.jpg", MIMEType: "image/jpeg",
		Size: storage.MaxProofFileSize + 1,
	}})
	assert.Equal(t, msgProofRejected, reply.Text)
	assert.Equal(t, session.StatePayment, f.mustSession(t).State)
	assert.Empty(t, f.gateway.persisted)
}

func TestNotifierFailureDoesNotBlockCompletion(t *testing.T) {
	f := newFixture(t, 15, true)
	f.advanceToConfirm(t)
	f.handle(t, Input{Callback: ActionConfirm})

	f.notifier.err = errors.New("operator channel down")
	reply := f.handle(t, Input{Attachment: &session.Attachment{FileID: "file-1", FileName: "receipt.jpg", MIMEType: "image/jpeg"}})
	assert.Equal(t, msgDone, reply.Text)
	require.Len(t, f.gateway.persisted, 1)

	_, err := f.store.Get(context.Background(), session.Key(testChat, testUser))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStartClearsPriorSession(t *testing.T) {
	f := newFixture(t, 15, true)
	f.advanceToConfirm(t)

	_, err := f.machine.Start(context.Background(), testChat, testUser)
	require.NoError(t, err)

	sess := f.mustSession(t)
	assert.Equal(t, session.StateName, sess.State)
	assert.Empty(t, sess.FullName)
}

func TestHandleWithoutSessionPromptsStart(t *testing.T) {
	f := newFixture(t, 15, true)
	reply := f.handle(t, Input{Text: "hello"})
	assert.Equal(t, msgNoSession, reply.Text)
}

func TestDatePromptListsOfferings(t *testing.T) {
	f := newFixture(t, 15, true)
	_, err := f.machine.Start(context.Background(), testChat, testUser)
	require.NoError(t, err)
	f.handle(t, Input{Text: "Anna Ivanova"})
	reply := f.handle(t, Input{Text: "@anna"})

	require.Len(t, reply.Buttons, 2)
	assert.Equal(t, "21 Jan — Location A", reply.Buttons[0][0].Data)
	assert.Equal(t, "22 Jan — Location B", reply.Buttons[1][0].Data)
}

func TestTimePromptOffersBackNavigation(t *testing.T) {
	f := newFixture(t, 15, true)
	_, err := f.machine.Start(context.Background(), testChat, testUser)
	require.NoError(t, err)
	f.handle(t, Input{Text: "Anna Ivanova"})
	f.handle(t, Input{Text: "@anna"})
	reply := f.handle(t, Input{Callback: "21 Jan — Location A"})

	require.Len(t, reply.Buttons, 2)
	assert.Len(t, reply.Buttons[0], 3) // 10:00, 12:00, 14:00
	assert.Equal(t, ActionBackToDates, reply.Buttons[1][0].Data)
}
