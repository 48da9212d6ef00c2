// Package flow implements the guided registration state machine. It is
// transport-agnostic: inputs arrive as text, callback actions, or
// attachment references, and replies carry text plus an optional inline
// keyboard for the transport to render.
package flow

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/atelier-events/bookingbot/internal/capacity"
	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/internal/schedule"
	"github.com/atelier-events/bookingbot/internal/session"
	"github.com/atelier-events/bookingbot/pkg/storage"
)

// Callback actions understood by the machine.
const (
	ActionConfirm     = "confirm"
	ActionRestart     = "restart"
	ActionBackToDates = "back_to_dates"
)

// Input is one user event: exactly one of Text, Callback, or Attachment
// is meaningful.
type Input struct {
	Text       string
	Callback   string
	Attachment *session.Attachment
}

// Button is one inline keyboard button.
type Button struct {
	Label string
	Data  string
}

// Reply is the machine's answer to one input.
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Gateway persists a completed registration: proof upload plus one row.
// All-or-nothing from the machine's point of view.
type Gateway interface {
	UploadAndRecord(ctx context.Context, sess *session.Session, proof session.Attachment) (*registration.Registration, error)
}

// Notifier announces a completed registration to the operator.
// Failures are logged only; they never block the flow.
type Notifier interface {
	NotifyOperator(ctx context.Context, reg *registration.Registration) error
}

// Machine sequences the registration steps for every conversation.
type Machine struct {
	store    session.Store
	tracker  capacity.Tracker
	catalog  *schedule.Catalog
	gateway  Gateway
	notifier Notifier
	// retain keeps the session in the payment state when persistence
	// fails, so the user only has to resend the proof. When false the
	// session is cleared instead (PERSIST_FAILURE_POLICY=reset).
	retain bool
	logger *zap.Logger
}

// NewMachine creates a flow machine.
func NewMachine(store session.Store, tracker capacity.Tracker, catalog *schedule.Catalog, gw Gateway, notifier Notifier, retainOnFailure bool, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		store:    store,
		tracker:  tracker,
		catalog:  catalog,
		gateway:  gw,
		notifier: notifier,
		retain:   retainOnFailure,
		logger:   logger,
	}
}

// Start begins a new registration for the conversation, clearing any
// prior session for the same identity.
func (m *Machine) Start(ctx context.Context, chatID, userID int64) (Reply, error) {
	if err := m.store.Delete(ctx, session.Key(chatID, userID)); err != nil {
		return replyError(), err
	}
	sess := session.New(chatID, userID)
	if err := m.store.Put(ctx, sess); err != nil {
		return replyError(), err
	}
	return Reply{Text: msgWelcome + "\n\n" + msgAskName}, nil
}

// Handle processes one input for the conversation. A rejected input never
// mutates the session and never advances the state.
func (m *Machine) Handle(ctx context.Context, chatID, userID int64, in Input) (Reply, error) {
	sess, err := m.store.Get(ctx, session.Key(chatID, userID))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Reply{Text: msgNoSession}, nil
		}
		return replyError(), err
	}

	switch sess.State {
	case session.StateName:
		return m.handleName(ctx, sess, in)
	case session.StateContact:
		return m.handleContact(ctx, sess, in)
	case session.StateDate:
		return m.handleDate(ctx, sess, in)
	case session.StateTime:
		return m.handleTime(ctx, sess, in)
	case session.StateAllergies:
		return m.handleAllergies(ctx, sess, in)
	case session.StateConfirm:
		return m.handleConfirm(ctx, sess, in)
	case session.StatePayment:
		return m.handlePayment(ctx, sess, in)
	default:
		m.logger.Warn("session in unknown state", zap.Int("state", int(sess.State)))
		return Reply{Text: msgNoSession}, nil
	}
}

func (m *Machine) handleName(ctx context.Context, sess *session.Session, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Reply{Text: msgNeedText + "\n\n" + msgAskName}, nil
	}
	sess.FullName = text
	sess.State = session.StateContact
	if err := m.store.Put(ctx, sess); err != nil {
		return replyError(), err
	}
	return Reply{Text: msgAskContact}, nil
}

func (m *Machine) handleContact(ctx context.Context, sess *session.Session, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Reply{Text: msgNeedText + "\n\n" + msgAskContact}, nil
	}
	sess.Contact = text
	sess.State = session.StateDate
	if err := m.store.Put(ctx, sess); err != nil {
		return replyError(), err
	}
	return m.promptDate(msgAskDate), nil
}

func (m *Machine) handleDate(ctx context.Context, sess *session.Session, in Input) (Reply, error) {
	choice := chosen(in)
	if !m.catalog.HasDate(choice) {
		return m.promptDate(msgUnknownDate + "\n\n" + msgAskDate), nil
	}
	sess.DateLabel = choice
	sess.State = session.StateTime
	if err := m.store.Put(ctx, sess); err != nil {
		return replyError(), err
	}
	return m.promptTime(sess.DateLabel, msgAskTime), nil
}

func (m *Machine) handleTime(ctx context.Context, sess *session.Session, in Input) (Reply, error) {
	choice := chosen(in)
	if choice == ActionBackToDates {
		// The time list depends on the date, so both are discarded;
		// name, contact, and allergy fields survive.
		sess.DateLabel = ""
		sess.TimeLabel = ""
		sess.State = session.StateDate
		if err := m.store.Put(ctx, sess); err != nil {
			return replyError(), err
		}
		return m.promptDate(msgAskDate), nil
	}
	if !m.catalog.HasTime(sess.DateLabel, choice) {
		return m.promptTime(sess.DateLabel, msgUnknownTime+"\n\n"+msgAskTime), nil
	}
	ok, err := m.tracker.TryReserve(ctx, sess.DateLabel, choice)
	if err != nil {
		m.logger.Error("reserve slot failed", zap.Error(err),
			zap.String("date", sess.DateLabel), zap.String("time", choice))
		return replyError(), nil
	}
	if !ok {
		return m.promptTime(sess.DateLabel, msgSlotFull+"\n\n"+msgAskTime), nil
	}
	sess.TimeLabel = choice
	sess.State = session.StateAllergies
	if err := m.store.Put(ctx, sess); err != nil {
		return replyError(), err
	}
	return Reply{Text: msgAskAllergies}, nil
}

func (m *Machine) handleAllergies(ctx context.Context, sess *session.Session, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Reply{Text: msgNeedText + "\n\n" + msgAskAllergies}, nil
	}
	sess.AllergyNote = text
	sess.State = session.StateConfirm
	if err := m.store.Put(ctx, sess); err != nil {
		return replyError(), err
	}
	return promptConfirm(sess), nil
}

func (m *Machine) handleConfirm(ctx context.Context, sess *session.Session, in Input) (Reply, error) {
	switch in.Callback {
	case ActionConfirm:
		sess.TermsAgreed = true
		sess.State = session.StatePayment
		if err := m.store.Put(ctx, sess); err != nil {
			return replyError(), err
		}
		return Reply{Text: msgAskPayment}, nil
	case ActionRestart:
		// Full reset: every collected field is cleared before NAME.
		fresh := session.New(sess.ChatID, sess.UserID)
		if err := m.store.Put(ctx, fresh); err != nil {
			return replyError(), err
		}
		return Reply{Text: msgRestarted + "\n\n" + msgAskName}, nil
	default:
		// Review state: free text is not a valid transition.
		return promptConfirm(sess), nil
	}
}

func (m *Machine) handlePayment(ctx context.Context, sess *session.Session, in Input) (Reply, error) {
	if in.Attachment == nil {
		return Reply{Text: msgNeedAttachment + "\n\n" + msgAskPayment}, nil
	}
	// An unsupported or oversize file is a validation failure like any
	// other bad input: re-prompt, leave the session untouched. Only
	// failures past this point are persistence failures.
	if !storage.ValidateProofFileType(in.Attachment.MIMEType, in.Attachment.FileName) ||
		in.Attachment.Size > storage.MaxProofFileSize {
		return Reply{Text: msgProofRejected}, nil
	}

	reg, err := m.gateway.UploadAndRecord(ctx, sess, *in.Attachment)
	if err != nil {
		m.logger.Error("persist registration failed", zap.Error(err),
			zap.String("conversation", sess.Key()))
		if m.retain {
			return Reply{Text: msgPersistFailedRetry}, nil
		}
		if delErr := m.store.Delete(ctx, sess.Key()); delErr != nil {
			m.logger.Error("clear session failed", zap.Error(delErr))
		}
		return Reply{Text: msgPersistFailedReset}, nil
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyOperator(ctx, reg); err != nil {
			m.logger.Warn("operator notification failed", zap.Error(err),
				zap.String("registration_id", reg.ID.String()))
		}
	}

	if err := m.store.Delete(ctx, sess.Key()); err != nil {
		m.logger.Error("clear session failed", zap.Error(err))
	}
	m.logger.Info("registration completed",
		zap.String("registration_id", reg.ID.String()),
		zap.String("date", reg.DateLabel), zap.String("time", reg.TimeLabel))
	return Reply{Text: msgDone}, nil
}

// chosen returns the callback value if set, otherwise the trimmed text.
// Constrained steps accept either a button press or typed input.
func chosen(in Input) string {
	if in.Callback != "" {
		return in.Callback
	}
	return strings.TrimSpace(in.Text)
}

func (m *Machine) promptDate(text string) Reply {
	var rows [][]Button
	for _, label := range m.catalog.DateLabels() {
		rows = append(rows, []Button{{Label: label, Data: label}})
	}
	return Reply{Text: text, Buttons: rows}
}

func (m *Machine) promptTime(dateLabel, text string) Reply {
	var row []Button
	for _, t := range m.catalog.TimesFor(dateLabel) {
		row = append(row, Button{Label: t, Data: t})
	}
	return Reply{
		Text: text,
		Buttons: [][]Button{
			row,
			{{Label: labelBackToDates, Data: ActionBackToDates}},
		},
	}
}

func promptConfirm(sess *session.Session) Reply {
	return Reply{
		Text: summary(sess),
		Buttons: [][]Button{{
			{Label: labelConfirm, Data: ActionConfirm},
			{Label: labelRestart, Data: ActionRestart},
		}},
	}
}

func replyError() Reply {
	return Reply{Text: msgTryLater}
}
