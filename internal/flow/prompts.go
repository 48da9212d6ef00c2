package flow

import (
	"fmt"

	"github.com/atelier-events/bookingbot/internal/session"
)

const (
	msgWelcome   = "Hi! Let's get you registered for the event."
	msgNoSession = "Send /start to begin your registration."
	msgRestarted = "Okay, starting over. Your previous answers were discarded."

	msgAskName      = "What is your full name?"
	msgAskContact   = "How can we reach you? Send a phone number or a @handle."
	msgAskDate      = "Pick a date and location:"
	msgAskTime      = "Pick a time slot:"
	msgAskAllergies = "Any allergies or medical notes we should know about? Send \"none\" if not."
	msgAskPayment   = "Please send your payment confirmation as a photo or document."
	msgDone         = "All set — you are registered! We'll see you there."

	msgNeedText       = "Please answer with a text message."
	msgNeedAttachment = "That doesn't look like a file. Attach a photo or document of your payment."
	msgProofRejected  = "We can't accept that file. Send the proof as a JPG, PNG or WEBP photo, or a PDF, up to 10 MB."
	msgUnknownDate    = "Please choose one of the offered dates."
	msgUnknownTime    = "Please choose one of the offered times."
	msgSlotFull       = "Sorry, that time slot is fully booked. Pick another one."
	msgTryLater       = "Something went wrong on our side. Please try again later."

	msgPersistFailedRetry = "We couldn't save your registration. Your answers are kept — please send the payment proof again in a minute."
	msgPersistFailedReset = "We couldn't save your registration. Please send /start and try again later."

	labelConfirm     = "✅ Confirm"
	labelRestart     = "🔄 Start over"
	labelBackToDates = "⬅️ Choose another date"
)

// summary renders the review shown in the confirmation state.
func summary(sess *session.Session) string {
	return fmt.Sprintf(
		"Please review your registration:\n\n"+
			"Name: %s\n"+
			"Contact: %s\n"+
			"Date: %s\n"+
			"Time: %s\n"+
			"Allergies: %s\n\n"+
			"Confirming means you agree to the event terms.",
		sess.FullName, sess.Contact, sess.DateLabel, sess.TimeLabel, sess.AllergyNote,
	)
}
