package webinars

import "errors"

var (
	// ErrAlreadyRegistered means an attendee row already exists for this
	// webinar/user pair.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrAttendeeNotFound means no attendee row matched the webinar/user pair.
	ErrAttendeeNotFound = errors.New("attendee not found")
	// ErrNotAwaitingConfirmation means a confirm matched no PAYMENT_SUBMITTED
	// row: the attendee never submitted proof, was already confirmed, or a
	// concurrent confirm won.
	ErrNotAwaitingConfirmation = errors.New("attendee is not awaiting confirmation")
	// ErrPhoneRequired means a free registration was attempted without a phone
	// number on the profile.
	ErrPhoneRequired = errors.New("phone number required")
	// ErrCreditNotAllowed means the webinar's group has no credit pool.
	ErrCreditNotAllowed = errors.New("credits cannot be used for this webinar group")
	// ErrHasAttendees means a webinar delete was refused because attendees
	// exist and force was not set.
	ErrHasAttendees = errors.New("webinar has attendees")
)
