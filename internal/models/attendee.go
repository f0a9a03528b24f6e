package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendeeStatus is the registration lifecycle state for one webinar/user pair.
type AttendeeStatus string

const (
	AttendeePending          AttendeeStatus = "PENDING"
	AttendeePaymentSubmitted AttendeeStatus = "PAYMENT_SUBMITTED"
	AttendeeConfirmed        AttendeeStatus = "CONFIRMED"
)

// allowedTransitions maps each status to the statuses it may advance to.
// CONFIRMED is terminal; removal is a hard delete, not a transition.
var allowedTransitions = map[AttendeeStatus][]AttendeeStatus{
	AttendeePending:          {AttendeePaymentSubmitted, AttendeeConfirmed},
	AttendeePaymentSubmitted: {AttendeePaymentSubmitted, AttendeeConfirmed},
	AttendeeConfirmed:        {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to AttendeeStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TimeSlot is a session slot an attendee signs up for.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "MORNING"
	SlotAfternoon TimeSlot = "AFTERNOON"
	SlotEvening   TimeSlot = "EVENING"
)

// ParseTimeSlot maps a string to a TimeSlot, rejecting unknown values.
func ParseTimeSlot(s string) (TimeSlot, bool) {
	switch TimeSlot(s) {
	case SlotMorning, SlotAfternoon, SlotEvening:
		return TimeSlot(s), true
	}
	return "", false
}

// ParseTimeSlots validates and deduplicates a slot list. It returns false when
// the input is empty or contains an unknown value.
func ParseTimeSlots(in []string) ([]TimeSlot, bool) {
	if len(in) == 0 {
		return nil, false
	}
	seen := make(map[TimeSlot]struct{}, len(in))
	out := make([]TimeSlot, 0, len(in))
	for _, s := range in {
		slot, ok := ParseTimeSlot(s)
		if !ok {
			return nil, false
		}
		if _, dup := seen[slot]; dup {
			continue
		}
		seen[slot] = struct{}{}
		out = append(out, slot)
	}
	return out, true
}

// Attendee is one user's registration on one webinar.
type Attendee struct {
	WebinarID    uuid.UUID      `json:"webinar_id"`
	UserID       uuid.UUID      `json:"user_id"`
	Status       AttendeeStatus `json:"status"`
	TimeSlots    []TimeSlot     `json:"time_slots"`
	ProofURL     *string        `json:"proof_url,omitempty"`
	UsedCredit   bool           `json:"used_credit"`
	RegisteredAt time.Time      `json:"registered_at"`
}
