package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarGroup identifies the billing/program family a webinar belongs to.
type WebinarGroup string

const (
	GroupCropTunis   WebinarGroup = "CROP_TUNIS"
	GroupPharmia     WebinarGroup = "PHARMIA"
	GroupMasterClass WebinarGroup = "MASTER_CLASS"
)

// ParseGroup maps a string to a WebinarGroup, rejecting unknown values.
func ParseGroup(s string) (WebinarGroup, bool) {
	switch WebinarGroup(s) {
	case GroupCropTunis, GroupPharmia, GroupMasterClass:
		return WebinarGroup(s), true
	}
	return "", false
}

// PublicationStatus controls whether non-admin users can see a webinar.
type PublicationStatus string

const (
	PublicationDraft     PublicationStatus = "DRAFT"
	PublicationPublished PublicationStatus = "PUBLISHED"
)

// WebinarStatus is the wall-clock-derived lifecycle label. It is computed on
// every read and never persisted.
type WebinarStatus string

const (
	StatusUpcoming           WebinarStatus = "UPCOMING"
	StatusLive               WebinarStatus = "LIVE"
	StatusRegistrationClosed WebinarStatus = "REGISTRATION_CLOSED"
	StatusPast               WebinarStatus = "PAST"
)

// Resource is a supporting document or link attached to a webinar.
type Resource struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Webinar represents a scheduled training session.
type Webinar struct {
	ID                uuid.UUID         `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Presenter         string            `json:"presenter"`
	Date              time.Time         `json:"date"`
	Group             WebinarGroup      `json:"group"`
	Price             float64           `json:"price"` // 0 = free
	MeetingLink       *string           `json:"meeting_link,omitempty"`
	PublicationStatus PublicationStatus `json:"publication_status"`
	Resources         []Resource        `json:"resources"`
	LinkedContentIDs  []uuid.UUID       `json:"linked_content_ids"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsFree reports whether the webinar costs nothing to attend.
func (w *Webinar) IsFree() bool { return w.Price == 0 }
