package webinars

import (
	"time"

	"github.com/google/uuid"

	"github.com/pharmia/backend/internal/models"
)

// Viewer describes who a webinar payload is being built for.
type Viewer struct {
	IsAdmin bool
	// Own is the requester's attendee row on this webinar, nil when not
	// registered (or anonymous).
	Own *models.Attendee
}

// View is the webinar payload shaped for one requester. Attendee lists and
// proof links only appear for admins; the meeting link only when the requester
// may actually join.
type View struct {
	ID                uuid.UUID                `json:"id"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description"`
	Presenter         string                   `json:"presenter"`
	Date              time.Time                `json:"date"`
	Group             models.WebinarGroup      `json:"group"`
	Price             float64                  `json:"price"`
	Status            models.WebinarStatus     `json:"status"`
	PublicationStatus models.PublicationStatus `json:"publication_status"`
	Resources         []models.Resource        `json:"resources"`
	LinkedContentIDs  []uuid.UUID              `json:"linked_content_ids"`
	MeetingLink       *string                  `json:"meeting_link,omitempty"`
	IsRegistered      bool                     `json:"is_registered"`
	MyStatus          *models.AttendeeStatus   `json:"my_status,omitempty"`
	Attendees         []models.Attendee        `json:"attendees,omitempty"`
	AttendeeCount     int                      `json:"attendee_count"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// BuildView projects a webinar for one requester.
//
// The meeting link is included only for admins, or when the requester's own
// registration is CONFIRMED and the computed status is UPCOMING or LIVE. In
// every other case it is stripped before the payload leaves the server.
func BuildView(w *models.Webinar, status models.WebinarStatus, viewer Viewer, attendees []models.Attendee) View {
	v := View{
		ID:                w.ID,
		Title:             w.Title,
		Description:       w.Description,
		Presenter:         w.Presenter,
		Date:              w.Date,
		Group:             w.Group,
		Price:             w.Price,
		Status:            status,
		PublicationStatus: w.PublicationStatus,
		Resources:         w.Resources,
		LinkedContentIDs:  w.LinkedContentIDs,
		AttendeeCount:     len(attendees),
	}

	if viewer.Own != nil {
		v.IsRegistered = true
		s := viewer.Own.Status
		v.MyStatus = &s
	}

	if viewer.IsAdmin {
		v.Attendees = attendees
		v.MeetingLink = w.MeetingLink
		return v
	}

	joinable := status == models.StatusUpcoming || status == models.StatusLive
	if viewer.Own != nil && viewer.Own.Status == models.AttendeeConfirmed && joinable {
		v.MeetingLink = w.MeetingLink
	}
	return v
}
