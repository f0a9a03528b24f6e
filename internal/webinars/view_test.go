package webinars

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmia/backend/internal/models"
)

func sampleWebinar() *models.Webinar {
	link := "https://meet.example.com/abc"
	return &models.Webinar{
		ID:                uuid.New(),
		Title:             "Dermocosmétique au comptoir",
		Group:             models.GroupCropTunis,
		Date:              time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC),
		MeetingLink:       &link,
		PublicationStatus: models.PublicationPublished,
	}
}

func confirmedAttendee(webinarID uuid.UUID) *models.Attendee {
	return &models.Attendee{
		WebinarID: webinarID,
		UserID:    uuid.New(),
		Status:    models.AttendeeConfirmed,
		TimeSlots: []models.TimeSlot{models.SlotEvening},
	}
}

func TestBuildView_MeetingLinkRedaction(t *testing.T) {
	w := sampleWebinar()

	tests := []struct {
		name     string
		viewer   Viewer
		status   models.WebinarStatus
		wantLink bool
	}{
		{"anonymous", Viewer{}, models.StatusUpcoming, false},
		{"admin always", Viewer{IsAdmin: true}, models.StatusPast, true},
		{"confirmed upcoming", Viewer{Own: confirmedAttendee(w.ID)}, models.StatusUpcoming, true},
		{"confirmed live", Viewer{Own: confirmedAttendee(w.ID)}, models.StatusLive, true},
		{"confirmed but closed", Viewer{Own: confirmedAttendee(w.ID)}, models.StatusRegistrationClosed, false},
		{"confirmed but past", Viewer{Own: confirmedAttendee(w.ID)}, models.StatusPast, false},
		{
			"pending upcoming",
			Viewer{Own: &models.Attendee{WebinarID: w.ID, Status: models.AttendeePending}},
			models.StatusUpcoming,
			false,
		},
		{
			"payment submitted live",
			Viewer{Own: &models.Attendee{WebinarID: w.ID, Status: models.AttendeePaymentSubmitted}},
			models.StatusLive,
			false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := BuildView(w, tc.status, tc.viewer, nil)
			if tc.wantLink {
				require.NotNil(t, v.MeetingLink)
				require.Equal(t, *w.MeetingLink, *v.MeetingLink)
			} else {
				require.Nil(t, v.MeetingLink)
			}
		})
	}
}

func TestBuildView_AttendeeVisibility(t *testing.T) {
	w := sampleWebinar()
	attendees := []models.Attendee{*confirmedAttendee(w.ID), *confirmedAttendee(w.ID)}

	admin := BuildView(w, models.StatusUpcoming, Viewer{IsAdmin: true}, attendees)
	require.Len(t, admin.Attendees, 2)
	require.Equal(t, 2, admin.AttendeeCount)

	public := BuildView(w, models.StatusUpcoming, Viewer{}, attendees)
	require.Nil(t, public.Attendees)
	require.Equal(t, 2, public.AttendeeCount)
}

func TestBuildView_OwnRegistration(t *testing.T) {
	w := sampleWebinar()

	anon := BuildView(w, models.StatusUpcoming, Viewer{}, nil)
	require.False(t, anon.IsRegistered)
	require.Nil(t, anon.MyStatus)

	own := confirmedAttendee(w.ID)
	mine := BuildView(w, models.StatusUpcoming, Viewer{Own: own}, nil)
	require.True(t, mine.IsRegistered)
	require.NotNil(t, mine.MyStatus)
	require.Equal(t, models.AttendeeConfirmed, *mine.MyStatus)
}
