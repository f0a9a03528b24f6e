package webinars

import (
	"time"

	"github.com/pharmia/backend/internal/models"
)

// Product policy constants. The PHARMIA format runs the Tuesday live session
// through the Friday replay, and same-day registrations close at 16:00.
const (
	registrationCutoffHour = 16
	pharmiaReplayDays      = 3
)

// EffectiveEndDate returns the instant a webinar's validity window closes in
// the given zone. PHARMIA webinars stay valid three days past the scheduled
// date, through end of that day.
func EffectiveEndDate(w *models.Webinar, loc *time.Location) time.Time {
	d := w.Date.In(loc)
	if w.Group == models.GroupPharmia {
		d = d.AddDate(0, 0, pharmiaReplayDays)
		d = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999000000, loc)
	}
	return d
}

// CalculatedStatus derives the lifecycle label for a webinar from wall-clock
// time. It is recomputed on every read and never persisted, since "now"
// always advances.
func CalculatedStatus(w *models.Webinar, now time.Time, loc *time.Location) models.WebinarStatus {
	end := EffectiveEndDate(w, loc)
	nowLocal := now.In(loc)

	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	today := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc)

	switch {
	case endDay.Before(today):
		return models.StatusPast
	case endDay.After(today):
		return models.StatusUpcoming
	}

	cutoff := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), registrationCutoffHour, 0, 0, 0, loc)
	if nowLocal.Before(cutoff) {
		return models.StatusUpcoming
	}
	if nowLocal.After(end) {
		return models.StatusLive
	}
	return models.StatusRegistrationClosed
}

// Expired reports whether a webinar's validity window has fully elapsed. The
// cart uses it to refuse seats that can no longer be attended.
func Expired(w *models.Webinar, now time.Time, loc *time.Location) bool {
	return CalculatedStatus(w, now, loc) == models.StatusPast
}
