package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to AttendeeStatus
		want     bool
	}{
		{AttendeePending, AttendeePaymentSubmitted, true},
		{AttendeePending, AttendeeConfirmed, true},
		{AttendeePaymentSubmitted, AttendeeConfirmed, true},
		{AttendeePaymentSubmitted, AttendeePaymentSubmitted, true}, // proof re-upload
		{AttendeeConfirmed, AttendeePending, false},
		{AttendeeConfirmed, AttendeePaymentSubmitted, false},
		{AttendeeConfirmed, AttendeeConfirmed, false},
		{AttendeePaymentSubmitted, AttendeePending, false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, CanTransition(tc.from, tc.to),
			"from %s to %s", tc.from, tc.to)
	}
}

func TestConfirmedIsTerminal(t *testing.T) {
	for _, to := range []AttendeeStatus{AttendeePending, AttendeePaymentSubmitted, AttendeeConfirmed} {
		require.False(t, CanTransition(AttendeeConfirmed, to))
	}
}

func TestParseTimeSlots(t *testing.T) {
	slots, ok := ParseTimeSlots([]string{"MORNING", "EVENING"})
	require.True(t, ok)
	require.Equal(t, []TimeSlot{SlotMorning, SlotEvening}, slots)

	slots, ok = ParseTimeSlots([]string{"MORNING", "MORNING", "AFTERNOON"})
	require.True(t, ok)
	require.Equal(t, []TimeSlot{SlotMorning, SlotAfternoon}, slots)

	_, ok = ParseTimeSlots(nil)
	require.False(t, ok)

	_, ok = ParseTimeSlots([]string{"MORNING", "MIDNIGHT"})
	require.False(t, ok)

	_, ok = ParseTimeSlots([]string{"morning"})
	require.False(t, ok)
}

func TestPoolForGroup(t *testing.T) {
	pool, ok := PoolForGroup(GroupMasterClass)
	require.True(t, ok)
	require.Equal(t, PoolMasterClass, pool)

	pool, ok = PoolForGroup(GroupPharmia)
	require.True(t, ok)
	require.Equal(t, PoolPharmia, pool)

	_, ok = PoolForGroup(GroupCropTunis)
	require.False(t, ok)
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("admin")
	require.True(t, ok)
	require.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("superuser")
	require.False(t, ok)
}
