package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionOverlaps(t *testing.T) {
	day := func(hour, min int) time.Time {
		return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
	}
	session := func(start, end time.Time) Session {
		return Session{StartTime: start, EndTime: end}
	}

	a := session(day(10, 0), day(11, 0))

	tests := []struct {
		name string
		b    Session
		want bool
	}{
		{"PartialOverlap", session(day(10, 30), day(11, 30)), true},
		{"Contained", session(day(10, 15), day(10, 45)), true},
		{"Identical", session(day(10, 0), day(11, 0)), true},
		{"TouchingEndStart", session(day(11, 0), day(12, 0)), false},
		{"TouchingStartEnd", session(day(9, 0), day(10, 0)), false},
		{"Disjoint", session(day(13, 0), day(14, 0)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Overlaps(&tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(&a), "overlap is symmetric")
		})
	}
}

func TestSessionCapacitySlots(t *testing.T) {
	t.Run("AvailableSlots", func(t *testing.T) {
		sc := SessionCapacity{MaximumCapacity: 10, CurrentRegistered: 7}
		assert.Equal(t, 3, sc.AvailableSlots())

		sc.CurrentRegistered = 12
		assert.Zero(t, sc.AvailableSlots(), "overrun clamps to zero")

		sc.AllowOverbooking = true
		assert.Equal(t, -2, sc.AvailableSlots(), "overbooking exposes the overrun")
	})

	t.Run("WaitlistSlots", func(t *testing.T) {
		sc := SessionCapacity{EnableWaitlist: true, WaitlistCapacity: 5, CurrentWaitlisted: 2}
		assert.Equal(t, 3, sc.WaitlistSlots())

		sc.EnableWaitlist = false
		assert.Zero(t, sc.WaitlistSlots())

		sc.EnableWaitlist = true
		sc.CurrentWaitlisted = 7
		assert.Zero(t, sc.WaitlistSlots())
	})
}
