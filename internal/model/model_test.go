package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datetime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestService_Duration(t *testing.T) {
	s := Service{DurationMinutes: 90, IsActive: true}
	assert.Equal(t, 90*time.Minute, s.Duration())
	assert.True(t, s.IsAvailable())

	s.IsActive = false
	assert.False(t, s.IsAvailable())

	zero := Service{IsActive: true}
	assert.False(t, zero.IsAvailable())
}

func TestTeamMember_Offers(t *testing.T) {
	m := TeamMember{ServiceIDs: []string{"manicure", "pedicure"}}
	assert.True(t, m.Offers("pedicure"))
	assert.False(t, m.Offers("haircut"))
}

func TestAppointment_Duration(t *testing.T) {
	a := Appointment{
		StartAt: datetime(2026, 1, 15, 10, 0),
		EndAt:   datetime(2026, 1, 15, 11, 30),
	}
	assert.Equal(t, 90*time.Minute, a.Duration())
}

func TestAppointment_OverlapsWith(t *testing.T) {
	existing := Appointment{
		StartAt: datetime(2026, 1, 15, 10, 0),
		EndAt:   datetime(2026, 1, 15, 14, 0),
	}

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected bool
	}{
		{"before", datetime(2026, 1, 15, 8, 0), datetime(2026, 1, 15, 10, 0), false},
		{"after", datetime(2026, 1, 15, 14, 0), datetime(2026, 1, 15, 16, 0), false},
		{"starts during", datetime(2026, 1, 15, 12, 0), datetime(2026, 1, 15, 16, 0), true},
		{"contained", datetime(2026, 1, 15, 11, 0), datetime(2026, 1, 15, 13, 0), true},
		{"covers", datetime(2026, 1, 15, 9, 0), datetime(2026, 1, 15, 15, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := Appointment{StartAt: tt.start, EndAt: tt.end}
			assert.Equal(t, tt.expected, existing.OverlapsWith(&other))
		})
	}
}

func TestAppointment_Blocks(t *testing.T) {
	for status, blocks := range map[string]bool{
		StatusPending:   true,
		StatusConfirmed: true,
		StatusCompleted: false,
		StatusCancelled: false,
	} {
		a := Appointment{Status: status}
		assert.Equal(t, blocks, a.Blocks(), status)
	}
}

func TestAppointment_Transitions(t *testing.T) {
	now := datetime(2026, 1, 15, 9, 0)

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{"confirm pending", StatusPending, StatusConfirmed, false},
		{"confirm confirmed", StatusConfirmed, StatusConfirmed, true},
		{"confirm cancelled", StatusCancelled, StatusConfirmed, true},
		{"cancel pending", StatusPending, StatusCancelled, false},
		{"cancel confirmed", StatusConfirmed, StatusCancelled, false},
		{"cancel completed", StatusCompleted, StatusCancelled, true},
		{"complete confirmed", StatusConfirmed, StatusCompleted, false},
		{"complete pending", StatusPending, StatusCompleted, true},
		{"back to pending", StatusConfirmed, StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Appointment{ID: "a1", Status: tt.from}
			err := a.Transition(tt.to, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				assert.Equal(t, tt.from, a.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, a.Status)
		})
	}
}

func TestAppointment_TimestampsOnTransition(t *testing.T) {
	now := datetime(2026, 1, 15, 9, 0)

	a := Appointment{Status: StatusConfirmed}
	require.NoError(t, a.Complete(now))
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, now, *a.CompletedAt)

	b := Appointment{Status: StatusPending}
	require.NoError(t, b.Cancel(now))
	require.NotNil(t, b.CancelledAt)
	assert.Nil(t, b.CompletedAt)
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.False(t, ValidStatus("done"))
}
