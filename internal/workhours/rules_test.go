package workhours

import (
	"testing"
	"time"

	"agenda/internal/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHourRange(t *testing.T) {
	tests := []struct {
		input    string
		expected HourRange
		wantErr  bool
	}{
		{input: "09:00-17:00", expected: hr(9, 0, 17, 0)},
		{input: " 8:30 - 12:15 ", expected: hr(8, 30, 12, 15)},
		{input: "20:00-24:00", expected: hr(20, 0, 24, 0)},
		{input: "17:00-09:00", wantErr: true},
		{input: "09:00-09:00", wantErr: true},
		{input: "25:00-26:00", wantErr: true},
		{input: "09:00-24:30", wantErr: true},
		{input: "09:60-10:00", wantErr: true},
		{input: "0900-1000", wantErr: true},
		{input: "09:00", wantErr: true},
		{input: "ab:cd-ef:gh", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHourRange(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestHourRange_String(t *testing.T) {
	assert.Equal(t, "09:05-17:00", hr(9, 5, 17, 0).String())
}

func TestValidateWeekly(t *testing.T) {
	assert.NoError(t, ValidateWeekly([]DayOfWeekRule{
		{DayOfWeek: 0},
		{DayOfWeek: 1, Ranges: []HourRange{hr(9, 0, 12, 0), hr(12, 0, 18, 0)}},
	}))

	assert.ErrorContains(t, ValidateWeekly([]DayOfWeekRule{{DayOfWeek: 7}}), "invalid day")
	assert.ErrorContains(t, ValidateWeekly([]DayOfWeekRule{{DayOfWeek: 1}, {DayOfWeek: 1}}), "duplicate day")
	assert.ErrorContains(t, ValidateWeekly([]DayOfWeekRule{
		{DayOfWeek: 2, Ranges: []HourRange{hr(9, 0, 13, 0), hr(12, 0, 18, 0)}},
	}), "overlaps")
}

func TestValidateSpecialDays(t *testing.T) {
	d := calendar.Date{Year: 2025, Month: time.December, Day: 25}
	assert.NoError(t, ValidateSpecialDays([]SpecialDayRule{{Date: d}}))
	assert.ErrorContains(t, ValidateSpecialDays([]SpecialDayRule{{Date: d}, {Date: d}}), "duplicate date")
	assert.Error(t, ValidateSpecialDays([]SpecialDayRule{{Date: d, Ranges: []HourRange{hr(10, 0, 9, 0)}}}))
}
