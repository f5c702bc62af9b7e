package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_AddDays(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d.AddDays(1))
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 1}, d.AddDays(2))
	assert.Equal(t, Date{Year: 2023, Month: time.December, Day: 31}, Date{Year: 2024, Month: time.January, Day: 1}.AddDays(-1))
}

func TestDate_Weekday(t *testing.T) {
	assert.Equal(t, time.Monday, Date{Year: 2026, Month: time.January, Day: 12}.Weekday())
	assert.Equal(t, time.Sunday, Date{Year: 2026, Month: time.March, Day: 8}.Weekday())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-12")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-12", d.String())

	_, err = ParseDate("12-01-2026")
	assert.Error(t, err)
}

func TestDate_Compare(t *testing.T) {
	a := Date{Year: 2026, Month: time.January, Day: 12}
	b := a.AddDays(1)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
}

func TestDate_TextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2025-12-31")))
	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2025-12-31", string(out))
}

func TestLocalInstant_UsesOffsetOfThatDay(t *testing.T) {
	loc := MustLoadZone("America/New_York")

	winter := LocalInstant(Date{Year: 2026, Month: time.March, Day: 7}, 9, 0, loc)
	summer := LocalInstant(Date{Year: 2026, Month: time.March, Day: 9}, 9, 0, loc)

	assert.Equal(t, 14, winter.UTC().Hour())
	assert.Equal(t, 13, summer.UTC().Hour())
}

func TestDateOf(t *testing.T) {
	loc := MustLoadZone("America/Bogota")
	instant := time.Date(2025, 1, 11, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, Date{Year: 2025, Month: time.January, Day: 10}, DateOf(instant, loc))
}
