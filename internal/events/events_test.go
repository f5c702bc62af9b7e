package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	var failures []error
	bus := NewEventBus(func(_ Event, err error) { failures = append(failures, err) })

	var got []Event
	bus.Subscribe(AppointmentChanged, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe(AppointmentChanged, func(Event) error { return errors.New("handler failed") })
	bus.Subscribe(ScheduleUpdated, func(Event) error {
		t.Fatal("schedule handler must not run")
		return nil
	})

	require.NoError(t, bus.PublishJSON(AppointmentChanged, AppointmentPayload{AppointmentID: "a1", TeamMemberID: "ana", Status: "confirmed"}))
	bus.Publish(Event{Type: AppointmentChanged})

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.False(t, got[0].CreatedAt.IsZero())

	var p AppointmentPayload
	require.NoError(t, got[0].Decode(&p))
	assert.Equal(t, "ana", p.TeamMemberID)

	assert.Len(t, failures, 2)
}

func TestEventBus_NoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	assert.NotPanics(t, func() { bus.Publish(Event{Type: ScheduleUpdated}) })
	assert.Error(t, bus.PublishJSON(ScheduleUpdated, make(chan int)))
}
