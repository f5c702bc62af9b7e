package availability

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agenda/internal/calendar"
	"agenda/internal/events"
	"agenda/internal/model"
	"agenda/internal/slots"
	"agenda/internal/workhours"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetService(ctx context.Context, id string) (*model.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Service), args.Error(1)
}

func (m *mockStore) ListActiveTeamMembersByService(ctx context.Context, serviceID string) ([]model.TeamMember, error) {
	args := m.Called(ctx, serviceID)
	return args.Get(0).([]model.TeamMember), args.Error(1)
}

func (m *mockStore) FindWeeklyConfig(ctx context.Context) ([]workhours.DayOfWeekRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]workhours.DayOfWeekRule), args.Error(1)
}

func (m *mockStore) FindTeamMemberWeeklyConfig(ctx context.Context, id string) ([]workhours.DayOfWeekRule, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]workhours.DayOfWeekRule), args.Error(1)
}

func (m *mockStore) FindSpecialDayRules(ctx context.Context, id string, from, to calendar.Date) ([]workhours.SpecialDayRule, error) {
	args := m.Called(ctx, id, from, to)
	return args.Get(0).([]workhours.SpecialDayRule), args.Error(1)
}

func (m *mockStore) FindOverlappingAppointments(ctx context.Context, start, end time.Time, ids ...string) ([]model.Appointment, error) {
	args := m.Called(ctx, start, end, ids)
	return args.Get(0).([]model.Appointment), args.Error(1)
}

var bogota = calendar.MustLoadZone("America/Bogota")

// 2025-01-13 is a Monday.
func localTime(day, hour, minute int) time.Time {
	return time.Date(2025, 1, day, hour, minute, 0, 0, bogota)
}

func mondayMorning() []workhours.DayOfWeekRule {
	return []workhours.DayOfWeekRule{{
		DayOfWeek: int(time.Monday),
		Ranges:    []workhours.HourRange{{StartHour: 9, EndHour: 12}},
	}}
}

type fixture struct {
	service      *model.Service
	serviceErr   error
	members      []model.TeamMember
	orgWeekly    []workhours.DayOfWeekRule
	memberWeekly map[string][]workhours.DayOfWeekRule
	memberDays   map[string][]workhours.SpecialDayRule
	appointments []model.Appointment
}

func newFixture() *fixture {
	return &fixture{
		service:   &model.Service{ID: "manicure", Name: "Manicure", DurationMinutes: 60, IsActive: true},
		members:   []model.TeamMember{{ID: "ana", Name: "Ana", IsActive: true}},
		orgWeekly: mondayMorning(),
	}
}

func (f *fixture) store() *mockStore {
	m := new(mockStore)
	if f.service == nil {
		err := f.serviceErr
		if err == nil {
			err = model.ErrNotFound
		}
		m.On("GetService", mock.Anything, mock.Anything).Return(nil, err)
	} else {
		m.On("GetService", mock.Anything, f.service.ID).Return(f.service, nil)
	}
	m.On("ListActiveTeamMembersByService", mock.Anything, mock.Anything).Return(f.members, nil)
	m.On("FindWeeklyConfig", mock.Anything).Return(f.orgWeekly, nil)
	m.On("FindSpecialDayRules", mock.Anything, "", mock.Anything, mock.Anything).Return([]workhours.SpecialDayRule(nil), nil)
	for _, member := range f.members {
		m.On("FindTeamMemberWeeklyConfig", mock.Anything, member.ID).Return(f.memberWeekly[member.ID], nil)
		m.On("FindSpecialDayRules", mock.Anything, member.ID, mock.Anything, mock.Anything).Return(f.memberDays[member.ID], nil)
	}
	m.On("FindOverlappingAppointments", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(f.appointments, nil)
	return m
}

func newTestService(t *testing.T, store Store, now time.Time) *Service {
	t.Helper()
	logger := zerolog.New(io.Discard)
	opts := Options{
		TimeZone:      "America/Bogota",
		MaxFutureDays: 1,
		Interval:      30 * time.Minute,
		Now:           func() time.Time { return now },
	}
	svc, err := NewService(store, opts, &logger)
	require.NoError(t, err)
	return svc
}

func slotStarts(m MemberSlots) []string {
	out := make([]string, 0, len(m.Slots))
	for _, s := range m.Slots {
		out = append(out, s.Start)
	}
	return out
}

func TestAvailableSlots(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		setup    func(f *fixture)
		expected []string
	}{
		{
			name:     "organization hours",
			now:      localTime(13, 8, 0),
			expected: []string{"09:00", "09:30", "10:00", "10:30", "11:00"},
		},
		{
			name: "appointment splits the morning",
			now:  localTime(13, 8, 0),
			setup: func(f *fixture) {
				f.appointments = []model.Appointment{{
					ID: "a1", TeamMemberID: "ana", Status: model.StatusConfirmed,
					StartAt: localTime(13, 10, 0), EndAt: localTime(13, 11, 0),
				}}
			},
			expected: []string{"09:00", "11:00"},
		},
		{
			name: "cancelled appointment is ignored",
			now:  localTime(13, 8, 0),
			setup: func(f *fixture) {
				f.appointments = []model.Appointment{{
					ID: "a1", TeamMemberID: "ana", Status: model.StatusCancelled,
					StartAt: localTime(13, 10, 0), EndAt: localTime(13, 11, 0),
				}}
			},
			expected: []string{"09:00", "09:30", "10:00", "10:30", "11:00"},
		},
		{
			name:     "past slots dropped, grid kept",
			now:      localTime(13, 10, 15),
			expected: []string{"10:30", "11:00"},
		},
		{
			name: "member weekly hours replace organization",
			now:  localTime(13, 8, 0),
			setup: func(f *fixture) {
				f.memberWeekly = map[string][]workhours.DayOfWeekRule{"ana": {{
					DayOfWeek: int(time.Monday),
					Ranges:    []workhours.HourRange{{StartHour: 14, EndHour: 15, EndMinute: 30}},
				}}}
			},
			expected: []string{"14:00", "14:30"},
		},
		{
			name: "member special day closes",
			now:  localTime(13, 8, 0),
			setup: func(f *fixture) {
				f.memberDays = map[string][]workhours.SpecialDayRule{"ana": {{
					Date:   calendar.Date{Year: 2025, Month: time.January, Day: 13},
					Ranges: []workhours.HourRange{},
				}}}
			},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			svc := newTestService(t, f.store(), tt.now)

			res, err := svc.AvailableSlots(context.Background(), Request{ServiceID: "manicure"})
			require.NoError(t, err)
			require.Len(t, res.TeamMembers, 1)
			assert.Equal(t, tt.expected, slotStarts(res.TeamMembers[0]))
			assert.Equal(t, len(tt.expected), res.Total)
		})
	}
}

func TestAvailableSlots_ResultShape(t *testing.T) {
	f := newFixture()
	now := localTime(13, 8, 0)
	svc := newTestService(t, f.store(), now)

	res, err := svc.AvailableSlots(context.Background(), Request{ServiceID: "manicure"})
	require.NoError(t, err)

	assert.Equal(t, "Manicure", res.ServiceName)
	assert.Equal(t, 60, res.DurationMinutes)
	assert.Equal(t, "America/Bogota", res.TimeZone)
	assert.True(t, res.WindowStart.Equal(now))
	assert.True(t, res.WindowEnd.Equal(localTime(14, 0, 0)))

	first := res.TeamMembers[0].Slots[0]
	assert.Equal(t, "ana", first.ResourceID)
	assert.Equal(t, "2025-01-13", first.Date)
	assert.Equal(t, "-05:00", first.UTCOffset)
	assert.Equal(t, localTime(13, 9, 0).UnixMilli(), first.StartAt)
}

func TestAvailableSlots_RequestBuffers(t *testing.T) {
	f := newFixture()
	logger := zerolog.New(io.Discard)
	svc, err := NewService(f.store(), Options{
		TimeZone:      "America/Bogota",
		MaxFutureDays: 1,
		Interval:      30 * time.Minute,
		BufferBefore:  30 * time.Minute,
		BufferAfter:   30 * time.Minute,
		Now:           func() time.Time { return localTime(13, 8, 0) },
	}, &logger)
	require.NoError(t, err)

	res, err := svc.AvailableSlots(context.Background(), Request{ServiceID: "manicure"})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30", "10:00", "10:30"}, slotStarts(res.TeamMembers[0]))
}

func TestAvailableSlots_Errors(t *testing.T) {
	ctx := context.Background()
	now := localTime(13, 8, 0)

	t.Run("missing service id", func(t *testing.T) {
		svc := newTestService(t, newFixture().store(), now)
		_, err := svc.AvailableSlots(ctx, Request{})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown service", func(t *testing.T) {
		f := newFixture()
		f.service = nil
		svc := newTestService(t, f.store(), now)
		_, err := svc.AvailableSlots(ctx, Request{ServiceID: "nope"})
		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.service = nil
		f.serviceErr = errors.New("disk on fire")
		svc := newTestService(t, f.store(), now)
		_, err := svc.AvailableSlots(ctx, Request{ServiceID: "manicure"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("inactive service", func(t *testing.T) {
		f := newFixture()
		f.service.IsActive = false
		svc := newTestService(t, f.store(), now)
		_, err := svc.AvailableSlots(ctx, Request{ServiceID: "manicure"})
		assert.ErrorIs(t, err, ErrServiceInactive)
	})

	t.Run("team member not offering service", func(t *testing.T) {
		svc := newTestService(t, newFixture().store(), now)
		_, err := svc.AvailableSlots(ctx, Request{ServiceID: "manicure", TeamMemberID: "zoe"})
		assert.ErrorIs(t, err, ErrTeamMemberNotFound)
	})
}

func TestAvailableSlots_NoTeamMembers(t *testing.T) {
	f := newFixture()
	f.members = []model.TeamMember{}
	svc := newTestService(t, f.store(), localTime(13, 8, 0))

	res, err := svc.AvailableSlots(context.Background(), Request{ServiceID: "manicure"})
	require.NoError(t, err)
	assert.Empty(t, res.TeamMembers)
	assert.Zero(t, res.Total)
}

func TestAvailableSlots_SingleMember(t *testing.T) {
	f := newFixture()
	f.members = append(f.members, model.TeamMember{ID: "luisa", Name: "Luisa", IsActive: true})
	svc := newTestService(t, f.store(), localTime(13, 8, 0))

	res, err := svc.AvailableSlots(context.Background(), Request{ServiceID: "manicure", TeamMemberID: "luisa"})
	require.NoError(t, err)
	require.Len(t, res.TeamMembers, 1)
	assert.Equal(t, "Luisa", res.TeamMembers[0].Name)
	assert.Len(t, res.TeamMembers[0].Slots, 5)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, DefaultOptions(), nil)
	assert.Error(t, err)

	_, err = NewService(new(mockStore), Options{TimeZone: "Mars/Olympus"}, nil)
	assert.ErrorIs(t, err, calendar.ErrUnknownZone)

	_, err = NewService(new(mockStore), Options{BufferBefore: -time.Minute}, nil)
	assert.Error(t, err)

	svc, err := NewService(new(mockStore), Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", svc.Location().String())
}

func TestCurrentTime(t *testing.T) {
	svc := newTestService(t, new(mockStore), time.Date(2025, 1, 13, 15, 4, 0, 0, time.UTC))

	ct := svc.CurrentTime(context.Background())
	assert.Equal(t, "2025-01-13", ct.Date)
	assert.Equal(t, "10:04", ct.Time)
	assert.Equal(t, "Monday", ct.Weekday)
	assert.Equal(t, "-05:00", ct.UTCOffset)
}

func TestAvailableSlots_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := newFixture().store()
	svc := newTestService(t, store, localTime(13, 8, 0))
	svc.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	first, err := svc.AvailableSlots(ctx, Request{ServiceID: "manicure"})
	require.NoError(t, err)
	second, err := svc.AvailableSlots(ctx, Request{ServiceID: "manicure"})
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.TeamMembers[0].Slots, second.TeamMembers[0].Slots)
	store.AssertNumberOfCalls(t, "GetService", 1)
	assert.Len(t, mr.Keys(), 1)

	bus := events.NewEventBus(nil)
	svc.SubscribeInvalidation(bus)
	require.NoError(t, bus.PublishJSON(events.ScheduleUpdated, map[string]string{"source": "test"}))
	assert.Empty(t, mr.Keys())

	_, err = svc.AvailableSlots(ctx, Request{ServiceID: "manicure"})
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "GetService", 2)
}

func TestAvailableSlots_CacheHitDropsStartedSlots(t *testing.T) {
	slotAt := func(h, m int) slots.SlotInfo {
		start := localTime(13, h, m)
		return slots.SlotInfo{ResourceID: "ana", StartAt: start.UnixMilli(), EndAt: start.Add(time.Hour).UnixMilli()}
	}

	tests := []struct {
		name     string
		now      time.Time
		expected []int64
	}{
		{"slot starting at now is kept", localTime(13, 9, 0), []int64{slotAt(9, 0).StartAt, slotAt(9, 30).StartAt}},
		{"slot started seconds ago is dropped", localTime(13, 9, 0).Add(40 * time.Second), []int64{slotAt(9, 30).StartAt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { rdb.Close() })

			store := newFixture().store()
			svc := newTestService(t, store, tt.now)
			svc.UseRedisCache(rdb, time.Minute)

			req := Request{ServiceID: "manicure"}
			cached := Result{
				ServiceID:   "manicure",
				TeamMembers: []MemberSlots{{TeamMemberID: "ana", Slots: []slots.SlotInfo{slotAt(9, 0), slotAt(9, 30)}}},
				Total:       2,
			}
			data, err := json.Marshal(cached)
			require.NoError(t, err)
			require.NoError(t, mr.Set(cacheKey(req, tt.now.UTC()), string(data)))

			got, err := svc.AvailableSlots(context.Background(), req)
			require.NoError(t, err)

			var starts []int64
			for _, info := range got.TeamMembers[0].Slots {
				starts = append(starts, info.StartAt)
			}
			assert.Equal(t, tt.expected, starts)
			assert.Equal(t, len(tt.expected), got.Total)
			store.AssertNumberOfCalls(t, "GetService", 0)
		})
	}
}

func TestAppointmentBuffers(t *testing.T) {
	logger := zerolog.New(io.Discard)
	opts := DefaultOptions()
	opts.AppointmentBufferBefore = 15 * time.Minute
	opts.AppointmentBufferAfter = 45 * time.Minute
	svc, err := NewService(&mockStore{}, opts, &logger)
	require.NoError(t, err)

	before, after := svc.AppointmentBuffers()
	assert.Equal(t, 15*time.Minute, before)
	assert.Equal(t, 45*time.Minute, after)
}

func TestAvailableSlots_CacheDisabledWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := newFixture().store()
	svc := newTestService(t, store, localTime(13, 8, 0))
	svc.UseRedisCache(rdb, 0)

	for i := 0; i < 2; i++ {
		_, err := svc.AvailableSlots(context.Background(), Request{ServiceID: "manicure"})
		require.NoError(t, err)
	}
	store.AssertNumberOfCalls(t, "GetService", 2)
	assert.Empty(t, mr.Keys())
}
