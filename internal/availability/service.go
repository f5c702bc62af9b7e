package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"agenda/internal/calendar"
	"agenda/internal/metrics"
	"agenda/internal/model"
	"agenda/internal/slots"
	"agenda/internal/workhours"
)

var (
	ErrInvalidRequest     = errors.New("invalid availability request")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceInactive    = errors.New("service is not available")
	ErrTeamMemberNotFound = errors.New("team member does not offer this service")
)

// Store is the data the availability computation reads.
type Store interface {
	GetService(ctx context.Context, id string) (*model.Service, error)
	ListActiveTeamMembersByService(ctx context.Context, serviceID string) ([]model.TeamMember, error)
	FindWeeklyConfig(ctx context.Context) ([]workhours.DayOfWeekRule, error)
	FindTeamMemberWeeklyConfig(ctx context.Context, teamMemberID string) ([]workhours.DayOfWeekRule, error)
	FindSpecialDayRules(ctx context.Context, teamMemberID string, from, to calendar.Date) ([]workhours.SpecialDayRule, error)
	FindOverlappingAppointments(ctx context.Context, start, end time.Time, teamMemberIDs ...string) ([]model.Appointment, error)
}

// Options tune the computation. Zero values fall back to defaults, except
// buffers where zero is a valid choice.
type Options struct {
	TimeZone      string
	MaxFutureDays int
	Interval      time.Duration

	// Request buffers shrink every free range from its edges.
	BufferBefore time.Duration
	BufferAfter  time.Duration

	// Appointment buffers widen every existing appointment.
	AppointmentBufferBefore time.Duration
	AppointmentBufferAfter  time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions mirror the booking assistant's defaults.
func DefaultOptions() Options {
	return Options{
		TimeZone:                "America/Bogota",
		MaxFutureDays:           15,
		Interval:                30 * time.Minute,
		BufferBefore:            30 * time.Minute,
		BufferAfter:             30 * time.Minute,
		AppointmentBufferBefore: 30 * time.Minute,
		AppointmentBufferAfter:  30 * time.Minute,
	}
}

// Request asks for the slots of one service, optionally for a single team member.
type Request struct {
	ServiceID    string `json:"service_id"`
	TeamMemberID string `json:"team_member_id,omitempty"`
}

// MemberSlots holds the slots of one team member in civil time.
type MemberSlots struct {
	TeamMemberID string           `json:"team_member_id"`
	Name         string           `json:"name"`
	Slots        []slots.SlotInfo `json:"slots"`
}

// Result of an availability computation.
type Result struct {
	ServiceID       string        `json:"service_id"`
	ServiceName     string        `json:"service_name"`
	DurationMinutes int           `json:"duration_minutes"`
	TimeZone        string        `json:"time_zone"`
	WindowStart     time.Time     `json:"window_start"`
	WindowEnd       time.Time     `json:"window_end"`
	TeamMembers     []MemberSlots `json:"team_members"`
	Total           int           `json:"total"`
}

// Service computes bookable slots from stored schedules and appointments.
type Service struct {
	store  Store
	opts   Options
	loc    *time.Location
	logger *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewService validates options and resolves the business time zone.
func NewService(store Store, opts Options, logger *zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("availability store is nil")
	}
	if opts.TimeZone == "" {
		opts.TimeZone = "America/Bogota"
	}
	if opts.MaxFutureDays <= 0 {
		opts.MaxFutureDays = 15
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Minute
	}
	if opts.BufferBefore < 0 || opts.BufferAfter < 0 || opts.AppointmentBufferBefore < 0 || opts.AppointmentBufferAfter < 0 {
		return nil, fmt.Errorf("buffers cannot be negative")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	loc, err := calendar.LoadZone(opts.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("availability time zone: %w", err)
	}

	return &Service{store: store, opts: opts, loc: loc, logger: logger}, nil
}

// Location returns the business time zone.
func (s *Service) Location() *time.Location { return s.loc }

// AvailableSlots returns the bookable slots of req.ServiceID from now until
// MaxFutureDays complete local days ahead.
func (s *Service) AvailableSlots(ctx context.Context, req Request) (*Result, error) {
	if req.ServiceID == "" {
		return nil, fmt.Errorf("%w: service_id is required", ErrInvalidRequest)
	}

	now := s.opts.Now().UTC()
	key := cacheKey(req, now)

	var cached Result
	if s.readCache(ctx, key, &cached) {
		metrics.IncCacheHit()
		cached.dropStarted(now.UnixMilli())
		return &cached, nil
	}
	if s.cacheEnabled() {
		metrics.IncCacheMiss()
	}

	started := time.Now()
	result, err := s.compute(ctx, req, now)
	total := 0
	if result != nil {
		total = result.Total
	}
	metrics.ObserveComputation(time.Since(started), total, err)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("service_id", req.ServiceID).
		Str("team_member_id", req.TeamMemberID).
		Int("slots", result.Total).
		Dur("took", time.Since(started)).
		Msg("availability computed")

	s.writeCache(ctx, key, result)
	return result, nil
}

func (s *Service) compute(ctx context.Context, req Request, now time.Time) (*Result, error) {
	service, err := s.store.GetService(ctx, req.ServiceID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, req.ServiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if !service.IsAvailable() {
		return nil, fmt.Errorf("%w: %s", ErrServiceInactive, req.ServiceID)
	}

	members, err := s.store.ListActiveTeamMembersByService(ctx, service.ID)
	if err != nil {
		return nil, fmt.Errorf("load team members: %w", err)
	}
	if req.TeamMemberID != "" {
		members = filterMember(members, req.TeamMemberID)
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrTeamMemberNotFound, req.TeamMemberID)
		}
	}

	end, err := calendar.AddCompleteLocalDays(now, s.opts.MaxFutureDays, s.opts.TimeZone)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ServiceID:       service.ID,
		ServiceName:     service.Name,
		DurationMinutes: service.DurationMinutes,
		TimeZone:        s.opts.TimeZone,
		WindowStart:     now,
		WindowEnd:       end,
		TeamMembers:     make([]MemberSlots, 0, len(members)),
	}
	if len(members) == 0 {
		return result, nil
	}

	open, err := s.openRanges(ctx, members, now, end)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blockedIntervals(ctx, members, open)
	if err != nil {
		return nil, err
	}

	computed, err := slots.ComputeSlots(open, blocked, slots.SlotRequest{
		DurationMs:     service.Duration().Milliseconds(),
		IntervalMs:     s.opts.Interval.Milliseconds(),
		BufferBeforeMs: s.opts.BufferBefore.Milliseconds(),
		BufferAfterMs:  s.opts.BufferAfter.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("compute slots: %w", err)
	}
	computed = dropPast(computed, now.UnixMilli())

	_, groups := slots.GroupByResource(computed)
	for _, m := range members {
		info := slots.ToSlotInfo(groups[m.ID], s.loc)
		result.TeamMembers = append(result.TeamMembers, MemberSlots{
			TeamMemberID: m.ID,
			Name:         m.Name,
			Slots:        info,
		})
		result.Total += len(info)
	}
	return result, nil
}

// openRanges expands each member's hours over the window. Member weekly rules
// replace the organization table; member special days replace organization
// special days on the same date.
func (s *Service) openRanges(ctx context.Context, members []model.TeamMember, start, end time.Time) ([]slots.ResourceOpenRanges, error) {
	orgWeekly, err := s.store.FindWeeklyConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load weekly config: %w", err)
	}

	from := calendar.DateOf(start, s.loc)
	to := calendar.DateOf(end, s.loc)
	orgSpecial, err := s.store.FindSpecialDayRules(ctx, "", from, to)
	if err != nil {
		return nil, fmt.Errorf("load special days: %w", err)
	}

	open := make([]slots.ResourceOpenRanges, 0, len(members))
	for _, m := range members {
		weekly, err := s.store.FindTeamMemberWeeklyConfig(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("load weekly config of %s: %w", m.ID, err)
		}
		if len(weekly) == 0 {
			weekly = orgWeekly
		}

		memberSpecial, err := s.store.FindSpecialDayRules(ctx, m.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("load special days of %s: %w", m.ID, err)
		}

		expander, err := workhours.NewExpander(workhours.Config{
			TimeZone:    s.opts.TimeZone,
			Weekly:      weekly,
			SpecialDays: mergeSpecialDays(orgSpecial, memberSpecial),
		})
		if err != nil {
			return nil, err
		}

		open = append(open, slots.ResourceOpenRanges{
			ResourceID: m.ID,
			Ranges:     expander.Expand(start, end),
		})
	}
	return open, nil
}

// blockedIntervals loads appointments that can reach into any open range once
// their buffers are applied.
func (s *Service) blockedIntervals(ctx context.Context, members []model.TeamMember, open []slots.ResourceOpenRanges) ([]slots.ResourceBlockedInterval, error) {
	span, ok := coveringRange(open)
	if !ok {
		return nil, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}

	appointments, err := s.store.FindOverlappingAppointments(ctx,
		span.StartTime().Add(-s.opts.AppointmentBufferAfter),
		span.EndTime().Add(s.opts.AppointmentBufferBefore),
		ids...,
	)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	blocked := make([]slots.ResourceBlockedInterval, 0, len(appointments))
	for _, a := range appointments {
		if !a.Blocks() {
			continue
		}
		blocked = append(blocked, slots.ResourceBlockedInterval{
			ResourceID:     a.TeamMemberID,
			Range:          slots.FromTimes(a.StartAt, a.EndAt),
			BufferBeforeMs: s.opts.AppointmentBufferBefore.Milliseconds(),
			BufferAfterMs:  s.opts.AppointmentBufferAfter.Milliseconds(),
		})
	}
	return blocked, nil
}

func coveringRange(open []slots.ResourceOpenRanges) (slots.TimeRange, bool) {
	var span slots.TimeRange
	found := false
	for _, res := range open {
		for _, r := range res.Ranges {
			if !found {
				span, found = r, true
				continue
			}
			if r.Start < span.Start {
				span.Start = r.Start
			}
			if r.End > span.End {
				span.End = r.End
			}
		}
	}
	return span, found
}

func mergeSpecialDays(org, member []workhours.SpecialDayRule) []workhours.SpecialDayRule {
	if len(member) == 0 {
		return org
	}
	// the expander keeps the first rule per date
	merged := make([]workhours.SpecialDayRule, 0, len(org)+len(member))
	merged = append(merged, member...)
	return append(merged, org...)
}

func filterMember(members []model.TeamMember, id string) []model.TeamMember {
	for _, m := range members {
		if m.ID == id {
			return []model.TeamMember{m}
		}
	}
	return nil
}

func dropPast(in []slots.AvailableSlot, nowMs int64) []slots.AvailableSlot {
	out := in[:0]
	for _, s := range in {
		if s.Range.Start >= nowMs {
			out = append(out, s)
		}
	}
	return out
}

// dropStarted removes slots that began after the result was computed.
func (r *Result) dropStarted(nowMs int64) {
	r.Total = 0
	for i := range r.TeamMembers {
		kept := r.TeamMembers[i].Slots[:0]
		for _, info := range r.TeamMembers[i].Slots {
			if info.StartAt >= nowMs {
				kept = append(kept, info)
			}
		}
		r.TeamMembers[i].Slots = kept
		r.Total += len(kept)
	}
}

// AppointmentBuffers returns the gap kept around existing appointments.
func (s *Service) AppointmentBuffers() (before, after time.Duration) {
	return s.opts.AppointmentBufferBefore, s.opts.AppointmentBufferAfter
}

// CurrentTime is the business clock as a client would read it.
type CurrentTime struct {
	Now       time.Time `json:"now"`
	TimeZone  string    `json:"time_zone"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Weekday   string    `json:"weekday"`
	UTCOffset string    `json:"utc_offset"`
}

// CurrentTime returns now in the business zone together with its UTC offset.
func (s *Service) CurrentTime(_ context.Context) CurrentTime {
	now := s.opts.Now().In(s.loc)
	return CurrentTime{
		Now:       now,
		TimeZone:  s.opts.TimeZone,
		Date:      now.Format("2006-01-02"),
		Time:      now.Format("15:04"),
		Weekday:   now.Weekday().String(),
		UTCOffset: calendar.OffsetIn(s.loc, now).String(),
	}
}
