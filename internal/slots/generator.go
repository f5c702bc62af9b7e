package slots

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRequest is returned for slot requests that could never terminate.
var ErrInvalidRequest = errors.New("invalid slot request")

// ResourceBlockedInterval is an existing commitment of a resource. The buffers
// widen the occupied range but are not part of the appointment itself.
type ResourceBlockedInterval struct {
	ResourceID     string    `json:"resource_id"`
	Range          TimeRange `json:"range"`
	BufferBeforeMs int64     `json:"buffer_before_ms,omitempty"`
	BufferAfterMs  int64     `json:"buffer_after_ms,omitempty"`
}

// Blocked returns the range including buffers, clamped at the epoch.
func (b ResourceBlockedInterval) Blocked() TimeRange {
	start := b.Range.Start - b.BufferBeforeMs
	if start < 0 {
		start = 0
	}
	return TimeRange{Start: start, End: b.Range.End + b.BufferAfterMs}
}

// ResourceOpenRanges holds the absolute open intervals of one resource.
type ResourceOpenRanges struct {
	ResourceID string      `json:"resource_id"`
	Ranges     []TimeRange `json:"ranges"`
}

// SlotRequest describes the slot a caller wants to offer. The buffers shrink
// each free range from its edges.
type SlotRequest struct {
	DurationMs     int64 `json:"duration_ms"`
	IntervalMs     int64 `json:"interval_ms"`
	BufferBeforeMs int64 `json:"buffer_before_ms,omitempty"`
	BufferAfterMs  int64 `json:"buffer_after_ms,omitempty"`
}

// Validate rejects non-positive duration or interval.
func (r SlotRequest) Validate() error {
	if r.DurationMs <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %dms", ErrInvalidRequest, r.DurationMs)
	}
	if r.IntervalMs <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %dms", ErrInvalidRequest, r.IntervalMs)
	}
	return nil
}

// AvailableSlot is one bookable candidate for a resource.
type AvailableSlot struct {
	ResourceID string    `json:"resource_id"`
	Range      TimeRange `json:"range"`
}

// Generator computes slots for a fixed set of open ranges and commitments.
// It holds no state between calls and is safe for concurrent use.
type Generator struct {
	open    []ResourceOpenRanges
	blocked []ResourceBlockedInterval
}

// NewGenerator creates a new slot generator.
func NewGenerator(open []ResourceOpenRanges, blocked []ResourceBlockedInterval) *Generator {
	return &Generator{open: open, blocked: blocked}
}

// Generate computes the slots for req.
func (g *Generator) Generate(req SlotRequest) ([]AvailableSlot, error) {
	return ComputeSlots(g.open, g.blocked, req)
}

// ComputeSlots subtracts each resource's blocked ranges from its open ranges
// and slides a window of req.DurationMs every req.IntervalMs over what is left.
// Output order: resource order, open-range order, then ascending start.
func ComputeSlots(open []ResourceOpenRanges, blocked []ResourceBlockedInterval, req SlotRequest) ([]AvailableSlot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := make([]AvailableSlot, 0)
	for _, res := range open {
		blocks := blockedRangesFor(res.ResourceID, blocked)
		for _, openRange := range res.Ranges {
			if !openRange.Valid() {
				continue
			}
			for _, free := range SubtractAll(openRange, blocks) {
				result = appendSlots(result, res.ResourceID, free, req)
			}
		}
	}
	return result, nil
}

func blockedRangesFor(resourceID string, blocked []ResourceBlockedInterval) []TimeRange {
	ranges := make([]TimeRange, 0)
	for _, b := range blocked {
		if b.ResourceID != resourceID {
			continue
		}
		ranges = append(ranges, b.Blocked())
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})
	return ranges
}

// appendSlots emits the sliding slots of one free range. A slot ending exactly
// at the usable end is included.
func appendSlots(dst []AvailableSlot, resourceID string, free TimeRange, req SlotRequest) []AvailableSlot {
	start := free.Start + req.BufferBeforeMs
	end := free.End - req.BufferAfterMs

	lastStart := end - req.DurationMs
	if lastStart < start {
		return dst
	}

	for t := start; t <= lastStart; t += req.IntervalMs {
		dst = append(dst, AvailableSlot{
			ResourceID: resourceID,
			Range:      TimeRange{Start: t, End: t + req.DurationMs},
		})
	}
	return dst
}
