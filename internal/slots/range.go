package slots

import "time"

// TimeRange is the half-open interval [Start, End) in Unix milliseconds.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// FromTimes builds a TimeRange from two instants.
func FromTimes(start, end time.Time) TimeRange {
	return TimeRange{Start: start.UnixMilli(), End: end.UnixMilli()}
}

// StartTime returns Start as a UTC time.Time.
func (r TimeRange) StartTime() time.Time {
	return time.UnixMilli(r.Start).UTC()
}

// EndTime returns End as a UTC time.Time.
func (r TimeRange) EndTime() time.Time {
	return time.UnixMilli(r.End).UTC()
}

// Valid reports whether Start < End.
func (r TimeRange) Valid() bool {
	return r.Start < r.End
}

// Duration of the range.
func (r TimeRange) Duration() time.Duration {
	return time.Duration(r.End-r.Start) * time.Millisecond
}

// Overlaps reports whether the two half-open ranges share any instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Contains reports whether other lies entirely within r.
func (r TimeRange) Contains(other TimeRange) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Subtract removes block from r and returns the zero, one or two pieces left.
func (r TimeRange) Subtract(block TimeRange) []TimeRange {
	if block.End <= r.Start || block.Start >= r.End {
		return []TimeRange{r}
	}

	pieces := make([]TimeRange, 0, 2)
	if block.Start > r.Start {
		pieces = append(pieces, TimeRange{Start: r.Start, End: block.Start})
	}
	if block.End < r.End {
		pieces = append(pieces, TimeRange{Start: block.End, End: r.End})
	}
	return pieces
}

// SubtractAll folds every block over base in the given order.
func SubtractAll(base TimeRange, blocks []TimeRange) []TimeRange {
	free := []TimeRange{base}
	for _, block := range blocks {
		next := make([]TimeRange, 0, len(free)+1)
		for _, r := range free {
			next = append(next, r.Subtract(block)...)
		}
		free = next
		if len(free) == 0 {
			break
		}
	}
	return free
}
