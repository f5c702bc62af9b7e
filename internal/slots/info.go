package slots

import (
	"fmt"
	"time"

	"agenda/internal/calendar"
)

// SlotInfo is a slot rendered in civil time for display.
type SlotInfo struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`  // "2025-01-15"
	Start      string `json:"start"` // "10:00"
	End        string `json:"end"`   // "10:30"
	UTCOffset  string `json:"utc_offset"`
	StartAt    int64  `json:"start_at"`
	EndAt      int64  `json:"end_at"`
}

// ToSlotInfo renders slots as civil date/time in loc. The offset is taken at
// each slot start so slots on both sides of a DST change carry their own.
func ToSlotInfo(slots []AvailableSlot, loc *time.Location) []SlotInfo {
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		start := s.Range.StartTime().In(loc)
		end := s.Range.EndTime().In(loc)
		result[i] = SlotInfo{
			ResourceID: s.ResourceID,
			Date:       start.Format("2006-01-02"),
			Start:      start.Format("15:04"),
			End:        end.Format("15:04"),
			UTCOffset:  calendar.OffsetIn(loc, start).String(),
			StartAt:    s.Range.Start,
			EndAt:      s.Range.End,
		}
	}
	return result
}

// GroupByResource splits slots per resource, keeping the first-seen resource order.
func GroupByResource(slots []AvailableSlot) (order []string, groups map[string][]AvailableSlot) {
	groups = make(map[string][]AvailableSlot)
	for _, s := range slots {
		if _, ok := groups[s.ResourceID]; !ok {
			order = append(order, s.ResourceID)
		}
		groups[s.ResourceID] = append(groups[s.ResourceID], s)
	}
	return order, groups
}

// FormatDuration formats duration in minutes to human-readable string.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		if hours == 1 {
			return "1 hora"
		}
		return fmt.Sprintf("%d horas", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}
