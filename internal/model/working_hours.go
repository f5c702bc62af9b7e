package model

import "time"

// WorkingHours is one open range of a weekday. An empty TeamMemberID marks
// an organization-wide row.
type WorkingHours struct {
	ID           int64     `json:"id"`
	TeamMemberID string    `json:"team_member_id,omitempty"`
	DayOfWeek    int       `json:"day_of_week"` // 0-6 (Sunday-Saturday)
	StartTime    string    `json:"start_time"`  // "09:00"
	EndTime      string    `json:"end_time"`    // "18:00"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SpecialDay replaces the weekly hours on one date.
type SpecialDay struct {
	ID           int64     `json:"id"`
	TeamMemberID string    `json:"team_member_id,omitempty"`
	Date         string    `json:"date"` // "2026-01-01"
	Closed       bool      `json:"closed"`
	Ranges       []string  `json:"ranges,omitempty"` // "09:00-13:00"
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
