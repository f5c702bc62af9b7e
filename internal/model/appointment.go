package model

import (
	"errors"
	"fmt"
	"time"
)

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid appointment status transition")

type Appointment struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	ServiceID    string     `json:"service_id"`
	ServiceName  string     `json:"service_name,omitempty"`
	TeamMemberID string     `json:"team_member_id"`
	Address      string     `json:"address,omitempty"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	Status       string     `json:"status"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Duration returns the booked length.
func (a *Appointment) Duration() time.Duration {
	return a.EndAt.Sub(a.StartAt)
}

// OverlapsWith checks if two appointments overlap in time.
func (a *Appointment) OverlapsWith(other *Appointment) bool {
	return a.StartAt.Before(other.EndAt) && other.StartAt.Before(a.EndAt)
}

// Blocks reports whether the appointment still occupies its team member.
func (a *Appointment) Blocks() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// Confirm moves a pending appointment to confirmed.
func (a *Appointment) Confirm() error {
	if a.Status != StatusPending {
		return fmt.Errorf("%w: appointment %s cannot be confirmed from %s", ErrInvalidTransition, a.ID, a.Status)
	}
	a.Status = StatusConfirmed
	return nil
}

// Cancel cancels any appointment that is not completed.
func (a *Appointment) Cancel(now time.Time) error {
	if a.Status == StatusCompleted {
		return fmt.Errorf("%w: completed appointment %s cannot be cancelled", ErrInvalidTransition, a.ID)
	}
	a.Status = StatusCancelled
	a.CancelledAt = &now
	return nil
}

// Complete marks a confirmed appointment as done.
func (a *Appointment) Complete(now time.Time) error {
	if a.Status != StatusConfirmed {
		return fmt.Errorf("%w: only confirmed appointments can be completed, %s is %s", ErrInvalidTransition, a.ID, a.Status)
	}
	a.Status = StatusCompleted
	a.CompletedAt = &now
	return nil
}

// Transition applies the change to status by name.
func (a *Appointment) Transition(status string, now time.Time) error {
	switch status {
	case StatusConfirmed:
		return a.Confirm()
	case StatusCancelled:
		return a.Cancel(now)
	case StatusCompleted:
		return a.Complete(now)
	}
	return fmt.Errorf("%w: unknown target status %q", ErrInvalidTransition, status)
}
