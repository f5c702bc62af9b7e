package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"agenda/internal/model"
)

const appointmentColumns = `id, client_id, service_id, service_name, team_member_id, address,
	start_at, end_at, status, cancelled_at, completed_at, created_at, updated_at`

// CreateAppointment stores a new appointment. It fails with ErrSlotTaken when a
// pending or confirmed appointment of the same team member overlaps it.
func (db *DB) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return db.BookAppointment(ctx, a, 0, 0)
}

// BookAppointment is CreateAppointment with existing appointments widened by
// before and after, so the new one keeps that gap to its neighbours.
func (db *DB) BookAppointment(ctx context.Context, a *model.Appointment, before, after time.Duration) error {
	if before < 0 || after < 0 {
		return fmt.Errorf("appointment buffers must not be negative")
	}
	if a == nil {
		return fmt.Errorf("appointment is nil")
	}
	if !a.StartAt.Before(a.EndAt) {
		return fmt.Errorf("appointment must end after it starts")
	}
	if a.Status == "" {
		a.Status = model.StatusPending
	}
	if !model.ValidStatus(a.Status) {
		return fmt.Errorf("invalid appointment status %q", a.Status)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if a.Blocks() {
		var count int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM appointments
			WHERE team_member_id = ? AND status IN (?, ?) AND start_at < ? AND end_at > ?`,
			a.TeamMemberID, model.StatusPending, model.StatusConfirmed,
			a.EndAt.Add(before).UnixMilli(), a.StartAt.Add(-after).UnixMilli(),
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if count > 0 {
			return ErrSlotTaken
		}
	}

	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClientID, a.ServiceID, nullString(a.ServiceName), a.TeamMemberID, nullString(a.Address),
		a.StartAt.UnixMilli(), a.EndAt.UnixMilli(), a.Status, a.CancelledAt, a.CompletedAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return tx.Commit()
}

// GetAppointment returns an appointment by id.
func (db *DB) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return a, err
}

// UpdateAppointmentStatus applies a status transition and persists it. The
// write only lands if the status is still the one the transition was checked
// against.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	previous := a.Status
	now := time.Now()
	if err := a.Transition(status, now); err != nil {
		return nil, err
	}
	a.UpdatedAt = now

	res, err := tx.ExecContext(ctx, `
		UPDATE appointments SET status = ?, cancelled_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		a.Status, a.CancelledAt, a.CompletedAt, now, a.ID, previous,
	)
	if err != nil {
		return nil, fmt.Errorf("update appointment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update appointment %s: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("appointment %s changed concurrently: %w", id, model.ErrInvalidTransition)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit appointment %s: %w", id, err)
	}
	return a, nil
}

// FindOverlappingAppointments returns pending and confirmed appointments that
// intersect [start, end). An empty teamMemberIDs matches every team member.
func (db *DB) FindOverlappingAppointments(ctx context.Context, start, end time.Time, teamMemberIDs ...string) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE status IN (?, ?) AND start_at < ? AND end_at > ?`
	args := []interface{}{model.StatusPending, model.StatusConfirmed, end.UnixMilli(), start.UnixMilli()}

	if len(teamMemberIDs) > 0 {
		query += ` AND team_member_id IN (?` + strings.Repeat(",?", len(teamMemberIDs)-1) + `)`
		for _, id := range teamMemberIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY team_member_id, start_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var a model.Appointment
	var serviceName, address sql.NullString
	var startAt, endAt int64
	var cancelledAt, completedAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.ClientID, &a.ServiceID, &serviceName, &a.TeamMemberID, &address,
		&startAt, &endAt, &a.Status, &cancelledAt, &completedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ServiceName = serviceName.String
	a.Address = address.String
	a.StartAt = time.UnixMilli(startAt).UTC()
	a.EndAt = time.UnixMilli(endAt).UTC()
	if cancelledAt.Valid {
		a.CancelledAt = &cancelledAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}
