package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agenda/internal/model"
)

// GetService returns a service by id.
func (db *DB) GetService(ctx context.Context, id string) (*model.Service, error) {
	var s model.Service
	err := db.QueryRowContext(ctx, `
		SELECT id, name, duration_minutes, price, is_active, created_at, updated_at
		FROM services WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListServices returns all services ordered by name.
func (db *DB) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, duration_minutes, price, is_active, created_at, updated_at
		FROM services ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// UpsertService inserts or updates a service, preserving created_at.
func (db *DB) UpsertService(ctx context.Context, s *model.Service) error {
	if s == nil {
		return fmt.Errorf("service is nil")
	}
	return upsertService(ctx, db.DB, s, time.Now())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertService(ctx context.Context, ex execer, s *model.Service, now time.Time) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO services (id, name, duration_minutes, price, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM services WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			duration_minutes = excluded.duration_minutes,
			price = excluded.price,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		s.ID, s.Name, s.DurationMinutes, s.Price, s.IsActive, s.ID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert service %s: %w", s.ID, err)
	}
	return nil
}

// UpsertTeamMember inserts or updates a team member and replaces the services
// they offer.
func (db *DB) UpsertTeamMember(ctx context.Context, m *model.TeamMember) error {
	if m == nil {
		return fmt.Errorf("team member is nil")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertTeamMember(ctx, tx, m, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertTeamMember(ctx context.Context, tx *sql.Tx, m *model.TeamMember, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO team_members (id, name, is_active, created_at, updated_at)
		VALUES (?, ?, ?, COALESCE((SELECT created_at FROM team_members WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		m.ID, m.Name, m.IsActive, m.ID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert team member %s: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_member_services WHERE team_member_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear services of %s: %w", m.ID, err)
	}
	for _, sid := range m.ServiceIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_member_services (team_member_id, service_id) VALUES (?, ?)`, m.ID, sid,
		); err != nil {
			return fmt.Errorf("link %s to service %s: %w", m.ID, sid, err)
		}
	}
	return nil
}

// GetTeamMember returns a team member with the services they offer.
func (db *DB) GetTeamMember(ctx context.Context, id string) (*model.TeamMember, error) {
	var m model.TeamMember
	err := db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at FROM team_members WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team member %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if m.ServiceIDs, err = db.serviceIDsOf(ctx, m.ID); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActiveTeamMembersByService returns active team members offering serviceID,
// ordered by name.
func (db *DB) ListActiveTeamMembersByService(ctx context.Context, serviceID string) ([]model.TeamMember, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tm.id, tm.name, tm.is_active, tm.created_at, tm.updated_at
		FROM team_members tm
		JOIN team_member_services tms ON tms.team_member_id = tm.id
		WHERE tms.service_id = ? AND tm.is_active = 1
		ORDER BY tm.name, tm.id`, serviceID)
	if err != nil {
		return nil, err
	}

	var result []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range result {
		if result[i].ServiceIDs, err = db.serviceIDsOf(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (db *DB) serviceIDsOf(ctx context.Context, memberID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT service_id FROM team_member_services WHERE team_member_id = ? ORDER BY service_id`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
