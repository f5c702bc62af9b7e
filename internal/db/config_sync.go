package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agenda/internal/config"
	"agenda/internal/model"
)

// SyncBusinessFromConfig applies business.yaml to the database.
// It upserts services and team members, replaces weekly hours and
// config-sourced special days, and marks missing services and members inactive.
func (db *DB) SyncBusinessFromConfig(ctx context.Context, cfg *config.BusinessConfig) error {
	if cfg == nil {
		return fmt.Errorf("business config is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()

	services := make([]string, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		svc := &model.Service{
			ID:              s.ID,
			Name:            s.Name,
			DurationMinutes: s.DurationMinutes,
			Price:           s.Price,
			IsActive:        s.IsActive,
		}
		if err := upsertService(ctx, tx, svc, now); err != nil {
			return err
		}
		services = append(services, s.ID)
	}
	if err := deactivateMissing(ctx, tx, "services", services, now); err != nil {
		return err
	}

	members := make([]string, 0, len(cfg.TeamMembers))
	for _, m := range cfg.TeamMembers {
		tm := &model.TeamMember{ID: m.ID, Name: m.Name, IsActive: m.IsActive, ServiceIDs: m.Services}
		if err := upsertTeamMember(ctx, tx, tm, now); err != nil {
			return err
		}
		members = append(members, m.ID)
	}
	if err := deactivateMissing(ctx, tx, "team_members", members, now); err != nil {
		return err
	}

	// Weekly hours: organization table plus per-member tables.
	if _, err := tx.ExecContext(ctx, `DELETE FROM working_hours`); err != nil {
		return fmt.Errorf("clear working hours: %w", err)
	}
	orgWeekly, err := config.WeeklyRules(cfg.WeeklyHours)
	if err != nil {
		return err
	}
	if err := replaceWorkingHours(ctx, tx, "", orgWeekly, now); err != nil {
		return err
	}
	for _, m := range cfg.TeamMembers {
		weekly, err := config.WeeklyRules(m.WeeklyHours)
		if err != nil {
			return fmt.Errorf("team member %s: %w", m.ID, err)
		}
		if err := replaceWorkingHours(ctx, tx, m.ID, weekly, now); err != nil {
			return fmt.Errorf("team member %s: %w", m.ID, err)
		}
	}

	// Special days from config replace earlier config rows; manual ones stay
	// unless config sets the same date.
	if _, err := tx.ExecContext(ctx, `DELETE FROM special_days WHERE source = 'config'`); err != nil {
		return fmt.Errorf("clear special days: %w", err)
	}
	for _, d := range cfg.SpecialDays {
		if err := insertSpecialDay(ctx, tx, specialDayFromConfig("", d), "config", now); err != nil {
			return err
		}
	}
	for _, m := range cfg.TeamMembers {
		for _, d := range m.SpecialDays {
			if err := insertSpecialDay(ctx, tx, specialDayFromConfig(m.ID, d), "config", now); err != nil {
				return fmt.Errorf("team member %s: %w", m.ID, err)
			}
		}
	}

	return tx.Commit()
}

func specialDayFromConfig(memberID string, d config.SpecialDayConfig) *model.SpecialDay {
	return &model.SpecialDay{
		TeamMemberID: memberID,
		Date:         d.Date,
		Closed:       d.Closed,
		Ranges:       d.Ranges,
		Reason:       d.Reason,
	}
}

// deactivateMissing marks rows of table whose id is not in keep as inactive.
func deactivateMissing(ctx context.Context, tx *sql.Tx, table string, keep []string, now time.Time) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE is_active = 1`, table))
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		seen[id] = struct{}{}
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET is_active = 0, updated_at = ? WHERE id = ?`, table), now, id,
		); err != nil {
			return fmt.Errorf("deactivate %s %s: %w", table, id, err)
		}
	}
	return nil
}
