package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"agenda/internal/calendar"
	"agenda/internal/model"
	"agenda/internal/workhours"
)

// FindWeeklyConfig returns the organization-wide weekly table.
func (db *DB) FindWeeklyConfig(ctx context.Context) ([]workhours.DayOfWeekRule, error) {
	return db.weeklyRules(ctx, "")
}

// FindTeamMemberWeeklyConfig returns the weekly table specific to a team member.
// An empty result means the member follows the organization table.
func (db *DB) FindTeamMemberWeeklyConfig(ctx context.Context, teamMemberID string) ([]workhours.DayOfWeekRule, error) {
	if teamMemberID == "" {
		return nil, fmt.Errorf("team member id is required")
	}
	return db.weeklyRules(ctx, teamMemberID)
}

func (db *DB) weeklyRules(ctx context.Context, teamMemberID string) ([]workhours.DayOfWeekRule, error) {
	hours, err := db.ListWorkingHours(ctx, teamMemberID)
	if err != nil {
		return nil, err
	}

	rules := make([]workhours.DayOfWeekRule, 0)
	index := make(map[int]int)
	for _, h := range hours {
		r, err := workhours.ParseHourRange(h.StartTime + "-" + h.EndTime)
		if err != nil {
			return nil, fmt.Errorf("working_hours row %d: %w", h.ID, err)
		}
		i, ok := index[h.DayOfWeek]
		if !ok {
			i = len(rules)
			index[h.DayOfWeek] = i
			rules = append(rules, workhours.DayOfWeekRule{DayOfWeek: h.DayOfWeek})
		}
		rules[i].Ranges = append(rules[i].Ranges, r)
	}
	return rules, nil
}

// ListWorkingHours returns raw weekly rows. Empty teamMemberID selects the
// organization rows.
func (db *DB) ListWorkingHours(ctx context.Context, teamMemberID string) ([]model.WorkingHours, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, team_member_id, day_of_week, start_time, end_time, created_at, updated_at
		FROM working_hours
		WHERE team_member_id IS ?
		ORDER BY day_of_week, start_time`, nullString(teamMemberID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WorkingHours
	for rows.Next() {
		var h model.WorkingHours
		var member sql.NullString
		if err := rows.Scan(&h.ID, &member, &h.DayOfWeek, &h.StartTime, &h.EndTime, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.TeamMemberID = member.String
		result = append(result, h)
	}
	return result, rows.Err()
}

// SetWorkingHours replaces the weekly table of a team member, or of the
// organization when teamMemberID is empty.
func (db *DB) SetWorkingHours(ctx context.Context, teamMemberID string, rules []workhours.DayOfWeekRule) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceWorkingHours(ctx, tx, teamMemberID, rules, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceWorkingHours(ctx context.Context, tx *sql.Tx, teamMemberID string, rules []workhours.DayOfWeekRule, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM working_hours WHERE team_member_id IS ?`, nullString(teamMemberID),
	); err != nil {
		return fmt.Errorf("clear working hours: %w", err)
	}
	for _, rule := range rules {
		for _, r := range rule.Ranges {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO working_hours (team_member_id, day_of_week, start_time, end_time, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				nullString(teamMemberID), rule.DayOfWeek,
				clock(r.StartHour, r.StartMinute), clock(r.EndHour, r.EndMinute), now, now,
			)
			if err != nil {
				return fmt.Errorf("insert working hours day %d: %w", rule.DayOfWeek, err)
			}
		}
	}
	return nil
}

func clock(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ListSpecialDays returns special days in [from, to] for a team member, or for
// the organization when teamMemberID is empty.
func (db *DB) ListSpecialDays(ctx context.Context, teamMemberID string, from, to calendar.Date) ([]model.SpecialDay, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, team_member_id, date, is_closed, ranges, reason, created_at, updated_at
		FROM special_days
		WHERE team_member_id IS ? AND date >= ? AND date <= ?
		ORDER BY date`, nullString(teamMemberID), from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.SpecialDay
	for rows.Next() {
		var d model.SpecialDay
		var member, reason sql.NullString
		var ranges string
		if err := rows.Scan(&d.ID, &member, &d.Date, &d.Closed, &ranges, &reason, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.TeamMemberID = member.String
		d.Reason = reason.String
		if ranges != "" {
			d.Ranges = strings.Split(ranges, ",")
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// FindSpecialDayRules returns ListSpecialDays as expander rules.
func (db *DB) FindSpecialDayRules(ctx context.Context, teamMemberID string, from, to calendar.Date) ([]workhours.SpecialDayRule, error) {
	days, err := db.ListSpecialDays(ctx, teamMemberID, from, to)
	if err != nil {
		return nil, err
	}
	rules := make([]workhours.SpecialDayRule, 0, len(days))
	for _, d := range days {
		date, err := calendar.ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("special_days row %d: %w", d.ID, err)
		}
		rule := workhours.SpecialDayRule{Date: date, Ranges: []workhours.HourRange{}}
		if !d.Closed {
			for _, s := range d.Ranges {
				r, err := workhours.ParseHourRange(s)
				if err != nil {
					return nil, fmt.Errorf("special_days row %d: %w", d.ID, err)
				}
				rule.Ranges = append(rule.Ranges, r)
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SetSpecialDay creates or replaces the special day of a team member (or the
// organization) on d.Date.
func (db *DB) SetSpecialDay(ctx context.Context, d *model.SpecialDay) error {
	if d == nil {
		return fmt.Errorf("special day is nil")
	}
	if err := validateSpecialDay(d); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertSpecialDay(ctx, tx, d, "manual", time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSpecialDay removes the special day on date.
func (db *DB) DeleteSpecialDay(ctx context.Context, teamMemberID string, date calendar.Date) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM special_days WHERE team_member_id IS ? AND date = ?`,
		nullString(teamMemberID), date.String(),
	)
	return err
}

func validateSpecialDay(d *model.SpecialDay) error {
	if _, err := calendar.ParseDate(d.Date); err != nil {
		return err
	}
	if d.Closed && len(d.Ranges) > 0 {
		return fmt.Errorf("special day %s: closed day cannot have ranges", d.Date)
	}
	for _, s := range d.Ranges {
		if _, err := workhours.ParseHourRange(s); err != nil {
			return fmt.Errorf("special day %s: %w", d.Date, err)
		}
	}
	return nil
}

func insertSpecialDay(ctx context.Context, tx *sql.Tx, d *model.SpecialDay, source string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM special_days WHERE team_member_id IS ? AND date = ?`,
		nullString(d.TeamMemberID), d.Date,
	); err != nil {
		return fmt.Errorf("replace special day %s: %w", d.Date, err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO special_days (team_member_id, date, is_closed, ranges, reason, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(d.TeamMemberID), d.Date, d.Closed || len(d.Ranges) == 0,
		strings.Join(d.Ranges, ","), nullString(d.Reason), source, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert special day %s: %w", d.Date, err)
	}
	return nil
}
