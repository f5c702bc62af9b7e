package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"agenda/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = model.ErrNotFound
	// ErrSlotTaken is returned when an appointment collides with a blocking one.
	ErrSlotTaken = errors.New("team member already booked for that time")
)

// DB wraps sql.DB for the agenda service.
type DB struct {
	*sql.DB
}

// NewDB opens database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every new connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			price INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS team_members (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS team_member_services (
			team_member_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			PRIMARY KEY (team_member_id, service_id),
			FOREIGN KEY (team_member_id) REFERENCES team_members(id),
			FOREIGN KEY (service_id) REFERENCES services(id)
		)`,

		// NULL team_member_id rows form the organization-wide table
		`CREATE TABLE IF NOT EXISTS working_hours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_member_id TEXT,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (team_member_id) REFERENCES team_members(id)
		)`,

		`CREATE TABLE IF NOT EXISTS special_days (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_member_id TEXT,
			date TEXT NOT NULL,
			is_closed BOOLEAN NOT NULL DEFAULT 0,
			ranges TEXT NOT NULL DEFAULT '',
			reason TEXT,
			source TEXT NOT NULL DEFAULT 'manual',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (team_member_id) REFERENCES team_members(id)
		)`,

		// start_at/end_at are Unix milliseconds
		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			service_name TEXT,
			team_member_id TEXT NOT NULL,
			address TEXT,
			start_at INTEGER NOT NULL,
			end_at INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			cancelled_at DATETIME,
			completed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (service_id) REFERENCES services(id),
			FOREIGN KEY (team_member_id) REFERENCES team_members(id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_services_active ON services(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_tms_service ON team_member_services(service_id)`,
		`CREATE INDEX IF NOT EXISTS idx_working_hours_member ON working_hours(team_member_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_special_days_member_date ON special_days(team_member_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_times ON appointments(team_member_id, start_at, end_at)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
