package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"agenda/internal/calendar"
	"agenda/internal/workhours"
)

// ServiceConfig represents a bookable service.
type ServiceConfig struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Price           int64  `yaml:"price"`
	IsActive        bool   `yaml:"is_active"`
}

// DayHoursConfig lists open ranges for one weekday, e.g. ["09:00-13:00", "14:00-18:00"].
type DayHoursConfig struct {
	Day    int      `yaml:"day"` // 0=Sun ... 6=Sat
	Ranges []string `yaml:"ranges"`
}

// SpecialDayConfig overrides the weekly hours on one date.
type SpecialDayConfig struct {
	Date   string   `yaml:"date"` // "2026-01-01"
	Closed bool     `yaml:"closed"`
	Ranges []string `yaml:"ranges"`
	Reason string   `yaml:"reason"`
}

// TeamMemberConfig represents a person performing services. Weekly hours, when
// present, replace the organization table for this member.
type TeamMemberConfig struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	IsActive    bool               `yaml:"is_active"`
	Services    []string           `yaml:"services"`
	WeeklyHours []DayHoursConfig   `yaml:"weekly_hours"`
	SpecialDays []SpecialDayConfig `yaml:"special_days"`
}

// BusinessConfig is the root of business.yaml.
type BusinessConfig struct {
	Services    []ServiceConfig    `yaml:"services"`
	TeamMembers []TeamMemberConfig `yaml:"team_members"`
	WeeklyHours []DayHoursConfig   `yaml:"weekly_hours"`
	SpecialDays []SpecialDayConfig `yaml:"special_days"`
}

// LoadBusinessConfig loads and validates business configuration from YAML file.
func LoadBusinessConfig(path string) (*BusinessConfig, error) {
	if path == "" {
		path = "configs/business.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business config: %w", err)
	}

	var cfg BusinessConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse business config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate business config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *BusinessConfig) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("no services defined")
	}

	services := make(map[string]bool)
	for i, s := range c.Services {
		if s.ID == "" {
			return fmt.Errorf("service[%d]: id is required", i)
		}
		if services[s.ID] {
			return fmt.Errorf("service[%d]: duplicate id '%s'", i, s.ID)
		}
		services[s.ID] = true
		if s.Name == "" {
			return fmt.Errorf("service[%d]: name is required", i)
		}
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("service[%d]: duration_minutes must be positive, got %d", i, s.DurationMinutes)
		}
		if s.Price < 0 {
			return fmt.Errorf("service[%d]: price cannot be negative", i)
		}
	}

	members := make(map[string]bool)
	for i, m := range c.TeamMembers {
		if m.ID == "" {
			return fmt.Errorf("team_member[%d]: id is required", i)
		}
		if members[m.ID] {
			return fmt.Errorf("team_member[%d]: duplicate id '%s'", i, m.ID)
		}
		members[m.ID] = true
		if m.Name == "" {
			return fmt.Errorf("team_member[%d]: name is required", i)
		}
		for _, sid := range m.Services {
			if !services[sid] {
				return fmt.Errorf("team_member[%d]: unknown service '%s'", i, sid)
			}
		}
		if _, err := WeeklyRules(m.WeeklyHours); err != nil {
			return fmt.Errorf("team_member[%d].%w", i, err)
		}
		if _, err := SpecialDayRules(m.SpecialDays); err != nil {
			return fmt.Errorf("team_member[%d].%w", i, err)
		}
	}

	if _, err := WeeklyRules(c.WeeklyHours); err != nil {
		return err
	}
	if _, err := SpecialDayRules(c.SpecialDays); err != nil {
		return err
	}
	return nil
}

// WeeklyRules converts configured weekday hours into expander rules.
func WeeklyRules(days []DayHoursConfig) ([]workhours.DayOfWeekRule, error) {
	rules := make([]workhours.DayOfWeekRule, 0, len(days))
	for i, d := range days {
		ranges, err := parseRanges(d.Ranges)
		if err != nil {
			return nil, fmt.Errorf("weekly_hours[%d]: %w", i, err)
		}
		rules = append(rules, workhours.DayOfWeekRule{DayOfWeek: d.Day, Ranges: ranges})
	}
	if err := workhours.ValidateWeekly(rules); err != nil {
		return nil, fmt.Errorf("weekly_hours: %w", err)
	}
	return rules, nil
}

// SpecialDayRules converts configured special days into expander rules.
// A closed day has no ranges.
func SpecialDayRules(days []SpecialDayConfig) ([]workhours.SpecialDayRule, error) {
	rules := make([]workhours.SpecialDayRule, 0, len(days))
	for i, d := range days {
		date, err := calendar.ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("special_days[%d]: %w", i, err)
		}
		if d.Closed && len(d.Ranges) > 0 {
			return nil, fmt.Errorf("special_days[%d]: closed day cannot have ranges", i)
		}
		ranges, err := parseRanges(d.Ranges)
		if err != nil {
			return nil, fmt.Errorf("special_days[%d]: %w", i, err)
		}
		rules = append(rules, workhours.SpecialDayRule{Date: date, Ranges: ranges})
	}
	if err := workhours.ValidateSpecialDays(rules); err != nil {
		return nil, fmt.Errorf("special_days: %w", err)
	}
	return rules, nil
}

func parseRanges(in []string) ([]workhours.HourRange, error) {
	out := make([]workhours.HourRange, 0, len(in))
	for _, s := range in {
		r, err := workhours.ParseHourRange(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
