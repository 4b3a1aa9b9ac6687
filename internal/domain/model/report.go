//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxReportFieldLen = 10000
	maxTagLen         = 64
	maxTags           = 20
)

// Report is one weekly status report row. Rows are immutable after creation;
// there are no update or delete operations in this system.
type Report struct {
	ID        string    `json:"id"                 db:"id"`
	CreatedAt time.Time `json:"created_at"         db:"created_at"`
	WeekStart time.Time `json:"week_start"         db:"week_start"`
	Progress  string    `json:"progress"           db:"progress"`
	Blockers  *string   `json:"blockers,omitempty" db:"blockers"`
	Plans     string    `json:"plans"              db:"plans"`
	UserID    *string   `json:"user_id,omitempty"  db:"user_id"`
	Tags      []string  `json:"tags"               db:"tags"`
}

// CreateReportRequest represents parameters to submit a weekly report.
type CreateReportRequest struct {
	WeekStart string   `json:"week_start"`
	Progress  string   `json:"progress"`
	Blockers  *string  `json:"blockers,omitempty"`
	Plans     string   `json:"plans"`
	Tags      []string `json:"tags,omitempty"`
}

// ReportsListOptions controls paging and filtering for listing reports.
// Notes:
// - UserID and TeamUserIDs scope rows to an owner set; both nil means no owner filter.
// - WeekStart matches exactly when set.
type ReportsListOptions struct {
	Limit       int
	Offset      int
	UserID      *string
	TeamUserIDs []string
	WeekStart   *time.Time
}

// Validate validates CreateReportRequest and normalizes its fields.
func (r *CreateReportRequest) Validate() error {
	if _, err := r.ParseWeekStart(); err != nil {
		return err
	}
	r.Progress = strings.TrimSpace(r.Progress)
	if r.Progress == "" {
		return errors.New("progress is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Progress) > maxReportFieldLen {
		return errors.New("progress cannot exceed 10000 characters")
	}
	r.Plans = strings.TrimSpace(r.Plans)
	if r.Plans == "" {
		return errors.New("plans is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Plans) > maxReportFieldLen {
		return errors.New("plans cannot exceed 10000 characters")
	}
	if r.Blockers != nil {
		trimmed := strings.TrimSpace(*r.Blockers)
		if trimmed == "" {
			r.Blockers = nil
		} else {
			if utf8.RuneCountInString(trimmed) > maxReportFieldLen {
				return errors.New("blockers cannot exceed 10000 characters")
			}
			r.Blockers = &trimmed
		}
	}
	return r.validateTags()
}

// ParseWeekStart parses the week_start field as a calendar date (YYYY-MM-DD).
func (r *CreateReportRequest) ParseWeekStart() (time.Time, error) {
	raw := strings.TrimSpace(r.WeekStart)
	if raw == "" {
		return time.Time{}, errors.New("week_start is required")
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("week_start must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func (r *CreateReportRequest) validateTags() error {
	if len(r.Tags) > maxTags {
		return errors.New("tags cannot exceed 20 entries")
	}
	normalized := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(trimmed) > maxTagLen {
			return errors.New("tag cannot exceed 64 characters")
		}
		normalized = append(normalized, trimmed)
	}
	r.Tags = normalized
	return nil
}

// Profile is the secondary per-user record consulted by the resolution
// pipeline when provider metadata carries no role or team.
type Profile struct {
	UserID   string  `json:"user_id"             db:"user_id"`
	Role     *string `json:"role,omitempty"      db:"role"`
	TeamID   *string `json:"team_id,omitempty"   db:"team_id"`
	TeamName *string `json:"team_name,omitempty" db:"team_name"`
}
