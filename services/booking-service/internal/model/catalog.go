package model

import "time"

type Business struct {
	ID             int64     `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	Name           string    `json:"business_name"`
	Description    string    `json:"description,omitempty"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Timezone       string    `json:"timezone"`
	OperatingHours string    `json:"operating_hours,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Location resolves the business timezone, falling back to UTC.
func (b Business) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Service struct {
	ID              int64     `json:"id"`
	BusinessID      int64     `json:"business_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Active          bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

type Staff struct {
	ID             int64     `json:"id"`
	BusinessID     int64     `json:"business_id"`
	UserID         *int64    `json:"user_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Specialization string    `json:"specialization,omitempty"`
	Active         bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// WorkingHours is one weekday of a staff member's schedule, in minutes from
// local midnight of the business timezone.
type WorkingHours struct {
	StaffID     int64        `json:"staff_id"`
	Weekday     time.Weekday `json:"weekday"`
	IsWorking   bool         `json:"is_working"`
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
}

func (h WorkingHours) Validate() error {
	if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
		return Validation("weekday must be between 0 and 6")
	}
	if !h.IsWorking {
		return nil
	}
	if h.StartMinute < 0 || h.EndMinute > 24*60 || h.StartMinute >= h.EndMinute {
		return Validation("working hours must satisfy 0 <= start < end <= 1440")
	}
	return nil
}

// DefaultWorkingHours is Monday to Friday, 09:00 to 17:00.
func DefaultWorkingHours(staffID int64) []WorkingHours {
	out := make([]WorkingHours, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		h := WorkingHours{StaffID: staffID, Weekday: d}
		if d >= time.Monday && d <= time.Friday {
			h.IsWorking = true
			h.StartMinute = 9 * 60
			h.EndMinute = 17 * 60
		}
		out = append(out, h)
	}
	return out
}
