package model

import "time"

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

var allStatuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow}

func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", Validation("unknown appointment status %q", s)
}

// Active appointments hold their time slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

type Appointment struct {
	ID                 int64      `json:"id"`
	ClientID           int64      `json:"client_id"`
	BusinessID         int64      `json:"business_id"`
	ServiceID          int64      `json:"service_id"`
	StaffID            *int64     `json:"staff_id,omitempty"`
	StartTime          time.Time  `json:"start_time"`
	DurationMinutes    int        `json:"duration_minutes"`
	Status             Status     `json:"status"`
	ConfirmationCode   string     `json:"confirmation_code"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	SpecialNotes       string     `json:"special_notes,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (a Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(a.Duration())
}

// HasStaff reports whether the appointment is assigned to staffID.
func (a Appointment) HasStaff(staffID int64) bool {
	return a.StaffID != nil && *a.StaffID == staffID
}
