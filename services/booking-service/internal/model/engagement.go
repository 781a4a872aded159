package model

import "time"

type Feedback struct {
	ID             int64     `json:"id"`
	AppointmentID  int64     `json:"appointment_id"`
	ClientID       int64     `json:"client_id"`
	BusinessID     int64     `json:"business_id"`
	Rating         int       `json:"rating"`
	ServiceQuality *int      `json:"service_quality,omitempty"`
	Punctuality    *int      `json:"punctuality,omitempty"`
	Cleanliness    *int      `json:"cleanliness,omitempty"`
	Comments       string    `json:"comments,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return st, nil
	}
	return "", Validation("unknown payment status %q", s)
}

type Payment struct {
	ID             int64         `json:"id"`
	AppointmentID  int64         `json:"appointment_id"`
	ClientID       int64         `json:"client_id"`
	BusinessID     int64         `json:"business_id"`
	AmountCents    int64         `json:"amount_cents"`
	Method         string        `json:"payment_method"`
	Status         PaymentStatus `json:"status"`
	TransactionRef string        `json:"transaction_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type NotificationType string

const (
	NotifyBookingConfirmation NotificationType = "booking_confirmation"
	NotifyReminder            NotificationType = "reminder"
	NotifyCancellation        NotificationType = "cancellation"
	NotifyFollowUp            NotificationType = "follow_up"
	NotifyPromotional         NotificationType = "promotional"
)

func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotifyBookingConfirmation, NotifyReminder, NotifyCancellation, NotifyFollowUp, NotifyPromotional:
		return t, nil
	}
	return "", Validation("unknown notification type %q", s)
}

type Notification struct {
	ID            int64            `json:"id"`
	UserID        int64            `json:"user_id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Read          bool             `json:"is_read"`
	AppointmentID *int64           `json:"appointment_id,omitempty"`
	SentAt        time.Time        `json:"sent_at"`
}

type KnowledgeEntry struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Category   string    `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChatLog struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	ClientID   *int64    `json:"client_id,omitempty"`
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	Response   string    `json:"response"`
	Resolved   bool      `json:"resolved"`
	CreatedAt  time.Time `json:"created_at"`
}
