package postgres

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

const appointmentColumns = `id, client_id, business_id, service_id, staff_id, start_time, duration_minutes, status,
	confirmation_code, cancellation_reason, special_notes, cancelled_at, created_at, updated_at`

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var a model.Appointment
	var status string
	err := row.Scan(&a.ID, &a.ClientID, &a.BusinessID, &a.ServiceID, &a.StaffID, &a.StartTime, &a.DurationMinutes,
		&status, &a.ConfirmationCode, &a.CancellationReason, &a.SpecialNotes, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt)
	a.Status = model.Status(status)
	return a, mapError(err)
}

func (q *queries) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	if a == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO appointments (client_id, business_id, service_id, staff_id, start_time, end_time, duration_minutes,
			status, confirmation_code, special_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, a.ClientID, a.BusinessID, a.ServiceID, a.StaffID, a.StartTime, a.EndTime(), a.DurationMinutes,
		string(a.Status), a.ConfirmationCode, a.SpecialNotes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err)
}

func (q *queries) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	if a == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $2, end_time = $3, duration_minutes = $4, status = $5,
		    cancellation_reason = $6, cancelled_at = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.StartTime, a.EndTime(), a.DurationMinutes, string(a.Status), a.CancellationReason, a.CancelledAt,
	).Scan(&a.UpdatedAt)
	return mapError(err)
}

func (q *queries) GetAppointment(ctx context.Context, id int64) (model.Appointment, error) {
	return scanAppointment(q.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
}

func (q *queries) GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error) {
	return scanAppointment(q.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

func (q *queries) ConfirmationCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE confirmation_code = $1)`, code).Scan(&exists)
	return exists, mapError(err)
}

// Open range bounds are passed as NULL.
func rangeArgs(f store.AppointmentFilter) (from, to *time.Time) {
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}
	return from, to
}

func (q *queries) ListStaffAppointments(ctx context.Context, staffID int64, f store.AppointmentFilter) ([]model.Appointment, error) {
	from, to := rangeArgs(f)
	return q.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1
		  AND ($2::timestamptz IS NULL OR end_time > $2)
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		  AND (NOT $4 OR status IN ('pending', 'confirmed'))
		ORDER BY start_time, id
	`, staffID, from, to, f.ActiveOnly)
}

func (q *queries) ListClientAppointments(ctx context.Context, clientID int64) ([]model.Appointment, error) {
	return q.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE client_id = $1
		ORDER BY start_time, id
	`, clientID)
}

func (q *queries) ListBusinessAppointments(ctx context.Context, businessID int64, f store.AppointmentFilter) ([]model.Appointment, error) {
	from, to := rangeArgs(f)
	return q.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
		  AND ($2::timestamptz IS NULL OR end_time > $2)
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		  AND (NOT $4 OR status IN ('pending', 'confirmed'))
		ORDER BY start_time, id
	`, businessID, from, to, f.ActiveOnly)
}

func (q *queries) ListDueCompletions(ctx context.Context, cutoff time.Time, limit int) ([]model.Appointment, error) {
	return q.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed' AND end_time <= $1
		ORDER BY end_time, id
		LIMIT $2
	`, cutoff, limit)
}

func (q *queries) listAppointments(ctx context.Context, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapError(rows.Err())
}

