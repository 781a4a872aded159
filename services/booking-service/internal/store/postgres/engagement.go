package postgres

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

const feedbackColumns = `id, appointment_id, client_id, business_id, rating, service_quality, punctuality, cleanliness, comments, created_at`

func scanFeedback(row rowScanner) (model.Feedback, error) {
	var f model.Feedback
	err := row.Scan(&f.ID, &f.AppointmentID, &f.ClientID, &f.BusinessID, &f.Rating,
		&f.ServiceQuality, &f.Punctuality, &f.Cleanliness, &f.Comments, &f.CreatedAt)
	return f, mapError(err)
}

func (q *queries) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	if f == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO feedback (appointment_id, client_id, business_id, rating, service_quality, punctuality, cleanliness, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, f.AppointmentID, f.ClientID, f.BusinessID, f.Rating, f.ServiceQuality, f.Punctuality, f.Cleanliness, f.Comments,
	).Scan(&f.ID, &f.CreatedAt)
	return mapError(err)
}

func (q *queries) GetFeedbackByAppointment(ctx context.Context, appointmentID int64) (model.Feedback, error) {
	return scanFeedback(q.db.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE appointment_id = $1`, appointmentID))
}

func (q *queries) ListBusinessFeedback(ctx context.Context, businessID int64) ([]model.Feedback, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+feedbackColumns+`
		FROM feedback
		WHERE business_id = $1
		ORDER BY created_at DESC, id DESC
	`, businessID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, mapError(rows.Err())
}

const paymentColumns = `id, appointment_id, client_id, business_id, amount_cents, method, status, transaction_ref, created_at, updated_at`

func scanPayment(row rowScanner) (model.Payment, error) {
	var p model.Payment
	var status string
	err := row.Scan(&p.ID, &p.AppointmentID, &p.ClientID, &p.BusinessID, &p.AmountCents, &p.Method,
		&status, &p.TransactionRef, &p.CreatedAt, &p.UpdatedAt)
	p.Status = model.PaymentStatus(status)
	return p, mapError(err)
}

func (q *queries) InsertPayment(ctx context.Context, p *model.Payment) error {
	if p == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO payments (appointment_id, client_id, business_id, amount_cents, method, status, transaction_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, p.AppointmentID, p.ClientID, p.BusinessID, p.AmountCents, p.Method, string(p.Status), p.TransactionRef,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

func (q *queries) UpdatePayment(ctx context.Context, p *model.Payment) error {
	if p == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		UPDATE payments SET status = $2, transaction_ref = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, string(p.Status), p.TransactionRef).Scan(&p.UpdatedAt)
	return mapError(err)
}

func (q *queries) GetPaymentForUpdate(ctx context.Context, id int64) (model.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
}

func (q *queries) ListAppointmentPayments(ctx context.Context, appointmentID int64) ([]model.Payment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE appointment_id = $1
		ORDER BY created_at, id
	`, appointmentID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err())
}

func (q *queries) ListRevenue(ctx context.Context, businessID int64, from, to time.Time) ([]store.RevenueEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT a.id, a.start_time, p.amount_cents
		FROM payments p
		JOIN appointments a ON a.id = p.appointment_id
		WHERE a.business_id = $1
		  AND a.status = 'completed'
		  AND p.status = 'completed'
		  AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time, p.id
	`, businessID, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []store.RevenueEntry
	for rows.Next() {
		var e store.RevenueEntry
		if err := rows.Scan(&e.AppointmentID, &e.StartTime, &e.AmountCents); err != nil {
			return nil, mapError(err)
		}
		out = append(out, e)
	}
	return out, mapError(rows.Err())
}

func (q *queries) InsertNotification(ctx context.Context, n *model.Notification) error {
	if n == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, appointment_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, sent_at
	`, n.UserID, string(n.Type), n.Title, n.Message, n.AppointmentID).Scan(&n.ID, &n.SentAt)
	return mapError(err)
}

func (q *queries) ListUserNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, type, title, message, is_read, appointment_id, sent_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY sent_at DESC, id DESC
	`, userID, unreadOnly)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Read, &n.AppointmentID, &n.SentAt); err != nil {
			return nil, mapError(err)
		}
		n.Type = model.NotificationType(typ)
		out = append(out, n)
	}
	return out, mapError(rows.Err())
}

func (q *queries) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	tag, err := q.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(err)
	}
	return mustAffect(tag.RowsAffected())
}

func (q *queries) InsertKnowledge(ctx context.Context, k *model.KnowledgeEntry) error {
	if k == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO chatbot_knowledge (business_id, question, answer, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, k.BusinessID, k.Question, k.Answer, k.Category).Scan(&k.ID, &k.CreatedAt)
	return mapError(err)
}

func (q *queries) ListKnowledge(ctx context.Context, businessID int64) ([]model.KnowledgeEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, business_id, question, answer, category, created_at
		FROM chatbot_knowledge
		WHERE business_id = $1
		ORDER BY id
	`, businessID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.KnowledgeEntry
	for rows.Next() {
		var k model.KnowledgeEntry
		if err := rows.Scan(&k.ID, &k.BusinessID, &k.Question, &k.Answer, &k.Category, &k.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, k)
	}
	return out, mapError(rows.Err())
}

func (q *queries) InsertChatLog(ctx context.Context, l *model.ChatLog) error {
	if l == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO chatbot_logs (business_id, client_id, session_id, question, response, resolved)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, l.BusinessID, l.ClientID, l.SessionID, l.Question, l.Response, l.Resolved).Scan(&l.ID, &l.CreatedAt)
	return mapError(err)
}

func (q *queries) ListChatLogs(ctx context.Context, businessID int64, limit int) ([]model.ChatLog, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, business_id, client_id, session_id, question, response, resolved, created_at
		FROM chatbot_logs
		WHERE business_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.ChatLog
	for rows.Next() {
		var l model.ChatLog
		if err := rows.Scan(&l.ID, &l.BusinessID, &l.ClientID, &l.SessionID, &l.Question, &l.Response, &l.Resolved, &l.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, l)
	}
	return out, mapError(rows.Err())
}
