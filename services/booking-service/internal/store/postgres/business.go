package postgres

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

const businessColumns = `id, owner_id, name, description, address, phone, email, timezone, operating_hours, created_at, updated_at`

func scanBusiness(row rowScanner) (model.Business, error) {
	var b model.Business
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Address, &b.Phone, &b.Email,
		&b.Timezone, &b.OperatingHours, &b.CreatedAt, &b.UpdatedAt)
	return b, mapError(err)
}

func (q *queries) InsertBusiness(ctx context.Context, b *model.Business) error {
	if b == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO businesses (owner_id, name, description, address, phone, email, timezone, operating_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, b.OwnerID, b.Name, b.Description, b.Address, b.Phone, b.Email, b.Timezone, b.OperatingHours,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return mapError(err)
}

// UpdateBusiness never touches owner_id.
func (q *queries) UpdateBusiness(ctx context.Context, b *model.Business) error {
	if b == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		UPDATE businesses
		SET name = $2, description = $3, address = $4, phone = $5, email = $6,
		    timezone = $7, operating_hours = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, b.ID, b.Name, b.Description, b.Address, b.Phone, b.Email, b.Timezone, b.OperatingHours,
	).Scan(&b.UpdatedAt)
	return mapError(err)
}

func (q *queries) GetBusiness(ctx context.Context, id int64) (model.Business, error) {
	return scanBusiness(q.db.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
}

func (q *queries) GetBusinessByOwner(ctx context.Context, ownerID int64) (model.Business, error) {
	return scanBusiness(q.db.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE owner_id = $1`, ownerID))
}

const serviceColumns = `id, business_id, name, description, category, duration_minutes, price_cents, is_active, created_at`

func scanService(row rowScanner) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.Category, &s.DurationMinutes,
		&s.PriceCents, &s.Active, &s.CreatedAt)
	return s, mapError(err)
}

func (q *queries) InsertService(ctx context.Context, s *model.Service) error {
	if s == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO services (business_id, name, description, category, duration_minutes, price_cents, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, s.BusinessID, s.Name, s.Description, s.Category, s.DurationMinutes, s.PriceCents, s.Active,
	).Scan(&s.ID, &s.CreatedAt)
	return mapError(err)
}

func (q *queries) UpdateService(ctx context.Context, s *model.Service) error {
	if s == nil {
		return errNilRecord
	}
	tag, err := q.db.Exec(ctx, `
		UPDATE services
		SET name = $2, description = $3, category = $4, duration_minutes = $5, price_cents = $6, is_active = $7
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.Category, s.DurationMinutes, s.PriceCents, s.Active)
	if err != nil {
		return mapError(err)
	}
	return mustAffect(tag.RowsAffected())
}

func (q *queries) GetService(ctx context.Context, id int64) (model.Service, error) {
	return scanService(q.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
}

func (q *queries) ListServices(ctx context.Context, businessID int64, activeOnly bool) ([]model.Service, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE business_id = $1 AND (is_active OR NOT $2)
		ORDER BY name, id
	`, businessID, activeOnly)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapError(rows.Err())
}

const staffColumns = `id, business_id, user_id, name, email, phone, specialization, is_active, created_at`

func scanStaff(row rowScanner) (model.Staff, error) {
	var s model.Staff
	err := row.Scan(&s.ID, &s.BusinessID, &s.UserID, &s.Name, &s.Email, &s.Phone, &s.Specialization, &s.Active, &s.CreatedAt)
	return s, mapError(err)
}

func (q *queries) InsertStaff(ctx context.Context, s *model.Staff) error {
	if s == nil {
		return errNilRecord
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO staff (business_id, user_id, name, email, phone, specialization, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, s.BusinessID, s.UserID, s.Name, s.Email, s.Phone, s.Specialization, s.Active,
	).Scan(&s.ID, &s.CreatedAt)
	return mapError(err)
}

func (q *queries) GetStaff(ctx context.Context, id int64) (model.Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
}

func (q *queries) LockStaff(ctx context.Context, id int64) (model.Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1 FOR UPDATE`, id))
}

func (q *queries) ListStaff(ctx context.Context, businessID int64) ([]model.Staff, error) {
	rows, err := q.db.Query(ctx, `SELECT `+staffColumns+` FROM staff WHERE business_id = $1 ORDER BY name, id`, businessID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapError(rows.Err())
}

func (q *queries) UpsertWorkingHours(ctx context.Context, h model.WorkingHours) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO staff_working_hours (staff_id, weekday, is_working, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (staff_id, weekday) DO UPDATE
		SET is_working = EXCLUDED.is_working,
		    start_minute = EXCLUDED.start_minute,
		    end_minute = EXCLUDED.end_minute
	`, h.StaffID, int(h.Weekday), h.IsWorking, h.StartMinute, h.EndMinute)
	return mapError(err)
}

func (q *queries) ListWorkingHours(ctx context.Context, staffID int64) ([]model.WorkingHours, error) {
	rows, err := q.db.Query(ctx, `
		SELECT staff_id, weekday, is_working, start_minute, end_minute
		FROM staff_working_hours
		WHERE staff_id = $1
		ORDER BY weekday
	`, staffID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.WorkingHours
	for rows.Next() {
		var h model.WorkingHours
		var weekday int
		if err := rows.Scan(&h.StaffID, &weekday, &h.IsWorking, &h.StartMinute, &h.EndMinute); err != nil {
			return nil, mapError(err)
		}
		h.Weekday = time.Weekday(weekday)
		out = append(out, h)
	}
	return out, mapError(rows.Err())
}
