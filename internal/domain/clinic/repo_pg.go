package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

// =========== Clinic Repository ===========

type clinicRepoPG struct{ pool *pgxpool.Pool }

func NewClinicRepoPG(pool *pgxpool.Pool) ClinicRepository { return &clinicRepoPG{pool: pool} }

func (r *clinicRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const clinicCols = `id, name, address, phone, email, description, is_active, created_at, updated_at`

func (r *clinicRepoPG) scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.Description,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("clinic not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan clinic: %w", err)
	}
	return &c, nil
}

func (r *clinicRepoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinics (id, name, address, phone, email, description, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Address, c.Phone, c.Email, c.Description, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *clinicRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return r.scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE id = $1`, id))
}

func (r *clinicRepoPG) Update(ctx context.Context, c *Clinic) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE clinics SET name=$2, address=$3, phone=$4, email=$5, description=$6,
			is_active=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Address, c.Phone, c.Email, c.Description, c.IsActive,
	).Scan(&c.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("clinic not found")
	}
	return err
}

func (r *clinicRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE is_active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinics`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clinicCols+` FROM clinics`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Clinic
	for rows.Next() {
		c, err := r.scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `id, user_id, clinic_id, full_name, specialty, email, phone, bio,
	consultation_fee::float8, is_available, working_days, start_time, end_time, slot_duration,
	created_at, updated_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var days []int16
	err := row.Scan(&d.ID, &d.UserID, &d.ClinicID, &d.FullName, &d.Specialty, &d.Email, &d.Phone, &d.Bio,
		&d.ConsultationFee, &d.IsAvailable, &days, &d.Schedule.StartTime, &d.Schedule.EndTime,
		&d.Schedule.SlotDuration, &d.CreatedAt, &d.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("doctor not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan doctor: %w", err)
	}
	d.Schedule.WorkingDays = make([]int, len(days))
	for i, v := range days {
		d.Schedule.WorkingDays[i] = int(v)
	}
	return &d, nil
}

func workingDaysParam(days []int) []int16 {
	out := make([]int16, len(days))
	for i, v := range days {
		out[i] = int16(v)
	}
	return out
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, clinic_id, full_name, specialty, email, phone, bio,
			consultation_fee, is_available, working_days, start_time, end_time, slot_duration)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.ClinicID, d.FullName, d.Specialty, d.Email, d.Phone, d.Bio,
		d.ConsultationFee, d.IsAvailable, workingDaysParam(d.Schedule.WorkingDays),
		d.Schedule.StartTime, d.Schedule.EndTime, d.Schedule.SlotDuration,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if db.IsUniqueViolation(err, "doctors_user_id_key") {
		return apperr.Conflict("user is already linked to a doctor")
	}
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE user_id = $1`, userID))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctors SET user_id=$2, clinic_id=$3, full_name=$4, specialty=$5, email=$6, phone=$7,
			bio=$8, consultation_fee=$9, is_available=$10, working_days=$11, start_time=$12,
			end_time=$13, slot_duration=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.UserID, d.ClinicID, d.FullName, d.Specialty, d.Email, d.Phone, d.Bio,
		d.ConsultationFee, d.IsAvailable, workingDaysParam(d.Schedule.WorkingDays),
		d.Schedule.StartTime, d.Schedule.EndTime, d.Schedule.SlotDuration,
	).Scan(&d.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("doctor not found")
	}
	if db.IsUniqueViolation(err, "doctors_user_id_key") {
		return apperr.Conflict("user is already linked to a doctor")
	}
	return err
}

func (r *doctorRepoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID, availableOnly bool) ([]*Doctor, error) {
	query := `SELECT ` + doctorCols + ` FROM doctors WHERE clinic_id = $1`
	if availableOnly {
		query += ` AND is_available`
	}
	query += ` ORDER BY full_name, id`

	rows, err := r.conn(ctx).Query(ctx, query, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
