package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

// activeSlotKey is the partial unique index over active appointments.
const activeSlotKey = "appointments_active_slot_key"

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `a.id, a.patient_id, a.doctor_id, a.clinic_id, to_char(a.appointment_date, 'YYYY-MM-DD'),
	a.time_slot, a.status, a.type, a.reason, a.symptoms, a.notes, a.cancellation_reason,
	a.created_at, a.updated_at`

func scanAppointment(row pgx.Row, extra ...interface{}) (*Appointment, error) {
	var a Appointment
	dest := []interface{}{&a.ID, &a.PatientID, &a.DoctorID, &a.ClinicID, &a.AppointmentDate,
		&a.TimeSlot, &a.Status, &a.Type, &a.Reason, &a.Symptoms, &a.Notes, &a.CancellationReason,
		&a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, clinic_id, appointment_date, time_slot,
			status, type, reason, symptoms, notes)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.ClinicID, a.AppointmentDate, a.TimeSlot,
		a.Status, a.Type, a.Reason, a.Symptoms, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, activeSlotKey) {
		return apperr.Conflict("slot already booked")
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments a WHERE a.id = $1`, id))
}

const detailsFrom = ` FROM appointments a
	JOIN users u ON u.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN clinics c ON c.id = a.clinic_id`

func scanDetails(row pgx.Row) (*Details, error) {
	var d Details
	a, err := scanAppointment(row, &d.PatientEmail, &d.PatientName, &d.DoctorName, &d.ClinicName)
	if err != nil {
		return nil, err
	}
	d.Appointment = a
	return &d, nil
}

func (r *appointmentRepoPG) GetDetails(ctx context.Context, id uuid.UUID) (*Details, error) {
	return scanDetails(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+`, u.email, u.full_name, d.full_name, c.name`+detailsFrom+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) SlotTaken(ctx context.Context, doctorID uuid.UUID, date, timeSlot string) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2::date AND time_slot = $3 AND status <> 'cancelled'
		)`, doctorID, date, timeSlot).Scan(&taken)
	return taken, err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (r *appointmentRepoPG) ListActiveInWindow(ctx context.Context, doctorIDs []uuid.UUID, from, to string) ([]*Appointment, error) {
	if len(doctorIDs) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments a
		WHERE a.doctor_id = ANY($1::uuid[])
			AND a.appointment_date >= $2::date AND a.appointment_date < $3::date
			AND a.status <> 'cancelled'
		ORDER BY a.appointment_date, a.time_slot`,
		uuidStrings(doctorIDs), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from []string, to string, reason *string) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments a
		SET status = $2, cancellation_reason = COALESCE($4, a.cancellation_reason), updated_at = NOW()
		WHERE a.id = $1 AND a.status = ANY($3::text[])
		RETURNING `+apptCols,
		id, to, from, reason))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrStatusChanged
	}
	return a, err
}

func (r *appointmentRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	var where []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PatientID != nil {
		add("a.patient_id = $%d", *f.PatientID)
	}
	if f.DoctorID != nil {
		add("a.doctor_id = $%d", *f.DoctorID)
	}
	if f.Status != "" {
		add("a.status = $%d", f.Status)
	}
	if f.Date != "" {
		add("a.appointment_date = $%d::date", f.Date)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM appointments a%s ORDER BY a.appointment_date DESC, a.time_slot LIMIT $%d OFFSET $%d`,
		apptCols, clause, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) ListDueForReminder(ctx context.Context, from, to string) ([]*Details, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`, u.email, u.full_name, d.full_name, c.name`+detailsFrom+`
		WHERE a.appointment_date >= $1::date AND a.appointment_date < $2::date
			AND a.status IN ('scheduled', 'confirmed')
			AND a.reminder_sent_at IS NULL
		ORDER BY a.appointment_date, a.time_slot`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Details
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) MarkReminded(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE appointments SET reminder_sent_at = NOW() WHERE id = $1`, id)
	return err
}
