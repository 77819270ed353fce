package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.SlotDate,
		&s.SlotTime,
		&s.ExpireAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var purpose *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.SlotID,
		&a.Status,
		&purpose,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Purpose = purpose
	return &a, nil
}

// Slot methods

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, slot_date, slot_time, expire_at, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) FindSlotByTuple(ctx context.Context, doctorID uuid.UUID, slotDate time.Time, slotTime string) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, slot_date, slot_time, expire_at, created_at, updated_at
		FROM slots
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
	`, doctorID, slotDate, slotTime)
	return scanSlot(row)
}

func (r *PgRepository) CreateSlot(ctx context.Context, s *Slot) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO slots (id, doctor_id, slot_date, slot_time, expire_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`, s.ID, s.DoctorID, s.SlotDate, s.SlotTime, s.ExpireAt)

	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) ListSlots(ctx context.Context) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, slot_date, slot_time, expire_at, created_at, updated_at
		FROM slots
		ORDER BY slot_date, slot_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *PgRepository) ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, slot_date, slot_time, expire_at, created_at, updated_at
		FROM slots
		WHERE doctor_id = $1
		ORDER BY slot_date, slot_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ListBookedTimes(ctx context.Context, doctorID uuid.UUID, slotDate time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_time
		FROM slots
		WHERE doctor_id = $1 AND slot_date = $2
		ORDER BY expire_at
	`, doctorID, slotDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

// Appointment methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, slot_id, status, purpose, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, slot_id, status, purpose, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.PatientID, a.DoctorID, a.SlotID, a.Status, a.Purpose)

	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET slot_id = $2,
		    status = $3,
		    purpose = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.SlotID, a.Status, a.Purpose)

	if err := row.Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return err
	}
	return nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListAppointmentDetails(ctx context.Context) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.slot_id, a.status, a.purpose, a.created_at, a.updated_at,
		       p.first_name || ' ' || p.last_name, p.email,
		       d.first_name || ' ' || d.last_name, d.email,
		       s.slot_date, s.slot_time
		FROM appointments a
		JOIN users p ON p.id = a.patient_id
		JOIN users d ON d.id = a.doctor_id
		JOIN slots s ON s.id = a.slot_id
		ORDER BY s.slot_date, s.slot_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		var det AppointmentDetail
		var purpose *string

		err := rows.Scan(
			&det.ID, &det.PatientID, &det.DoctorID, &det.SlotID, &det.Status, &purpose,
			&det.CreatedAt, &det.UpdatedAt,
			&det.PatientName, &det.PatientEmail,
			&det.DoctorName, &det.DoctorEmail,
			&det.SlotDate, &det.SlotTime,
		)
		if err != nil {
			return nil, err
		}
		det.Purpose = purpose
		result = append(result, det)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// The inner joins drop rows whose patient, doctor or slot reference is
// dangling instead of failing the whole listing.

func (r *PgRepository) ListAppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]UserAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, u.first_name || ' ' || u.last_name, u.email,
		       s.slot_date, s.slot_time, a.purpose, a.status
		FROM appointments a
		JOIN users u ON u.id = a.patient_id
		JOIN slots s ON s.id = a.slot_id
		WHERE a.doctor_id = $1
		ORDER BY s.slot_date, s.slot_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUserAppointments(rows)
}

func (r *PgRepository) ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID) ([]UserAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, u.first_name || ' ' || u.last_name, u.email,
		       s.slot_date, s.slot_time, a.purpose, a.status
		FROM appointments a
		JOIN users u ON u.id = a.doctor_id
		JOIN slots s ON s.id = a.slot_id
		WHERE a.patient_id = $1
		ORDER BY s.slot_date, s.slot_time
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUserAppointments(rows)
}

func collectUserAppointments(rows pgx.Rows) ([]UserAppointment, error) {
	var result []UserAppointment
	for rows.Next() {
		var ua UserAppointment
		var purpose *string

		err := rows.Scan(
			&ua.ID, &ua.CounterpartyName, &ua.CounterpartyEmail,
			&ua.SlotDate, &ua.SlotTime, &purpose, &ua.Status,
		)
		if err != nil {
			return nil, err
		}
		ua.Purpose = purpose
		result = append(result, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Reconcile methods

func (r *PgRepository) DeleteOrphanSlots(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots s
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments a WHERE a.slot_id = s.id
		)
		AND s.created_at < now() - interval '5 minutes'
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) CancelOrphanAppointments(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments a
		SET status = 'cancelled', updated_at = now()
		WHERE a.status = 'booked'
		  AND NOT EXISTS (
			SELECT 1 FROM slots s WHERE s.id = a.slot_id
		)
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
