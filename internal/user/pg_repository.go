package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, phone_number, role, password_hash, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var phone *string

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&phone,
		&u.Role,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	u.PhoneNumber = phone
	return &u, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func insertUser(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, u *User) error {
	row := q.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, email, phone_number, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, u.ID, u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.Role, u.PasswordHash)

	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *PgRepository) CreateUser(ctx context.Context, u *User) error {
	return insertUser(ctx, r.pool, u)
}

func (r *PgRepository) CreateDoctor(ctx context.Context, u *User, p *DoctorProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO doctor_profiles (doctor_id, specialization, bio)
		VALUES ($1, $2, $3)
	`, u.ID, p.Specialization, p.Bio); err != nil {
		return fmt.Errorf("insert doctor profile: %w", err)
	}

	p.DoctorID = u.ID
	return tx.Commit(ctx)
}

func (r *PgRepository) CreatePatient(ctx context.Context, u *User, p *PatientProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO patient_profiles (patient_id, gender, date_of_birth)
		VALUES ($1, $2, $3)
	`, u.ID, p.Gender, p.DateOfBirth); err != nil {
		return fmt.Errorf("insert patient profile: %w", err)
	}

	p.PatientID = u.ID
	return tx.Commit(ctx)
}

func (r *PgRepository) GetDoctorProfile(ctx context.Context, doctorID uuid.UUID) (*DoctorProfile, error) {
	var p DoctorProfile
	err := r.pool.QueryRow(ctx, `
		SELECT doctor_id, specialization, bio
		FROM doctor_profiles
		WHERE doctor_id = $1
	`, doctorID).Scan(&p.DoctorID, &p.Specialization, &p.Bio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetPatientProfile(ctx context.Context, patientID uuid.UUID) (*PatientProfile, error) {
	var p PatientProfile
	err := r.pool.QueryRow(ctx, `
		SELECT patient_id, gender, date_of_birth
		FROM patient_profiles
		WHERE patient_id = $1
	`, patientID).Scan(&p.PatientID, &p.Gender, &p.DateOfBirth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) UpsertDoctorProfile(ctx context.Context, p *DoctorProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_profiles (doctor_id, specialization, bio)
		VALUES ($1, $2, $3)
		ON CONFLICT (doctor_id) DO UPDATE SET specialization = $2, bio = $3
	`, p.DoctorID, p.Specialization, p.Bio)
	return err
}

func (r *PgRepository) UpsertPatientProfile(ctx context.Context, p *PatientProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_profiles (patient_id, gender, date_of_birth)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id) DO UPDATE SET gender = $2, date_of_birth = $3
	`, p.PatientID, p.Gender, p.DateOfBirth)
	return err
}

func (r *PgRepository) UpdateUser(ctx context.Context, u *User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET first_name = $2,
		    last_name = $3,
		    phone_number = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.FirstName, u.LastName, u.PhoneNumber)

	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (r *PgRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

const detailQuery = `
	SELECT u.id, u.first_name, u.last_name, u.email, u.phone_number, u.role, u.password_hash, u.created_at, u.updated_at,
	       d.specialization, d.bio,
	       p.gender, p.date_of_birth
	FROM users u
	LEFT JOIN doctor_profiles d ON d.doctor_id = u.id
	LEFT JOIN patient_profiles p ON p.patient_id = u.id
`

func scanDetail(row pgx.Row) (*Detail, error) {
	var det Detail
	var phone, specialization, bio, gender *string

	err := row.Scan(
		&det.ID,
		&det.FirstName,
		&det.LastName,
		&det.Email,
		&phone,
		&det.Role,
		&det.PasswordHash,
		&det.CreatedAt,
		&det.UpdatedAt,
		&specialization,
		&bio,
		&gender,
		&det.DateOfBirth,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	det.PhoneNumber = phone
	det.Specialization = specialization
	det.Bio = bio
	det.Gender = gender
	return &det, nil
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+` WHERE u.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) List(ctx context.Context, role Role) ([]Detail, error) {
	query := detailQuery + ` ORDER BY u.created_at`
	args := []any{}
	if role != "" {
		query = detailQuery + ` WHERE u.role = $1 ORDER BY u.created_at`
		args = append(args, role)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		det, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *det)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
