package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careslot/careslot/internal/auth"
	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/user"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	// All seeded accounts share one password so bcrypt runs once.
	passwordHash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	if err := seedDoctors(context.Background(), pool, passwordHash, 50); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, passwordHash, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) error {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		email := seedEmail(first, last, i)
		phone := gofakeit.Phone()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, first_name, last_name, email, phone_number, role, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, id, first, last, email, phone, user.RoleDoctor, passwordHash)
		if err != nil {
			return err
		}

		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		bio := gofakeit.Sentence(12)

		_, err = tx.Exec(ctx, `
			INSERT INTO doctor_profiles (doctor_id, specialization, bio)
			VALUES ($1, $2, $3)
		`, id, spec, bio)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			first := gofakeit.FirstName()
			last := gofakeit.LastName()
			email := seedEmail(first, last, i+1000000)
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, first_name, last_name, email, phone_number, role, password_hash, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			`, id, first, last, email, phone, user.RolePatient, passwordHash)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			gender := gofakeit.Gender()
			dob := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2007, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err = tx.Exec(ctx, `
				INSERT INTO patient_profiles (patient_id, gender, date_of_birth)
				VALUES ($1, $2, $3)
			`, id, gender, dob)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedEmail keeps generated addresses unique across the run.
func seedEmail(first, last string, n int) string {
	return fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), n)
}
