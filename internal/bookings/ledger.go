// Package bookings keeps a ledger of appointments confirmed by the booking bot.
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/wolfman30/botpe-relay/internal/booking"
)

// ErrDuplicateAppointment is returned when the same slot is booked twice for one patient.
var ErrDuplicateAppointment = errors.New("bookings: duplicate appointment")

const uniqueViolation = "23505"

// DBTX is the subset of *sql.DB the ledger uses.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Appointment is one ledger row.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	Identity    string    `json:"identity"`
	AccountID   string    `json:"account_id"`
	PatientName string    `json:"patient_name"`
	Department  string    `json:"department"`
	Hospital    string    `json:"hospital"`
	Doctor      string    `json:"doctor"`
	Date        string    `json:"date"`
	TimeSlot    string    `json:"time_slot"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	BookedAt    time.Time `json:"booked_at"`
}

// Ledger stores appointments in Postgres through database/sql.
type Ledger struct {
	db DBTX
}

func NewLedger(db DBTX) *Ledger {
	if db == nil {
		panic("bookings: db required")
	}
	return &Ledger{db: db}
}

// Record inserts a confirmed booking and returns its id.
func (l *Ledger) Record(ctx context.Context, b booking.Booking) (uuid.UUID, error) {
	if strings.TrimSpace(b.Identity) == "" {
		return uuid.Nil, errors.New("bookings: patient identity required")
	}
	id := uuid.New()
	bookedAt := b.BookedAt
	if bookedAt.IsZero() {
		bookedAt = time.Now()
	}
	var lat, lng sql.NullFloat64
	if b.Location != nil {
		lat = sql.NullFloat64{Float64: b.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: b.Location.Longitude, Valid: true}
	}
	query := `
		INSERT INTO appointments (
			id, identity, account_id, patient_name, department, hospital,
			doctor, appointment_date, time_slot, latitude, longitude, booked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := l.db.ExecContext(ctx, query,
		id.String(), b.Identity, b.AccountID, b.PatientName, b.Department, b.Hospital,
		b.Doctor, b.Date, b.TimeSlot, lat, lng, bookedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrDuplicateAppointment
		}
		return uuid.Nil, fmt.Errorf("bookings: insert appointment: %w", err)
	}
	return id, nil
}

// RecordAppointment satisfies booking.AppointmentRecorder.
func (l *Ledger) RecordAppointment(ctx context.Context, b booking.Booking) error {
	_, err := l.Record(ctx, b)
	return err
}

// ListForPatient returns the newest appointments for identity.
func (l *Ledger) ListForPatient(ctx context.Context, identity string, limit int) ([]Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT id, identity, account_id, patient_name, department, hospital,
			doctor, appointment_date, time_slot, latitude, longitude, booked_at
		FROM appointments
		WHERE identity = $1
		ORDER BY booked_at DESC
		LIMIT $2
	`
	rows, err := l.db.QueryContext(ctx, query, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("bookings: list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var (
			a        Appointment
			rawID    string
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&rawID, &a.Identity, &a.AccountID, &a.PatientName, &a.Department, &a.Hospital,
			&a.Doctor, &a.Date, &a.TimeSlot, &lat, &lng, &a.BookedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan appointment: %w", err)
		}
		if a.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("bookings: parse appointment id: %w", err)
		}
		if lat.Valid && lng.Valid {
			a.Latitude, a.Longitude = &lat.Float64, &lng.Float64
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate appointments: %w", err)
	}
	return out, nil
}

// isUniqueViolation recognizes the error from either lib/pq or the pgx stdlib driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
