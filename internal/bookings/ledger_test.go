package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/wolfman30/botpe-relay/internal/booking"
	"github.com/wolfman30/botpe-relay/internal/events"
)

func sampleBooking() booking.Booking {
	return booking.Booking{
		Identity:    "919876543210",
		AccountID:   "secondary",
		PatientName: "Asha Kumar",
		Department:  "Cardiology",
		Hospital:    "CarePoint Indiranagar",
		Doctor:      "Dr. Ananya Rao",
		Date:        "Monday, 10 Nov",
		TimeSlot:    "09:00 AM",
		Location:    &events.Coordinates{Latitude: 12.97, Longitude: 77.64},
		BookedAt:    time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestLedgerRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	b := sampleBooking()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(sqlmock.AnyArg(), b.Identity, b.AccountID, b.PatientName, b.Department, b.Hospital,
			b.Doctor, b.Date, b.TimeSlot, sqlmock.AnyArg(), sqlmock.AnyArg(), b.BookedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := NewLedger(db).Record(context.Background(), b)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLedgerRecordDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	err = NewLedger(db).RecordAppointment(context.Background(), sampleBooking())
	if !errors.Is(err, ErrDuplicateAppointment) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestLedgerRecordOtherError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO appointments").WillReturnError(errors.New("conn refused"))
	_, err = NewLedger(db).Record(context.Background(), sampleBooking())
	if err == nil || errors.Is(err, ErrDuplicateAppointment) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
}

func TestLedgerRecordRequiresIdentity(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	if _, err := NewLedger(db).Record(context.Background(), booking.Booking{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLedgerListForPatient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	bookedAt := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "identity", "account_id", "patient_name", "department", "hospital",
		"doctor", "appointment_date", "time_slot", "latitude", "longitude", "booked_at"}).
		AddRow(id.String(), "919876543210", "secondary", "Asha Kumar", "Cardiology", "CarePoint Indiranagar",
			"Dr. Ananya Rao", "Monday, 10 Nov", "09:00 AM", 12.97, 77.64, bookedAt).
		AddRow(uuid.NewString(), "919876543210", "secondary", "Asha Kumar", "ENT", "CarePoint Whitefield",
			"Dr. Priya Nair", "Tuesday, 11 Nov", "10:30 AM", nil, nil, bookedAt.Add(-time.Hour))
	mock.ExpectQuery("FROM appointments").
		WithArgs("919876543210", 20).
		WillReturnRows(rows)

	got, err := NewLedger(db).ListForPatient(context.Background(), "919876543210", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(got))
	}
	if got[0].ID != id || got[0].Latitude == nil || *got[0].Latitude != 12.97 {
		t.Fatalf("unexpected first appointment: %#v", got[0])
	}
	if got[1].Latitude != nil {
		t.Fatalf("expected no coordinates on second appointment")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected pgconn unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Fatal("foreign key violation is not a duplicate")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Fatal("plain error is not a duplicate")
	}
}
