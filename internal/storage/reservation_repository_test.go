package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-scheduler/backend/internal/booking"
)

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &DB{DB: db}, mock
}

func reservationRows(rs ...booking.Reservation) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "equipment_id", "user_email", "project", "start_time", "end_time",
		"created_at", "status", "external_calendar_id", "denied_reason", "requirement_values",
	})
	for _, r := range rs {
		rows.AddRow(r.ID, r.EquipmentID, r.User, r.Project, r.StartTime, r.EndTime,
			r.CreatedAt, string(r.Status), r.ExternalCalendarID, r.DeniedReason, nil)
	}
	return rows
}

func TestReservationRepositoryCreate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := &booking.Reservation{
		EquipmentID: "centrifuge",
		User:        "alice@lab.example",
		StartTime:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Status:      booking.StatusReserved,
	}

	require.NoError(t, repo.Create(context.Background(), r))
	assert.NotEmpty(t, r.ID, "create assigns an id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryGetNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM reservations WHERE id").
		WithArgs("missing").
		WillReturnRows(reservationRows())

	_, err := repo.Get(context.Background(), "missing")

	var nf *booking.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "reservation", nf.Kind)
}

func TestReservationRepositoryGet(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	want := booking.Reservation{
		ID:          "res-1",
		EquipmentID: "centrifuge",
		User:        "alice@lab.example",
		StartTime:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Status:      booking.StatusConfirmed,
	}

	mock.ExpectQuery("SELECT (.+) FROM reservations WHERE id").
		WithArgs("res-1").
		WillReturnRows(reservationRows(want))

	got, err := repo.Get(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestReservationRepositoryUpdateWritesProject(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	r := &booking.Reservation{
		ID:          "res-1",
		EquipmentID: "centrifuge",
		User:        "alice@lab.example",
		Project:     "protein-assay",
		StartTime:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		Status:      booking.StatusConfirmed,
	}

	mock.ExpectExec("UPDATE reservations\\s+SET project = \\?").
		WithArgs("protein-assay", r.StartTime, r.EndTime, "confirmed", "", "", nil, "res-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUpdateNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectExec("UPDATE reservations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &booking.Reservation{ID: "missing"})

	var nf *booking.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestReservationRepositoryEndingAfter(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	cutoff := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	r := booking.Reservation{
		ID: "res-1", EquipmentID: "centrifuge", User: "alice@lab.example",
		StartTime: cutoff, EndTime: cutoff.Add(2 * time.Hour),
		CreatedAt: cutoff.Add(-time.Hour), Status: booking.StatusReserved,
	}

	mock.ExpectQuery("SELECT (.+) FROM reservations\\s+WHERE equipment_id = \\? AND end_time > \\?").
		WithArgs("centrifuge", cutoff).
		WillReturnRows(reservationRows(r))

	got, err := repo.EndingAfter(context.Background(), "centrifuge", cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "res-1", got[0].ID)
}

func TestReservationRepositoryListFilters(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM reservations WHERE equipment_id = \\? AND user_email = \\? AND status = \\?").
		WithArgs("centrifuge", "alice@lab.example", "confirmed").
		WillReturnRows(reservationRows())

	_, err := repo.List(context.Background(), booking.ListFilter{
		EquipmentID: "centrifuge",
		User:        "alice@lab.example",
		Status:      booking.StatusConfirmed,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryListMissingCalendarID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM reservations WHERE status = \\? AND external_calendar_id = ''").
		WithArgs("confirmed").
		WillReturnRows(reservationRows())

	_, err := repo.List(context.Background(), booking.ListFilter{
		Status:            booking.StatusConfirmed,
		MissingCalendarID: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryDelete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectExec("DELETE FROM reservations WHERE id").
		WithArgs("res-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "res-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
