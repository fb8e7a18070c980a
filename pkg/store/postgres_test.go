package store

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresStore(db), mock, func() { db.Close() }
}

func alertRowColumns() []string {
	return []string{
		"id", "type", "urgency_level", "priority", "room", "department", "patient_id",
		"description", "status", "escalation_tier", "assigned_to", "acknowledged_by",
		"created_at", "last_tier_change", "acknowledged_at", "resolved_at",
		"response_time_seconds", "handling_time_seconds",
		"escalation_history", "timeline", "resolution", "metadata", "version",
	}
}

func alertRowValues(id, room string, createdAt time.Time) []driver.Value {
	return []driver.Value{
		id, "medical_emergency", 2, 5.6, room, nil, nil,
		"patient reporting severe chest pain", "pending", 0,
		[]byte(`["nurse-1"]`), nil,
		createdAt, createdAt, nil, nil,
		nil, nil,
		[]byte(`[]`), []byte(`[{"event":"created","timestamp":"2024-06-01T08:00:00Z"}]`), nil, []byte(`{}`),
		1,
	}
}

func TestPostgresSaveInsert(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(`INSERT INTO hospital_alerts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	alert := sampleAlert("a1", "E101", time.Now())
	require.NoError(t, s.Save(context.Background(), alert))
	assert.Equal(t, int64(1), alert.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveUpdate(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(`UPDATE hospital_alerts SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	alert := sampleAlert("a1", "E101", time.Now())
	alert.Version = 1
	alert.Status = models.AlertStatusAssigned
	require.NoError(t, s.Save(context.Background(), alert))
	assert.Equal(t, int64(2), alert.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveVersionConflict(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	// No row matched (id, version): the row still exists, so a concurrent
	// writer bumped the version first
	mock.ExpectExec(`UPDATE hospital_alerts SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM hospital_alerts WHERE id`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	alert := sampleAlert("a1", "E101", time.Now())
	alert.Version = 1
	err := s.Save(context.Background(), alert)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(1), alert.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveUpdateMissingRow(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(`UPDATE hospital_alerts SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM hospital_alerts WHERE id`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	alert := sampleAlert("a1", "E101", time.Now())
	alert.Version = 1
	err := s.Save(context.Background(), alert)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByID(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	createdAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM hospital_alerts WHERE id`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(alertRowColumns()).
			AddRow(alertRowValues("a1", "E101", createdAt)...))

	alert, err := s.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", alert.ID)
	assert.Equal(t, models.AlertTypeMedicalEmergency, alert.Type)
	assert.Equal(t, models.AlertStatusPending, alert.Status)
	assert.Equal(t, []string{"nurse-1"}, alert.AssignedTo)
	require.Len(t, alert.Timeline, 1)
	assert.Equal(t, "created", alert.Timeline[0].Event)
	assert.Nil(t, alert.AcknowledgedAt)
	assert.Equal(t, int64(1), alert.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByIDNotFound(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM hospital_alerts WHERE id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(alertRowColumns()))

	_, err := s.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryBuildsFilter(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	createdAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM hospital_alerts WHERE room = \$1 AND status != \$2 AND status IN \(\$3, \$4\) ORDER BY created_at ASC`).
		WithArgs("E101", "resolved", "pending", "assigned").
		WillReturnRows(sqlmock.NewRows(alertRowColumns()).
			AddRow(alertRowValues("a1", "E101", createdAt)...).
			AddRow(alertRowValues("a2", "E101", createdAt.Add(time.Minute))...))

	alerts, err := s.Query(context.Background(), Filter{
		Room:       "E101",
		ActiveOnly: true,
		Statuses:   []models.AlertStatus{models.AlertStatusPending, models.AlertStatusAssigned},
	})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "a1", alerts[0].ID)
	assert.Equal(t, "a2", alerts[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindActiveByLocation(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM hospital_alerts WHERE room = \$1 AND status != \$2`).
		WithArgs("E101", "resolved").
		WillReturnRows(sqlmock.NewRows(alertRowColumns()))

	alerts, err := s.FindActiveByLocation(context.Background(), "E101")
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
