package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

// AlertTableName is the relational table backing the alert store
const AlertTableName = "hospital_alerts"

// PostgresStore is the durable AlertStore over PostgreSQL. Optimistic
// concurrency is enforced with a version column checked on every update.
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements AlertStore
var _ AlertStore = (*PostgresStore)(nil)

// NewPostgresStore creates an alert store over an open database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens and pings a PostgreSQL connection
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the alert table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id                    TEXT PRIMARY KEY,
			type                  TEXT NOT NULL,
			urgency_level         INT NOT NULL,
			priority              DOUBLE PRECISION NOT NULL,
			room                  TEXT NOT NULL,
			department            TEXT,
			patient_id            TEXT,
			description           TEXT,
			status                TEXT NOT NULL,
			escalation_tier       INT NOT NULL DEFAULT 0,
			assigned_to           JSONB NOT NULL DEFAULT '[]',
			acknowledged_by       TEXT,
			created_at            TIMESTAMPTZ NOT NULL,
			last_tier_change      TIMESTAMPTZ NOT NULL,
			acknowledged_at       TIMESTAMPTZ,
			resolved_at           TIMESTAMPTZ,
			response_time_seconds DOUBLE PRECISION,
			handling_time_seconds DOUBLE PRECISION,
			escalation_history    JSONB NOT NULL DEFAULT '[]',
			timeline              JSONB NOT NULL DEFAULT '[]',
			resolution            JSONB,
			metadata              JSONB NOT NULL DEFAULT '{}',
			version               BIGINT NOT NULL
		)`, AlertTableName)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure alert table: %w", err)
	}
	logrus.Infof("Alert table '%s' ready", AlertTableName)
	return nil
}

const alertColumns = `id, type, urgency_level, priority, room, department, patient_id,
	description, status, escalation_tier, assigned_to, acknowledged_by,
	created_at, last_tier_change, acknowledged_at, resolved_at,
	response_time_seconds, handling_time_seconds,
	escalation_history, timeline, resolution, metadata, version`

// Save inserts a new alert (version 0) or updates an existing one, rejecting
// writes whose version no longer matches the stored row
func (s *PostgresStore) Save(ctx context.Context, alert *models.Alert) error {
	assignedTo, err := json.Marshal(alert.AssignedTo)
	if err != nil {
		return fmt.Errorf("failed to marshal assigned_to: %w", err)
	}
	history, err := json.Marshal(alert.EscalationHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation_history: %w", err)
	}
	timeline, err := json.Marshal(alert.Timeline)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}
	metadata, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var resolution interface{}
	if alert.Resolution != nil {
		raw, err := json.Marshal(alert.Resolution)
		if err != nil {
			return fmt.Errorf("failed to marshal resolution: %w", err)
		}
		resolution = raw
	}

	if alert.Version == 0 {
		query := fmt.Sprintf(`
			INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
			AlertTableName, alertColumns)

		_, err := s.db.ExecContext(ctx, query,
			alert.ID, string(alert.Type), alert.UrgencyLevel, alert.Priority,
			alert.Room, nullable(alert.Department), nullable(alert.PatientID),
			alert.Description, string(alert.Status), alert.EscalationTier,
			assignedTo, nullable(alert.AcknowledgedBy),
			alert.CreatedAt, alert.LastTierChange, alert.AcknowledgedAt, alert.ResolvedAt,
			alert.ResponseTimeSeconds, alert.HandlingTimeSeconds,
			history, timeline, resolution, metadata, alert.Version+1,
		)
		if err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
		}
		alert.Version++
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			status = $1, escalation_tier = $2, assigned_to = $3,
			acknowledged_by = $4, last_tier_change = $5,
			acknowledged_at = $6, resolved_at = $7,
			response_time_seconds = $8, handling_time_seconds = $9,
			escalation_history = $10, timeline = $11, resolution = $12,
			metadata = $13, version = version + 1
		WHERE id = $14 AND version = $15`, AlertTableName)

	result, err := s.db.ExecContext(ctx, query,
		string(alert.Status), alert.EscalationTier, assignedTo,
		nullable(alert.AcknowledgedBy), alert.LastTierChange,
		alert.AcknowledgedAt, alert.ResolvedAt,
		alert.ResponseTimeSeconds, alert.HandlingTimeSeconds,
		history, timeline, resolution, metadata,
		alert.ID, alert.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert %s: %w", alert.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row vanished or someone updated it first
		exists, err := s.exists(ctx, alert.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	alert.Version++
	return nil
}

func (s *PostgresStore) exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1", AlertTableName)
	var one int
	err := s.db.QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check alert existence: %w", err)
	}
	return true, nil
}

// FindByID returns the alert with the given id
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", alertColumns, AlertTableName)

	alert, err := scanAlert(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert %s: %w", id, err)
	}
	return alert, nil
}

// FindActiveByLocation returns all non-resolved alerts for a room
func (s *PostgresStore) FindActiveByLocation(ctx context.Context, room string) ([]*models.Alert, error) {
	return s.Query(ctx, Filter{Room: room, ActiveOnly: true})
}

// Query returns all alerts matching the filter, oldest first
func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]*models.Alert, error) {
	var conditions []string
	var args []interface{}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Room != "" {
		addArg("room = $%d", filter.Room)
	}
	if filter.Type != "" {
		addArg("type = $%d", string(filter.Type))
	}
	if filter.MinTier > 0 {
		addArg("escalation_tier >= $%d", filter.MinTier)
	}
	if filter.ActiveOnly {
		addArg("status != $%d", string(models.AlertStatusResolved))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", alertColumns, AlertTableName)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*models.Alert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		alert                                   models.Alert
		alertType, status                       string
		department, patientID, acknowledgedBy   sql.NullString
		acknowledgedAt, resolvedAt              sql.NullTime
		responseTime, handlingTime              sql.NullFloat64
		assignedTo, history, timeline, metadata []byte
		resolution                              []byte
	)

	err := row.Scan(
		&alert.ID, &alertType, &alert.UrgencyLevel, &alert.Priority,
		&alert.Room, &department, &patientID,
		&alert.Description, &status, &alert.EscalationTier,
		&assignedTo, &acknowledgedBy,
		&alert.CreatedAt, &alert.LastTierChange, &acknowledgedAt, &resolvedAt,
		&responseTime, &handlingTime,
		&history, &timeline, &resolution, &metadata, &alert.Version,
	)
	if err != nil {
		return nil, err
	}

	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		alert.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}

	alert.Type = models.AlertType(alertType)
	alert.Status = models.AlertStatus(status)
	alert.Department = department.String
	alert.PatientID = patientID.String
	alert.AcknowledgedBy = acknowledgedBy.String
	alert.ResponseTimeSeconds = responseTime.Float64
	alert.HandlingTimeSeconds = handlingTime.Float64

	if err := json.Unmarshal(assignedTo, &alert.AssignedTo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assigned_to: %w", err)
	}
	if err := json.Unmarshal(history, &alert.EscalationHistory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escalation_history: %w", err)
	}
	if err := json.Unmarshal(timeline, &alert.Timeline); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
	}
	if err := json.Unmarshal(metadata, &alert.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if len(resolution) > 0 {
		alert.Resolution = &models.Resolution{}
		if err := json.Unmarshal(resolution, alert.Resolution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resolution: %w", err)
		}
	}

	return &alert, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
