package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecrwatch/internal/constants"
	"ecrwatch/pkg/metrics"
)

type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

type Repository interface {
	Recorder
	List(ctx context.Context, filter Filter) ([]Record, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO action_records (id, event_id, repository, image_tag, service_arn, state, action, image, operation_id, retry_count, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.EventID, rec.Repository, rec.ImageTag, rec.ServiceARN,
		rec.State, rec.Action, rec.Image, rec.OperationID, rec.RetryCount,
		rec.Error, rec.CreatedAt,
	)
	observe("insert", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert action record: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}

	query := `
		SELECT id, event_id, repository, image_tag, service_arn, state, action, image, operation_id, retry_count, error, created_at
		FROM action_records
		WHERE ($1 = '' OR service_arn = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, filter.ServiceARN, limit)
	if err != nil {
		observe("select", start, err)
		return nil, fmt.Errorf("failed to query action records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.Repository, &rec.ImageTag, &rec.ServiceARN,
			&rec.State, &rec.Action, &rec.Image, &rec.OperationID, &rec.RetryCount,
			&rec.Error, &rec.CreatedAt,
		); err != nil {
			observe("select", start, err)
			return nil, fmt.Errorf("failed to scan action record: %w", err)
		}
		records = append(records, rec)
	}
	err = rows.Err()
	observe("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate action records: %w", err)
	}

	return records, nil
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("audit", "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration("audit", "postgres", operation, time.Since(start))
}
