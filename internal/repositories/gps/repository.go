package gps

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/database"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/models"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/tracing"
)

const tableName = "gps_records"

// GPSRepository defines the read operations over the GPS record source
type GPSRepository interface {
	ForEach(ctx context.Context, yield func(models.GPSRecord) error) error
}

// Repository implements GPSRepository against PostgreSQL
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new GPS record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ForEach streams every GPS record in ingestion order, one row at a time.
func (r *Repository) ForEach(ctx context.Context, yield func(models.GPSRecord) error) error {
	ctx, span := tracing.StartSpan(ctx, "GPSRepository.ForEach")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "session_id", "user_id", "captured_at", "latitude", "longitude", "ingested_at").
		From(tableName).
		OrderBy("ingested_at", "id")

	query, args := sb.Build()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to query gps records")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.GPSRecord
		if err := rows.StructScan(&rec); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to scan gps record")
			return err
		}
		if err := yield(rec); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("gps record cursor failed mid-iteration")
		return err
	}
	return nil
}
