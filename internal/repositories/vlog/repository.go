package vlog

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/database"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/models"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/tracing"
)

const tableName = "vlog_records"

// VlogRepository defines the read operations over the vlog record source
type VlogRepository interface {
	ForEach(ctx context.Context, yield func(models.VlogRecord) error) error
}

// Repository implements VlogRepository against PostgreSQL
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new vlog record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ForEach streams every vlog record in ingestion order, one row at a time.
// The cursor stays open for the duration of the walk; any store error aborts
// the iteration and is returned to the caller.
func (r *Repository) ForEach(ctx context.Context, yield func(models.VlogRecord) error) error {
	ctx, span := tracing.StartSpan(ctx, "VlogRepository.ForEach")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "session_id", "user_id", "captured_at", "video_reference", "duration_seconds", "ingested_at").
		From(tableName).
		OrderBy("ingested_at", "id")

	query, args := sb.Build()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to query vlog records")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.VlogRecord
		if err := rows.StructScan(&rec); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to scan vlog record")
			return err
		}
		if err := yield(rec); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("vlog record cursor failed mid-iteration")
		return err
	}
	return nil
}
