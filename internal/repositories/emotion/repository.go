package emotion

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/database"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/models"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/tracing"
)

const tableName = "emotion_records"

// EmotionRepository defines the read operations over the emotion record source
type EmotionRepository interface {
	ForEach(ctx context.Context, yield func(models.EmotionRecord) error) error
}

// Repository implements EmotionRepository against PostgreSQL
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new emotion record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ForEach streams every emotion record in ingestion order, one row at a time.
func (r *Repository) ForEach(ctx context.Context, yield func(models.EmotionRecord) error) error {
	ctx, span := tracing.StartSpan(ctx, "EmotionRepository.ForEach")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "session_id", "user_id", "captured_at", "emotion_label", "emotion_score", "ingested_at").
		From(tableName).
		OrderBy("ingested_at", "id")

	query, args := sb.Build()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to query emotion records")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.EmotionRecord
		if err := rows.StructScan(&rec); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to scan emotion record")
			return err
		}
		if err := yield(rec); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("emotion record cursor failed mid-iteration")
		return err
	}
	return nil
}
