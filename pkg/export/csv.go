// Package export serializes reconciled unified rows into CSV. The encoder is
// a pure transformation: it performs no I/O of its own beyond the writer it
// is handed, and it never buffers more than a bounded number of rows.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/models"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/reconcile"
)

// flushEvery is how many rows are written between flushes so a slow consumer
// sees steady progress instead of one giant buffer.
const flushEvery = 100

// CSVEncoder encodes unified rows as CSV with stable decimal formatting.
// Precisions are configurable; byte output is reproducible for fixed inputs.
type CSVEncoder struct {
	coordinatePrecision int
	scorePrecision      int
}

func NewCSVEncoder(coordinatePrecision, scorePrecision int) *CSVEncoder {
	return &CSVEncoder{
		coordinatePrecision: coordinatePrecision,
		scorePrecision:      scorePrecision,
	}
}

// Header derives the CSV header row from the per-request schema.
func (e *CSVEncoder) Header(schema []reconcile.Column) []string {
	header := make([]string, len(schema))
	for i, col := range schema {
		header[i] = col.Name
	}
	return header
}

// Encode writes the header and the given rows in order. Rows are written one
// at a time with periodic flushes, so memory stays bounded regardless of the
// slice length the caller accumulated upstream.
func (e *CSVEncoder) Encode(ctx context.Context, schema []reconcile.Column, rows []models.UnifiedRow, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(e.Header(schema)); err != nil {
		return err
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := e.rowValues(schema, row)
		if err != nil {
			return err
		}
		if err := writer.Write(record); err != nil {
			return err
		}

		if (i+1)%flushEvery == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// EncodeStream consumes a lazy row sequence from a channel and writes CSV as
// rows arrive. It stops promptly when ctx is cancelled so an abandoned
// download does not keep iterating the store.
func (e *CSVEncoder) EncodeStream(ctx context.Context, schema []reconcile.Column, rows <-chan models.UnifiedRow, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(e.Header(schema)); err != nil {
		return err
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case row, ok := <-rows:
			if !ok {
				writer.Flush()
				return writer.Error()
			}

			record, err := e.rowValues(schema, row)
			if err != nil {
				return err
			}
			if err := writer.Write(record); err != nil {
				return err
			}

			count++
			if count%flushEvery == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return err
				}
			}
		}
	}
}

// rowValues maps one unified row onto the schema's column order. Absent field
// groups render as empty strings, never fabricated zeros.
func (e *CSVEncoder) rowValues(schema []reconcile.Column, row models.UnifiedRow) ([]string, error) {
	record := make([]string, len(schema))
	for i, col := range schema {
		switch col.Name {
		case "session_id":
			record[i] = row.SessionID
		case "user_id":
			record[i] = row.UserID
		case "captured_at":
			record[i] = row.CapturedAt.UTC().Format(time.RFC3339)
		case "video_reference":
			record[i] = stringValue(row.VideoReference)
		case "duration_seconds":
			record[i] = e.floatValue(row.DurationSeconds, e.scorePrecision)
		case "emotion_label":
			record[i] = stringValue(row.EmotionLabel)
		case "emotion_score":
			record[i] = e.floatValue(row.EmotionScore, e.scorePrecision)
		case "latitude":
			record[i] = e.floatValue(row.Latitude, e.coordinatePrecision)
		case "longitude":
			record[i] = e.floatValue(row.Longitude, e.coordinatePrecision)
		default:
			return nil, fmt.Errorf("column %q has no unified row field: %w", col.Name, reconcile.ErrSchemaConflict)
		}
	}
	return record, nil
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func (e *CSVEncoder) floatValue(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}
