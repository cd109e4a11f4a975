// Package reconcile merges the three mobile-telemetry record streams into one
// ordered sequence of sparse unified rows, keyed by (session_id, user_id,
// captured_at). The pass is pure and stateless between calls: concurrent
// requests reconcile independently.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/metrics"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/models"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/tracing"
)

// Source iteration callbacks. Each source yields its records one at a time so
// the repositories can stream rows without materializing the table; a yield
// error aborts iteration.
type (
	VlogSource    func(ctx context.Context, yield func(models.VlogRecord) error) error
	EmotionSource func(ctx context.Context, yield func(models.EmotionRecord) error) error
	GPSSource     func(ctx context.Context, yield func(models.GPSRecord) error) error
)

// Warning flags an out-of-range numeric value that was retained in the output.
// Warnings are a side channel, never an error: the export delivers raw data.
type Warning struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	CapturedAt time.Time `json:"captured_at"`
	Field      string    `json:"field"`
	Value      float64   `json:"value"`
	Reason     string    `json:"reason"`
}

// Report is the side-channel outcome of one reconciliation pass.
type Report struct {
	VlogCollisions    int       `json:"vlog_collisions"`
	EmotionCollisions int       `json:"emotion_collisions"`
	GPSCollisions     int       `json:"gps_collisions"`
	Warnings          []Warning `json:"warnings,omitempty"`
}

// TotalCollisions returns the number of same-source key collisions across all sources.
func (r Report) TotalCollisions() int {
	return r.VlogCollisions + r.EmotionCollisions + r.GPSCollisions
}

// Result carries the ordered unified rows, the per-request schema they conform
// to, and the validation report.
type Result struct {
	Schema []Column
	Rows   []models.UnifiedRow
	Report Report
}

// Reconciler merges the three record sources. It holds no per-request state.
type Reconciler struct {
	logger ectologger.Logger
}

func New(logger ectologger.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile streams all three sources into a single keyed accumulation pass
// and returns the merged rows sorted ascending by (captured_at, session_id,
// user_id). The ordering is total and stable so repeated calls against
// unchanged data produce byte-identical exports. Same-source collisions on a
// session key resolve last-write-wins in ingestion order and are counted, not
// dropped. Any source read failure aborts the whole pass.
func (r *Reconciler) Reconcile(ctx context.Context, vlogs VlogSource, emotions EmotionSource, gps GPSSource) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Reconciler.Reconcile")
	defer span.End()

	schema, err := BuildSchema()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("unified schema is inconsistent")
		return nil, err
	}

	acc := newAccumulator()

	if err := vlogs(ctx, acc.addVlog); err != nil {
		return nil, r.sourceFailure(ctx, "vlogs", err)
	}
	if err := emotions(ctx, acc.addEmotion); err != nil {
		return nil, r.sourceFailure(ctx, "emotions", err)
	}
	if err := gps(ctx, acc.addGPS); err != nil {
		return nil, r.sourceFailure(ctx, "gps", err)
	}

	result := &Result{
		Schema: schema,
		Rows:   acc.sortedRows(),
		Report: acc.report,
	}

	r.observe(ctx, result.Report)
	return result, nil
}

func (r *Reconciler) sourceFailure(ctx context.Context, source string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Consumer went away; not a store failure.
		return err
	}
	r.logger.WithContext(ctx).WithError(err).WithField("source", source).Error("record source read failed, aborting reconciliation")
	return &SourceError{Source: source, Err: err}
}

func (r *Reconciler) observe(ctx context.Context, report Report) {
	metrics.KeyCollisions.WithLabelValues("vlogs").Add(float64(report.VlogCollisions))
	metrics.KeyCollisions.WithLabelValues("emotions").Add(float64(report.EmotionCollisions))
	metrics.KeyCollisions.WithLabelValues("gps").Add(float64(report.GPSCollisions))
	for _, w := range report.Warnings {
		metrics.ValidationWarnings.WithLabelValues(w.Field).Inc()
	}

	if report.TotalCollisions() > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"vlog_collisions":    report.VlogCollisions,
			"emotion_collisions": report.EmotionCollisions,
			"gps_collisions":     report.GPSCollisions,
		}).Warnf("same-source session key collisions resolved last-write-wins")
	}
}

// accumulator is the single-pass keyed merge state for one reconciliation.
type accumulator struct {
	rows   map[models.SessionKey]*models.UnifiedRow
	seen   map[models.SessionKey]uint8
	report Report
}

// bit flags in accumulator.seen
const (
	seenVlog uint8 = 1 << iota
	seenEmotion
	seenGPS
)

func newAccumulator() *accumulator {
	return &accumulator{
		rows: make(map[models.SessionKey]*models.UnifiedRow),
		seen: make(map[models.SessionKey]uint8),
	}
}

func (a *accumulator) row(key models.SessionKey, sessionID, userID string, capturedAt time.Time) *models.UnifiedRow {
	if row, ok := a.rows[key]; ok {
		return row
	}
	row := &models.UnifiedRow{
		SessionID:  sessionID,
		UserID:     userID,
		CapturedAt: capturedAt.UTC(),
	}
	a.rows[key] = row
	return row
}

func (a *accumulator) addVlog(rec models.VlogRecord) error {
	key := rec.Key()
	if a.seen[key]&seenVlog != 0 {
		a.report.VlogCollisions++
	}
	a.seen[key] |= seenVlog

	row := a.row(key, rec.SessionID, rec.UserID, rec.CapturedAt)
	ref := rec.VideoReference
	row.VideoReference = &ref
	row.DurationSeconds = cloneFloat(rec.DurationSeconds)
	return nil
}

func (a *accumulator) addEmotion(rec models.EmotionRecord) error {
	key := rec.Key()
	if a.seen[key]&seenEmotion != 0 {
		a.report.EmotionCollisions++
	}
	a.seen[key] |= seenEmotion

	row := a.row(key, rec.SessionID, rec.UserID, rec.CapturedAt)
	label := rec.EmotionLabel
	score := rec.EmotionScore
	row.EmotionLabel = &label
	row.EmotionScore = &score

	if score < models.EmotionScoreMin || score > models.EmotionScoreMax {
		a.warn(rec.SessionID, rec.UserID, rec.CapturedAt, "emotion_score", score, "score outside [0, 1]")
	}
	return nil
}

func (a *accumulator) addGPS(rec models.GPSRecord) error {
	key := rec.Key()
	if a.seen[key]&seenGPS != 0 {
		a.report.GPSCollisions++
	}
	a.seen[key] |= seenGPS

	row := a.row(key, rec.SessionID, rec.UserID, rec.CapturedAt)
	lat := rec.Latitude
	lng := rec.Longitude
	row.Latitude = &lat
	row.Longitude = &lng

	if lat < -90 || lat > 90 {
		a.warn(rec.SessionID, rec.UserID, rec.CapturedAt, "latitude", lat, "latitude outside [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		a.warn(rec.SessionID, rec.UserID, rec.CapturedAt, "longitude", lng, "longitude outside [-180, 180]")
	}
	return nil
}

func (a *accumulator) warn(sessionID, userID string, capturedAt time.Time, field string, value float64, reason string) {
	a.report.Warnings = append(a.report.Warnings, Warning{
		SessionID:  sessionID,
		UserID:     userID,
		CapturedAt: capturedAt.UTC(),
		Field:      field,
		Value:      value,
		Reason:     reason,
	})
}

// sortedRows flattens the accumulation map into the total output order:
// ascending captured_at, then session_id, then user_id.
func (a *accumulator) sortedRows() []models.UnifiedRow {
	rows := make([]models.UnifiedRow, 0, len(a.rows))
	for _, row := range a.rows {
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CapturedAt.Equal(rows[j].CapturedAt) {
			return rows[i].CapturedAt.Before(rows[j].CapturedAt)
		}
		if rows[i].SessionID != rows[j].SessionID {
			return strings.Compare(rows[i].SessionID, rows[j].SessionID) < 0
		}
		return strings.Compare(rows[i].UserID, rows[j].UserID) < 0
	})

	return rows
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
