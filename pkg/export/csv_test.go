package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/models"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/reconcile"
)

func testSchema(t *testing.T) []reconcile.Column {
	t.Helper()
	schema, err := reconcile.BuildSchema()
	require.NoError(t, err)
	return schema
}

func strPtr(v string) *string {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestEncodeHeaderAndFullRow(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)
	capturedAt := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	rows := []models.UnifiedRow{
		{
			SessionID:      "A",
			UserID:         "1",
			CapturedAt:     capturedAt,
			VideoReference: strPtr("v1"),
			EmotionLabel:   strPtr("happy"),
			EmotionScore:   floatPtr(0.8),
		},
	}

	var buf bytes.Buffer
	err := encoder.Encode(context.Background(), testSchema(t), rows, &buf)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"session_id", "user_id", "captured_at",
		"video_reference", "duration_seconds",
		"emotion_label", "emotion_score",
		"latitude", "longitude",
	}, records[0])

	assert.Equal(t, []string{
		"A", "1", "2025-03-14T09:00:00Z",
		"v1", "",
		"happy", "0.80",
		"", "",
	}, records[1])
}

func TestEncodeAbsentGroupsAreEmptyNotZero(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)

	rows := []models.UnifiedRow{
		{
			SessionID:  "s1",
			UserID:     "u1",
			CapturedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			Latitude:   floatPtr(25.017),
			Longitude:  floatPtr(121.54),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, encoder.Encode(context.Background(), testSchema(t), rows, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	record := records[1]
	assert.Equal(t, "", record[3]) // video_reference
	assert.Equal(t, "", record[4]) // duration_seconds
	assert.Equal(t, "", record[5]) // emotion_label
	assert.Equal(t, "", record[6]) // emotion_score
	assert.Equal(t, "25.017000", record[7])
	assert.Equal(t, "121.540000", record[8])
}

func TestEncodeQuotesEmbeddedDelimiters(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)

	rows := []models.UnifiedRow{
		{
			SessionID:      `sess,with"quote`,
			UserID:         "line\nbreak",
			CapturedAt:     time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			VideoReference: strPtr("videos/a,b.mp4"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, encoder.Encode(context.Background(), testSchema(t), rows, &buf))

	// The output must round-trip through a conforming CSV reader.
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `sess,with"quote`, records[1][0])
	assert.Equal(t, "line\nbreak", records[1][1])
	assert.Equal(t, "videos/a,b.mp4", records[1][3])
}

func TestEncodeTimestampsAreUTC(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)
	taipei := time.FixedZone("CST", 8*60*60)

	rows := []models.UnifiedRow{
		{
			SessionID:  "s1",
			UserID:     "u1",
			CapturedAt: time.Date(2025, 3, 14, 17, 0, 0, 0, taipei),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, encoder.Encode(context.Background(), testSchema(t), rows, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14T09:00:00Z", records[1][2])
}

func TestEncodePrecisionIsConfigurable(t *testing.T) {
	encoder := NewCSVEncoder(3, 1)

	rows := []models.UnifiedRow{
		{
			SessionID:    "s1",
			UserID:       "u1",
			CapturedAt:   time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			EmotionLabel: strPtr("joy"),
			EmotionScore: floatPtr(0.86),
			Latitude:     floatPtr(25.01742),
			Longitude:    floatPtr(121.53987),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, encoder.Encode(context.Background(), testSchema(t), rows, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "0.9", records[1][6])
	assert.Equal(t, "25.017", records[1][7])
	assert.Equal(t, "121.540", records[1][8])
}

func TestEncodeOutputIsReproducible(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)

	rows := []models.UnifiedRow{
		{SessionID: "s1", UserID: "u1", CapturedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), EmotionLabel: strPtr("joy"), EmotionScore: floatPtr(0.8)},
		{SessionID: "s2", UserID: "u2", CapturedAt: time.Date(2025, 3, 14, 9, 0, 1, 0, time.UTC), Latitude: floatPtr(25.0), Longitude: floatPtr(121.5)},
	}

	var first, second bytes.Buffer
	require.NoError(t, encoder.Encode(context.Background(), testSchema(t), rows, &first))
	require.NoError(t, encoder.Encode(context.Background(), testSchema(t), rows, &second))

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestEncodeStopsOnCancelledContext(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []models.UnifiedRow{
		{SessionID: "s1", UserID: "u1", CapturedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	err := encoder.Encode(ctx, testSchema(t), rows, &buf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeStreamDrainsChannel(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)

	rows := make(chan models.UnifiedRow)
	go func() {
		defer close(rows)
		for i := 0; i < 250; i++ {
			rows <- models.UnifiedRow{
				SessionID:  "s1",
				UserID:     "u1",
				CapturedAt: time.Date(2025, 3, 14, 9, 0, i, 0, time.UTC),
			}
		}
	}()

	var buf bytes.Buffer
	require.NoError(t, encoder.EncodeStream(context.Background(), testSchema(t), rows, &buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 251) // header + 250 rows
}

func TestEncodeStreamStopsOnCancel(t *testing.T) {
	encoder := NewCSVEncoder(6, 2)

	ctx, cancel := context.WithCancel(context.Background())
	schema := testSchema(t)

	rows := make(chan models.UnifiedRow)
	done := make(chan error, 1)

	var buf bytes.Buffer
	go func() {
		done <- encoder.EncodeStream(ctx, schema, rows, &buf)
	}()

	rows <- models.UnifiedRow{SessionID: "s1", UserID: "u1", CapturedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("EncodeStream did not stop after cancellation")
	}
}
