package integration

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/handlers"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/emotion"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/gps"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/vlog"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/database"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/export"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/middleware"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/reconcile"
)

// startPostgres spins up a disposable PostgreSQL container, connects, and runs
// the migrations from db/pg against it.
func startPostgres(t *testing.T, ctx context.Context, logger ectologger.Logger) database.DB {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "emogo",
			"POSTGRES_PASSWORD": "emogo",
			"POSTGRES_DB":       "emogo",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=emogo password=emogo dbname=emogo sslmode=disable", host, port.Port())
	sqlxDB, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlxDB.Close()
	})

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	require.NoError(t, err)

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
	})
	require.NoError(t, ms.Migrate("emogo", driver))

	return database.NewDatabaseInstance(sqlxDB, logger)
}

func seed(t *testing.T, ctx context.Context, db database.DB) {
	t.Helper()

	capturedAt := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	_, err := db.ExecContext(ctx,
		`INSERT INTO vlog_records (session_id, user_id, captured_at, video_reference, duration_seconds)
		 VALUES ($1, $2, $3, $4, $5)`,
		"s1", "u1", capturedAt, "videos/v1.mp4", 12.5)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO emotion_records (session_id, user_id, captured_at, emotion_label, emotion_score)
		 VALUES ($1, $2, $3, $4, $5)`,
		"s1", "u1", capturedAt, "joy", 0.8)
	require.NoError(t, err)

	// GPS-only key one second later.
	_, err = db.ExecContext(ctx,
		`INSERT INTO gps_records (session_id, user_id, captured_at, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5)`,
		"s2", "u1", capturedAt.Add(time.Second), 25.017, 121.54)
	require.NoError(t, err)
}

func TestExportEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	db := startPostgres(t, ctx, logger)
	seed(t, ctx, db)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)

	handler := handlers.NewDataHandler(
		vlog.NewRepository(db, logger),
		emotion.NewRepository(db, logger),
		gps.NewRepository(db, logger),
		reconcile.New(logger),
		export.NewCSVEncoder(6, 2),
		logger,
	)
	handler.Register(e)

	t.Run("csv export merges and orders rows", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/download-csv", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))

		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)

		merged := records[1]
		assert.Equal(t, "s1", merged[0])
		assert.Equal(t, "u1", merged[1])
		assert.Equal(t, "2025-03-14T09:00:00Z", merged[2])
		assert.Equal(t, "videos/v1.mp4", merged[3])
		assert.Equal(t, "12.50", merged[4])
		assert.Equal(t, "joy", merged[5])
		assert.Equal(t, "0.80", merged[6])
		assert.Equal(t, "", merged[7])
		assert.Equal(t, "", merged[8])

		gpsOnly := records[2]
		assert.Equal(t, "s2", gpsOnly[0])
		assert.Equal(t, "", gpsOnly[3])
		assert.Equal(t, "25.017000", gpsOnly[7])
		assert.Equal(t, "121.540000", gpsOnly[8])
	})

	t.Run("listing page renders the same rows", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data-download", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "joy")
		assert.Contains(t, body, "videos/v1.mp4")
		assert.Contains(t, body, "Lat: 25.017000, Lng: 121.540000")
	})
}
