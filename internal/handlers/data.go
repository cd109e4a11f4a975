package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/emotion"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/gps"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/vlog"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/export"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/metrics"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/models"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/reconcile"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/tracing"
)

var validate = validator.New()

const (
	defaultPageSize = 10
	maxPageSize     = 500

	exportFilename = "emogo_export.csv"

	displayTimeLayout = "2006/01/02 15:04:05"
)

// DataHandler serves the public listing page and the consolidated CSV export.
// Every request reconciles the three record sources from scratch; there is no
// shared mutable state between requests.
type DataHandler struct {
	vlogs      vlog.VlogRepository
	emotions   emotion.EmotionRepository
	gps        gps.GPSRepository
	reconciler *reconcile.Reconciler
	encoder    *export.CSVEncoder
	logger     ectologger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(
	vlogs vlog.VlogRepository,
	emotions emotion.EmotionRepository,
	gpsRepo gps.GPSRepository,
	reconciler *reconcile.Reconciler,
	encoder *export.CSVEncoder,
	logger ectologger.Logger,
) *DataHandler {
	return &DataHandler{
		vlogs:      vlogs,
		emotions:   emotions,
		gps:        gpsRepo,
		reconciler: reconciler,
		encoder:    encoder,
		logger:     logger,
	}
}

// Register registers the public data routes
func (h *DataHandler) Register(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/data-download", h.DataDownload)
	e.GET("/download-csv", h.DownloadCSV)
}

// Root returns the service banner
func (h *DataHandler) Root(c echo.Context) error {
	return SuccessResponse(c, map[string]string{
		"message": "EmoGo Backend is running. Check /data-download for public data.",
	})
}

// listingParams are the pagination query parameters for the listing page
type listingParams struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=500"`
}

// DataDownload renders the paginated HTML listing over the same reconciled,
// ordered rows the CSV export produces: page N of the listing and row N of
// the CSV refer to the same logical row.
func (h *DataHandler) DataDownload(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DataHandler.DataDownload")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var params listingParams
	if err := c.Bind(&params); err != nil {
		return BadRequest("invalid pagination parameters")
	}
	if err := validate.Struct(params); err != nil {
		return BadRequest(fmt.Sprintf("invalid pagination parameters: page must be >= 1 and page_size in [1, %d]", maxPageSize))
	}
	if params.Page == 0 {
		params.Page = 1
	}
	if params.PageSize == 0 {
		params.PageSize = defaultPageSize
	}

	result, err := h.reconcileAll(ctx)
	if err != nil {
		metrics.ListingRequestsTotal.WithLabelValues("error").Inc()
		return h.listingFailure(c, err)
	}

	offset := (params.Page - 1) * params.PageSize
	end := offset + params.PageSize
	var pageRows []models.UnifiedRow
	if offset < len(result.Rows) {
		if end > len(result.Rows) {
			end = len(result.Rows)
		}
		pageRows = result.Rows[offset:end]
	}

	totalPages := (len(result.Rows) + params.PageSize - 1) / params.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	page := listingPage{
		Rows:       ectolinq.Map(pageRows, displayRow),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalRows:  len(result.Rows),
		TotalPages: totalPages,
		HasPrev:    params.Page > 1,
		HasNext:    end < len(result.Rows),
		PrevPage:   params.Page - 1,
		NextPage:   params.Page + 1,
		Year:       time.Now().Year(),
	}

	metrics.ListingRequestsTotal.WithLabelValues("success").Inc()
	return h.renderListing(c, http.StatusOK, page)
}

// DownloadCSV streams the full consolidated dataset as a CSV attachment. The
// body is produced incrementally; if anything fails after the first byte the
// connection is aborted so a truncated file is never mistaken for a complete
// one.
func (h *DataHandler) DownloadCSV(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DataHandler.DownloadCSV")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	start := time.Now()

	result, err := h.reconcileAll(ctx)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			metrics.ExportsTotal.WithLabelValues("cancelled").Inc()
			return err
		case reconcile.IsSourceUnavailable(err):
			metrics.ExportsTotal.WithLabelValues("source_unavailable").Inc()
			return ServiceUnavailable("record store unavailable, export aborted")
		case errors.Is(err, reconcile.ErrSchemaConflict):
			metrics.ExportsTotal.WithLabelValues("schema_conflict").Inc()
			return Internal("unified schema conflict")
		default:
			metrics.ExportsTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exportFilename))
	res.WriteHeader(http.StatusOK)

	if err := h.encoder.Encode(ctx, result.Schema, result.Rows, res); err != nil {
		// Headers are already out; terminate the stream instead of emitting a
		// body that looks complete.
		metrics.ExportsTotal.WithLabelValues("aborted").Inc()
		h.logger.WithContext(ctx).WithError(err).Error("csv export aborted mid-stream")
		return err
	}

	metrics.ExportsTotal.WithLabelValues("success").Inc()
	metrics.RowsExported.Add(float64(len(result.Rows)))
	metrics.ExportDuration.Observe(time.Since(start).Seconds())

	h.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"rows":       len(result.Rows),
		"collisions": result.Report.TotalCollisions(),
		"warnings":   len(result.Report.Warnings),
	}).Info("csv export completed")
	return nil
}

func (h *DataHandler) reconcileAll(ctx context.Context) (*reconcile.Result, error) {
	return h.reconciler.Reconcile(ctx,
		reconcile.VlogSource(h.vlogs.ForEach),
		reconcile.EmotionSource(h.emotions.ForEach),
		reconcile.GPSSource(h.gps.ForEach),
	)
}

// listingFailure renders the original portal's error panel instead of the
// JSON error body, keeping the public page human-readable.
func (h *DataHandler) listingFailure(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "Could not load data. Please try again later."
	if reconcile.IsSourceUnavailable(err) {
		status = http.StatusServiceUnavailable
		message = "The record store is currently unreachable. Please try again later."
	}

	h.logger.WithContext(c.Request().Context()).WithError(err).Error("listing page failed")
	return h.renderListing(c, status, listingPage{
		Error: message,
		Year:  time.Now().Year(),
	})
}

func (h *DataHandler) renderListing(c echo.Context, status int, page listingPage) error {
	var buf bytes.Buffer
	if err := listingTemplate.Execute(&buf, page); err != nil {
		return err
	}
	return c.HTML(status, buf.String())
}

// displayRow prepares one unified row for the listing template.
func displayRow(row models.UnifiedRow) listingRow {
	out := listingRow{
		UserDisplay: ectolinq.Ternary(row.UserID != "", row.UserID, "anonymous"),
		CapturedAt:  row.CapturedAt.UTC().Format(displayTimeLayout),
	}

	if row.HasEmotion() {
		out.HasEmotion = true
		label := ""
		if row.EmotionLabel != nil {
			label = *row.EmotionLabel
		}
		sentiment, ok := models.SentimentByLabel(label)
		if !ok {
			sentiment = models.UnknownSentiment
		}
		out.EmotionLabel = ectolinq.Ternary(label != "", label, sentiment.Label)
		out.EmotionColor = sentiment.ColorClass
		if row.EmotionScore != nil {
			out.EmotionScore = strconv.FormatFloat(*row.EmotionScore, 'f', 2, 64)
		} else {
			out.EmotionScore = "n/a"
		}
	}

	if row.HasGPS() && row.Latitude != nil && row.Longitude != nil {
		out.HasGPS = true
		out.Coordinates = fmt.Sprintf("Lat: %.6f, Lng: %.6f", *row.Latitude, *row.Longitude)
	}

	if row.HasVlog() {
		out.HasVideo = true
		out.VideoReference = *row.VideoReference
	}

	return out
}
