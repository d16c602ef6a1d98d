package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"

	"practice-analytics/internal/export"
	"practice-analytics/internal/ingest"
	"practice-analytics/internal/models"
	"practice-analytics/internal/repository"
	"practice-analytics/internal/services"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

// ReportHandler handles report API endpoints
type ReportHandler struct {
	analysis  *services.AnalysisService
	history   *services.HistoryService
	sessions  *services.SessionStore
	maxUpload int64
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	validate  *validator.Validate
}

// NewReportHandler creates a new report handler
func NewReportHandler(
	analysis *services.AnalysisService,
	history *services.HistoryService,
	sessions *services.SessionStore,
	maxUpload int64,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ReportHandler {
	return &ReportHandler{
		analysis:  analysis,
		history:   history,
		sessions:  sessions,
		maxUpload: maxUpload,
		logger:    logger,
		metrics:   metricsCollector,
		validate:  validator.New(),
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
	Missing []string `json:"missing_columns,omitempty"`
}

// performanceForm holds the leaderboard form fields
type performanceForm struct {
	TopN   int    `validate:"gte=0"`
	Branch string `validate:"omitempty,max=64"`
}

var errUploadTooLarge = errors.New("upload exceeds the size limit")

// GenerateDaily handles POST /api/reports/daily
func (h *ReportHandler) GenerateDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uploads, err := h.readUploads(w, r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	sessionID, tracker := h.sessions.Tracker(r.Header.Get(SessionIDHeader))
	w.Header().Set(SessionIDHeader, sessionID)
	ctx = logging.WithSessionID(ctx, sessionID)

	result, err := h.analysis.GenerateDaily(ctx, uploads, tracker)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if wantsXLSX(r) {
		f, err := export.DailyWorkbook(result.Reports)
		if err != nil {
			h.sendError(w, r, err)
			return
		}
		h.sendWorkbook(w, r, f, export.DailyFileName(result.Reports))
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// GenerateCumulative handles POST /api/reports/cumulative
func (h *ReportHandler) GenerateCumulative(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.readUploads(w, r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	result, err := h.analysis.GenerateCumulative(r.Context(), uploads)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if wantsXLSX(r) {
		f, err := export.CumulativeWorkbook(result.Totals)
		if err != nil {
			h.sendError(w, r, err)
			return
		}
		h.sendWorkbook(w, r, f, "Skill_Rack_Cumulative_Leaderboard.xlsx")
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// TopPerformers handles POST /api/performance
func (h *ReportHandler) TopPerformers(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.readUploads(w, r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	form, err := h.parsePerformanceForm(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	result, err := h.analysis.TopPerformers(r.Context(), uploads, form.Branch, form.TopN)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if wantsXLSX(r) {
		f, err := export.PerformanceWorkbook(result.Entries, result.Branch, result.TopN)
		if err != nil {
			h.sendError(w, r, err)
			return
		}
		h.sendWorkbook(w, r, f, fmt.Sprintf("Skill_Rack_Top_Performers_%s.xlsx", strings.ReplaceAll(result.Branch, " ", "_")))
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// ListHistory handles GET /api/history
func (h *ReportHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	reports, err := h.history.List(r.Context())
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.sendJSON(w, map[string]interface{}{
		"data":  reports,
		"total": len(reports),
	}, http.StatusOK)
}

// GetHistory handles GET /api/history/{id}
func (h *ReportHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, r, &models.ValidationError{Field: "id", Value: mux.Vars(r)["id"], Message: "invalid report id"})
		return
	}

	detail, err := h.history.Get(r.Context(), id)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if wantsXLSX(r) {
		var f *excelize.File
		if detail.Report != nil {
			f, err = export.DailyWorkbook([]models.DailyReport{*detail.Report})
		} else {
			f, err = export.HistoryWorkbook(detail.Stored)
		}
		if err != nil {
			h.sendError(w, r, err)
			return
		}
		h.sendWorkbook(w, r, f, fmt.Sprintf("Skill_Rack_Report_%d.xlsx", id))
		return
	}

	h.sendJSON(w, detail, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ReportHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  "ok",
	}
	code := http.StatusOK

	if err := h.history.Ping(ctx); err != nil {
		if errors.Is(err, services.ErrHistoryDisabled) {
			status["database"] = "disabled"
		} else {
			h.logger.Warn(ctx, "[HEALTH_CHECK_DB] History store unreachable", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "degraded"
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// readUploads collects the "files" parts of a multipart request
func (h *ReportHandler) readUploads(w http.ResponseWriter, r *http.Request) ([]ingest.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge
		}
		return nil, &models.ValidationError{Field: "files", Message: "expected a multipart form with files"}
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, &models.ValidationError{Field: "files", Message: "at least one file is required"}
	}

	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, ingest.Upload{Name: fh.Filename, Data: data})
	}

	return uploads, nil
}

func (h *ReportHandler) parsePerformanceForm(r *http.Request) (performanceForm, error) {
	form := performanceForm{Branch: strings.TrimSpace(r.FormValue("branch"))}

	if raw := strings.TrimSpace(r.FormValue("top_n")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return form, &models.ValidationError{Field: "top_n", Value: raw, Message: "top_n must be an integer"}
		}
		form.TopN = n
	}

	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return form, &models.ValidationError{
				Field:   strings.ToLower(fe.Field()),
				Value:   fmt.Sprint(fe.Value()),
				Message: fmt.Sprintf("%s failed %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()),
			}
		}
		return form, err
	}

	return form, nil
}

func wantsXLSX(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), ingest.FormatXLSX)
}

// sendJSON sends a JSON response
func (h *ReportHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendWorkbook streams an XLSX attachment
func (h *ReportHandler) sendWorkbook(w http.ResponseWriter, r *http.Request, f *excelize.File, filename string) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Write(w, f); err != nil {
		h.logger.Error(r.Context(), "[API_EXPORT_ERROR] Failed to stream workbook", logging.Fields{
			"file_name": filename,
		}, err)
		h.metrics.RecordAPIError("export_error", routeLabel(r))
	}
}

// sendError maps an error onto a status code and sends an error response
func (h *ReportHandler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		schemaErr   *models.SchemaError
		validErr    *models.ValidationError
		notFoundErr *repository.NotFoundError
	)

	response := ErrorResponse{Message: err.Error()}
	errorType := "internal_error"

	switch {
	case errors.As(err, &schemaErr):
		response.Code = http.StatusUnprocessableEntity
		response.Missing = schemaErr.Missing
		errorType = "schema_error"
	case errors.As(err, &validErr):
		response.Code = http.StatusBadRequest
		errorType = "validation_error"
	case errors.As(err, &notFoundErr):
		response.Code = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, errUploadTooLarge):
		response.Code = http.StatusRequestEntityTooLarge
		errorType = "upload_too_large"
	case errors.Is(err, services.ErrHistoryDisabled):
		response.Code = http.StatusServiceUnavailable
		errorType = "history_disabled"
	default:
		response.Code = http.StatusInternalServerError
		response.Message = "failed to process request"
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}, err)
	}

	h.metrics.RecordAPIError(errorType, routeLabel(r))
	response.Error = http.StatusText(response.Code)
	h.sendJSON(w, response, response.Code)
}

// RegisterRoutes registers all report API routes
func (h *ReportHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/reports/daily", h.GenerateDaily).Methods("POST")
	router.HandleFunc("/api/reports/cumulative", h.GenerateCumulative).Methods("POST")
	router.HandleFunc("/api/performance", h.TopPerformers).Methods("POST")
	router.HandleFunc("/api/history", h.ListHistory).Methods("GET")
	router.HandleFunc("/api/history/{id:[0-9]+}", h.GetHistory).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
