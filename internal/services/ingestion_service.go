package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"practice-analytics/internal/columns"
	"practice-analytics/internal/ingest"
	"practice-analytics/internal/models"
	"practice-analytics/internal/normalize"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

// IngestionService turns uploaded files into canonical records
type IngestionService struct {
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// IngestionResult contains the canonical records of a batch plus ingestion statistics
type IngestionResult struct {
	Records      []models.CanonicalRecord
	Files        []string
	Skipped      []string
	TotalRows    int
	UnknownDates int
	Duration     time.Duration
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		logger:  logger.WithFields(logging.Fields{"component": "ingestion"}),
		metrics: metricsCollector,
	}
}

// Ingest reads, resolves and canonicalizes a batch of uploads. A file that
// cannot be read or lacks a required column fails the whole batch.
func (s *IngestionService) Ingest(ctx context.Context, uploads []ingest.Upload) (*IngestionResult, error) {
	timer := s.metrics.NewTimer(s.metrics.IngestionDuration)

	s.logger.Info(ctx, "[INGEST_START] Starting upload ingestion", logging.Fields{
		"file_count": len(uploads),
		"stage":      "INITIALIZATION",
	})

	if len(uploads) == 0 {
		return nil, &models.ValidationError{Field: "files", Message: "at least one file is required"}
	}

	read, err := ingest.Read(uploads)
	if err != nil {
		s.logger.Error(ctx, "[INGEST_READ_ERROR] Failed to read uploads", logging.Fields{
			"stage": "FILE_READ",
		}, err)
		s.metrics.RecordIngestionError("read_error")
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			s.metrics.RecordFile(formatLabel(ve.Value), "failed")
		}
		return nil, err
	}

	for _, name := range read.Skipped {
		s.logger.Warn(ctx, "[INGEST_DUPLICATE] Skipping duplicate file", logging.Fields{
			"file_name": name,
			"stage":     "FILE_READ",
		})
		s.metrics.RecordFile(formatLabel(name), "skipped")
	}

	tables := make([]columns.Table, len(read.Tables))
	for i, t := range read.Tables {
		tables[i] = columns.Resolve(t, columns.DefaultSchema)
	}

	raw, err := columns.Extract(tables)
	if err != nil {
		var se *models.SchemaError
		if errors.As(err, &se) {
			s.logger.Error(ctx, "[INGEST_SCHEMA_ERROR] Required columns missing", logging.Fields{
				"file_name": se.Source,
				"missing":   se.Missing,
				"stage":     "COLUMN_RESOLUTION",
			}, err)
			s.metrics.RecordIngestionError("schema_error")
			return nil, err
		}
		return nil, fmt.Errorf("failed to extract records: %w", err)
	}

	records := normalize.CanonicalizeAll(raw)

	result := &IngestionResult{
		Records:   records,
		Files:     read.Files,
		Skipped:   read.Skipped,
		TotalRows: read.Rows,
	}
	for _, rec := range records {
		if rec.DerivedDate == models.DateNotDetected {
			result.UnknownDates++
		}
	}

	for _, name := range read.Files {
		s.metrics.RecordFile(formatLabel(name), "ingested")
	}
	s.metrics.IngestionRowsTotal.Add(float64(len(records)))
	s.metrics.UnknownDatesTotal.Add(float64(result.UnknownDates))

	if result.UnknownDates > 0 {
		s.logger.Warn(ctx, "[INGEST_UNKNOWN_DATES] Records without a detectable date", logging.Fields{
			"record_count": result.UnknownDates,
			"bucket":       models.DateNotDetected,
		})
	}

	result.Duration = timer.ObserveDuration()

	s.logger.Info(ctx, "[INGEST_COMPLETE] Upload ingestion completed", logging.Fields{
		"files":            len(result.Files),
		"skipped":          len(result.Skipped),
		"total_rows":       result.TotalRows,
		"records":          len(result.Records),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func formatLabel(name string) string {
	if f := ingest.Format(name); f != "" {
		return f
	}
	return "unknown"
}
