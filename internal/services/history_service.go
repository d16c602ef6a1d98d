package services

import (
	"context"
	"errors"
	"fmt"

	"practice-analytics/internal/aggregate"
	"practice-analytics/internal/models"
	"practice-analytics/internal/report"
	"practice-analytics/internal/repository"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

// ErrHistoryDisabled is returned when no history store is configured
var ErrHistoryDisabled = errors.New("report history is disabled")

// HistoryService reads previously saved reports
type HistoryService struct {
	repo    repository.ReportRepository
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// HistoryDetail is one stored report plus the daily report rebuilt from its rows
type HistoryDetail struct {
	Stored models.StoredReport `json:"stored"`
	Report *models.DailyReport `json:"report,omitempty"`
}

// NewHistoryService creates a new history service. repo may be nil.
func NewHistoryService(repo repository.ReportRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *HistoryService {
	return &HistoryService{
		repo:    repo,
		logger:  logger.WithFields(logging.Fields{"component": "history"}),
		metrics: metricsCollector,
	}
}

// List returns stored report metadata, newest first
func (s *HistoryService) List(ctx context.Context) ([]models.StoredReport, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}

	reports, err := s.repo.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return reports, nil
}

// Get returns one stored report. Subtotals and the grand total are rebuilt
// from the stored data rows.
func (s *HistoryService) Get(ctx context.Context, id int64) (*HistoryDetail, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}

	stored, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &HistoryDetail{Stored: *stored}
	if groups := aggregate.FromStored([]models.StoredReport{*stored}); len(groups) > 0 {
		rep := report.Build(groups[0])
		detail.Report = &rep
	}

	s.logger.Debug(ctx, "[HISTORY_GET] Loaded stored report", logging.Fields{
		"report_id": id,
		"rows":      len(stored.Rows),
	})

	return detail, nil
}

// Ping checks the history store. It returns ErrHistoryDisabled when none is configured.
func (s *HistoryService) Ping(ctx context.Context) error {
	if s.repo == nil {
		return ErrHistoryDisabled
	}
	return s.repo.HealthCheck(ctx)
}
