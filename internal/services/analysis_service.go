package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"practice-analytics/internal/aggregate"
	"practice-analytics/internal/config"
	"practice-analytics/internal/ingest"
	"practice-analytics/internal/models"
	"practice-analytics/internal/ranking"
	"practice-analytics/internal/report"
	"practice-analytics/internal/repository"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

// Labels written with every report saved from an upload
const (
	UploadRefLabel    = "Upload"
	UploadSourceLabel = "Multiple"
)

// AnalysisService builds daily reports, cumulative rollups and leaderboards
// from uploaded files. The repository is optional; without it history is
// neither merged nor saved.
type AnalysisService struct {
	ingestion *IngestionService
	repo      repository.ReportRepository
	strength  *aggregate.StrengthTable
	cfg       config.AnalysisConfig
	logger    *logging.ContextLogger
	metrics   *metrics.Collector
}

// DailyResult is the outcome of a daily report run
type DailyResult struct {
	Reports      []models.DailyReport `json:"reports"`
	Files        []string             `json:"files"`
	Skipped      []string             `json:"skipped_files,omitempty"`
	TotalRows    int                  `json:"total_rows"`
	UnknownDates int                  `json:"unknown_dates"`
	SavedIDs     []int64              `json:"saved_report_ids,omitempty"`
	SaveErrors   []string             `json:"save_errors,omitempty"`
	HistoryError string               `json:"history_error,omitempty"`
}

// CumulativeResult is the outcome of a cumulative rollup
type CumulativeResult struct {
	Totals       []models.StudentTotal `json:"totals"`
	Unidentified int                   `json:"unidentified"`
	Files        []string              `json:"files"`
	Skipped      []string              `json:"skipped_files,omitempty"`
	TotalRows    int                   `json:"total_rows"`
}

// PerformanceResult is a top-N leaderboard for one scope
type PerformanceResult struct {
	Branch   string               `json:"branch"`
	TopN     int                  `json:"top_n"`
	Entries  []models.RankedEntry `json:"entries"`
	Branches []string             `json:"branches"`
	Files    []string             `json:"files"`
	Skipped  []string             `json:"skipped_files,omitempty"`
}

// NewAnalysisService creates a new analysis service. repo may be nil.
func NewAnalysisService(ingestion *IngestionService, repo repository.ReportRepository, strength *aggregate.StrengthTable, cfg config.AnalysisConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalysisService {
	return &AnalysisService{
		ingestion: ingestion,
		repo:      repo,
		strength:  strength,
		cfg:       cfg,
		logger:    logger.WithFields(logging.Fields{"component": "analysis"}),
		metrics:   metricsCollector,
	}
}

// HistoryEnabled reports whether a history store is attached
func (s *AnalysisService) HistoryEnabled() bool {
	return s.repo != nil
}

// GenerateDaily builds one report per derived date. Stored history is merged
// in when enabled, and fresh reports are saved unless the tracker shows the
// same upload was already saved. Persistence failures never fail the run;
// they are returned in SaveErrors.
func (s *AnalysisService) GenerateDaily(ctx context.Context, uploads []ingest.Upload, tracker *SaveTracker) (*DailyResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[REPORT_DAILY_START] Generating daily reports", logging.Fields{
		"file_count": len(uploads),
		"stage":      "INITIALIZATION",
	})

	in, err := s.ingestion.Ingest(ctx, uploads)
	if err != nil {
		return nil, err
	}

	groups := aggregate.Daily(in.Records, s.strength)

	result := &DailyResult{
		Files:        in.Files,
		Skipped:      in.Skipped,
		TotalRows:    in.TotalRows,
		UnknownDates: in.UnknownDates,
	}

	if s.repo != nil && s.cfg.MergeHistory {
		history, err := s.repo.HistorySnapshot(ctx)
		if err != nil {
			s.logger.Error(ctx, "[REPORT_HISTORY_ERROR] Failed to load history, continuing without it", logging.Fields{
				"stage": "HISTORY_MERGE",
			}, err)
			result.HistoryError = err.Error()
		} else {
			past := aggregate.FromStored(history)
			groups = aggregate.MergeHistory(groups, past)
			s.logger.Debug(ctx, "[REPORT_HISTORY_MERGED] Merged stored history", logging.Fields{
				"stored_reports": len(history),
				"history_dates":  len(past),
			})
		}
	}

	result.Reports = report.BuildAll(groups)

	if s.repo != nil && s.cfg.SaveHistory {
		s.save(ctx, result, len(in.Files), tracker)
	}

	for _, rep := range result.Reports {
		if rep.Current {
			s.metrics.RecordReport("daily")
		}
	}
	s.metrics.RecordProcessing("daily_report", time.Since(startTime))

	s.logger.Info(ctx, "[REPORT_DAILY_COMPLETE] Daily reports generated", logging.Fields{
		"reports":          len(result.Reports),
		"saved":            len(result.SavedIDs),
		"save_errors":      len(result.SaveErrors),
		"duration_seconds": time.Since(startTime).Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// SaveKey identifies one saved upload for a date within a session
func SaveKey(date string, fileCount int) string {
	return fmt.Sprintf("%s_%s_%d", UploadRefLabel, date, fileCount)
}

func (s *AnalysisService) save(ctx context.Context, result *DailyResult, fileCount int, tracker *SaveTracker) {
	for _, rep := range result.Reports {
		if !rep.Current {
			continue
		}

		key := SaveKey(rep.Date, fileCount)
		if tracker != nil {
			if id, ok := tracker.TryReserve(key); !ok {
				s.logger.Debug(ctx, "[REPORT_SAVE_SKIPPED] Report already saved or being saved in this session", logging.Fields{
					"date":      rep.Date,
					"report_id": id,
				})
				s.metrics.RecordSave("skipped")
				continue
			}
		}

		id, err := s.repo.SaveReport(ctx, UploadRefLabel, UploadSourceLabel, rep.Date, rep.DataRows())
		if err != nil {
			if tracker != nil {
				tracker.Release(key)
			}
			s.logger.Error(ctx, "[REPORT_SAVE_ERROR] Failed to save report", logging.Fields{
				"date":  rep.Date,
				"stage": "PERSIST",
			}, err)
			s.metrics.RecordSave("failed")
			result.SaveErrors = append(result.SaveErrors, fmt.Sprintf("%s: %v", rep.Date, err))
			continue
		}

		if tracker != nil {
			tracker.Mark(key, id)
		}
		s.metrics.RecordSave("saved")
		result.SavedIDs = append(result.SavedIDs, id)
	}
}

// GenerateCumulative rolls every uploaded date up per student
func (s *AnalysisService) GenerateCumulative(ctx context.Context, uploads []ingest.Upload) (*CumulativeResult, error) {
	startTime := time.Now()

	in, err := s.ingestion.Ingest(ctx, uploads)
	if err != nil {
		return nil, err
	}

	cum := aggregate.Cumulative(in.Records)
	if cum.Unidentified > 0 {
		s.logger.Warn(ctx, "[REPORT_CUMULATIVE_UNIDENTIFIED] Skipped records without reg no or name", logging.Fields{
			"record_count": cum.Unidentified,
		})
	}

	s.metrics.RecordReport("cumulative")
	s.metrics.RecordProcessing("cumulative_report", time.Since(startTime))

	s.logger.Info(ctx, "[REPORT_CUMULATIVE_COMPLETE] Cumulative rollup generated", logging.Fields{
		"students":         len(cum.Totals),
		"duration_seconds": time.Since(startTime).Seconds(),
	})

	return &CumulativeResult{
		Totals:       cum.Totals,
		Unidentified: cum.Unidentified,
		Files:        in.Files,
		Skipped:      in.Skipped,
		TotalRows:    in.TotalRows,
	}, nil
}

// ResolveTopN applies the configured default and ceiling to a requested size
func (s *AnalysisService) ResolveTopN(n int) (int, error) {
	switch {
	case n == 0:
		return s.cfg.DefaultTopN, nil
	case n < 0 || n > s.cfg.MaxTopN:
		return 0, &models.ValidationError{
			Field:   "top_n",
			Value:   fmt.Sprint(n),
			Message: fmt.Sprintf("top_n must be between 1 and %d", s.cfg.MaxTopN),
		}
	}
	return n, nil
}

// TopPerformers ranks students over the cumulative rollup of the uploads,
// optionally scoped to one branch
func (s *AnalysisService) TopPerformers(ctx context.Context, uploads []ingest.Upload, branch string, n int) (*PerformanceResult, error) {
	startTime := time.Now()

	n, err := s.ResolveTopN(n)
	if err != nil {
		return nil, err
	}

	in, err := s.ingestion.Ingest(ctx, uploads)
	if err != nil {
		return nil, err
	}

	candidates := ranking.FromTotals(aggregate.Cumulative(in.Records).Totals)
	branches := ranking.Branches(candidates)

	scope := strings.ToUpper(strings.TrimSpace(branch))
	if scope == "" {
		scope = ranking.OverallScope
	}
	entries := ranking.Top(ranking.FilterBranch(candidates, scope), n)

	s.metrics.RecordReport("performance")
	s.metrics.RecordProcessing("top_performers", time.Since(startTime))

	s.logger.Info(ctx, "[REPORT_PERFORMANCE_COMPLETE] Leaderboard generated", logging.Fields{
		"branch":  scope,
		"top_n":   n,
		"entries": len(entries),
	})

	return &PerformanceResult{
		Branch:   scope,
		TopN:     n,
		Entries:  entries,
		Branches: branches,
		Files:    in.Files,
		Skipped:  in.Skipped,
	}, nil
}
