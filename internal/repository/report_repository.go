package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"practice-analytics/internal/models"
	"practice-analytics/pkg/database"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

// ReportRepository persists generated daily reports. Only data rows are
// stored; subtotals and the grand total are rebuilt on read.
type ReportRepository interface {
	// SaveReport stores report metadata and its data rows atomically
	SaveReport(ctx context.Context, refLabel, sourceLabel, analysisDate string, rows []models.ReportRow) (int64, error)

	// ListReports returns report metadata, newest first
	ListReports(ctx context.Context) ([]models.StoredReport, error)

	// GetReport returns one report with its data rows
	GetReport(ctx context.Context, id int64) (*models.StoredReport, error)

	// GetReportRows returns the stored data rows of one report
	GetReportRows(ctx context.Context, id int64) ([]models.ReportRow, error)

	// HistorySnapshot returns every report with its rows from one consistent snapshot
	HistorySnapshot(ctx context.Context) ([]models.StoredReport, error)

	HealthCheck(ctx context.Context) error
}

const (
	reportColumns = `id, created_at, ref_label, source_label, analysis_date, total_students`
	rowColumns    = `branch, year, registered, appeared, absent, zero_solved, one_solved, two_solved, three_solved`
)

// reportRepository implements ReportRepository on PostgreSQL
type reportRepository struct {
	db      *database.PostgresDB
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ReportRepository {
	return &reportRepository{
		db:      db,
		logger:  logger.WithFields(logging.Fields{"component": "report_repository"}),
		metrics: metricsCollector,
	}
}

// storedRow is a report_data row tagged with its report
type storedRow struct {
	ReportID int64 `db:"report_id"`
	models.ReportRow
}

// SaveReport inserts the report header and its data rows in one serializable
// transaction. total_students is the registered count of the grand total.
func (r *reportRepository) SaveReport(ctx context.Context, refLabel, sourceLabel, analysisDate string, rows []models.ReportRow) (int64, error) {
	timer := time.Now()

	dataRows := make([]models.ReportRow, 0, len(rows))
	totalStudents := 0
	for _, row := range rows {
		if row.Kind != models.RowData && row.Kind != "" {
			continue
		}
		dataRows = append(dataRows, row)
		totalStudents += row.Registered
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO reports (ref_label, source_label, analysis_date, total_students)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, refLabel, sourceLabel, analysisDate, totalStudents).Scan(&id)
	if err != nil {
		r.db.RecordError("insert_report_error")
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO report_data (report_id, `+rowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range dataRows {
		_, err := stmt.ExecContext(ctx,
			id,
			row.Branch,
			row.Year,
			row.Registered,
			row.Appeared,
			row.Absent,
			row.Zero,
			row.One,
			row.Two,
			row.Three,
		)
		if err != nil {
			r.db.RecordError("insert_report_row_error")
			return 0, fmt.Errorf("failed to insert report row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.db.RecordError("commit_error")
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.db.ObserveQuery("save_report", timer)

	r.logger.Debug(ctx, "[REPO_SAVE_REPORT] Report stored", logging.Fields{
		"report_id":      id,
		"analysis_date":  analysisDate,
		"rows":           len(dataRows),
		"total_students": totalStudents,
		"duration_ms":    time.Since(timer).Milliseconds(),
	})

	return id, nil
}

// ListReports returns report metadata ordered newest first
func (r *reportRepository) ListReports(ctx context.Context) ([]models.StoredReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY id DESC`

	var reports []models.StoredReport
	if err := r.db.SelectContext(ctx, "list_reports", &reports, query); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

// GetReport retrieves one report and its data rows
func (r *reportRepository) GetReport(ctx context.Context, id int64) (*models.StoredReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	var report models.StoredReport
	err := r.db.GetContext(ctx, "get_report", &report, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "report",
			ID:       strconv.FormatInt(id, 10),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	rows, err := r.selectRows(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Rows = rows

	return &report, nil
}

// GetReportRows returns the data rows of one report
func (r *reportRepository) GetReportRows(ctx context.Context, id int64) ([]models.ReportRow, error) {
	report, err := r.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return report.Rows, nil
}

func (r *reportRepository) selectRows(ctx context.Context, id int64) ([]models.ReportRow, error) {
	query := `
		SELECT ` + rowColumns + `
		FROM report_data
		WHERE report_id = $1
		ORDER BY id
	`

	var rows []models.ReportRow
	if err := r.db.SelectContext(ctx, "get_report_rows", &rows, query, id); err != nil {
		return nil, fmt.Errorf("failed to get report rows: %w", err)
	}
	for i := range rows {
		rows[i].Kind = models.RowData
	}

	return rows, nil
}

// HistorySnapshot reads every report and its rows inside one read-only
// repeatable-read transaction. Reports committed after the snapshot began
// are not visible.
func (r *reportRepository) HistorySnapshot(ctx context.Context) ([]models.StoredReport, error) {
	timer := time.Now()

	tx, err := r.db.BeginSnapshotTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var reports []models.StoredReport
	if err := tx.SelectContext(ctx, &reports, `SELECT `+reportColumns+` FROM reports ORDER BY id DESC`); err != nil {
		r.db.RecordError("snapshot_error")
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	var rows []storedRow
	if err := tx.SelectContext(ctx, &rows, `SELECT report_id, `+rowColumns+` FROM report_data ORDER BY report_id, id`); err != nil {
		r.db.RecordError("snapshot_error")
		return nil, fmt.Errorf("failed to read report rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to close snapshot: %w", err)
	}
	r.db.ObserveQuery("history_snapshot", timer)

	attachRows(reports, rows)

	r.logger.Debug(ctx, "[REPO_HISTORY_SNAPSHOT] History read", logging.Fields{
		"reports":     len(reports),
		"rows":        len(rows),
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return reports, nil
}

// attachRows distributes snapshot rows onto their reports
func attachRows(reports []models.StoredReport, rows []storedRow) {
	index := make(map[int64]int, len(reports))
	for i := range reports {
		index[reports[i].ID] = i
	}
	for _, row := range rows {
		i, ok := index[row.ReportID]
		if !ok {
			continue
		}
		row.Kind = models.RowData
		reports[i].Rows = append(reports[i].Rows, row.ReportRow)
	}
}

// HealthCheck performs a repository health check
func (r *reportRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
