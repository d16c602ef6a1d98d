package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xuri/excelize/v2"

	"practice-analytics/internal/aggregate"
	"practice-analytics/internal/config"
	"practice-analytics/internal/export"
	"practice-analytics/internal/ingest"
	"practice-analytics/internal/repository"
	"practice-analytics/internal/services"
	"practice-analytics/pkg/database"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "daily", "Report to produce: daily, cumulative, performance or strength")
	dataDir := flag.String("data-dir", "", "Directory of .csv/.xlsx exports, used when no files are given")
	topN := flag.Int("top-n", 0, "Leaderboard size for performance mode (0 uses the configured default)")
	branch := flag.String("branch", "", "Branch scope for performance mode (empty for OVERALL)")
	xlsxOut := flag.String("xlsx", "", "Also write the report workbook to this path")
	useHistory := flag.Bool("history", false, "Merge and save report history using the configured database")
	limit := flag.Int("limit", 25, "Rows to print in cumulative mode (0 prints all)")
	verbose := flag.Bool("v", false, "Log at debug level")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("practice-analyze", version, cfg.LogLevel())
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logging.DebugLevel)
	}

	ctx := context.Background()

	// The registered-strength table needs no input files
	if *mode == "strength" {
		renderStrength(os.Stdout, aggregate.Entries())
		return
	}

	paths, err := collectPaths(flag.Args(), *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger.Info(ctx, "[ANALYZE_START] Starting report generation", logging.Fields{
		"version":    version,
		"mode":       *mode,
		"file_count": len(paths),
		"history":    *useHistory,
	})

	uploads := make([]ingest.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Fatal(ctx, "[ANALYZE_READ_ERROR] Failed to read input file", logging.Fields{"path": p}, err)
		}
		uploads = append(uploads, ingest.Upload{Name: filepath.Base(p), Data: data})
	}

	metricsCollector := metrics.NewCollector("practice_analyze", prometheus.NewRegistry())

	var reportRepo repository.ReportRepository
	if *useHistory {
		if !cfg.Database.Enabled {
			logger.Warn(ctx, "[ANALYZE_HISTORY_DISABLED] -history given but the database is not enabled", logging.Fields{})
		} else {
			db, err := database.NewPostgresDB(cfg.DatabaseOptions(), logger, metricsCollector)
			if err != nil {
				logger.Fatal(ctx, "[ANALYZE_DB_ERROR] Failed to connect to database", logging.Fields{}, err)
			}
			defer db.Close()
			reportRepo = repository.NewReportRepository(db, logger, metricsCollector)
		}
	}

	ingestionService := services.NewIngestionService(logger, metricsCollector)
	analysisService := services.NewAnalysisService(ingestionService, reportRepo, aggregate.DefaultStrength(), cfg.Analysis, logger, metricsCollector)

	startTime := time.Now()
	var (
		workbook  *excelize.File
		exportErr error
	)

	switch *mode {
	case "daily":
		result, err := analysisService.GenerateDaily(ctx, uploads, services.NewSaveTracker())
		if err != nil {
			fail(ctx, logger, err)
		}
		renderDaily(os.Stdout, result.Reports)
		printSummary(result.Files, result.Skipped, result.TotalRows, time.Since(startTime))
		if result.UnknownDates > 0 {
			fmt.Printf("Undated Records:    %d\n", result.UnknownDates)
		}
		if len(result.SavedIDs) > 0 {
			fmt.Printf("Saved Reports:      %v\n", result.SavedIDs)
		}
		for _, e := range result.SaveErrors {
			fmt.Printf("  - save failed: %s\n", e)
		}
		if *xlsxOut != "" {
			workbook, exportErr = export.DailyWorkbook(result.Reports)
		}

	case "cumulative":
		result, err := analysisService.GenerateCumulative(ctx, uploads)
		if err != nil {
			fail(ctx, logger, err)
		}
		renderCumulative(os.Stdout, result.Totals, *limit)
		printSummary(result.Files, result.Skipped, result.TotalRows, time.Since(startTime))
		if result.Unidentified > 0 {
			fmt.Printf("Unidentified Rows:  %d\n", result.Unidentified)
		}
		if *xlsxOut != "" {
			workbook, exportErr = export.CumulativeWorkbook(result.Totals)
		}

	case "performance":
		result, err := analysisService.TopPerformers(ctx, uploads, *branch, *topN)
		if err != nil {
			fail(ctx, logger, err)
		}
		fmt.Printf("\nTop %d performers: %s\n", result.TopN, result.Branch)
		renderLeaderboard(os.Stdout, result.Entries)
		fmt.Printf("Branches: %s\n", strings.Join(result.Branches, ", "))
		if *xlsxOut != "" {
			workbook, exportErr = export.PerformanceWorkbook(result.Entries, result.Branch, result.TopN)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q, expected daily, cumulative, performance or strength\n", *mode)
		os.Exit(2)
	}

	if exportErr != nil {
		logger.Fatal(ctx, "[ANALYZE_EXPORT_ERROR] Failed to build workbook", logging.Fields{}, exportErr)
	}

	if workbook != nil {
		if err := workbook.SaveAs(*xlsxOut); err != nil {
			logger.Fatal(ctx, "[ANALYZE_EXPORT_ERROR] Failed to write workbook", logging.Fields{"path": *xlsxOut}, err)
		}
		workbook.Close()
		fmt.Printf("Workbook written to %s\n", *xlsxOut)
	}

	logger.Info(ctx, "[ANALYZE_COMPLETE] Report generation completed", logging.Fields{
		"mode":             *mode,
		"duration_seconds": time.Since(startTime).Seconds(),
	})
}

// collectPaths returns the files named on the command line, or every
// supported file in dir when none are given
func collectPaths(args []string, dir string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if dir == "" {
		return nil, fmt.Errorf("no input files: pass file paths or -data-dir")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && ingest.Format(e.Name()) != "" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .csv or .xlsx files found in %s", dir)
	}
	return paths, nil
}

func printSummary(files, skipped []string, rows int, d time.Duration) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("ANALYSIS COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Files:              %d\n", len(files))
	fmt.Printf("Rows:               %d\n", rows)
	fmt.Printf("Duration:           %v\n", d)
	for _, name := range skipped {
		fmt.Printf("  - skipped duplicate: %s\n", name)
	}
}

func fail(ctx context.Context, logger *logging.StructuredLogger, err error) {
	logger.Error(ctx, "[ANALYZE_ERROR] Report generation failed", logging.Fields{}, err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
