package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"practice-analytics/internal/aggregate"
	"practice-analytics/internal/config"
	"practice-analytics/internal/ingest"
	"practice-analytics/internal/models"
	"practice-analytics/internal/repository"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

// fakeRepo is an in-memory ReportRepository
type fakeRepo struct {
	mu         sync.Mutex
	nextID     int64
	reports    []models.StoredReport
	saveErr    error
	historyErr error
}

func (f *fakeRepo) SaveReport(_ context.Context, ref, source, date string, rows []models.ReportRow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.nextID++
	total := 0
	for _, r := range rows {
		total += r.Registered
	}
	f.reports = append(f.reports, models.StoredReport{
		ID:            f.nextID,
		CreatedAt:     time.Now(),
		RefLabel:      ref,
		SourceLabel:   source,
		AnalysisDate:  date,
		TotalStudents: total,
		Rows:          append([]models.ReportRow(nil), rows...),
	})
	return f.nextID, nil
}

func (f *fakeRepo) ListReports(context.Context) ([]models.StoredReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.StoredReport(nil), f.reports...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetReport(_ context.Context, id int64) (*models.StoredReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reports {
		if r.ID == id {
			rep := r
			return &rep, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "report", ID: strconv.FormatInt(id, 10)}
}

func (f *fakeRepo) GetReportRows(ctx context.Context, id int64) ([]models.ReportRow, error) {
	rep, err := f.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return rep.Rows, nil
}

func (f *fakeRepo) HistorySnapshot(context.Context) ([]models.StoredReport, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.StoredReport(nil), f.reports...), nil
}

func (f *fakeRepo) HealthCheck(context.Context) error { return nil }

func testDeps() (*logging.StructuredLogger, *metrics.Collector) {
	logger := logging.NewStructuredLogger("practice-analytics-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger, metrics.NewCollector("practice_test", prometheus.NewRegistry())
}

func newAnalysis(repo repository.ReportRepository) *AnalysisService {
	logger, m := testDeps()
	cfg := config.New().Analysis
	return NewAnalysisService(NewIngestionService(logger, m), repo, aggregate.DefaultStrength(), cfg, logger, m)
}

const dayOne = `Reg No,Name,Branch,Year,Solved count,Total submissions,Active utilisation,Timestamp
21CS001,Asha,CSE,II,3,5,01:00:00,2025-02-12 10:30:00
21CS002,Bala,CSE,II,0,2,00:10:00,2025-02-12 10:40:00
21EC001,Chitra,ECE,III,2,4,00:30:00,2025-02-12 11:00:00
`

const dayTwo = `Regn No,Student Name,Department,Year of Study,Problems Solved,Total Attempts,Active Time,Date
21CS001,Asha,Computer Science and Engineering,2,1,7,00:20:00,2025-02-13 09:00:00
21EC001,Chitra,ECE,III,4,4,00:45:00,2025-02-13 09:30:00
`

func uploads() []ingest.Upload {
	return []ingest.Upload{
		{Name: "day1.csv", Data: []byte(dayOne)},
		{Name: "day2.csv", Data: []byte(dayTwo)},
	}
}

func TestGenerateDaily(t *testing.T) {
	convey.Convey("Given an analysis service with a history store", t, func() {
		ctx := context.Background()
		repo := &fakeRepo{}
		svc := newAnalysis(repo)
		tracker := NewSaveTracker()

		convey.Convey("When daily reports are generated", func() {
			res, err := svc.GenerateDaily(ctx, uploads(), tracker)

			convey.Convey("Then one report per date is built in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Reports, convey.ShouldHaveLength, 2)
				convey.So(res.Reports[0].Date, convey.ShouldEqual, "12-02-2025")
				convey.So(res.Reports[1].Date, convey.ShouldEqual, "13-02-2025")
				convey.So(res.TotalRows, convey.ShouldEqual, 5)
			})

			convey.Convey("And the first report counts buckets per branch and year", func() {
				rows := res.Reports[0].DataRows()
				convey.So(rows, convey.ShouldHaveLength, 2)
				convey.So(rows[0].Branch, convey.ShouldEqual, "CSE")
				convey.So(rows[0].Appeared, convey.ShouldEqual, 2)
				convey.So(rows[0].Zero, convey.ShouldEqual, 1)
				convey.So(rows[0].Three, convey.ShouldEqual, 1)

				total, ok := res.Reports[0].Total()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(total.Appeared, convey.ShouldEqual, 3)
			})

			convey.Convey("And every fresh report is saved once", func() {
				convey.So(res.SavedIDs, convey.ShouldResemble, []int64{1, 2})
				convey.So(res.SaveErrors, convey.ShouldBeEmpty)
				convey.So(repo.reports[0].RefLabel, convey.ShouldEqual, UploadRefLabel)
				convey.So(repo.reports[0].SourceLabel, convey.ShouldEqual, UploadSourceLabel)
				convey.So(tracker.Len(), convey.ShouldEqual, 2)
			})

			convey.Convey("And regenerating in the same session does not save again", func() {
				again, err := svc.GenerateDaily(ctx, uploads(), tracker)
				convey.So(err, convey.ShouldBeNil)
				convey.So(again.SavedIDs, convey.ShouldBeEmpty)
				convey.So(repo.reports, convey.ShouldHaveLength, 2)
			})

			convey.Convey("And a later single-day upload merges the other stored date", func() {
				later, err := svc.GenerateDaily(ctx, []ingest.Upload{{Name: "day2.csv", Data: []byte(dayTwo)}}, NewSaveTracker())
				convey.So(err, convey.ShouldBeNil)
				convey.So(later.Reports, convey.ShouldHaveLength, 2)
				convey.So(later.Reports[0].Date, convey.ShouldEqual, "12-02-2025")
				convey.So(later.Reports[0].Current, convey.ShouldBeFalse)
				convey.So(later.Reports[1].Current, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When saving fails", func() {
			repo.saveErr = errors.New("connection refused")
			res, err := svc.GenerateDaily(ctx, uploads(), tracker)

			convey.Convey("Then reports are still returned with the save errors", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Reports, convey.ShouldHaveLength, 2)
				convey.So(res.SaveErrors, convey.ShouldHaveLength, 2)
				convey.So(tracker.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When history cannot be loaded", func() {
			repo.historyErr = errors.New("timeout")
			res, err := svc.GenerateDaily(ctx, uploads(), tracker)

			convey.Convey("Then the run continues without it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.HistoryError, convey.ShouldEqual, "timeout")
				convey.So(res.Reports, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When a file lacks a required column", func() {
			_, err := svc.GenerateDaily(ctx, []ingest.Upload{{Name: "bad.csv", Data: []byte("Reg No,Name\n1,A\n")}}, tracker)

			convey.Convey("Then the batch fails with a schema error", func() {
				var se *models.SchemaError
				convey.So(errors.As(err, &se), convey.ShouldBeTrue)
				convey.So(se.Source, convey.ShouldEqual, "bad.csv")
			})
		})

		convey.Convey("When no files are uploaded", func() {
			_, err := svc.GenerateDaily(ctx, nil, tracker)

			convey.Convey("Then it is a validation error", func() {
				var ve *models.ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given an analysis service without a history store", t, func() {
		svc := newAnalysis(nil)
		res, err := svc.GenerateDaily(context.Background(), uploads(), nil)

		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.HistoryEnabled(), convey.ShouldBeFalse)
		convey.So(res.SavedIDs, convey.ShouldBeEmpty)
		convey.So(res.Reports, convey.ShouldHaveLength, 2)
	})
}

func TestGenerateCumulative(t *testing.T) {
	convey.Convey("Given two days of uploads", t, func() {
		svc := newAnalysis(nil)
		res, err := svc.GenerateCumulative(context.Background(), uploads())

		convey.So(err, convey.ShouldBeNil)
		convey.So(res.Totals, convey.ShouldHaveLength, 3)

		convey.Convey("Students are ordered by total solved", func() {
			convey.So(res.Totals[0].Identifier, convey.ShouldEqual, "21EC001")
			convey.So(res.Totals[0].TotalSolved, convey.ShouldEqual, 6)
			convey.So(res.Totals[0].DaysAppeared, convey.ShouldEqual, 2)
			convey.So(res.Totals[1].Identifier, convey.ShouldEqual, "21CS001")
			convey.So(res.Totals[1].TotalSolved, convey.ShouldEqual, 4)
			convey.So(res.Totals[1].TotalSubmissions, convey.ShouldEqual, 12)
		})
	})
}

func TestTopPerformers(t *testing.T) {
	convey.Convey("Given two days of uploads", t, func() {
		ctx := context.Background()
		svc := newAnalysis(nil)

		convey.Convey("The overall leaderboard ranks every student", func() {
			res, err := svc.TopPerformers(ctx, uploads(), "", 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Branch, convey.ShouldEqual, "OVERALL")
			convey.So(res.TopN, convey.ShouldEqual, 50)
			convey.So(res.Entries, convey.ShouldHaveLength, 3)
			convey.So(res.Entries[0].RegNo, convey.ShouldEqual, "21EC001")
			convey.So(res.Entries[0].Rank, convey.ShouldEqual, 1)
			convey.So(res.Branches, convey.ShouldResemble, []string{"CSE", "ECE"})
		})

		convey.Convey("A branch scope filters before ranking", func() {
			res, err := svc.TopPerformers(ctx, uploads(), "cse", 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Branch, convey.ShouldEqual, "CSE")
			convey.So(res.Entries, convey.ShouldHaveLength, 1)
			convey.So(res.Entries[0].RegNo, convey.ShouldEqual, "21CS001")
		})

		convey.Convey("A size above the ceiling is rejected", func() {
			_, err := svc.TopPerformers(ctx, uploads(), "", 100000)
			var ve *models.ValidationError
			convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
			convey.So(ve.Field, convey.ShouldEqual, "top_n")
		})
	})
}

func TestHistoryService(t *testing.T) {
	convey.Convey("Given a store with one saved report", t, func() {
		ctx := context.Background()
		repo := &fakeRepo{}
		_, err := repo.SaveReport(ctx, "Upload", "Multiple", "12-02-2025", []models.ReportRow{
			{Kind: models.RowData, Branch: "CSE", Year: "II", Registered: 10, Appeared: 4, Absent: 6, Zero: 4},
			{Kind: models.RowData, Branch: "CSE", Year: "III", Registered: 5, Appeared: 5, Three: 5},
		})
		convey.So(err, convey.ShouldBeNil)

		logger, m := testDeps()
		svc := NewHistoryService(repo, logger, m)

		convey.Convey("It is listed", func() {
			list, err := svc.List(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(list, convey.ShouldHaveLength, 1)
			convey.So(list[0].TotalStudents, convey.ShouldEqual, 15)
		})

		convey.Convey("Its totals are rebuilt on read", func() {
			detail, err := svc.Get(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(detail.Report, convey.ShouldNotBeNil)
			convey.So(detail.Report.Rows, convey.ShouldHaveLength, 4)
			total, ok := detail.Report.Total()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(total.Registered, convey.ShouldEqual, 15)
		})

		convey.Convey("A missing ID is not found", func() {
			_, err := svc.Get(ctx, 99)
			var nf *repository.NotFoundError
			convey.So(errors.As(err, &nf), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Without a store history is disabled", t, func() {
		logger, m := testDeps()
		svc := NewHistoryService(nil, logger, m)
		_, err := svc.List(context.Background())
		convey.So(errors.Is(err, ErrHistoryDisabled), convey.ShouldBeTrue)
	})
}

func TestGenerateDaily_ConcurrentSameSession(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newAnalysis(repo)
	tracker := NewSaveTracker()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GenerateDaily(ctx, uploads(), tracker); err != nil {
				t.Errorf("GenerateDaily: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(repo.reports) != 2 {
		t.Errorf("saved %d reports, want one per date (2)", len(repo.reports))
	}
	if tracker.Len() != 2 {
		t.Errorf("tracker.Len() = %d, want 2", tracker.Len())
	}
}

func TestSaveTracker_Reservation(t *testing.T) {
	tracker := NewSaveTracker()

	if _, ok := tracker.TryReserve("k"); !ok {
		t.Fatal("first reservation should succeed")
	}
	if _, ok := tracker.TryReserve("k"); ok {
		t.Error("key is held, second reservation should fail")
	}

	tracker.Release("k")
	if _, ok := tracker.TryReserve("k"); !ok {
		t.Fatal("released key should be reservable again")
	}

	tracker.Mark("k", 42)
	if id, ok := tracker.TryReserve("k"); ok || id != 42 {
		t.Errorf("TryReserve after Mark = (%d, %v), want (42, false)", id, ok)
	}
	if tracker.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tracker.Len())
	}
}

func TestSessionStore(t *testing.T) {
	convey.Convey("Given a session store", t, func() {
		store := NewSessionStore(time.Hour)
		now := time.Date(2025, 2, 12, 10, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		convey.Convey("An empty ID starts a new session", func() {
			id, tracker := store.Tracker("")
			convey.So(id, convey.ShouldNotBeEmpty)
			convey.So(tracker, convey.ShouldNotBeNil)

			sameID, same := store.Tracker(id)
			convey.So(sameID, convey.ShouldEqual, id)
			convey.So(same, convey.ShouldEqual, tracker)
		})

		convey.Convey("Idle sessions expire", func() {
			_, tracker := store.Tracker("abc")
			tracker.Mark("k", 1)

			now = now.Add(2 * time.Hour)
			_, fresh := store.Tracker("abc")
			convey.So(fresh, convey.ShouldNotEqual, tracker)
			convey.So(fresh.Len(), convey.ShouldEqual, 0)
			convey.So(store.Len(), convey.ShouldEqual, 1)
		})
	})
}

func TestIngest_LogsComponentAndTimesBatch(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger("practice-analytics-test", "test", logging.InfoLevel)
	logger.SetOutput(&buf)
	reg := prometheus.NewRegistry()
	svc := NewIngestionService(logger, metrics.NewCollector("practice_test", reg))

	res, err := svc.Ingest(context.Background(), uploads())
	if err != nil {
		t.Fatal(err)
	}
	if res.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", res.Duration)
	}
	if !strings.Contains(buf.String(), `"component":"ingestion"`) {
		t.Errorf("log output lacks the component field:\n%s", buf.String())
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "practice_test_ingestion_duration_seconds" {
			for _, m := range mf.GetMetric() {
				samples += m.GetHistogram().GetSampleCount()
			}
		}
	}
	if samples != 1 {
		t.Errorf("ingestion duration samples = %d, want 1", samples)
	}
}
