package kpi

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vendra-pipeline/internal/database"
	"vendra-pipeline/internal/database/models"
	"vendra-pipeline/internal/pipeline"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := database.MigratePipelineDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedFact(t *testing.T, db *gorm.DB, rows []models.FactRow) {
	t.Helper()
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed fact rows: %v", err)
	}
}

func defaultOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		OutFile:      filepath.Join(dir, "vendor_summary.csv"),
		SummariesDir: filepath.Join(dir, "summaries"),
		Buckets:      NewAgingBuckets([]int{30, 60, 90}),
	}
}

func TestSummarizeRevenueReconciles(t *testing.T) {
	db := newTestDB(t)
	seedFact(t, db, []models.FactRow{
		{ProductID: "P1", SaleDate: day("2024-01-01"), Quantity: 10, SalesAmount: "100", VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
		{ProductID: "P2", SaleDate: day("2024-01-02"), Quantity: 5, SalesAmount: "50.50", VendorName: "VendorA", Brand: "BrandY", Store: "S1"},
		{ProductID: "P3", SaleDate: day("2024-01-03"), Quantity: 2, SalesAmount: "29.50", VendorName: "VendorB", Brand: "BrandZ", Store: "S2"},
	})

	if _, err := Summarize(db, pipeline.NewRun(db), defaultOptions(t)); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var summaries []models.VendorSummary
	if err := db.Where("brand = ?", "").Find(&summaries).Error; err != nil {
		t.Fatalf("load summaries: %v", err)
	}
	total := decimal.Zero
	for _, s := range summaries {
		revenue, err := decimal.NewFromString(s.TotalRevenue)
		if err != nil {
			t.Fatalf("bad revenue %q: %v", s.TotalRevenue, err)
		}
		total = total.Add(revenue)
	}
	if !total.Equal(decimal.RequireFromString("180.00")) {
		t.Fatalf("vendor revenue %s does not reconcile with fact total 180.00", total)
	}
}

func TestSummarizeZeroRevenueVendorHasNullMarginPct(t *testing.T) {
	db := newTestDB(t)
	cost := "1.00"
	seedFact(t, db, []models.FactRow{
		{ProductID: "P1", SaleDate: day("2024-01-01"), Quantity: 1, SalesAmount: "0", UnitCost: &cost, VendorName: "VendorB", Brand: "BrandY", Store: "S1"},
	})

	if _, err := Summarize(db, pipeline.NewRun(db), defaultOptions(t)); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var summary models.VendorSummary
	if err := db.Where("vendor_name = ? AND brand = ?", "VendorB", "").First(&summary).Error; err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if summary.MarginPct != nil {
		t.Fatalf("expected null margin_pct at zero revenue, got %q", *summary.MarginPct)
	}
	if summary.TotalCost == nil {
		t.Fatalf("cost rows were present, expected total_cost populated")
	}
}

func TestSummarizeSellThroughAndDaysOnHand(t *testing.T) {
	db := newTestDB(t)
	cost := "2.00"
	seedFact(t, db, []models.FactRow{
		{ProductID: "P1", SaleDate: day("2024-01-01"), Quantity: 4, SalesAmount: "40", UnitCost: &cost, VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
		{ProductID: "P1", SaleDate: day("2024-01-10"), Quantity: 6, SalesAmount: "60", UnitCost: &cost, VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
	})
	db.Create(&models.InventorySnapshot{ProductID: "P1", OpeningQty: 40, ClosingQty: 20, OpeningValue: "80", ClosingValue: "40"})

	if _, err := Summarize(db, pipeline.NewRun(db), defaultOptions(t)); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var summary models.VendorSummary
	if err := db.Where("vendor_name = ? AND brand = ?", "VendorA", "").First(&summary).Error; err != nil {
		t.Fatalf("load summary: %v", err)
	}
	// 10 sold of 40 opening = 25%; velocity 10 units / 10 days = 1/day,
	// 20 closing units on hand = 20 days.
	if summary.SellThroughPct == nil || *summary.SellThroughPct != "25.00" {
		t.Fatalf("expected sell-through 25.00, got %+v", summary.SellThroughPct)
	}
	if summary.DaysOnHand == nil || *summary.DaysOnHand != "20.0" {
		t.Fatalf("expected days-on-hand 20.0, got %+v", summary.DaysOnHand)
	}
}

func TestSummarizeNoInventoryLeavesMetricsNull(t *testing.T) {
	db := newTestDB(t)
	seedFact(t, db, []models.FactRow{
		{ProductID: "P1", SaleDate: day("2024-01-01"), Quantity: 4, SalesAmount: "40", VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
	})

	report, err := Summarize(db, pipeline.NewRun(db), defaultOptions(t))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if report.NullMetrics == 0 {
		t.Fatalf("expected null metrics recorded, got %+v", report)
	}

	var summary models.VendorSummary
	db.Where("vendor_name = ? AND brand = ?", "VendorA", "").First(&summary)
	if summary.SellThroughPct != nil || summary.DaysOnHand != nil || summary.TotalCost != nil {
		t.Fatalf("expected null metrics without inventory or costs, got %+v", summary)
	}
}

func TestSummarizeWritesBrandRollups(t *testing.T) {
	db := newTestDB(t)
	seedFact(t, db, []models.FactRow{
		{ProductID: "P1", SaleDate: day("2024-01-01"), Quantity: 1, SalesAmount: "10", VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
		{ProductID: "P2", SaleDate: day("2024-01-02"), Quantity: 1, SalesAmount: "20", VendorName: "VendorA", Brand: "BrandY", Store: "S1"},
	})

	if _, err := Summarize(db, pipeline.NewRun(db), defaultOptions(t)); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var brandRows []models.VendorSummary
	if err := db.Where("brand <> ?", "").Order("brand asc").Find(&brandRows).Error; err != nil {
		t.Fatalf("load brand rows: %v", err)
	}
	if len(brandRows) != 2 {
		t.Fatalf("expected 2 brand rows, got %d", len(brandRows))
	}
	if brandRows[0].Brand != "BrandX" || brandRows[0].TotalRevenue != "10.00" {
		t.Fatalf("unexpected brand row: %+v", brandRows[0])
	}
}

func TestSummarizeWritesCSVArtifacts(t *testing.T) {
	db := newTestDB(t)
	seedFact(t, db, []models.FactRow{
		{ProductID: "P1", SaleDate: day("2024-01-01"), Quantity: 1, SalesAmount: "10", VendorName: "Vendor A", Brand: "BrandX", Store: "S1"},
		{ProductID: "P2", SaleDate: day("2024-01-02"), Quantity: 1, SalesAmount: "20", VendorName: "VendorB", Brand: "BrandY", Store: "S2"},
	})

	opts := defaultOptions(t)
	if _, err := Summarize(db, pipeline.NewRun(db), opts); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	f, err := os.Open(opts.OutFile)
	if err != nil {
		t.Fatalf("consolidated CSV missing: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read consolidated CSV: %v", err)
	}
	// header + 2 vendor rows + 2 brand rows
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if records[0][0] != "vendor_name" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	for _, name := range []string{"Vendor_A.csv", "VendorB.csv"} {
		if _, err := os.Stat(filepath.Join(opts.SummariesDir, name)); err != nil {
			t.Fatalf("per-vendor summary %s missing: %v", name, err)
		}
	}
}

func TestSummarizeAgingBucketsFromLastSale(t *testing.T) {
	db := newTestDB(t)
	seedFact(t, db, []models.FactRow{
		// asOf resolves to 2024-04-01, the latest sale date
		{ProductID: "P1", SaleDate: day("2024-04-01"), Quantity: 1, SalesAmount: "10", VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
		{ProductID: "P2", SaleDate: day("2024-02-15"), Quantity: 1, SalesAmount: "10", VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
		{ProductID: "P3", SaleDate: day("2023-11-01"), Quantity: 1, SalesAmount: "10", VendorName: "VendorA", Brand: "BrandX", Store: "S1"},
	})

	if _, err := Summarize(db, pipeline.NewRun(db), defaultOptions(t)); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var summary models.VendorSummary
	db.Where("vendor_name = ? AND brand = ?", "VendorA", "").First(&summary)
	want := `{"0-30":1,"31-60":1,"61-90":0,"90+":1}`
	if summary.AgingCounts != want {
		t.Fatalf("aging counts = %s, want %s", summary.AgingCounts, want)
	}
}
