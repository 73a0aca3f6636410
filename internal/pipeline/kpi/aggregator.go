package kpi

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vendra-pipeline/internal/database/models"
	"vendra-pipeline/internal/pipeline"
)

// Options configures one aggregation pass. AsOf anchors aging-bucket ages;
// when zero it defaults to the latest sale date in the fact table so that
// identical inputs always produce identical summaries.
type Options struct {
	OutFile      string
	SummariesDir string
	Buckets      AgingBuckets
	AsOf         time.Time
}

// Report carries the aggregation counters for the final run log.
type Report struct {
	FactRows    int64
	Vendors     int64
	BrandRows   int64
	NullMetrics int64
}

type groupAgg struct {
	vendor  string
	brand   string
	revenue decimal.Decimal
	cost    decimal.Decimal
	hasCost bool
	qty     int64
	rows    int64

	firstSale time.Time
	lastSale  time.Time

	// last sale date per product, for aging classification
	products map[string]time.Time
}

type invTotals struct {
	opening int64
	closing int64
}

// Summarize groups the fact table by vendor and by vendor+brand, computes
// the KPI set, replaces the vendor_summaries table, and writes one CSV per
// vendor plus the consolidated CSV the dashboard reads. A metric a group
// lacks data for is reported as null for that group; the run keeps going.
func Summarize(db *gorm.DB, run *pipeline.Run, opts Options) (Report, error) {
	started := time.Now()
	report := Report{}

	if len(opts.Buckets.labels) == 0 {
		opts.Buckets = NewAgingBuckets(nil)
	}

	var rows []models.FactRow
	if err := db.Order("id asc").Find(&rows).Error; err != nil {
		return report, fmt.Errorf("failed to load fact table: %w", err)
	}
	report.FactRows = int64(len(rows))

	asOf := opts.AsOf
	for _, row := range rows {
		if row.SaleDate.After(asOf) {
			asOf = row.SaleDate
		}
	}

	inventory := inventoryByProduct(db)
	lastPurchase := lastPurchaseByProduct(db)

	vendors := make(map[string]*groupAgg)
	brands := make(map[string]*groupAgg)
	for _, row := range rows {
		accumulate(groupFor(vendors, row.VendorName, ""), row)
		accumulate(groupFor(brands, row.VendorName, row.Brand), row)
	}

	// Products a vendor carries but never sold still age; their clock runs
	// from the last purchase order instead of the last sale.
	var catalog []models.Product
	if err := db.Find(&catalog).Error; err == nil {
		for _, p := range catalog {
			agg, ok := vendors[p.VendorName]
			if !ok {
				continue
			}
			if _, seen := agg.products[p.ProductID]; !seen {
				if purchased, ok := lastPurchase[p.ProductID]; ok {
					agg.products[p.ProductID] = purchased
				}
			}
		}
	}

	summaries := make([]models.VendorSummary, 0, len(vendors)+len(brands))
	vendorNames := sortedKeys(vendors)
	for _, name := range vendorNames {
		s := summarize(vendors[name], inventory, opts.Buckets, asOf, &report)
		summaries = append(summaries, s)
	}
	report.Vendors = int64(len(vendorNames))

	for _, key := range sortedKeys(brands) {
		agg := brands[key]
		if agg.brand == "" {
			continue // rolled up at vendor level already
		}
		summaries = append(summaries, summarize(agg, inventory, opts.Buckets, asOf, &report))
		report.BrandRows++
	}

	if err := replaceSummaryTable(db); err != nil {
		run.RecordStage("kpi", started, report.FactRows, 0, 0, "failed", strPtr(err.Error()))
		return report, err
	}
	if len(summaries) > 0 {
		if err := db.Create(&summaries).Error; err != nil {
			run.RecordStage("kpi", started, report.FactRows, 0, 0, "failed", strPtr(err.Error()))
			return report, err
		}
	}

	if opts.OutFile != "" {
		if err := writeConsolidatedCSV(opts.OutFile, summaries, opts.Buckets); err != nil {
			run.RecordStage("kpi", started, report.FactRows, int64(len(summaries)), 0, "failed", strPtr(err.Error()))
			return report, err
		}
	}
	if opts.SummariesDir != "" {
		if err := writeVendorCSVs(opts.SummariesDir, summaries, opts.Buckets); err != nil {
			run.RecordStage("kpi", started, report.FactRows, int64(len(summaries)), 0, "failed", strPtr(err.Error()))
			return report, err
		}
	}

	log.Printf("Summaries written: %d vendors, %d brand rows, %d null metrics",
		report.Vendors, report.BrandRows, report.NullMetrics)
	run.RecordStage("kpi", started, report.FactRows, int64(len(summaries)), 0, "ok", nil)
	return report, nil
}

func groupFor(groups map[string]*groupAgg, vendor, brand string) *groupAgg {
	key := vendor
	if brand != "" {
		key = vendor + "|" + brand
	}
	agg, ok := groups[key]
	if !ok {
		agg = &groupAgg{
			vendor:   vendor,
			brand:    brand,
			revenue:  decimal.Zero,
			cost:     decimal.Zero,
			products: make(map[string]time.Time),
		}
		groups[key] = agg
	}
	return agg
}

func accumulate(agg *groupAgg, row models.FactRow) {
	agg.rows++
	agg.qty += row.Quantity

	if amount, err := decimal.NewFromString(row.SalesAmount); err == nil {
		agg.revenue = agg.revenue.Add(amount)
	}
	if row.UnitCost != nil {
		if cost, err := decimal.NewFromString(*row.UnitCost); err == nil {
			agg.cost = agg.cost.Add(cost.Mul(decimal.NewFromInt(row.Quantity)))
			agg.hasCost = true
		}
	}

	if agg.firstSale.IsZero() || row.SaleDate.Before(agg.firstSale) {
		agg.firstSale = row.SaleDate
	}
	if row.SaleDate.After(agg.lastSale) {
		agg.lastSale = row.SaleDate
	}
	if last, ok := agg.products[row.ProductID]; !ok || row.SaleDate.After(last) {
		agg.products[row.ProductID] = row.SaleDate
	}
}

func summarize(agg *groupAgg, inventory map[string]invTotals, buckets AgingBuckets, asOf time.Time, report *Report) models.VendorSummary {
	s := models.VendorSummary{
		VendorName:   agg.vendor,
		Brand:        agg.brand,
		TotalRevenue: agg.revenue.StringFixed(2),
		SaleRows:     agg.rows,
	}

	if agg.hasCost {
		cost := agg.cost.StringFixed(2)
		s.TotalCost = &cost
		margin := agg.revenue.Sub(agg.cost).StringFixed(2)
		s.GrossMargin = &margin
	} else {
		logNullMetric(agg, "total_cost", "no purchase costs for any sold product", report)
	}

	if agg.revenue.IsZero() {
		logNullMetric(agg, "margin_pct", "revenue is zero", report)
	} else if s.GrossMargin != nil {
		pct := agg.revenue.Sub(agg.cost).Div(agg.revenue).Mul(decimal.NewFromInt(100)).StringFixed(2)
		s.MarginPct = &pct
	}

	var opening, closing int64
	var covered bool
	for productID := range agg.products {
		if totals, ok := inventory[productID]; ok {
			opening += totals.opening
			closing += totals.closing
			covered = true
		}
	}

	if covered && opening > 0 {
		sellThrough := decimal.NewFromInt(agg.qty).Div(decimal.NewFromInt(opening)).Mul(decimal.NewFromInt(100)).StringFixed(2)
		s.SellThroughPct = &sellThrough
	} else {
		logNullMetric(agg, "sell_through_pct", "no opening inventory for sold products", report)
	}

	if covered && agg.qty > 0 && !agg.firstSale.IsZero() {
		spanDays := int64(agg.lastSale.Sub(agg.firstSale).Hours()/24) + 1
		velocity := decimal.NewFromInt(agg.qty).Div(decimal.NewFromInt(spanDays))
		if velocity.IsPositive() {
			doh := decimal.NewFromInt(closing).Div(velocity).StringFixed(1)
			s.DaysOnHand = &doh
		}
	}
	if s.DaysOnHand == nil {
		logNullMetric(agg, "days_on_hand", "no observable sales velocity", report)
	}

	counts := make(map[string]int, len(buckets.Labels()))
	for _, label := range buckets.Labels() {
		counts[label] = 0
	}
	for _, lastSeen := range agg.products {
		days := int(asOf.Sub(lastSeen).Hours() / 24)
		counts[buckets.Classify(days)]++
	}
	encoded, _ := json.Marshal(counts)
	s.AgingCounts = string(encoded)

	return s
}

func logNullMetric(agg *groupAgg, metric, reason string, report *Report) {
	report.NullMetrics++
	name := agg.vendor
	if agg.brand != "" {
		name = agg.vendor + "/" + agg.brand
	}
	log.Printf("Warning: %v", &pipeline.AggregationError{Vendor: name, Metric: metric, Reason: reason})
}

func inventoryByProduct(db *gorm.DB) map[string]invTotals {
	var snapshots []models.InventorySnapshot
	if err := db.Find(&snapshots).Error; err != nil {
		log.Printf("Warning: failed to load inventory, sell-through unavailable: %v", err)
		return map[string]invTotals{}
	}
	totals := make(map[string]invTotals, len(snapshots))
	for _, snap := range snapshots {
		t := totals[snap.ProductID]
		t.opening += snap.OpeningQty
		t.closing += snap.ClosingQty
		totals[snap.ProductID] = t
	}
	return totals
}

func lastPurchaseByProduct(db *gorm.DB) map[string]time.Time {
	var purchases []models.Purchase
	if err := db.Find(&purchases).Error; err != nil {
		return map[string]time.Time{}
	}
	last := make(map[string]time.Time, len(purchases))
	for _, p := range purchases {
		if p.OrderDate.After(last[p.ProductID]) {
			last[p.ProductID] = p.OrderDate
		}
	}
	return last
}

func replaceSummaryTable(db *gorm.DB) error {
	if db.Migrator().HasTable(&models.VendorSummary{}) {
		if err := db.Migrator().DropTable(&models.VendorSummary{}); err != nil {
			return err
		}
	}
	return db.AutoMigrate(&models.VendorSummary{})
}

func sortedKeys(groups map[string]*groupAgg) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
