package models

import "time"

// FactRow is one sale event enriched with purchase cost and product
// attributes. SalesAmount is never null here; rows missing it are dropped
// by the fact builder before insert.
type FactRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ProductID   string    `gorm:"size:100;index"`
	SaleDate    time.Time `gorm:"index"`
	Quantity    int64
	SalesAmount string  `gorm:"size:50"`
	UnitCost    *string `gorm:"size:50"`
	Margin      *string `gorm:"size:50"`
	VendorName  string  `gorm:"size:255;index"`
	Brand       string  `gorm:"size:255"`
	Store       string  `gorm:"size:100"`
	SKU         string  `gorm:"size:100"`
	ProductName string  `gorm:"size:255"`
	Category    string  `gorm:"size:100"`
}

func (FactRow) TableName() string { return "fact_sales" }

// VendorSummary holds one aggregate row per vendor, plus one per
// vendor+brand when brand rollups are requested. Brand is empty on
// vendor-level rows. Nullable metrics stay nil when the underlying data
// is insufficient to compute them.
type VendorSummary struct {
	ID             int64   `gorm:"primaryKey;autoIncrement"`
	VendorName     string  `gorm:"size:255;index"`
	Brand          string  `gorm:"size:255"`
	TotalRevenue   string  `gorm:"size:50"`
	TotalCost      *string `gorm:"size:50"`
	GrossMargin    *string `gorm:"size:50"`
	MarginPct      *string `gorm:"size:50"`
	SellThroughPct *string `gorm:"size:50"`
	DaysOnHand     *string `gorm:"size:50"`
	AgingCounts    string  `gorm:"size:255"`
	SaleRows       int64
}

func (VendorSummary) TableName() string { return "vendor_summaries" }

// PipelineRun is the run ledger: one row per stage execution, written at
// stage completion with the row counters the final log also reports.
type PipelineRun struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"size:36;index"`
	Stage      string `gorm:"size:50"`
	StartedAt  time.Time
	FinishedAt time.Time
	RowsRead   int64
	RowsLoaded int64
	RowsFailed int64
	Status     string  `gorm:"size:20"`
	Notes      *string `gorm:"size:255"`
}

func (PipelineRun) TableName() string { return "pipeline_runs" }
