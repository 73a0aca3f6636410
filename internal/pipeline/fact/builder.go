package fact

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vendra-pipeline/internal/database/models"
	"vendra-pipeline/internal/pipeline"
)

const insertBatchSize = 500

// Report carries the fact-build counters for the final run log.
type Report struct {
	SalesRead    int64
	RowsBuilt    int64
	NullAmount   int64
	Duplicates   int64
	MissingCost  int64
	JoinWarnings int64
}

// Build joins sales to purchase costs and product attributes and replaces
// the fact_sales table. The join is sales-anchored: purchase rows without a
// matching sale never produce a fact row, and a sale without purchase data
// keeps a null unit cost. Rows with a null sales amount are dropped.
// Exact duplicates on (product, date, store, amount) keep the first
// occurrence only.
func Build(db *gorm.DB, run *pipeline.Run) (Report, error) {
	started := time.Now()
	report := Report{}

	var sales []models.Sale
	if err := db.Order("id asc").Find(&sales).Error; err != nil {
		return report, fmt.Errorf("failed to load sales: %w", err)
	}
	report.SalesRead = int64(len(sales))

	costs := costByProduct(db)
	attrs, warnings := productAttributes(db)
	report.JoinWarnings += warnings

	seen := make(map[string]bool, len(sales))
	rows := make([]models.FactRow, 0, len(sales))
	for _, sale := range sales {
		if sale.SalesAmount == nil {
			report.NullAmount++
			continue
		}
		key := fmt.Sprintf("%s|%s|%s|%s", sale.ProductID, sale.SaleDate.Format("2006-01-02"), sale.Store, *sale.SalesAmount)
		if seen[key] {
			report.Duplicates++
			continue
		}
		seen[key] = true

		row := models.FactRow{
			ProductID:   sale.ProductID,
			SaleDate:    sale.SaleDate,
			Quantity:    sale.Quantity,
			SalesAmount: *sale.SalesAmount,
			VendorName:  sale.VendorName,
			Brand:       sale.Brand,
			Store:       sale.Store,
		}

		if cost, ok := costs[sale.ProductID]; ok {
			costStr := cost.String()
			row.UnitCost = &costStr

			amount, err := decimal.NewFromString(*sale.SalesAmount)
			if err == nil {
				margin := amount.Sub(cost.Mul(decimal.NewFromInt(sale.Quantity))).String()
				row.Margin = &margin
			}
		} else {
			report.MissingCost++
		}

		if attr, ok := attrs[sale.ProductID]; ok {
			row.SKU = attr.SKU
			row.ProductName = attr.ProductName
			row.Category = attr.Category
			if row.Brand == "" {
				row.Brand = attr.Brand
			}
			if row.VendorName == "" {
				row.VendorName = attr.VendorName
			}
		}

		rows = append(rows, row)
	}

	if err := replaceFactTable(db); err != nil {
		run.RecordStage("fact", started, report.SalesRead, 0, report.NullAmount, "failed", strPtr(err.Error()))
		return report, err
	}
	if len(rows) > 0 {
		if err := db.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			run.RecordStage("fact", started, report.SalesRead, 0, report.NullAmount, "failed", strPtr(err.Error()))
			return report, err
		}
	}
	report.RowsBuilt = int64(len(rows))

	log.Printf("Fact table built: %d sales read, %d rows, %d null-amount dropped, %d duplicates dropped, %d without cost",
		report.SalesRead, report.RowsBuilt, report.NullAmount, report.Duplicates, report.MissingCost)
	run.RecordStage("fact", started, report.SalesRead, report.RowsBuilt, report.NullAmount+report.Duplicates, "ok", nil)
	return report, nil
}

// costByProduct collapses the purchases table into one unit cost per
// product: the quantity-weighted average across its purchase orders.
// Collapsing before the join keeps the fact table at one row per sale.
func costByProduct(db *gorm.DB) map[string]decimal.Decimal {
	var purchases []models.Purchase
	if err := db.Find(&purchases).Error; err != nil {
		log.Printf("Warning: failed to load purchases, unit costs unavailable: %v", err)
		return map[string]decimal.Decimal{}
	}

	type acc struct {
		total decimal.Decimal
		qty   decimal.Decimal
	}
	byProduct := make(map[string]*acc)
	for _, p := range purchases {
		cost, err := decimal.NewFromString(p.UnitCost)
		if err != nil {
			continue
		}
		qty := decimal.NewFromInt(p.Quantity)
		if qty.LessThanOrEqual(decimal.Zero) {
			qty = decimal.NewFromInt(1)
		}
		a, ok := byProduct[p.ProductID]
		if !ok {
			a = &acc{total: decimal.Zero, qty: decimal.Zero}
			byProduct[p.ProductID] = a
		}
		a.total = a.total.Add(cost.Mul(qty))
		a.qty = a.qty.Add(qty)
	}

	costs := make(map[string]decimal.Decimal, len(byProduct))
	for id, a := range byProduct {
		if a.qty.IsZero() {
			continue
		}
		costs[id] = a.total.Div(a.qty).Round(4)
	}
	return costs
}

// productAttributes indexes the products table by product identifier.
// Duplicate product rows would fan the join out, so only the first row
// per identifier is kept and the cardinality is logged as a join warning.
func productAttributes(db *gorm.DB) (map[string]models.Product, int64) {
	var products []models.Product
	if err := db.Order("id asc").Find(&products).Error; err != nil {
		log.Printf("Warning: failed to load products, attributes unavailable: %v", err)
		return map[string]models.Product{}, 0
	}

	attrs := make(map[string]models.Product, len(products))
	counts := make(map[string]int, len(products))
	var warnings int64
	for _, p := range products {
		counts[p.ProductID]++
		if counts[p.ProductID] == 2 {
			warnings++
		}
		if _, ok := attrs[p.ProductID]; !ok {
			attrs[p.ProductID] = p
		}
	}
	for id, n := range counts {
		if n > 1 {
			log.Printf("Warning: %v", &pipeline.JoinError{Left: "sales", Right: "products", Key: id, Rows: n})
		}
	}
	return attrs, warnings
}

func replaceFactTable(db *gorm.DB) error {
	if db.Migrator().HasTable(&models.FactRow{}) {
		if err := db.Migrator().DropTable(&models.FactRow{}); err != nil {
			return err
		}
	}
	return db.AutoMigrate(&models.FactRow{})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
