package normalizer

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"vendra-pipeline/internal/database/models"
	"vendra-pipeline/internal/pipeline"
)

const insertBatchSize = 500

// FileReport carries the per-file counters the final run log prints.
type FileReport struct {
	File       string
	Table      string
	RowsRead   int64
	RowsLoaded int64
	RowsFailed int64
}

// IngestDir parses every recognized CSV in dataDir, coerces its rows
// against the expected schema, and replaces the matching table in the
// store. Missing directory aborts the run; a malformed row is logged,
// counted, and skipped; a missing required column aborts that file.
func IngestDir(db *gorm.DB, run *pipeline.Run, dataDir string) ([]FileReport, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, &pipeline.InputError{Path: dataDir, Err: err}
	}

	var reports []FileReport
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		table := strings.ToLower(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		if _, known := requiredColumns[table]; !known {
			log.Printf("Skipping %s: no expected schema for table %q", entry.Name(), table)
			continue
		}

		report, err := IngestFile(db, run, filepath.Join(dataDir, entry.Name()), table)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}

	for _, r := range reports {
		log.Printf("Ingested %s: %d read, %d loaded, %d failed", r.Table, r.RowsRead, r.RowsLoaded, r.RowsFailed)
	}
	return reports, nil
}

// IngestFile replaces one table from one CSV file.
func IngestFile(db *gorm.DB, run *pipeline.Run, path, table string) (FileReport, error) {
	started := time.Now()
	report := FileReport{File: path, Table: table}

	file, err := readCSV(path, table)
	if err != nil {
		run.RecordStage("ingest:"+table, started, 0, 0, 0, "failed", strPtr(err.Error()))
		return report, err
	}
	report.RowsRead = int64(len(file.records)) + file.BadRecords
	report.RowsFailed = file.BadRecords

	var loadErr error
	switch table {
	case "sales":
		loadErr = loadSales(db, file, &report)
	case "purchases":
		loadErr = loadPurchases(db, file, &report)
	case "inventory":
		loadErr = loadInventory(db, file, &report)
	case "products":
		loadErr = loadProducts(db, file, &report)
	}
	if loadErr != nil {
		run.RecordStage("ingest:"+table, started, report.RowsRead, 0, report.RowsFailed, "failed", strPtr(loadErr.Error()))
		return report, loadErr
	}

	run.RecordStage("ingest:"+table, started, report.RowsRead, report.RowsLoaded, report.RowsFailed, "ok", nil)
	return report, nil
}

func loadSales(db *gorm.DB, file *csvFile, report *FileReport) error {
	rows := make([]models.Sale, 0, len(file.records))
	for i, record := range file.records {
		row, err := saleRow(file, record, file.lines[i])
		if err != nil {
			log.Printf("Warning: %v", err)
			report.RowsFailed++
			continue
		}
		rows = append(rows, row)
	}
	if err := replaceTable(db, &models.Sale{}); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := db.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return err
		}
	}
	report.RowsLoaded = int64(len(rows))
	return nil
}

func saleRow(file *csvFile, record []string, line int) (models.Sale, error) {
	date, err := parseDate(file.field(record, "sale_date"))
	if err != nil {
		return models.Sale{}, &pipeline.ParseError{Table: "sales", Line: line, Column: "sale_date", Err: err}
	}
	qty, err := parseQty(file.field(record, "quantity"))
	if err != nil {
		return models.Sale{}, &pipeline.ParseError{Table: "sales", Line: line, Column: "quantity", Err: err}
	}

	// An empty amount is a corrupt-but-loadable row: it survives ingestion
	// and is dropped later by the fact builder.
	var amount *string
	if raw := file.field(record, "sales_amount"); raw != "" {
		normalized, err := parseMoney(raw)
		if err != nil {
			return models.Sale{}, &pipeline.ParseError{Table: "sales", Line: line, Column: "sales_amount", Err: err}
		}
		amount = &normalized
	}

	return models.Sale{
		ProductID:   file.field(record, "product_id"),
		SaleDate:    date,
		Quantity:    qty,
		SalesAmount: amount,
		VendorName:  file.field(record, "vendor_name"),
		Brand:       file.field(record, "brand"),
		Store:       file.field(record, "store"),
	}, nil
}

func loadPurchases(db *gorm.DB, file *csvFile, report *FileReport) error {
	rows := make([]models.Purchase, 0, len(file.records))
	for i, record := range file.records {
		line := file.lines[i]
		date, err := parseDate(file.field(record, "order_date"))
		if err != nil {
			log.Printf("Warning: %v", &pipeline.ParseError{Table: "purchases", Line: line, Column: "order_date", Err: err})
			report.RowsFailed++
			continue
		}
		qty, err := parseQty(file.field(record, "quantity"))
		if err != nil {
			log.Printf("Warning: %v", &pipeline.ParseError{Table: "purchases", Line: line, Column: "quantity", Err: err})
			report.RowsFailed++
			continue
		}
		cost, err := parseMoney(file.field(record, "unit_cost"))
		if err != nil {
			log.Printf("Warning: %v", &pipeline.ParseError{Table: "purchases", Line: line, Column: "unit_cost", Err: err})
			report.RowsFailed++
			continue
		}
		rows = append(rows, models.Purchase{
			ProductID:  file.field(record, "product_id"),
			OrderDate:  date,
			Quantity:   qty,
			UnitCost:   cost,
			VendorName: file.field(record, "vendor_name"),
		})
	}
	if err := replaceTable(db, &models.Purchase{}); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := db.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return err
		}
	}
	report.RowsLoaded = int64(len(rows))
	return nil
}

func loadInventory(db *gorm.DB, file *csvFile, report *FileReport) error {
	rows := make([]models.InventorySnapshot, 0, len(file.records))
	for i, record := range file.records {
		line := file.lines[i]
		opening, err := parseQty(file.field(record, "opening_qty"))
		if err != nil {
			log.Printf("Warning: %v", &pipeline.ParseError{Table: "inventory", Line: line, Column: "opening_qty", Err: err})
			report.RowsFailed++
			continue
		}
		closing, err := parseQty(file.field(record, "closing_qty"))
		if err != nil {
			log.Printf("Warning: %v", &pipeline.ParseError{Table: "inventory", Line: line, Column: "closing_qty", Err: err})
			report.RowsFailed++
			continue
		}
		openingValue, err := parseMoney(file.field(record, "opening_value"))
		if err != nil {
			log.Printf("Warning: %v", &pipeline.ParseError{Table: "inventory", Line: line, Column: "opening_value", Err: err})
			report.RowsFailed++
			continue
		}
		closingValue, err := parseMoney(file.field(record, "closing_value"))
		if err != nil {
			log.Printf("Warning: %v", &pipeline.ParseError{Table: "inventory", Line: line, Column: "closing_value", Err: err})
			report.RowsFailed++
			continue
		}
		rows = append(rows, models.InventorySnapshot{
			ProductID:    file.field(record, "product_id"),
			OpeningQty:   opening,
			ClosingQty:   closing,
			OpeningValue: openingValue,
			ClosingValue: closingValue,
		})
	}
	if err := replaceTable(db, &models.InventorySnapshot{}); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := db.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return err
		}
	}
	report.RowsLoaded = int64(len(rows))
	return nil
}

func loadProducts(db *gorm.DB, file *csvFile, report *FileReport) error {
	rows := make([]models.Product, 0, len(file.records))
	for _, record := range file.records {
		rows = append(rows, models.Product{
			ProductID:   file.field(record, "product_id"),
			SKU:         file.field(record, "sku"),
			ProductName: file.field(record, "product_name"),
			Category:    file.field(record, "category"),
			Brand:       file.field(record, "brand"),
			VendorName:  file.field(record, "vendor_name"),
		})
	}
	if err := replaceTable(db, &models.Product{}); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := db.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return err
		}
	}
	report.RowsLoaded = int64(len(rows))
	return nil
}

// replaceTable drops and recreates one table. Raw tables are fully
// replaced on every ingestion run, never appended to.
func replaceTable(db *gorm.DB, model interface{}) error {
	if db.Migrator().HasTable(model) {
		if err := db.Migrator().DropTable(model); err != nil {
			return err
		}
	}
	return db.AutoMigrate(model)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
