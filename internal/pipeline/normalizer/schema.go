package normalizer

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strings"

	"vendra-pipeline/internal/pipeline"
)

// Expected source files and the columns each must carry. File names map
// directly to table names: sales.csv feeds the sales table, and so on.
var requiredColumns = map[string][]string{
	"sales":     {"product_id", "sale_date", "quantity", "sales_amount", "vendor_name", "brand", "store"},
	"purchases": {"product_id", "order_date", "quantity", "unit_cost", "vendor_name"},
	"inventory": {"product_id", "opening_qty", "closing_qty", "opening_value", "closing_value"},
	"products":  {"product_id", "sku", "product_name", "category", "brand", "vendor_name"},
}

// csvFile is one parsed source file: a header index plus raw data records.
// Records that the csv reader itself rejected (ragged quoting and the like)
// are counted in BadRecords rather than surfacing as a file-level failure.
type csvFile struct {
	cols       map[string]int
	records    [][]string
	lines      []int
	BadRecords int64
}

func readCSV(path, table string) (*csvFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &pipeline.InputError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, &pipeline.InputError{Path: path, Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		cols[name] = i
	}

	for _, col := range requiredColumns[table] {
		if _, ok := cols[col]; !ok {
			return nil, &pipeline.SchemaError{Table: table, Column: col}
		}
	}

	file := &csvFile{cols: cols}
	line := 1
	for {
		line++
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: %s line %d: unreadable record: %v", path, line, err)
			file.BadRecords++
			continue
		}
		file.records = append(file.records, record)
		file.lines = append(file.lines, line)
	}

	return file, nil
}

func (f *csvFile) field(record []string, col string) string {
	idx, ok := f.cols[col]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
