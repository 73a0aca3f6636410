package kpi

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vendra-pipeline/internal/database/models"
)

// writeConsolidatedCSV emits every summary row into the single flat file
// the dashboard reads.
func writeConsolidatedCSV(path string, summaries []models.VendorSummary, buckets AgingBuckets) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(summaryHeader(buckets)); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := w.Write(summaryRecord(s, buckets)); err != nil {
			return err
		}
	}
	return w.Error()
}

// writeVendorCSVs emits one file per vendor holding its vendor-level row
// followed by its brand rows.
func writeVendorCSVs(dir string, summaries []models.VendorSummary, buckets AgingBuckets) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create summaries directory: %w", err)
	}

	byVendor := make(map[string][]models.VendorSummary)
	var order []string
	for _, s := range summaries {
		if _, ok := byVendor[s.VendorName]; !ok {
			order = append(order, s.VendorName)
		}
		byVendor[s.VendorName] = append(byVendor[s.VendorName], s)
	}

	for _, vendor := range order {
		path := filepath.Join(dir, vendorFileName(vendor))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}

		w := csv.NewWriter(f)
		w.Write(summaryHeader(buckets))
		for _, s := range byVendor[vendor] {
			w.Write(summaryRecord(s, buckets))
		}
		w.Flush()
		err = w.Error()
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func summaryHeader(buckets AgingBuckets) []string {
	header := []string{
		"vendor_name", "brand", "total_revenue", "total_cost", "gross_margin",
		"margin_pct", "sell_through_pct", "days_on_hand", "sale_rows",
	}
	for _, label := range buckets.Labels() {
		header = append(header, "aging_"+label)
	}
	return header
}

func summaryRecord(s models.VendorSummary, buckets AgingBuckets) []string {
	record := []string{
		s.VendorName,
		s.Brand,
		s.TotalRevenue,
		deref(s.TotalCost),
		deref(s.GrossMargin),
		deref(s.MarginPct),
		deref(s.SellThroughPct),
		deref(s.DaysOnHand),
		strconv.FormatInt(s.SaleRows, 10),
	}

	counts := map[string]int{}
	json.Unmarshal([]byte(s.AgingCounts), &counts)
	for _, label := range buckets.Labels() {
		record = append(record, strconv.Itoa(counts[label]))
	}
	return record
}

// deref renders a nullable metric: null stays an empty cell, never "0".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// vendorFileName maps a vendor name to a safe file name.
func vendorFileName(vendor string) string {
	var b strings.Builder
	for _, r := range vendor {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "unknown_vendor"
	}
	return name + ".csv"
}
