package main

import (
	"os"

	"github.com/spf13/cobra"

	"vendra-pipeline/config"
	"vendra-pipeline/internal/database"

	"gorm.io/gorm"
)

// cfg supplies flag defaults; explicit flags always win.
var cfg = config.LoadConfig()

var rootCmd = &cobra.Command{
	Use:   "vendra",
	Short: "Vendor performance pipeline: CSV extracts to KPI summaries",
	Long: `vendra ingests vendor sales, purchase, and inventory CSV extracts
into a SQLite store, joins them into an analysis-ready fact table, and
computes per-vendor KPI summaries for the BI dashboard.

Each run is a full rebuild: raw tables are replaced on ingest, and the
fact table and summaries are recomputed from scratch.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(path string) (*gorm.DB, error) {
	db, err := database.NewConnection(path)
	if err != nil {
		return nil, err
	}
	if err := database.MigratePipelineDB(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}
