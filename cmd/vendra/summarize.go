package main

import (
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"vendra-pipeline/internal/database"
	"vendra-pipeline/internal/database/models"
	"vendra-pipeline/internal/pipeline"
	"vendra-pipeline/internal/pipeline/fact"
	"vendra-pipeline/internal/pipeline/kpi"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Aggregate the fact table into vendor KPI summaries",
	RunE:  runSummarize,
}

var summarizeFlags struct {
	dbPath       string
	outFile      string
	summariesDir string
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeFlags.dbPath, "db", cfg.Pipeline.DBPath, "Path of the SQLite store")
	summarizeCmd.Flags().StringVar(&summarizeFlags.outFile, "out", cfg.Pipeline.OutFile, "Consolidated summary CSV for the dashboard")
	summarizeCmd.Flags().StringVar(&summarizeFlags.summariesDir, "summaries", cfg.Pipeline.SummariesDir, "Directory for per-vendor summary CSVs")

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	db, err := openStore(summarizeFlags.dbPath)
	if err != nil {
		return err
	}
	defer database.Close(db)

	run := pipeline.NewRun(db)
	return summarize(db, run, summarizeFlags.dbPath, summarizeFlags.outFile, summarizeFlags.summariesDir)
}

func summarize(db *gorm.DB, run *pipeline.Run, dbPath, outFile, summariesDir string) error {
	// The aggregator reads only the fact table; build it first if a prior
	// stage has not.
	var factRows int64
	if err := db.Model(&models.FactRow{}).Count(&factRows).Error; err != nil || factRows == 0 {
		log.Printf("Run %s: fact table empty, building it first", run.ID)
		if _, err := fact.Build(db, run); err != nil {
			return err
		}
	}

	log.Printf("Run %s: summarizing %s into %s", run.ID, dbPath, outFile)
	_, err := kpi.Summarize(db, run, kpi.Options{
		OutFile:      outFile,
		SummariesDir: summariesDir,
		Buckets:      kpi.NewAgingBuckets(cfg.Pipeline.AgingBuckets),
	})
	return err
}
