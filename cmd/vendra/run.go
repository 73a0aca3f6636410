package main

import (
	"log"

	"github.com/spf13/cobra"

	"vendra-pipeline/internal/database"
	"vendra-pipeline/internal/pipeline"
	"vendra-pipeline/internal/pipeline/fact"
	"vendra-pipeline/internal/pipeline/kpi"
	"vendra-pipeline/internal/pipeline/normalizer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest, build, summarize",
	RunE:  runAll,
}

var runFlags struct {
	dataDir      string
	dbPath       string
	outFile      string
	summariesDir string
}

func init() {
	runCmd.Flags().StringVar(&runFlags.dataDir, "data-dir", cfg.Pipeline.DataDir, "Directory holding the CSV extracts")
	runCmd.Flags().StringVar(&runFlags.dbPath, "db", cfg.Pipeline.DBPath, "Path of the SQLite store")
	runCmd.Flags().StringVar(&runFlags.outFile, "out", cfg.Pipeline.OutFile, "Consolidated summary CSV for the dashboard")
	runCmd.Flags().StringVar(&runFlags.summariesDir, "summaries", cfg.Pipeline.SummariesDir, "Directory for per-vendor summary CSVs")

	rootCmd.AddCommand(runCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	db, err := openStore(runFlags.dbPath)
	if err != nil {
		return err
	}
	defer database.Close(db)

	run := pipeline.NewRun(db)
	log.Printf("Run %s: full rebuild from %s", run.ID, runFlags.dataDir)

	if _, err := normalizer.IngestDir(db, run, runFlags.dataDir); err != nil {
		return err
	}
	if _, err := fact.Build(db, run); err != nil {
		return err
	}
	_, err = kpi.Summarize(db, run, kpi.Options{
		OutFile:      runFlags.outFile,
		SummariesDir: runFlags.summariesDir,
		Buckets:      kpi.NewAgingBuckets(cfg.Pipeline.AgingBuckets),
	})
	if err != nil {
		return err
	}

	log.Printf("Run %s: pipeline complete", run.ID)
	return nil
}
