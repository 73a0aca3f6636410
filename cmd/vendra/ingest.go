package main

import (
	"log"

	"github.com/spf13/cobra"

	"vendra-pipeline/internal/database"
	"vendra-pipeline/internal/pipeline"
	"vendra-pipeline/internal/pipeline/normalizer"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse CSV extracts and replace the raw tables",
	RunE:  runIngest,
}

var ingestFlags struct {
	dataDir string
	dbPath  string
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFlags.dataDir, "data-dir", cfg.Pipeline.DataDir, "Directory holding the CSV extracts")
	ingestCmd.Flags().StringVar(&ingestFlags.dbPath, "db", cfg.Pipeline.DBPath, "Path of the SQLite store")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	db, err := openStore(ingestFlags.dbPath)
	if err != nil {
		return err
	}
	defer database.Close(db)

	run := pipeline.NewRun(db)
	log.Printf("Run %s: ingesting %s into %s", run.ID, ingestFlags.dataDir, ingestFlags.dbPath)

	reports, err := normalizer.IngestDir(db, run, ingestFlags.dataDir)
	if err != nil {
		return err
	}

	var read, loaded, failed int64
	for _, r := range reports {
		read += r.RowsRead
		loaded += r.RowsLoaded
		failed += r.RowsFailed
	}
	log.Printf("Run %s: ingestion complete, %d rows read, %d loaded, %d failed", run.ID, read, loaded, failed)
	return nil
}
