package main

import (
	"log"

	"github.com/spf13/cobra"

	"vendra-pipeline/internal/database"
	"vendra-pipeline/internal/pipeline"
	"vendra-pipeline/internal/pipeline/fact"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Join sales, purchases, and products into the fact table",
	RunE:  runBuild,
}

var buildFlags struct {
	dbPath string
}

func init() {
	buildCmd.Flags().StringVar(&buildFlags.dbPath, "db", cfg.Pipeline.DBPath, "Path of the SQLite store")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	db, err := openStore(buildFlags.dbPath)
	if err != nil {
		return err
	}
	defer database.Close(db)

	run := pipeline.NewRun(db)
	log.Printf("Run %s: building fact table in %s", run.ID, buildFlags.dbPath)

	_, err = fact.Build(db, run)
	return err
}
