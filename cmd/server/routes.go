package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"vendra-pipeline/config"
	"vendra-pipeline/internal/database"
	"vendra-pipeline/internal/server/handlers"
	"vendra-pipeline/internal/server/middleware"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.Pipeline.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer database.Close(db)

	if err := database.MigratePipelineDB(db); err != nil {
		log.Fatalf("Failed to migrate store: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit("60-M"))

	summaryHandler := handlers.NewSummaryHTTPHandler(db, redisClient, time.Duration(cfg.Server.CacheTTL)*time.Second)

	api := r.Group("/api/v1")
	{
		api.GET("/health", summaryHandler.Health)

		summaries := api.Group("/summaries")
		{
			summaries.GET("", summaryHandler.ListSummaries)
			summaries.GET("/:vendor", summaryHandler.GetVendorSummary)
		}

		api.GET("/runs", summaryHandler.ListRuns)
	}

	log.Printf(" 📊 summary feed listening on %s", cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
}
