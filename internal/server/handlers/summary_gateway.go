package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"vendra-pipeline/internal/database/models"
)

const (
	SUMMARIES_CACHE_KEY    = "summaries:consolidated"
	VENDOR_CACHE_PREFIX    = "summaries:vendor:"
	DEFAULT_SUMMARY_TTL    = 5 * time.Minute
	RECENT_RUNS_PAGE_LIMIT = 50
)

// SummaryHTTPHandler serves the pipeline's derived tables to the BI
// dashboard. Read-only; every write path belongs to the pipeline CLI.
type SummaryHTTPHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewSummaryHTTPHandler(db *gorm.DB, redisClient *redis.Client, cacheTTL time.Duration) *SummaryHTTPHandler {
	if cacheTTL <= 0 {
		cacheTTL = DEFAULT_SUMMARY_TTL
	}
	return &SummaryHTTPHandler{
		db:       db,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

// Helper functions
func (s *SummaryHTTPHandler) success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func (s *SummaryHTTPHandler) error(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

func (s *SummaryHTTPHandler) cached(ctx context.Context, key string) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (s *SummaryHTTPHandler) cache(ctx context.Context, key string, data interface{}) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	_ = s.redis.Set(ctx, key, raw, s.cacheTTL)
}

// ListSummaries returns the consolidated vendor summary table.
func (s *SummaryHTTPHandler) ListSummaries(c *gin.Context) {
	ctx := c.Request.Context()

	if raw, ok := s.cached(ctx, SUMMARIES_CACHE_KEY); ok {
		c.Data(http.StatusOK, "application/json", raw)
		return
	}

	var summaries []models.VendorSummary
	query := s.db.Order("vendor_name asc, brand asc")
	if vendor := c.Query("vendor"); vendor != "" {
		query = query.Where("vendor_name = ?", vendor)
	}
	if c.Query("brands") != "true" {
		query = query.Where("brand = ?", "")
	}
	if err := query.Find(&summaries).Error; err != nil {
		s.error(c, http.StatusInternalServerError, "Failed to load summaries: "+err.Error())
		return
	}

	payload := gin.H{"success": true, "data": summaries}
	if c.Query("vendor") == "" && c.Query("brands") != "true" {
		s.cache(ctx, SUMMARIES_CACHE_KEY, payload)
	}
	c.JSON(http.StatusOK, payload)
}

// GetVendorSummary returns one vendor's rows, brand rollups included.
func (s *SummaryHTTPHandler) GetVendorSummary(c *gin.Context) {
	vendor := c.Param("vendor")
	ctx := c.Request.Context()
	cacheKey := VENDOR_CACHE_PREFIX + vendor

	if raw, ok := s.cached(ctx, cacheKey); ok {
		c.Data(http.StatusOK, "application/json", raw)
		return
	}

	var summaries []models.VendorSummary
	if err := s.db.Where("vendor_name = ?", vendor).Order("brand asc").Find(&summaries).Error; err != nil {
		s.error(c, http.StatusInternalServerError, "Failed to load vendor summary: "+err.Error())
		return
	}
	if len(summaries) == 0 {
		s.error(c, http.StatusNotFound, "No summary for vendor "+vendor)
		return
	}

	payload := gin.H{"success": true, "data": summaries}
	s.cache(ctx, cacheKey, payload)
	c.JSON(http.StatusOK, payload)
}

// ListRuns returns the most recent run-ledger entries.
func (s *SummaryHTTPHandler) ListRuns(c *gin.Context) {
	var runs []models.PipelineRun
	query := s.db.Order("started_at desc").Limit(RECENT_RUNS_PAGE_LIMIT)
	if runID := c.Query("run_id"); runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if err := query.Find(&runs).Error; err != nil {
		s.error(c, http.StatusInternalServerError, "Failed to load runs: "+err.Error())
		return
	}
	s.success(c, runs)
}

// Health reports whether the store behind the feed is reachable.
func (s *SummaryHTTPHandler) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		s.error(c, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	s.success(c, gin.H{"status": "ok"})
}
