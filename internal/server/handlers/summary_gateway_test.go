package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vendra-pipeline/internal/database"
	"vendra-pipeline/internal/database/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := database.MigratePipelineDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	handler := NewSummaryHTTPHandler(db, nil, time.Minute)
	r := gin.New()
	r.GET("/api/v1/health", handler.Health)
	r.GET("/api/v1/summaries", handler.ListSummaries)
	r.GET("/api/v1/summaries/:vendor", handler.GetVendorSummary)
	r.GET("/api/v1/runs", handler.ListRuns)
	return r, db
}

func doGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestListSummariesReturnsVendorRows(t *testing.T) {
	r, db := newTestRouter(t)
	db.Create(&[]models.VendorSummary{
		{VendorName: "VendorA", TotalRevenue: "100.00", AgingCounts: "{}"},
		{VendorName: "VendorA", Brand: "BrandX", TotalRevenue: "100.00", AgingCounts: "{}"},
		{VendorName: "VendorB", TotalRevenue: "50.00", AgingCounts: "{}"},
	})

	w := doGet(t, r, "/api/v1/summaries")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Success bool                   `json:"success"`
		Data    []models.VendorSummary `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Data) != 2 {
		t.Fatalf("expected 2 vendor-level rows, got %+v", resp)
	}
}

func TestGetVendorSummaryIncludesBrands(t *testing.T) {
	r, db := newTestRouter(t)
	db.Create(&[]models.VendorSummary{
		{VendorName: "VendorA", TotalRevenue: "100.00", AgingCounts: "{}"},
		{VendorName: "VendorA", Brand: "BrandX", TotalRevenue: "100.00", AgingCounts: "{}"},
	})

	w := doGet(t, r, "/api/v1/summaries/VendorA")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data []models.VendorSummary `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("expected vendor and brand rows, got %d", len(resp.Data))
	}
}

func TestGetVendorSummaryUnknownVendor404(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doGet(t, r, "/api/v1/summaries/Nobody")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListRunsReturnsLedger(t *testing.T) {
	r, db := newTestRouter(t)
	db.Create(&models.PipelineRun{RunID: "run-1", Stage: "ingest:sales", Status: "ok", StartedAt: time.Now(), FinishedAt: time.Now()})

	w := doGet(t, r, "/api/v1/runs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data []models.PipelineRun `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Stage != "ingest:sales" {
		t.Fatalf("unexpected runs: %+v", resp.Data)
	}
}

func TestHealthOK(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doGet(t, r, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
