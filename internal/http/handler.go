package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/seaseries-api/internal/domain"
	"go.ngs.io/seaseries-api/internal/usecase"
)

// Handler handles HTTP requests for dataset assembly.
type Handler struct {
	assembler *usecase.Assembler
}

// NewHandler creates a new HTTP handler.
func NewHandler(assembler *usecase.Assembler) *Handler {
	return &Handler{
		assembler: assembler,
	}
}

// SiteResponse is the site metadata in a dataset response.
type SiteResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ColumnResponse is one dataset column. Missing values are null.
type ColumnResponse struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// DatasetResponse is the assembled dataset.
type DatasetResponse struct {
	Site    SiteResponse     `json:"site"`
	Times   []string         `json:"times"`
	Columns []ColumnResponse `json:"columns"`
}

// GetDataset handles GET /v1/datasets.
func (h *Handler) GetDataset(c *gin.Context) {
	siteID := c.Query("site")
	startStr := c.Query("start")
	endStr := c.Query("end")

	if siteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site parameter is required"})
		return
	}
	if startStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start parameter is required"})
		return
	}
	if endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end parameter is required"})
		return
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start time (expected RFC3339): %v", err)})
		return
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid end time (expected RFC3339): %v", err)})
		return
	}

	req := usecase.AssembleRequest{
		SiteID: siteID,
		Start:  start.UTC(),
		End:    end.UTC(),
	}

	site, dataset, err := h.assembler.Execute(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrInvalidRange) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, buildDatasetResponse(site, dataset))
}

// buildDatasetResponse converts the dataset to its JSON form. NaN is
// not representable in JSON, so missing values become null.
func buildDatasetResponse(site usecase.Site, dataset *domain.Dataset) DatasetResponse {
	resp := DatasetResponse{
		Site: SiteResponse{
			ID:   site.ID,
			Name: site.Name,
			Lat:  site.Lat,
			Lon:  site.Lon,
		},
		Times:   make([]string, dataset.Grid.Len()),
		Columns: make([]ColumnResponse, len(dataset.Columns)),
	}
	for i, t := range dataset.Grid.Times {
		resp.Times[i] = t.UTC().Format(time.RFC3339)
	}
	for ci, col := range dataset.Columns {
		values := make([]*float64, len(col.Values))
		for i := range col.Values {
			if !math.IsNaN(col.Values[i]) {
				v := col.Values[i]
				values[i] = &v
			}
		}
		resp.Columns[ci] = ColumnResponse{Name: col.Name, Values: values}
	}
	return resp
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
