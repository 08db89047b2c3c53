package http

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/seaseries-api/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(assembler *usecase.Assembler, allowedOrigins string) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware. Allow all origins unless configured.
	corsConfig := cors.DefaultConfig()
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(assembler)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/datasets", handler.GetDataset)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
