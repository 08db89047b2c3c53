// Package main provides the dataset assembly HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"go.ngs.io/seaseries-api/internal/adapter/grid"
	"go.ngs.io/seaseries-api/internal/adapter/insitu"
	"go.ngs.io/seaseries-api/internal/adapter/metno"
	"go.ngs.io/seaseries-api/internal/config"
	httpHandler "go.ngs.io/seaseries-api/internal/http"
	"go.ngs.io/seaseries-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		fmt.Printf("seaseries-api version %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting dataset assembly server...")
	log.Printf("Port: %d", cfg.Server.Port)
	log.Printf("Buoy service: %s", cfg.Insitu.BaseURL)
	log.Printf("Station service: %s", cfg.Frost.BaseURL)
	log.Printf("Ocean model archive: %s", cfg.NorKyst.FileTemplate)
	log.Printf("Forecast archive: %s", cfg.Forecast.FileTemplate)

	gin.SetMode(cfg.Server.GinMode)

	buoyClient := insitu.NewClient()
	buoyClient.BaseURL = cfg.Insitu.BaseURL

	var catalog usecase.StationCatalog
	if cfg.Frost.ClientID != "" {
		frostClient := metno.NewClient(cfg.Frost.ClientID)
		frostClient.BaseURL = cfg.Frost.BaseURL
		catalog = frostClient
	} else {
		log.Printf("No station service client id configured, auxiliary series disabled")
	}

	assembler := usecase.NewAssembler(
		insitu.PrimarySource{Client: buoyClient},
		catalog,
		grid.ArchiveSource{Archive: grid.Archive{Template: cfg.NorKyst.FileTemplate}},
		grid.ArchiveSource{Archive: grid.Archive{Template: cfg.Forecast.FileTemplate}},
	)

	router := httpHandler.SetupRouter(assembler, cfg.Server.AllowedOrigins)

	addr := cfg.ServerAddr()
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost%s/health", addr)
	log.Printf("API endpoints:")
	log.Printf("  - GET /v1/datasets")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Dataset Assembly Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  seaseries-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  SEASERIES_SERVER_PORT            Server port (default: 8080)")
	fmt.Println("  SEASERIES_SERVER_ALLOWEDORIGINS  Comma-separated CORS origins (default: all)")
	fmt.Println("  SEASERIES_INSITU_BASEURL         Buoy observation service base URL")
	fmt.Println("  SEASERIES_FROST_BASEURL          Land station service base URL")
	fmt.Println("  SEASERIES_FROST_CLIENTID         Land station service client id")
	fmt.Println("  SEASERIES_NORKYST_FILETEMPLATE   Daily ocean archive file URL with {date} placeholder")
	fmt.Println("  SEASERIES_FORECAST_FILETEMPLATE  Daily forecast archive file URL with {date} placeholder")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health        Health check")
	fmt.Println("  GET /v1/datasets   Assemble a dataset (site, start, end)")
	fmt.Println()
}
