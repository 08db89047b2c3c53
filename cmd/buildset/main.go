// Package main provides the dataset assembly CLI: it fetches, aligns,
// and merges every source for one site and writes the dataset as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.ngs.io/seaseries-api/internal/adapter/grid"
	"go.ngs.io/seaseries-api/internal/adapter/insitu"
	"go.ngs.io/seaseries-api/internal/adapter/metno"
	"go.ngs.io/seaseries-api/internal/adapter/sink"
	"go.ngs.io/seaseries-api/internal/config"
	"go.ngs.io/seaseries-api/internal/usecase"
)

const timeLayout = "2006-01-02T15:04"

func main() {
	site := flag.String("site", "", "buoy site id (required)")
	startStr := flag.String("start", "", "start time, "+timeLayout+" UTC (required)")
	endStr := flag.String("end", "", "end time, "+timeLayout+" UTC (required)")
	out := flag.String("out", "", "output CSV path (default dataset_<site>.csv)")
	flag.Parse()

	if *site == "" || *startStr == "" || *endStr == "" {
		flag.Usage()
		os.Exit(2)
	}

	start, err := time.ParseInLocation(timeLayout, *startStr, time.UTC)
	if err != nil {
		log.Fatalf("Invalid start time: %v", err)
	}
	end, err := time.ParseInLocation(timeLayout, *endStr, time.UTC)
	if err != nil {
		log.Fatalf("Invalid end time: %v", err)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("dataset_%s.csv", *site)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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

	siteMeta, dataset, err := assembler.AssembleToFile(context.Background(), usecase.AssembleRequest{
		SiteID: *site,
		Start:  start,
		End:    end,
	}, sink.CSVWriter{}, path)
	if err != nil {
		log.Fatalf("Failed to assemble dataset: %v", err)
	}

	log.Printf("Assembled %d rows x %d columns for site %s (%s)",
		dataset.Grid.Len(), len(dataset.Columns), siteMeta.ID, siteMeta.Name)
}
