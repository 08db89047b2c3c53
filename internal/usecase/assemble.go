// Package usecase orchestrates dataset assembly: the canonical hourly
// grid is built first, then each source's series is fetched, aligned,
// and merged in a fixed order.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.ngs.io/seaseries-api/internal/domain"
)

// Site is the observation site the dataset is assembled around. Its
// position anchors both station ranking and grid cell location.
type Site struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// PrimarySource provides the site's own water temperature series plus
// the site metadata.
type PrimarySource interface {
	FetchPrimary(ctx context.Context, siteID string, start, end time.Time) (Site, domain.Series, error)
}

// StationCatalog discovers land stations per weather element and
// fetches their observation series.
type StationCatalog interface {
	ListStations(ctx context.Context, element string, start, end time.Time) ([]domain.Station, error)
	FetchSeries(ctx context.Context, stationID, element string, start, end time.Time) (domain.Series, error)
}

// GriddedSource extracts a single-cell series from the ocean model
// archive at the sea cell nearest to (lon, lat).
type GriddedSource interface {
	Extract(param string, lon, lat float64, depths []float64, start, end time.Time) (domain.Series, error)
}

// Sink persists an assembled dataset.
type Sink interface {
	WriteFile(path string, d *domain.Dataset) error
}

// AuxParam is one auxiliary weather element and how many of the
// nearest stations to fetch it from.
type AuxParam struct {
	Element  string
	Stations int
}

// DefaultAuxParams is the standard auxiliary element table.
func DefaultAuxParams() []AuxParam {
	return []AuxParam{
		{Element: "air_temperature", Stations: 4},
		{Element: "wind_speed", Stations: 3},
		{Element: "cloud_area_fraction", Stations: 3},
		{Element: "mean(solar_irradiance PT1H)", Stations: 1},
		{Element: "sum(duration_of_sunshine PT1H)", Stations: 2},
		{Element: "mean(relative_humidity PT1H)", Stations: 2},
		{Element: "mean(surface_downwelling_shortwave_flux_in_air PT1H)", Stations: 1},
	}
}

// DefaultGridDepths are the ocean model depth levels extracted for the
// gridded water temperature, in meters.
func DefaultGridDepths() []float64 {
	return []float64{0, 3, 10}
}

// DefaultForecastParams is the standard post-processed weather forecast
// parameter set, each extracted at the cell nearest the site.
func DefaultForecastParams() []string {
	return []string{
		"air_temperature_2m",
		"wind_speed_10m",
		"wind_direction_10m",
		"precipitation_amount",
		"cloud_area_fraction",
		"integral_of_surface_downwelling_shortwave_flux_in_air_wrt_time",
	}
}

// GridTempPrefix names the gridded water temperature columns.
const GridTempPrefix = "norkyst_water_temp"

// AssembleRequest describes one dataset to build.
type AssembleRequest struct {
	SiteID string
	Start  time.Time
	End    time.Time

	// Optional overrides; zero values take the defaults.
	AuxParams      []AuxParam
	GridParam      string
	GridDepths     []float64
	ForecastParams []string
}

// Validate checks the request.
func (r *AssembleRequest) Validate() error {
	if r.SiteID == "" {
		return fmt.Errorf("site id must be provided")
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s after end %s",
			domain.ErrInvalidRange, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// Assembler builds datasets from the configured sources. gridded is
// the ocean model archive, forecast the post-processed atmospheric
// forecast archive.
type Assembler struct {
	primary  PrimarySource
	catalog  StationCatalog
	gridded  GriddedSource
	forecast GriddedSource
}

// NewAssembler creates an assembler. catalog, gridded, and forecast may
// be nil, which skips their sources.
func NewAssembler(primary PrimarySource, catalog StationCatalog, gridded, forecast GriddedSource) *Assembler {
	return &Assembler{
		primary:  primary,
		catalog:  catalog,
		gridded:  gridded,
		forecast: forecast,
	}
}

// Execute assembles the dataset: canonical grid, primary series,
// auxiliary station series per element, gridded water temperature,
// post-processed weather forecast. Auxiliary, gridded, and forecast
// failures degrade to absent columns; a primary failure or an
// unresolvable ocean grid cell aborts.
func (a *Assembler) Execute(ctx context.Context, req AssembleRequest) (Site, *domain.Dataset, error) {
	if err := req.Validate(); err != nil {
		return Site{}, nil, fmt.Errorf("invalid request: %w", err)
	}

	grid, err := domain.BuildTimeGrid(req.Start, req.End)
	if err != nil {
		return Site{}, nil, err
	}
	dataset := domain.NewDataset(grid)
	log.Printf("assembling dataset for site %s: %d hourly rows", req.SiteID, grid.Len())

	site, primary, err := a.primary.FetchPrimary(ctx, req.SiteID, req.Start, req.End)
	if err != nil {
		return Site{}, nil, fmt.Errorf("failed to fetch primary series for site %s: %w", req.SiteID, err)
	}
	// The primary series joins without imputation: a missing water
	// temperature stays missing.
	if err := dataset.LeftJoin(primary); err != nil {
		return Site{}, nil, fmt.Errorf("failed to merge primary series: %w", err)
	}
	log.Printf("site %s (%s) at (%.4f, %.4f): %d of %d primary observations",
		site.ID, site.Name, site.Lat, site.Lon,
		countObserved(dataset, primary), grid.Len())

	auxParams := req.AuxParams
	if auxParams == nil {
		auxParams = DefaultAuxParams()
	}
	if a.catalog != nil {
		for _, p := range auxParams {
			a.mergeAuxElement(ctx, dataset, site, p, req.Start, req.End)
		}
	}

	if a.gridded != nil {
		if err := a.mergeGridded(dataset, site, req); err != nil {
			return Site{}, nil, err
		}
	}

	if a.forecast != nil {
		params := req.ForecastParams
		if params == nil {
			params = DefaultForecastParams()
		}
		for _, p := range params {
			a.mergeForecastParam(dataset, site, p, req.Start, req.End)
		}
	}

	return site, dataset, nil
}

// mergeForecastParam extracts and merges one post-processed forecast
// parameter. The forecast is an auxiliary source, so every failure
// degrades to an absent column.
func (a *Assembler) mergeForecastParam(dataset *domain.Dataset, site Site, param string, start, end time.Time) {
	series, err := a.forecast.Extract(param, site.Lon, site.Lat, nil, start, end)
	if err != nil {
		log.Printf("skipping forecast %q: %v", param, err)
		return
	}
	if err := domain.MergeSeries(dataset, series, param); err != nil {
		log.Printf("skipping forecast %q: merge failed: %v", param, err)
	}
}

// mergeAuxElement ranks the stations reporting one element and merges
// each ranked station's series. Failures degrade.
func (a *Assembler) mergeAuxElement(ctx context.Context, dataset *domain.Dataset, site Site, p AuxParam, start, end time.Time) {
	stations, err := a.catalog.ListStations(ctx, p.Element, start, end)
	if err != nil {
		log.Printf("skipping element %q: station listing failed: %v", p.Element, err)
		return
	}

	// The ranker refuses short candidate lists; the assembler clamps
	// instead so a thin station network degrades rather than aborts.
	usable := 0
	for _, s := range stations {
		if s.HasPosition {
			usable++
		}
	}
	n := p.Stations
	if usable < n {
		log.Printf("element %q: only %d of %d requested stations usable", p.Element, usable, n)
		n = usable
	}
	if n == 0 {
		return
	}

	ranked, err := domain.NearestStations(site.Lat, site.Lon, stations, n)
	if err != nil {
		log.Printf("skipping element %q: ranking failed: %v", p.Element, err)
		return
	}

	for _, st := range ranked {
		series, err := a.catalog.FetchSeries(ctx, st.ID, p.Element, start, end)
		if err != nil {
			log.Printf("skipping station %s for %q: %v", st.ID, p.Element, err)
			continue
		}
		if err := domain.MergeSeries(dataset, series, st.ID+p.Element); err != nil {
			log.Printf("skipping station %s for %q: merge failed: %v", st.ID, p.Element, err)
			continue
		}
		log.Printf("merged %q from station %s (%.1f km)", p.Element, st.ID, st.DistanceKm)
	}
}

// mergeGridded extracts and merges the ocean model temperature. An
// unresolvable grid cell aborts; read failures degrade.
func (a *Assembler) mergeGridded(dataset *domain.Dataset, site Site, req AssembleRequest) error {
	param := req.GridParam
	if param == "" {
		param = "temperature"
	}
	depths := req.GridDepths
	if depths == nil {
		depths = DefaultGridDepths()
	}

	series, err := a.gridded.Extract(param, site.Lon, site.Lat, depths, req.Start, req.End)
	if err != nil {
		if errors.Is(err, domain.ErrNoSeaCell) || errors.Is(err, domain.ErrSchemaMismatch) {
			return fmt.Errorf("failed to resolve grid cell for site %s: %w", site.ID, err)
		}
		log.Printf("skipping gridded %q: %v", param, err)
		return nil
	}
	if err := domain.MergeSeries(dataset, series, GridTempPrefix); err != nil {
		log.Printf("skipping gridded %q: merge failed: %v", param, err)
	}
	return nil
}

// AssembleToFile assembles and writes the dataset through the sink.
func (a *Assembler) AssembleToFile(ctx context.Context, req AssembleRequest, sink Sink, path string) (Site, *domain.Dataset, error) {
	site, dataset, err := a.Execute(ctx, req)
	if err != nil {
		return Site{}, nil, err
	}
	if err := sink.WriteFile(path, dataset); err != nil {
		return Site{}, nil, fmt.Errorf("failed to write dataset: %w", err)
	}
	log.Printf("dataset for site %s written to %s", site.ID, path)
	return site, dataset, nil
}

// countObserved counts non-missing values in the dataset for the
// primary series' first column.
func countObserved(d *domain.Dataset, primary domain.Series) int {
	if len(primary.Columns) == 0 {
		return 0
	}
	return d.CountObserved(primary.Columns[0].Name)
}
