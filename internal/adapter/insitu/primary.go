package insitu

import (
	"context"
	"time"

	"go.ngs.io/seaseries-api/internal/domain"
	"go.ngs.io/seaseries-api/internal/usecase"
)

// PrimarySource adapts the buoy client to the assembler.
type PrimarySource struct {
	Client *Client
}

// FetchPrimary fetches the buoy water temperature series.
func (p PrimarySource) FetchPrimary(ctx context.Context, siteID string, start, end time.Time) (usecase.Site, domain.Series, error) {
	site, series, err := p.Client.FetchWaterTemp(ctx, siteID, start, end)
	if err != nil {
		return usecase.Site{}, domain.Series{}, err
	}
	return usecase.Site{
		ID:   site.BuoyID,
		Name: site.Name,
		Lat:  site.Lat,
		Lon:  site.Lon,
	}, series, nil
}
