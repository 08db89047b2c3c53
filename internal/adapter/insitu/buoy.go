// Package insitu fetches water temperature observations from the
// Havvarsel Frost bathing-water service. Each buoy exposes one
// temperature series plus its site metadata.
package insitu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/seaseries-api/internal/domain"
)

// DefaultBaseURL is the public Havvarsel Frost endpoint.
const DefaultBaseURL = "https://havvarsel-frost.met.no"

// WaterTempColumn is the column name carried by buoy series.
const WaterTempColumn = "water_temp"

// Site is the buoy location from the response header.
type Site struct {
	BuoyID string
	Name   string
	Lat    float64
	Lon    float64
}

// Client talks to the obs/badevann API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client against the public service.
func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// flexNumber decodes a numeric field that the upstream serves either as
// a JSON number or as a quoted string.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric value %s: %w", string(b), err)
	}
	*f = flexNumber(v)
	return nil
}

type observation struct {
	Time time.Time `json:"time"`
	Body struct {
		Value flexNumber `json:"value"`
	} `json:"body"`
}

type badevannResponse struct {
	Data struct {
		Tseries []struct {
			Header struct {
				ID struct {
					BuoyID    string `json:"buoyid"`
					Parameter string `json:"parameter"`
				} `json:"id"`
				Extra struct {
					Name string `json:"name"`
					Pos  struct {
						Lat flexNumber `json:"lat"`
						Lon flexNumber `json:"lon"`
					} `json:"pos"`
				} `json:"extra"`
			} `json:"header"`
			Observations []observation `json:"observations"`
		} `json:"tseries"`
	} `json:"data"`
}

// FetchWaterTemp fetches the buoy's temperature observations over
// [start, end] and returns the site metadata plus an hourly series.
// Observation times are floored to the hour (some reports arrive a
// minute late); the first observation within each hour wins.
func (c *Client) FetchWaterTemp(ctx context.Context, buoyID string, start, end time.Time) (Site, domain.Series, error) {
	if start.After(end) {
		return Site{}, domain.Series{}, fmt.Errorf("%w: start %s after end %s",
			domain.ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	q := url.Values{}
	q.Set("time", start.UTC().Format("2006-01-02T15:04:05")+"Z/"+end.UTC().Format("2006-01-02T15:04:05")+"Z")
	q.Set("incobs", "true")
	q.Set("buoyids", buoyID)
	q.Set("parameter", "temperature")
	endpoint := c.BaseURL + "/api/v1/obs/badevann/get?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return Site{}, domain.Series{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Site{}, domain.Series{}, fmt.Errorf("failed to fetch buoy %s: %w", buoyID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Site{}, domain.Series{}, fmt.Errorf("buoy %s: HTTP %d: %s", buoyID, resp.StatusCode, string(body))
	}

	var parsed badevannResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Site{}, domain.Series{}, fmt.Errorf("failed to decode buoy response: %w", err)
	}
	if len(parsed.Data.Tseries) == 0 {
		return Site{}, domain.Series{}, fmt.Errorf("%w: no series for buoy %s", domain.ErrEmptyResult, buoyID)
	}

	// The response carries exactly one series per buoy.
	ts := parsed.Data.Tseries[0]
	site := Site{
		BuoyID: ts.Header.ID.BuoyID,
		Name:   ts.Header.Extra.Name,
		Lat:    float64(ts.Header.Extra.Pos.Lat),
		Lon:    float64(ts.Header.Extra.Pos.Lon),
	}

	series := hourlyFirst(ts.Observations)
	if series.Len() == 0 {
		return site, domain.Series{}, fmt.Errorf("%w: buoy %s has no observations in %s/%s",
			domain.ErrEmptyResult, buoyID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return site, series, nil
}

// hourlyFirst floors observation times to the hour and keeps the first
// value per hour, in chronological order.
func hourlyFirst(obs []observation) domain.Series {
	type sample struct {
		t time.Time
		v float64
	}
	firstByHour := make(map[int64]sample, len(obs))
	for _, o := range obs {
		v := float64(o.Body.Value)
		hour := o.Time.UTC().Truncate(time.Hour)
		k := hour.Unix()
		prev, ok := firstByHour[k]
		if !ok || o.Time.Before(prev.t) {
			firstByHour[k] = sample{t: o.Time.UTC(), v: v}
		}
	}

	keys := make([]int64, 0, len(firstByHour))
	for k := range firstByHour {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	s := domain.Series{
		Times:   make([]time.Time, 0, len(keys)),
		Columns: []domain.Column{{Name: WaterTempColumn, Values: make([]float64, 0, len(keys))}},
	}
	for _, k := range keys {
		s.Times = append(s.Times, time.Unix(k, 0).UTC())
		s.Columns[0].Values = append(s.Columns[0].Values, firstByHour[k].v)
	}
	return s
}
