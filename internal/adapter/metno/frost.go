// Package metno fetches land station observations from the frost.met.no
// API. Stations are discovered per weather element and observation
// series are fetched as CSV, one calendar year per request to stay
// under the service's per-request observation cap.
package metno

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/seaseries-api/internal/domain"
)

// DefaultBaseURL is the public Frost endpoint.
const DefaultBaseURL = "https://frost.met.no"

// Client talks to the Frost REST API. ClientID is the registered API
// key, sent as the basic-auth username with an empty password.
type Client struct {
	BaseURL  string
	ClientID string
	HTTP     *http.Client
}

// NewClient creates a client against the public service.
func NewClient(clientID string) *Client {
	return &Client{
		BaseURL:  DefaultBaseURL,
		ClientID: clientID,
		HTTP:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.ClientID, "")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode, string(body))
	}
	return resp, nil
}

type sourcesResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Geometry *struct {
			Coordinates []float64 `json:"coordinates"` // (lon, lat)
		} `json:"geometry"`
	} `json:"data"`
}

type availableResponse struct {
	Data []struct {
		SourceID string `json:"sourceId"`
	} `json:"data"`
}

// ListStations returns the stations that report the given element over
// [start, end]. The sources endpoint yields candidates with positions;
// only those confirmed by the availableTimeSeries endpoint survive,
// since sources alone often lists stations with no actual data. The
// sourceIds there carry a sensor suffix (SN18700:0) and match sources
// on the part before the colon.
func (c *Client) ListStations(ctx context.Context, element string, start, end time.Time) ([]domain.Station, error) {
	q := url.Values{}
	q.Set("validtime", start.UTC().Format("2006-01-02")+"/"+end.UTC().Format("2006-01-02"))
	q.Set("elements", element)
	resp, err := c.get(ctx, "/sources/v0.jsonld", q)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources for %q: %w", element, err)
	}
	var sources sourcesResponse
	err = json.NewDecoder(resp.Body).Decode(&sources)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}

	qa := url.Values{}
	qa.Set("elements", element)
	qa.Set("referencetime", start.UTC().Format("2006-01-02T15:04:05")+"/"+end.UTC().Format("2006-01-02T15:04:05"))
	respA, err := c.get(ctx, "/observations/availableTimeSeries/v0.jsonld", qa)
	if err != nil {
		return nil, fmt.Errorf("failed to list available series for %q: %w", element, err)
	}
	var available availableResponse
	err = json.NewDecoder(respA.Body).Decode(&available)
	_ = respA.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to decode available series: %w", err)
	}

	confirmed := make(map[string]bool, len(available.Data))
	for _, a := range available.Data {
		id, _, _ := strings.Cut(a.SourceID, ":")
		confirmed[id] = true
	}

	var stations []domain.Station
	for _, s := range sources.Data {
		if !confirmed[s.ID] {
			continue
		}
		st := domain.Station{ID: s.ID, Name: s.Name}
		if s.Geometry != nil && len(s.Geometry.Coordinates) == 2 {
			st.Lon = s.Geometry.Coordinates[0]
			st.Lat = s.Geometry.Coordinates[1]
			st.HasPosition = true
		}
		stations = append(stations, st)
	}
	return stations, nil
}

// FetchSeries fetches the element's observations from one station over
// [start, end], one calendar year per request. Value columns are the
// CSV columns whose name contains the element (the service reports
// multiple sensor levels as separate columns); they keep their CSV
// names. Years that fail are skipped, and only a fully empty result is
// an error.
func (c *Client) FetchSeries(ctx context.Context, stationID, element string, start, end time.Time) (domain.Series, error) {
	return domain.FetchChunked(start, end, domain.SplitByYear, func(cs, ce time.Time) (*domain.Series, error) {
		return c.fetchYear(ctx, stationID, element, cs, ce)
	})
}

func (c *Client) fetchYear(ctx context.Context, stationID, element string, start, end time.Time) (*domain.Series, error) {
	q := url.Values{}
	q.Set("referencetime", start.UTC().Format("2006-01-02T15:04:05")+"Z/"+end.UTC().Format("2006-01-02T15:04:05")+"Z")
	q.Set("sources", stationID)
	q.Set("elements", element)
	resp, err := c.get(ctx, "/observations/v0.csv", q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q from %s: %w", element, stationID, err)
	}
	defer resp.Body.Close()

	s, err := parseObservationCSV(resp.Body, element)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", stationID, err)
	}
	return s, nil
}

// parseObservationCSV reads a Frost observation CSV into a series. The
// time column is referenceTime; value columns are those containing the
// element name, case-insensitively.
func parseObservationCSV(r io.Reader, element string) (*domain.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &domain.Series{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	timeCol := -1
	var valueCols []int
	needle := strings.ToLower(element)
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		if strings.EqualFold(trimmed, "referenceTime") {
			timeCol = i
			continue
		}
		if strings.Contains(strings.ToLower(trimmed), needle) {
			valueCols = append(valueCols, i)
		}
	}
	if timeCol < 0 {
		return nil, fmt.Errorf("%w: CSV has no referenceTime column (header %v)", domain.ErrSchemaMismatch, header)
	}
	if len(valueCols) == 0 {
		return nil, fmt.Errorf("%w: CSV has no column matching %q (header %v)", domain.ErrSchemaMismatch, element, header)
	}

	s := &domain.Series{Columns: make([]domain.Column, len(valueCols))}
	for i, ci := range valueCols {
		s.Columns[i] = domain.Column{Name: strings.TrimSpace(header[ci])}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if timeCol >= len(record) {
			continue
		}
		ts, err := parseFrostTime(record[timeCol])
		if err != nil {
			continue
		}
		s.Times = append(s.Times, ts)
		for i, ci := range valueCols {
			v := math.NaN()
			if ci < len(record) {
				if parsed, perr := strconv.ParseFloat(strings.TrimSpace(record[ci]), 64); perr == nil {
					v = parsed
				}
			}
			s.Columns[i].Values = append(s.Columns[i].Values, v)
		}
	}
	return s, nil
}

var frostTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
}

func parseFrostTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range frostTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
