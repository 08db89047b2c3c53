package domain

import (
	"fmt"
	"math"
	"sort"
)

const earthRadiusKm = 6371.0088

// Station is one candidate observation station: identifier, position,
// and (after ranking) great-circle distance to the reference point.
// Stations without a usable position are excluded from ranking rather
// than scored at infinite distance.
type Station struct {
	ID          string
	Name        string
	Lat         float64
	Lon         float64
	HasPosition bool
	DistanceKm  float64
}

// Haversine returns the great-circle distance in kilometers between two
// (latitude, longitude) pairs given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// NearestStations ranks candidates by great-circle distance from the
// reference point and returns the n closest, ascending, with ties
// broken by input order. Candidates lacking a position are dropped
// before ranking; if fewer than n remain the ranking fails with
// ErrInsufficientCandidates and the caller decides whether to clamp.
func NearestStations(refLat, refLon float64, candidates []Station, n int) ([]Station, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: requested %d stations", ErrInsufficientCandidates, n)
	}

	usable := make([]Station, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasPosition {
			continue
		}
		c.DistanceKm = Haversine(refLat, refLon, c.Lat, c.Lon)
		usable = append(usable, c)
	}
	if len(usable) < n {
		return nil, fmt.Errorf("%w: %d usable of %d candidates, need %d",
			ErrInsufficientCandidates, len(usable), len(candidates), n)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].DistanceKm < usable[j].DistanceKm
	})
	return usable[:n], nil
}
