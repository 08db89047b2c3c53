package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.ngs.io/seaseries-api/internal/domain"
)

const defaultEarthRadiusM = 6378137.0

// stereographic is a spherical polar stereographic forward projection
// built from a grid's proj4 string. Nearest-cell selection only needs
// the reference point and the grid's own coordinates projected with the
// same transform, so the spherical form is sufficient.
type stereographic struct {
	lon0   float64 // central meridian, radians
	k0     float64 // scale factor at lat_ts
	x0, y0 float64 // false easting/northing, meters
	sign   float64 // +1 north polar, -1 south polar
	radius float64
}

// newStereographic parses a proj4 string such as
// "+proj=stere +ellps=WGS84 +lat_0=90 +lon_0=70 +lat_ts=60 +x_0=3192800 +y_0=1784000".
// Only the polar aspect is supported; anything else fails explicitly.
func newStereographic(proj4 string) (*stereographic, error) {
	params := parseProj4(proj4)

	if params["proj"] != "stere" {
		return nil, fmt.Errorf("%w: unsupported projection %q (want stere)", domain.ErrSchemaMismatch, params["proj"])
	}

	lat0 := proj4Float(params, "lat_0", 90)
	if math.Abs(math.Abs(lat0)-90) > 1e-9 {
		return nil, fmt.Errorf("%w: non-polar stereographic (lat_0=%g) not supported", domain.ErrSchemaMismatch, lat0)
	}
	sign := 1.0
	if lat0 < 0 {
		sign = -1.0
	}

	latTS := proj4Float(params, "lat_ts", lat0)
	radius := proj4Float(params, "R", proj4Float(params, "a", defaultEarthRadiusM))

	return &stereographic{
		lon0:   proj4Float(params, "lon_0", 0) * math.Pi / 180,
		k0:     (1 + math.Sin(sign*latTS*math.Pi/180)) / 2,
		x0:     proj4Float(params, "x_0", 0),
		y0:     proj4Float(params, "y_0", 0),
		sign:   sign,
		radius: radius,
	}, nil
}

// Forward projects geographic degrees into plane meters.
func (p *stereographic) Forward(lon, lat float64) (x, y float64) {
	lam := lon*math.Pi/180 - p.lon0
	phi := p.sign * lat * math.Pi / 180

	rho := 2 * p.radius * p.k0 * math.Tan(math.Pi/4-phi/2)
	x = p.x0 + rho*math.Sin(lam)*p.sign
	y = p.y0 - rho*math.Cos(lam)*p.sign
	return x, y
}

// forwardGrid projects 2-D lon/lat coordinate grids into the plane.
func (p *stereographic) forwardGrid(lons, lats [][]float64) (gridX, gridY [][]float64) {
	gridX = make([][]float64, len(lons))
	gridY = make([][]float64, len(lons))
	for i := range lons {
		gridX[i] = make([]float64, len(lons[i]))
		gridY[i] = make([]float64, len(lons[i]))
		for j := range lons[i] {
			gridX[i][j], gridY[i][j] = p.Forward(lons[i][j], lats[i][j])
		}
	}
	return gridX, gridY
}

func parseProj4(s string) map[string]string {
	params := map[string]string{}
	for _, field := range strings.Fields(s) {
		field = strings.TrimPrefix(field, "+")
		if field == "" {
			continue
		}
		key, value, found := strings.Cut(field, "=")
		if !found {
			params[key] = ""
			continue
		}
		params[key] = value
	}
	return params
}

func proj4Float(params map[string]string, key string, def float64) float64 {
	s, ok := params[key]
	if !ok || s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
