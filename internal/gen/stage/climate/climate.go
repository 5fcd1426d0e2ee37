// Package climate derives temperature, moisture and precipitation from
// elevation, latitude, water proximity and a prevailing wind. It draws no
// random numbers.
package climate

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"worldforge.ai/internal/gen/mathx"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/stage/hydrology"
)

const (
	LapseRate      = 0.9
	LatitudeFactor = 0.85
	// ShadowReach is how many upwind cells can cast a rain shadow.
	ShadowReach = 8
	// MoistureFalloff is the distance at which moisture halves.
	MoistureFalloff = 4.0

	basePrecip   = 0.2
	moistPrecip  = 0.6
	liftFactor   = 3.0
	liftCap      = 0.15
	shadowFactor = 2.5
	shadowCap    = 0.75
)

// LatitudeFunc maps a row to a latitude in [-1,1], 0 at the equator.
type LatitudeFunc func(y, height int) float64

// Equatorial puts the equator through the middle row and the poles at the
// top and bottom edges.
func Equatorial(y, height int) float64 {
	return 2*(float64(y)+0.5)/float64(height) - 1
}

type Input struct {
	Elevation *model.Grid[float64]
	Rivers    []hydrology.River
	SeaLevel  float64
	Latitude  LatitudeFunc
	// Wind is the compass direction the prevailing wind blows from.
	Wind    string
	Workers int
}

type Field struct {
	Temperature   *model.Grid[float64]
	Precipitation *model.Grid[float64]
	Moisture      *model.Grid[float64]
}

var windFrom = map[string]model.Point{
	"N":  {X: 0, Y: -1},
	"NE": {X: 1, Y: -1},
	"E":  {X: 1, Y: 0},
	"SE": {X: 1, Y: 1},
	"S":  {X: 0, Y: 1},
	"SW": {X: -1, Y: 1},
	"W":  {X: -1, Y: 0},
	"NW": {X: -1, Y: -1},
}

var ErrNoElevation = errors.New("climate: missing elevation grid")

// Generate computes the three layers. With Workers > 1 rows are split across
// goroutines; every row is written by exactly one of them.
func Generate(in Input) (Field, error) {
	elev := in.Elevation
	if elev == nil || elev.Len() == 0 {
		return Field{}, ErrNoElevation
	}
	up, ok := windFrom[in.Wind]
	if !ok {
		return Field{}, fmt.Errorf("climate: unknown wind %q", in.Wind)
	}
	lat := in.Latitude
	if lat == nil {
		lat = Equatorial
	}

	var water []model.Point
	for i := 0; i < elev.Len(); i++ {
		p := elev.PointOf(i)
		if elev.AtPoint(p) < in.SeaLevel {
			water = append(water, p)
		}
	}
	for _, r := range in.Rivers {
		water = append(water, r.Points...)
	}
	dist := model.DistanceField(elev.W, elev.H, water)

	f := Field{
		Temperature:   model.NewGrid[float64](elev.W, elev.H),
		Precipitation: model.NewGrid[float64](elev.W, elev.H),
		Moisture:      model.NewGrid[float64](elev.W, elev.H),
	}
	row := func(y int) {
		l := lat(y, elev.H)
		if l < 0 {
			l = -l
		}
		temp, precip, moist := f.Temperature.Row(y), f.Precipitation.Row(y), f.Moisture.Row(y)
		for x := 0; x < elev.W; x++ {
			e := elev.At(x, y)
			temp[x] = mathx.Clamp01(1 - float64(LatitudeFactor*l) - float64(LapseRate*max0(e-in.SeaLevel)))
			m := 0.0
			if d := dist.At(x, y); d != model.Unreachable {
				m = 1 / (1 + float64(d)/MoistureFalloff)
			}
			moist[x] = m
			precip[x] = mathx.Clamp01(basePrecip + float64(moistPrecip*m) + lift(elev, x, y, up) - shadow(elev, x, y, up))
		}
	}

	if in.Workers <= 1 {
		for y := 0; y < elev.H; y++ {
			row(y)
		}
		return f, nil
	}
	var g errgroup.Group
	g.SetLimit(in.Workers)
	for y := 0; y < elev.H; y++ {
		g.Go(func() error {
			row(y)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Field{}, err
	}
	return f, nil
}

// lift is the orographic bonus for terrain rising out of the wind.
func lift(elev *model.Grid[float64], x, y int, up model.Point) float64 {
	ux, uy := x+up.X, y+up.Y
	if !elev.InBounds(ux, uy) {
		return 0
	}
	return min(liftCap, float64(liftFactor*max0(elev.At(x, y)-elev.At(ux, uy))))
}

// shadow is the rain-shadow penalty from the highest upwind cell within
// ShadowReach that stands above this one.
func shadow(elev *model.Grid[float64], x, y int, up model.Point) float64 {
	here := elev.At(x, y)
	barrier := 0.0
	for k := 1; k <= ShadowReach; k++ {
		ux, uy := x+k*up.X, y+k*up.Y
		if !elev.InBounds(ux, uy) {
			break
		}
		if b := elev.At(ux, uy) - here; b > barrier {
			barrier = b
		}
	}
	return min(shadowCap, float64(shadowFactor*barrier))
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
