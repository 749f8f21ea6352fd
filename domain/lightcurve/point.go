package lightcurve

import "time"

// Point is a single photometric observation. A detection carries Magnitude
// and MagnitudeError; a non-detection carries Limit instead.
type Point struct {
	ObsTime        time.Time
	Magnitude      *float64
	MagnitudeError *float64
	Limit          *float64
	FilterBand     string
	Telescope      string
	Instrument     string
}

// IsDetection reports whether the point is a measured magnitude rather than
// an upper limit.
func (p Point) IsDetection() bool {
	return p.Magnitude != nil
}

// BinnedPoint is the reduction of one display bin.
type BinnedPoint struct {
	ObsTime        time.Time
	Magnitude      *float64
	MagnitudeError *float64
	Limit          *float64
}

// SeriesKey identifies one plotted trace: all points from a single telescope
// in a single filter band.
type SeriesKey struct {
	Telescope  string
	FilterBand string
}

// GroupBySeries splits points into per-(telescope, filter) series, preserving
// input order within each series.
func GroupBySeries(points []Point) map[SeriesKey][]Point {
	series := make(map[SeriesKey][]Point)
	for _, p := range points {
		key := SeriesKey{Telescope: p.Telescope, FilterBand: p.FilterBand}
		series[key] = append(series[key], p)
	}
	return series
}

// Float64Ptr returns a pointer to v. Convenience for building points.
func Float64Ptr(v float64) *float64 {
	return &v
}
