package lightcurve

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultMaxGapDays is the default gap between consecutive points above which
// a new display bin is started.
const DefaultMaxGapDays = 0.1

// Bin collapses points that lie close together in time into single display
// points. Input must be a single (telescope, filter) series sorted by ObsTime
// ascending. A point joins the current bin while its gap to the previous
// point in the bin is at most maxGapDays; otherwise the bin is closed and a
// new one started. Pure function: same input, same output.
func Bin(points []Point, maxGapDays float64) []BinnedPoint {
	if len(points) == 0 {
		return nil
	}
	if maxGapDays <= 0 {
		maxGapDays = DefaultMaxGapDays
	}

	var binned []BinnedPoint
	var current []Point

	for _, p := range points {
		if len(current) == 0 {
			current = append(current, p)
			continue
		}
		gapDays := p.ObsTime.Sub(current[len(current)-1].ObsTime).Seconds() / 86400.0
		if gapDays <= maxGapDays {
			current = append(current, p)
		} else {
			binned = append(binned, reduceBin(current))
			current = []Point{p}
		}
	}
	binned = append(binned, reduceBin(current))

	return binned
}

// BinnedSeries is one plotted trace after display binning.
type BinnedSeries struct {
	Telescope  string
	FilterBand string
	Points     []BinnedPoint
}

// BinBySeries splits mixed photometry into per-(telescope, filter) series
// and bins each one separately, so measurements from different bands or
// instruments are never averaged together. Series are ordered by telescope
// then filter band.
func BinBySeries(points []Point, maxGapDays float64) []BinnedSeries {
	groups := GroupBySeries(points)
	keys := make([]SeriesKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Telescope != keys[j].Telescope {
			return keys[i].Telescope < keys[j].Telescope
		}
		return keys[i].FilterBand < keys[j].FilterBand
	})

	out := make([]BinnedSeries, 0, len(keys))
	for _, k := range keys {
		out = append(out, BinnedSeries{
			Telescope:  k.Telescope,
			FilterBand: k.FilterBand,
			Points:     Bin(groups[k], maxGapDays),
		})
	}
	return out
}

// reduceBin averages a bin of points into one BinnedPoint. Magnitudes and
// limits are arithmetic means of the values present; the magnitude error is
// the quadrature sum of the individual errors, treating the bin as one
// co-added measurement.
func reduceBin(bin []Point) BinnedPoint {
	// Average timestamps as offsets from the first point so nanosecond
	// precision survives
	base := bin[0].ObsTime
	var offsetSum time.Duration

	var mags, limits []float64
	var sumSqErr float64
	hasErr := false

	for _, p := range bin {
		offsetSum += p.ObsTime.Sub(base)
		if p.Magnitude != nil {
			mags = append(mags, *p.Magnitude)
		}
		if p.MagnitudeError != nil {
			sumSqErr += *p.MagnitudeError * *p.MagnitudeError
			hasErr = true
		}
		if p.Limit != nil {
			limits = append(limits, *p.Limit)
		}
	}

	out := BinnedPoint{
		ObsTime: base.Add(offsetSum / time.Duration(len(bin))).UTC(),
	}
	if len(mags) > 0 {
		out.Magnitude = Float64Ptr(stat.Mean(mags, nil))
	}
	if hasErr {
		out.MagnitudeError = Float64Ptr(math.Sqrt(sumSqErr))
	}
	if len(limits) > 0 {
		out.Limit = Float64Ptr(stat.Mean(limits, nil))
	}
	return out
}
