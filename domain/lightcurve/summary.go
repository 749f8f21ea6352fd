package lightcurve

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// Summary condenses a photometric series into the milestones a discovery
// report is built from.
type Summary struct {
	FirstDetection   *Point
	PeakDetection    *Point
	LastDetection    *Point
	LastNonDetection *Point // latest non-detection preceding the first detection
}

// Summarize scans a series sorted by ObsTime ascending and extracts the
// first, brightest and last detections plus the most recent pre-discovery
// non-detection. Returns a zero Summary when the series holds no detections.
func Summarize(points []Point) Summary {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObsTime.Before(sorted[j].ObsTime)
	})

	var detections []Point
	for _, p := range sorted {
		if p.IsDetection() {
			detections = append(detections, p)
		}
	}
	if len(detections) == 0 {
		return Summary{}
	}

	s := Summary{
		FirstDetection: &detections[0],
		LastDetection:  &detections[len(detections)-1],
	}

	// Brighter means numerically smaller magnitude
	mags := make([]float64, len(detections))
	for i, d := range detections {
		mags[i] = *d.Magnitude
	}
	if peakMag, err := stats.Min(mags); err == nil {
		for i := range detections {
			if *detections[i].Magnitude == peakMag {
				s.PeakDetection = &detections[i]
				break
			}
		}
	}

	for i := range sorted {
		p := sorted[i]
		if p.IsDetection() {
			break
		}
		if p.Limit != nil {
			s.LastNonDetection = &sorted[i]
		}
	}

	return s
}
