package lightcurve

import (
	"math"
	"testing"
	"time"
)

// ============================================================================
// TEST: Bin
// ============================================================================

func det(at time.Time, mag, magErr float64) Point {
	return Point{ObsTime: at, Magnitude: Float64Ptr(mag), MagnitudeError: Float64Ptr(magErr)}
}

func nondet(at time.Time, limit float64) Point {
	return Point{ObsTime: at, Limit: Float64Ptr(limit)}
}

func TestBin_Empty(t *testing.T) {
	if got := Bin(nil, DefaultMaxGapDays); got != nil {
		t.Errorf("Expected nil output for empty input, got %v", got)
	}
}

func TestBin_ClosePointsCollapse(t *testing.T) {
	// Three detections 30 minutes apart: all gaps < 0.1 day, one bin
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		det(base, 18.0, 0.1),
		det(base.Add(30*time.Minute), 18.2, 0.2),
		det(base.Add(60*time.Minute), 18.4, 0.2),
	}

	binned := Bin(points, DefaultMaxGapDays)
	if len(binned) != 1 {
		t.Fatalf("Expected 1 bin, got %d", len(binned))
	}

	b := binned[0]
	if b.Magnitude == nil || math.Abs(*b.Magnitude-18.2) > 1e-9 {
		t.Errorf("Expected mean magnitude 18.2, got %v", b.Magnitude)
	}
	// Quadrature: sqrt(0.1^2 + 0.2^2 + 0.2^2) = 0.3
	if b.MagnitudeError == nil || math.Abs(*b.MagnitudeError-0.3) > 1e-9 {
		t.Errorf("Expected quadrature error 0.3, got %v", b.MagnitudeError)
	}
	// Mean timestamp is the middle observation
	if !b.ObsTime.Equal(base.Add(30 * time.Minute)) {
		t.Errorf("Expected mean obs time %v, got %v", base.Add(30*time.Minute), b.ObsTime)
	}
	if b.Limit != nil {
		t.Errorf("Expected no limit for a detections-only bin, got %v", *b.Limit)
	}
}

func TestBin_WidePointsStaySeparate(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		det(base, 18.0, 0.1),
		det(base.Add(5*time.Hour), 18.5, 0.1), // > 0.1 day later
	}

	binned := Bin(points, DefaultMaxGapDays)
	if len(binned) != 2 {
		t.Fatalf("Expected 2 bins, got %d", len(binned))
	}
	if *binned[0].Magnitude != 18.0 || *binned[1].Magnitude != 18.5 {
		t.Error("Expected singleton bins to keep their magnitudes")
	}
}

func TestBin_GapMeasuredFromPreviousPoint(t *testing.T) {
	// Chain of points each 0.09 days apart: total span exceeds maxGapDays but
	// every consecutive gap is under it, so the chain stays one bin.
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	stepDays := 0.09
	step := time.Duration(stepDays * 24 * float64(time.Hour))
	points := []Point{
		det(base, 18.0, 0.1),
		det(base.Add(step), 18.1, 0.1),
		det(base.Add(2*step), 18.2, 0.1),
		det(base.Add(3*step), 18.3, 0.1),
	}

	binned := Bin(points, DefaultMaxGapDays)
	if len(binned) != 1 {
		t.Errorf("Expected chained points to share one bin, got %d bins", len(binned))
	}
}

func TestBin_NonDetectionsOnly(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		nondet(base, 20.5),
		nondet(base.Add(time.Hour), 20.9),
	}

	binned := Bin(points, DefaultMaxGapDays)
	if len(binned) != 1 {
		t.Fatalf("Expected 1 bin, got %d", len(binned))
	}

	b := binned[0]
	if b.Magnitude != nil {
		t.Errorf("Expected nil magnitude for a limits-only bin, got %v", *b.Magnitude)
	}
	if b.MagnitudeError != nil {
		t.Errorf("Expected nil magnitude error for a limits-only bin, got %v", *b.MagnitudeError)
	}
	if b.Limit == nil || math.Abs(*b.Limit-20.7) > 1e-9 {
		t.Errorf("Expected mean limit 20.7, got %v", b.Limit)
	}
}

func TestBin_MixedBin(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		nondet(base, 21.0),
		det(base.Add(10*time.Minute), 19.0, 0.2),
	}

	binned := Bin(points, DefaultMaxGapDays)
	if len(binned) != 1 {
		t.Fatalf("Expected 1 bin, got %d", len(binned))
	}

	b := binned[0]
	if b.Magnitude == nil || *b.Magnitude != 19.0 {
		t.Errorf("Expected magnitude from the single detection, got %v", b.Magnitude)
	}
	if b.Limit == nil || *b.Limit != 21.0 {
		t.Errorf("Expected limit from the single non-detection, got %v", b.Limit)
	}
}

func TestBin_Restartable(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		det(base, 18.0, 0.1),
		det(base.Add(time.Hour), 18.2, 0.1),
		det(base.Add(30*time.Hour), 19.0, 0.1),
	}

	first := Bin(points, DefaultMaxGapDays)
	second := Bin(points, DefaultMaxGapDays)
	if len(first) != len(second) {
		t.Fatalf("Expected identical output across runs: %d vs %d bins", len(first), len(second))
	}
	for i := range first {
		if !first[i].ObsTime.Equal(second[i].ObsTime) || *first[i].Magnitude != *second[i].Magnitude {
			t.Errorf("Bin %d differs between runs", i)
		}
	}
}

// ============================================================================
// TEST: BinBySeries
// ============================================================================

func TestBinBySeries_SplitsByTelescopeAndBand(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	lastG := det(base, 18.0, 0.1)
	lastG.Telescope, lastG.FilterBand = "LAST", "clear"
	ztfR := det(base.Add(time.Minute), 19.0, 0.1)
	ztfR.Telescope, ztfR.FilterBand = "ZTF", "r"
	points := []Point{lastG, ztfR}

	series := BinBySeries(points, DefaultMaxGapDays)
	if len(series) != 2 {
		t.Fatalf("Expected 2 series, got %d", len(series))
	}
	// Ordered by telescope then band.
	if series[0].Telescope != "LAST" || series[1].Telescope != "ZTF" {
		t.Fatalf("Unexpected series order: %q, %q", series[0].Telescope, series[1].Telescope)
	}
	// Close-in-time points from different series must not be averaged.
	if *series[0].Points[0].Magnitude != 18.0 {
		t.Errorf("Expected LAST magnitude 18.0, got %v", *series[0].Points[0].Magnitude)
	}
	if *series[1].Points[0].Magnitude != 19.0 {
		t.Errorf("Expected ZTF magnitude 19.0, got %v", *series[1].Points[0].Magnitude)
	}
}

func TestBinBySeries_BinsWithinEachSeries(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	var points []Point
	for _, offset := range []time.Duration{0, 30 * time.Minute, 72 * time.Hour} {
		p := det(base.Add(offset), 18.0, 0.1)
		p.Telescope, p.FilterBand = "LAST", "clear"
		points = append(points, p)
	}

	series := BinBySeries(points, DefaultMaxGapDays)
	if len(series) != 1 {
		t.Fatalf("Expected 1 series, got %d", len(series))
	}
	if len(series[0].Points) != 2 {
		t.Errorf("Expected 2 bins within the series, got %d", len(series[0].Points))
	}
}

// ============================================================================
// TEST: Summarize
// ============================================================================

func TestSummarize_Milestones(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		nondet(base.Add(-48*time.Hour), 21.0),
		nondet(base.Add(-24*time.Hour), 20.8),
		det(base, 18.5, 0.1),
		det(base.Add(24*time.Hour), 17.9, 0.1), // peak (brightest)
		det(base.Add(48*time.Hour), 18.8, 0.1),
	}

	s := Summarize(points)
	if s.FirstDetection == nil || !s.FirstDetection.ObsTime.Equal(base) {
		t.Error("Wrong first detection")
	}
	if s.PeakDetection == nil || *s.PeakDetection.Magnitude != 17.9 {
		t.Error("Wrong peak detection")
	}
	if s.LastDetection == nil || !s.LastDetection.ObsTime.Equal(base.Add(48*time.Hour)) {
		t.Error("Wrong last detection")
	}
	if s.LastNonDetection == nil || !s.LastNonDetection.ObsTime.Equal(base.Add(-24*time.Hour)) {
		t.Error("Expected the most recent pre-discovery non-detection")
	}
}

func TestSummarize_NoDetections(t *testing.T) {
	points := []Point{
		nondet(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), 21.0),
	}
	s := Summarize(points)
	if s.FirstDetection != nil || s.PeakDetection != nil || s.LastDetection != nil {
		t.Error("Expected an empty summary for a series with no detections")
	}
}
