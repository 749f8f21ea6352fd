package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erezimm/cast/domain/lightcurve"
)

// PhotometryPoint is a single stored measurement of a candidate. A point with
// a magnitude is a detection; a point with only a limit is a non-detection.
type PhotometryPoint struct {
	ID             uuid.UUID `db:"id" json:"id"`
	CandidateID    uuid.UUID `db:"candidate_id" json:"candidate_id"`
	ObsTime        time.Time `db:"obs_time" json:"obs_time"`
	Magnitude      *float64  `db:"magnitude" json:"magnitude,omitempty"`
	MagnitudeError *float64  `db:"magnitude_error" json:"magnitude_error,omitempty"`
	Limit          *float64  `db:"mag_limit" json:"limit,omitempty"`
	FilterBand     string    `db:"filter_band" json:"filter_band"`
	Telescope      string    `db:"telescope" json:"telescope"`
	Instrument     string    `db:"instrument" json:"instrument"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// IsDetection reports whether the point carries a measured magnitude.
func (p PhotometryPoint) IsDetection() bool {
	return p.Magnitude != nil
}

// ToLightcurve converts the stored row into a lightcurve point for binning
// and milestone computation.
func (p PhotometryPoint) ToLightcurve() lightcurve.Point {
	return lightcurve.Point{
		ObsTime:        p.ObsTime,
		Magnitude:      p.Magnitude,
		MagnitudeError: p.MagnitudeError,
		Limit:          p.Limit,
		FilterBand:     p.FilterBand,
		Telescope:      p.Telescope,
		Instrument:     p.Instrument,
	}
}

// ToLightcurvePoints converts a slice of stored rows.
func ToLightcurvePoints(rows []PhotometryPoint) []lightcurve.Point {
	pts := make([]lightcurve.Point, len(rows))
	for i, r := range rows {
		pts[i] = r.ToLightcurve()
	}
	return pts
}
