package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/erezimm/cast/domain/astro"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
)

// LightcurveWriter exports a candidate's photometry as a spreadsheet, one
// row per point with detections and limits in separate columns.
type LightcurveWriter struct{}

// NewLightcurveWriter creates a lightcurve spreadsheet writer
func NewLightcurveWriter() *LightcurveWriter {
	return &LightcurveWriter{}
}

const sheetName = "Photometry"

var headerRow = []interface{}{
	"obs_time_utc", "jd", "magnitude", "magnitude_error", "limit",
	"filter_band", "telescope", "instrument",
}

// Write renders the candidate's points into an xlsx document on w
func (lw *LightcurveWriter) Write(w io.Writer, candidate *models.Candidate, points []models.PhotometryPoint) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return apperrors.Wrap(err, "failed to create photometry sheet")
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return apperrors.Wrap(err, "failed to drop default sheet")
	}

	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return apperrors.Wrap(err, "failed to write header")
	}

	for i, p := range points {
		row := []interface{}{
			p.ObsTime.UTC().Format("2006-01-02 15:04:05.000"),
			astroJD(p),
			cellValue(p.Magnitude),
			cellValue(p.MagnitudeError),
			cellValue(p.Limit),
			p.FilterBand,
			p.Telescope,
			p.Instrument,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return apperrors.Wrap(err, "failed to write photometry row")
		}
	}

	title := candidate.Name
	if candidate.ExternalName != nil {
		title = fmt.Sprintf("%s (%s)", candidate.Name, *candidate.ExternalName)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: title}); err != nil {
		return apperrors.Wrap(err, "failed to set document title")
	}

	if err := f.Write(w); err != nil {
		return apperrors.Wrap(err, "failed to serialize spreadsheet")
	}
	return nil
}

func astroJD(p models.PhotometryPoint) float64 {
	return astro.JD(p.ObsTime)
}

func cellValue(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
