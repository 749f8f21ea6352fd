package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/erezimm/cast/internal/errors"
)

// AlertPayload is the decoded form of one incoming alert file. The wire
// format wraps most scalars in value objects and lists, so the schema below
// mirrors that shape; Validate normalizes it into the fields ingestion
// actually needs.
type AlertPayload struct {
	ATReport  ATReport   `json:"at_report"`
	ObsReport *ObsReport `json:"last_report,omitempty"`

	// SourceFile is the basename of the file the payload was read from.
	// It is set by the reader, not carried on the wire.
	SourceFile string `json:"-"`
}

// ATReport carries the discovery metadata of an alert.
type ATReport struct {
	RA                ValueField         `json:"RA"`
	Dec               ValueField         `json:"Dec"`
	DiscoveryDatetime []string           `json:"discovery_datetime"`
	Reporter          string             `json:"reporter,omitempty"`
	NonDetection      *NonDetectionBlock `json:"non_detection,omitempty"`
	Photometry        *PhotometryBlock   `json:"photometry,omitempty"`
}

// ValueField unwraps the {"value": x} envelope used for coordinates.
type ValueField struct {
	Value *float64 `json:"value"`
}

// NonDetectionBlock is the last non-detection preceding discovery.
type NonDetectionBlock struct {
	ObsDate    []string `json:"obsdate"`
	Flux       *float64 `json:"flux"`
	FilterName string   `json:"filter_name,omitempty"`
}

// PhotometryBlock wraps the discovery detection.
type PhotometryBlock struct {
	Group *PhotometryGroup `json:"photometry_group"`
}

// PhotometryGroup is the discovery-epoch measurement.
type PhotometryGroup struct {
	ObsDate    []string `json:"obsdate"`
	Flux       *float64 `json:"flux"`
	FluxError  *float64 `json:"flux_err"`
	Limit      *float64 `json:"limiting_flux"`
	FilterName string   `json:"filter_name,omitempty"`
}

// ObsReport carries observatory-side metadata about the triggering image.
// Numeric identifiers arrive as either strings or numbers depending on the
// producer, so the flexible fields accept both.
type ObsReport struct {
	Object     FlexString      `json:"object,omitempty"`
	Mount      FlexString      `json:"mount,omitempty"`
	Camera     FlexString      `json:"camera,omitempty"`
	FieldID    FlexString      `json:"field,omitempty"`
	Subimage   FlexString      `json:"cropid,omitempty"`
	Score      *float64        `json:"score,omitempty"`
	RefCutout  string          `json:"ref_cutout,omitempty"`
	NewCutout  string          `json:"new_cutout,omitempty"`
	DiffCutout string          `json:"diff_cutout,omitempty"`
	Photometry []ObsPhotometry `json:"photometry,omitempty"`
}

// ToOName extracts the target-of-opportunity tag from the object name.
// Scheduled survey images carry their field id as the object name; a
// different name marks a ToO observation, tagged by the second
// dot-separated component.
func (o *ObsReport) ToOName() (string, bool) {
	obj := string(o.Object)
	if obj == "" || obj == string(o.FieldID) {
		return "", false
	}
	parts := strings.Split(obj, ".")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ObsPhotometry is one historical measurement attached to the alert.
type ObsPhotometry struct {
	JD     float64  `json:"jd"`
	Mag    *float64 `json:"mag"`
	MagErr *float64 `json:"magerr"`
	LimMag *float64 `json:"limmag"`
	Filter string   `json:"filter,omitempty"`
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Ptr returns the underlying value, or nil when empty, for nullable
// database columns.
func (f FlexString) Ptr() *string {
	if f == "" {
		return nil
	}
	s := string(f)
	return &s
}

// timeLayouts are the accepted discovery timestamp forms, after the
// trailing " UTC" suffix is stripped.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseObsTime parses an observation timestamp string as UTC.
func ParseObsTime(s string) (time.Time, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), " UTC")
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Validated is the normalized view of a payload that passed Validate.
type Validated struct {
	RA                float64
	Dec               float64
	DiscoveryDatetime time.Time
}

// Validate checks the payload's required fields and normalizes them.
// Anything missing or out of range fails with a validation error naming the
// offending field.
func (p *AlertPayload) Validate() (Validated, error) {
	var v Validated
	if p.ATReport.RA.Value == nil {
		return v, errors.ValidationError("alert is missing at_report.RA.value")
	}
	if p.ATReport.Dec.Value == nil {
		return v, errors.ValidationError("alert is missing at_report.Dec.value")
	}
	ra, dec := *p.ATReport.RA.Value, *p.ATReport.Dec.Value
	if ra < 0 || ra >= 360 {
		return v, errors.ValidationError(fmt.Sprintf("RA %v out of range [0, 360)", ra))
	}
	if dec < -90 || dec > 90 {
		return v, errors.ValidationError(fmt.Sprintf("Dec %v out of range [-90, 90]", dec))
	}
	if len(p.ATReport.DiscoveryDatetime) == 0 {
		return v, errors.ValidationError("alert is missing at_report.discovery_datetime")
	}
	t, err := ParseObsTime(p.ATReport.DiscoveryDatetime[0])
	if err != nil {
		return v, errors.WithCode(errors.CodeValidationError, errors.Wrap(err, "invalid discovery_datetime"))
	}
	v.RA, v.Dec, v.DiscoveryDatetime = ra, dec, t
	return v, nil
}

// DiscoveryDetection returns the discovery-epoch measurement as a
// photometry point, if the payload carries one.
func (p *AlertPayload) DiscoveryDetection() (*PhotometryGroup, bool) {
	if p.ATReport.Photometry == nil || p.ATReport.Photometry.Group == nil {
		return nil, false
	}
	return p.ATReport.Photometry.Group, true
}
