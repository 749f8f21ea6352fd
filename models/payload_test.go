package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/erezimm/cast/internal/errors"
)

// ===== TEST: Payload decoding =====

func TestAlertPayload_DecodeFullAlert(t *testing.T) {
	raw := `{
		"at_report": {
			"RA": {"value": 150.1234},
			"Dec": {"value": -20.5678},
			"discovery_datetime": ["2025-06-15 03:24:18.500000 UTC"],
			"reporter": "LAST pipeline",
			"non_detection": {"obsdate": ["2025-06-14 03:20:00 UTC"], "flux": 20.5, "filter_name": "clear"},
			"photometry": {"photometry_group": {"obsdate": ["2025-06-15 03:24:18.500000 UTC"], "flux": 18.2, "flux_err": 0.05, "filter_name": "clear"}}
		},
		"last_report": {
			"mount": 3,
			"camera": "2",
			"field": "355+34",
			"cropid": 17,
			"score": 0.93,
			"diff_cutout": "https://example.org/diff.png",
			"photometry": [
				{"jd": 2460841.5, "mag": 18.4, "magerr": 0.06, "filter": "clear"},
				{"jd": 2460840.5, "limmag": 20.1, "filter": "clear"}
			]
		}
	}`

	var p AlertPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	v, err := p.Validate()
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if v.RA != 150.1234 || v.Dec != -20.5678 {
		t.Errorf("unexpected coordinates: ra=%v dec=%v", v.RA, v.Dec)
	}
	want := time.Date(2025, 6, 15, 3, 24, 18, 500000000, time.UTC)
	if !v.DiscoveryDatetime.Equal(want) {
		t.Errorf("discovery time = %v, want %v", v.DiscoveryDatetime, want)
	}

	// Mount arrives as a number, camera as a string; both normalize.
	if p.ObsReport == nil {
		t.Fatal("expected last_report block")
	}
	if got := string(p.ObsReport.Mount); got != "3" {
		t.Errorf("mount = %q, want \"3\"", got)
	}
	if got := string(p.ObsReport.Camera); got != "2" {
		t.Errorf("camera = %q, want \"2\"", got)
	}
	if len(p.ObsReport.Photometry) != 2 {
		t.Fatalf("expected 2 historical points, got %d", len(p.ObsReport.Photometry))
	}
	if p.ObsReport.Photometry[1].Mag != nil {
		t.Error("second historical point should be a non-detection")
	}

	group, ok := p.DiscoveryDetection()
	if !ok {
		t.Fatal("expected a discovery detection")
	}
	if group.Flux == nil || *group.Flux != 18.2 {
		t.Errorf("discovery flux = %v, want 18.2", group.Flux)
	}
}

// ===== TEST: Validation failures =====

func TestAlertPayload_Validate_MissingCoordinates(t *testing.T) {
	var p AlertPayload
	p.ATReport.DiscoveryDatetime = []string{"2025-06-15 03:24:18 UTC"}

	_, err := p.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing RA")
	}
	if !errors.HasCode(err, errors.CodeValidationError) {
		t.Errorf("expected VALIDATION_ERROR code, got %q", errors.GetCode(err))
	}
}

func TestAlertPayload_Validate_OutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		ra     float64
		dec    float64
	}{
		{"ra too large", 360.0, 10.0},
		{"ra negative", -0.5, 10.0},
		{"dec too large", 100.0, 90.5},
		{"dec too small", 100.0, -91.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := AlertPayload{}
			p.ATReport.RA.Value = &tc.ra
			p.ATReport.Dec.Value = &tc.dec
			p.ATReport.DiscoveryDatetime = []string{"2025-06-15 03:24:18 UTC"}
			if _, err := p.Validate(); err == nil {
				t.Errorf("expected out-of-range error for ra=%v dec=%v", tc.ra, tc.dec)
			}
		})
	}
}

func TestAlertPayload_Validate_BadTimestamp(t *testing.T) {
	ra, dec := 10.0, 10.0
	p := AlertPayload{}
	p.ATReport.RA.Value = &ra
	p.ATReport.Dec.Value = &dec
	p.ATReport.DiscoveryDatetime = []string{"not a timestamp"}

	if _, err := p.Validate(); err == nil {
		t.Fatal("expected error for malformed discovery_datetime")
	}
}

func TestParseObsTime_Layouts(t *testing.T) {
	cases := []string{
		"2025-06-15 03:24:18.500000 UTC",
		"2025-06-15 03:24:18 UTC",
		"2025-06-15 03:24:18",
		"2025-06-15T03:24:18Z",
	}
	for _, s := range cases {
		if _, err := ParseObsTime(s); err != nil {
			t.Errorf("ParseObsTime(%q) failed: %v", s, err)
		}
	}
}
