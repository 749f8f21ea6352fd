package astro

import (
	"math"
	"testing"
	"time"
)

func TestJD_UnixEpoch(t *testing.T) {
	jd := JD(time.Unix(0, 0))
	if math.Abs(jd-2440587.5) > 1e-9 {
		t.Errorf("Expected JD 2440587.5 at the Unix epoch, got %f", jd)
	}
}

func TestMJD_KnownValue(t *testing.T) {
	// 2000-01-01T12:00:00 UTC is JD 2451545.0, MJD 51544.5
	at := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if jd := JD(at); math.Abs(jd-2451545.0) > 1e-6 {
		t.Errorf("Expected JD 2451545.0, got %f", jd)
	}
	if mjd := MJD(at); math.Abs(mjd-51544.5) > 1e-6 {
		t.Errorf("Expected MJD 51544.5, got %f", mjd)
	}
}

func TestFromJD_RoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 14, 1, 59, 26, 0, time.UTC)
	back := FromJD(JD(at))
	if d := back.Sub(at); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("JD round trip drifted by %v", d)
	}
}

func TestFromMJD_RoundTrip(t *testing.T) {
	at := time.Date(2024, 11, 2, 22, 30, 0, 0, time.UTC)
	back := FromMJD(MJD(at))
	if d := back.Sub(at); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("MJD round trip drifted by %v", d)
	}
}
