package astro

import (
	"strings"
	"testing"
)

func TestName_Format(t *testing.T) {
	// RA 187.70593 deg = 12h 30m 49.42s, Dec +12.39112 deg = +12d 23m 28.03s
	name := Name(187.70593, 12.39112)
	if name != "LAST J123049.42+122328.03" {
		t.Errorf("Unexpected derived name: %q", name)
	}
}

func TestName_NegativeDec(t *testing.T) {
	name := Name(15.0, -45.5)
	if !strings.Contains(name, "-") {
		t.Errorf("Expected sign in name for southern position, got %q", name)
	}
	if name != "LAST J010000.00-453000.00" {
		t.Errorf("Unexpected derived name: %q", name)
	}
}

func TestName_Deterministic(t *testing.T) {
	a := Name(150.1, 20.2)
	b := Name(150.1, 20.2)
	if a != b {
		t.Errorf("Derived name must be deterministic: %q vs %q", a, b)
	}
}

func TestName_SecondsCarry(t *testing.T) {
	// 29.9999999/15 hours => seconds round to 60.00 and must carry upward
	name := Name(29.9999999, 0.0)
	if strings.Contains(name, "60.00") {
		t.Errorf("Seconds overflow not carried: %q", name)
	}
}
