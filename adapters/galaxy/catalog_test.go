package galaxy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

const testCatalog = `RA,Dec,GWGC,HyperLEDA,2MASS,wiseX,SDSS-DR16Q,d_L,z_helio
150.1000,20.2000,NGC0001,,,,,65.4,0.0152
150.1010,20.2010,,PGC000123,,,,70.1,0.0163
10.0000,-45.0000,,,J00400000-4500000,,,120.9,0.0270
200.0000,5.0000,,,,,,50.0,0.0110
`

// ===== TEST: Host association =====

func TestNearest_PicksClosestWithinRadius(t *testing.T) {
	cat := NewCSVCatalog(writeCatalog(t, testCatalog))

	// ~1.8 arcsec from the first entry, ~4 arcsec from the second.
	match, found, err := cat.Nearest(context.Background(), 150.1005, 20.2000, 30.0)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if !found {
		t.Fatal("expected a host galaxy")
	}
	if match.Name != "NGC0001 (GWGC)" {
		t.Errorf("galaxy = %q, want NGC0001 (GWGC)", match.Name)
	}
	if match.DistanceMpc == nil || *match.DistanceMpc != 65.4 {
		t.Errorf("distance = %v, want 65.4", match.DistanceMpc)
	}
	if match.Redshift == nil || *match.Redshift != 0.0152 {
		t.Errorf("redshift = %v, want 0.0152", match.Redshift)
	}
}

func TestNearest_NamePriorityFollowsCatalogOrder(t *testing.T) {
	cat := NewCSVCatalog(writeCatalog(t, testCatalog))

	match, found, err := cat.Nearest(context.Background(), 10.0, -45.0, 30.0)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if !found {
		t.Fatal("expected a host galaxy")
	}
	if match.Name != "J00400000-4500000 (2MASS)" {
		t.Errorf("galaxy = %q, want the 2MASS identifier", match.Name)
	}
}

func TestNearest_NothingWithinRadius(t *testing.T) {
	cat := NewCSVCatalog(writeCatalog(t, testCatalog))

	// The nearest entry is arcminutes away.
	_, found, err := cat.Nearest(context.Background(), 150.2000, 20.2000, 30.0)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if found {
		t.Error("expected no association outside the radius")
	}
}

func TestNearest_SkipsUnnamedEntries(t *testing.T) {
	cat := NewCSVCatalog(writeCatalog(t, testCatalog))

	// The entry at 200,5 has no cross-identification at all.
	_, found, err := cat.Nearest(context.Background(), 200.0, 5.0, 30.0)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if found {
		t.Error("entries without any name must not associate")
	}
}

func TestNearest_MissingFile(t *testing.T) {
	cat := NewCSVCatalog(filepath.Join(t.TempDir(), "missing.csv"))
	if _, _, err := cat.Nearest(context.Background(), 10.0, 10.0, 30.0); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}
