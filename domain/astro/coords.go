package astro

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// separationEpsilon absorbs floating-point error at the cone boundary so that
// positions exactly at the search radius are matched.
const separationEpsilon = 1e-9

// CatalogPos is a sky position held in the candidate catalog.
type CatalogPos struct {
	ID  uuid.UUID
	RA  float64 // degrees
	Dec float64 // degrees
}

// Match is a catalog position that fell within a cone search, annotated with
// its angular separation from the search center.
type Match struct {
	ID         uuid.UUID
	RA         float64
	Dec        float64
	Separation float64 // degrees
}

// Separation computes the angular distance in degrees between two sky
// positions given in degrees, using the spherical law of cosines:
// https://en.wikipedia.org/wiki/Angular_distance
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	ra1r := ra1 * math.Pi / 180
	dec1r := dec1 * math.Pi / 180
	ra2r := ra2 * math.Pi / 180
	dec2r := dec2 * math.Pi / 180

	cosSep := math.Sin(dec1r)*math.Sin(dec2r) +
		math.Cos(dec1r)*math.Cos(dec2r)*math.Cos(ra1r-ra2r)
	// Clamp against rounding drift before acos
	if cosSep > 1 {
		cosSep = 1
	} else if cosSep < -1 {
		cosSep = -1
	}
	return math.Acos(cosSep) * 180 / math.Pi
}

// FindNearest returns the catalog position closest to (ra, dec) within radius
// degrees, inclusive of the boundary. Ties on separation are broken by the
// lowest catalog id. The second return value is false when nothing matches.
func FindNearest(catalog []CatalogPos, ra, dec, radius float64) (Match, bool) {
	candidates := boxPrefilter(catalog, ra, dec, radius)

	best := Match{}
	found := false
	for _, pos := range candidates {
		sep := Separation(ra, dec, pos.RA, pos.Dec)
		if sep > radius+separationEpsilon {
			continue
		}
		if !found || sep < best.Separation || (sep == best.Separation && lessID(pos.ID, best.ID)) {
			best = Match{ID: pos.ID, RA: pos.RA, Dec: pos.Dec, Separation: sep}
			found = true
		}
	}
	return best, found
}

// FindWithin returns all catalog positions within radius degrees of (ra, dec),
// ordered by increasing separation with ties broken by lowest id.
func FindWithin(catalog []CatalogPos, ra, dec, radius float64) []Match {
	var matches []Match
	for _, pos := range boxPrefilter(catalog, ra, dec, radius) {
		sep := Separation(ra, dec, pos.RA, pos.Dec)
		if sep > radius+separationEpsilon {
			continue
		}
		matches = append(matches, Match{ID: pos.ID, RA: pos.RA, Dec: pos.Dec, Separation: sep})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Separation != matches[j].Separation {
			return matches[i].Separation < matches[j].Separation
		}
		return lessID(matches[i].ID, matches[j].ID)
	})
	return matches
}

// boxPrefilter narrows the catalog to a ±2×radius square around the center
// before computing exact separations. Near the poles or the RA wrap the box
// is unreliable, so the full catalog is scanned instead; the prefilter only
// ever changes performance, never results.
func boxPrefilter(catalog []CatalogPos, ra, dec, radius float64) []CatalogPos {
	double := radius * 2
	if ra-double < 0 || ra+double > 360 || math.Abs(dec)+double > 90 {
		return catalog
	}
	filtered := make([]CatalogPos, 0, len(catalog))
	for _, pos := range catalog {
		if pos.RA < ra-double || pos.RA > ra+double {
			continue
		}
		if pos.Dec < dec-double || pos.Dec > dec+double {
			continue
		}
		filtered = append(filtered, pos)
	}
	return filtered
}

func lessID(a, b uuid.UUID) bool {
	return a.String() < b.String()
}

// ArcsecToDeg converts an arcsecond radius to degrees.
func ArcsecToDeg(arcsec float64) float64 {
	return arcsec / 3600.0
}
