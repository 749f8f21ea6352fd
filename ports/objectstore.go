package ports

import (
	"context"
	"io"
)

// ObjectStore defines the interface for blob storage of candidate
// artifacts.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// GalaxyMatch is a catalog galaxy associated with a sky position.
type GalaxyMatch struct {
	Name           string
	RA             float64
	Dec            float64
	DistanceMpc    *float64
	Redshift       *float64
	SeparationDeg  float64
}

// GalaxyCatalog defines the interface for host-galaxy association.
type GalaxyCatalog interface {
	// Nearest returns the closest catalog galaxy within radius arcseconds
	// of the position, or found=false when none lies inside it.
	Nearest(ctx context.Context, ra, dec, radiusArcsec float64) (match GalaxyMatch, found bool, err error)
}
