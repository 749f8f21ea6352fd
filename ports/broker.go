package ports

import "context"

// BrokerObservation is one survey measurement returned by the broker.
// Detections have a magnitude; non-detections carry only a limit.
type BrokerObservation struct {
	JD             float64
	Magnitude      *float64
	MagnitudeError *float64
	Limit          *float64
	Filter         string
}

// SkyBroker defines the interface to an external alert-broker archive of
// survey photometry.
type SkyBroker interface {
	// NearestObject runs a cone search around the position and returns
	// the closest archived object, if any lies within radius arcseconds.
	NearestObject(ctx context.Context, ra, dec, radiusArcsec float64) (objectID string, sepArcsec float64, found bool, err error)

	// Lightcurve returns the object's archived measurements.
	Lightcurve(ctx context.Context, objectID string) ([]BrokerObservation, error)
}

// CutoutFetcher defines the interface for retrieving survey image stamps
// around a sky position.
type CutoutFetcher interface {
	// Fetch downloads the stamp for the position and returns its bytes
	// with the content type.
	Fetch(ctx context.Context, ra, dec float64) ([]byte, string, error)
}
