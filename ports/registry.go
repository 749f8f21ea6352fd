package ports

import (
	"context"
	"encoding/json"
)

// RegistryReport is the document submitted to the external naming registry.
type RegistryReport struct {
	ATReport json.RawMessage `json:"at_report"`
}

// RegistryReply is the registry's processed verdict on a submitted report.
type RegistryReply struct {
	// ObjectName is the designation assigned by the registry, empty when
	// the report was rejected.
	ObjectName string

	// Accepted is true when the registry processed the report
	// successfully.
	Accepted bool

	// Feedback is the raw feedback block, persisted verbatim for either
	// outcome.
	Feedback json.RawMessage
}

// NamingRegistry defines the interface to the external transient-naming
// service.
type NamingRegistry interface {
	// SubmitReport sends the report and returns the registry's report id.
	SubmitReport(ctx context.Context, report *RegistryReport) (int64, error)

	// FetchReply retrieves the processed outcome for a previously
	// submitted report. A not-yet-processed report returns a retryable
	// error.
	FetchReply(ctx context.Context, reportID int64) (*RegistryReply, error)

	// ConeSearch returns designations already registered within radius
	// arcseconds of the position.
	ConeSearch(ctx context.Context, ra, dec, radiusArcsec float64) ([]string, error)
}
