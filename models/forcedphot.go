package models

import "time"

// ForcedPhotStatus is the remote pipeline's job state.
type ForcedPhotStatus int

const (
	ForcedPhotPending  ForcedPhotStatus = 0
	ForcedPhotComplete ForcedPhotStatus = 1
	ForcedPhotFailed   ForcedPhotStatus = 2
)

// ForcedPhotQuery describes one forced-photometry job request.
type ForcedPhotQuery struct {
	RA             float64
	Dec            float64
	JDStart        float64
	JDEnd          float64
	FieldID        string
	Subimage       int
	MountNum       int
	CameraNum      int
	MaxResults     int
	UseExistingRef bool
	Resubmit       bool
}

// ForcedPhotRequest is the row written to the job queue table. RequestID is
// assigned by the client and doubles as the poll key.
type ForcedPhotRequest struct {
	RequestID   int64
	UserID      int
	Query       ForcedPhotQuery
	SubmittedAt time.Time
}

// ForcedPhotResult is one measurement returned by a completed job.
type ForcedPhotResult struct {
	JD           float64
	MagPSF       *float64
	MagErr       *float64
	SN           *float64
	Significance *float64
	LimMag       *float64
	Filter       string
	MountNum     int
	CamNum       int
}

// IsDetection applies the pipeline's detection criterion: a measurement
// counts only when both the signal-to-noise ratio and the source
// significance exceed 3.
func (r ForcedPhotResult) IsDetection() bool {
	return r.SN != nil && *r.SN > 3 && r.Significance != nil && *r.Significance > 3
}
