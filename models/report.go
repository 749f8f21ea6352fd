package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReportStatus tracks a candidate's submission to the external naming
// registry.
type ReportStatus string

const (
	ReportUnreported ReportStatus = "unreported"
	ReportSubmitted  ReportStatus = "submitted"
	ReportAccepted   ReportStatus = "accepted"
	ReportRejected   ReportStatus = "rejected"
	ReportError      ReportStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
// Error is recoverable and so not terminal.
func (s ReportStatus) Terminal() bool {
	return s == ReportAccepted || s == ReportRejected
}

// ReportSubmission records one candidate's registry reporting lifecycle.
type ReportSubmission struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	CandidateID uuid.UUID       `db:"candidate_id" json:"candidate_id"`
	Status      ReportStatus    `db:"status" json:"status"`
	ReportID    *int64          `db:"report_id" json:"report_id,omitempty"`
	Feedback    json.RawMessage `db:"feedback" json:"feedback,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
