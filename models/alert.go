package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertRecord is the provenance trail of a single ingested alert file. A
// candidate accumulates one record per alert that matched it.
type AlertRecord struct {
	ID                uuid.UUID `db:"id" json:"id"`
	CandidateID       uuid.UUID `db:"candidate_id" json:"candidate_id"`
	Filename          string    `db:"filename" json:"filename"`
	DiscoveryDatetime time.Time `db:"discovery_datetime" json:"discovery_datetime"`
	Mount             *string   `db:"mount" json:"mount,omitempty"`
	Camera            *string   `db:"camera" json:"camera,omitempty"`
	FieldID           *string   `db:"field_id" json:"field_id,omitempty"`
	Subimage          *string   `db:"subimage" json:"subimage,omitempty"`
	Score             *float64  `db:"score" json:"score,omitempty"`
	RefCutout         *string   `db:"ref_cutout" json:"ref_cutout,omitempty"`
	NewCutout         *string   `db:"new_cutout" json:"new_cutout,omitempty"`
	DiffCutout        *string   `db:"diff_cutout" json:"diff_cutout,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
