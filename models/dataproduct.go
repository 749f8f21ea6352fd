package models

import (
	"time"

	"github.com/google/uuid"
)

// DataProductType labels the kind of artifact attached to a candidate.
type DataProductType string

const (
	DataProductAlertJSON  DataProductType = "alert_json"
	DataProductRefCutout  DataProductType = "ref_cutout"
	DataProductNewCutout  DataProductType = "new_cutout"
	DataProductDiffCutout DataProductType = "diff_cutout"
	DataProductPS1Stamp   DataProductType = "ps1_stamp"
	DataProductSDSSStamp  DataProductType = "sdss_stamp"
	DataProductLightcurve DataProductType = "lightcurve"
	DataProductRegistry   DataProductType = "registry_feedback"
)

// DataProduct is an artifact stored in the object store and linked to a
// candidate. ObjectKey names the blob inside the configured bucket.
type DataProduct struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	CandidateID uuid.UUID       `db:"candidate_id" json:"candidate_id"`
	Type        DataProductType `db:"type" json:"type"`
	Name        string          `db:"name" json:"name"`
	ObjectKey   string          `db:"object_key" json:"object_key"`
	ContentType string          `db:"content_type" json:"content_type"`
	SizeBytes   int64           `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
