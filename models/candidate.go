package models

import (
	"time"

	"github.com/google/uuid"
)

// Classification is the operator-assigned nature of a candidate.
type Classification string

const (
	ClassificationReal         Classification = "real"
	ClassificationBogus        Classification = "bogus"
	ClassificationStellar      Classification = "stellar"
	ClassificationSolar        Classification = "solar"
	ClassificationAGN          Classification = "agn"
	ClassificationUnclassified Classification = "unclassified"
)

// Valid reports whether c is one of the known classification values.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationReal, ClassificationBogus, ClassificationStellar,
		ClassificationSolar, ClassificationAGN, ClassificationUnclassified:
		return true
	}
	return false
}

// Candidate is a transient-detection catalog entry. RA/Dec are fixed at the
// first-seen position; later alerts merging into the candidate never move it.
type Candidate struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	RA                float64         `db:"ra" json:"ra"`
	Dec               float64         `db:"dec" json:"dec"`
	DiscoveryDatetime time.Time       `db:"discovery_datetime" json:"discovery_datetime"`
	Classification    *Classification `db:"classification" json:"classification,omitempty"`
	RealBogus         *bool           `db:"real_bogus" json:"real_bogus,omitempty"`
	VettedBy          *string         `db:"vetted_by" json:"vetted_by,omitempty"`
	ExternalName      *string         `db:"external_name" json:"external_name,omitempty"`
	Reported          bool            `db:"reported" json:"reported"`
	ToOName           *string         `db:"too_name" json:"too_name,omitempty"`
	HostGalaxy        *string         `db:"host_galaxy" json:"host_galaxy,omitempty"`
	DistanceMpc       *float64        `db:"distance_mpc" json:"distance_mpc,omitempty"`
	Redshift          *float64        `db:"redshift" json:"redshift,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
