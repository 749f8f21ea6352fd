package galaxy

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/domain/astro"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/ports"
)

// nameColumns lists the cross-identification columns in priority order; the
// first populated one names the galaxy.
var nameColumns = []string{"GWGC", "HyperLEDA", "2MASS", "wiseX", "SDSS-DR16Q"}

type entry struct {
	ra, dec     float64
	name        string
	distanceMpc *float64
	redshift    *float64
}

// CSVCatalog implements GalaxyCatalog over a reference catalog CSV. The
// file is large, so it is parsed once on first use rather than at startup.
type CSVCatalog struct {
	path string

	once    sync.Once
	loadErr error
	entries []entry

	log *logrus.Entry
}

// NewCSVCatalog creates a catalog backed by the CSV at path
func NewCSVCatalog(path string) *CSVCatalog {
	return &CSVCatalog{
		path: path,
		log:  logrus.WithField("component", "galaxy"),
	}
}

var _ ports.GalaxyCatalog = (*CSVCatalog)(nil)

// Nearest returns the closest catalog galaxy within radius arcseconds.
// Candidate rows are prefiltered to a one-degree box around the position
// before exact separations are computed.
func (c *CSVCatalog) Nearest(ctx context.Context, ra, dec, radiusArcsec float64) (ports.GalaxyMatch, bool, error) {
	var match ports.GalaxyMatch

	c.once.Do(c.load)
	if c.loadErr != nil {
		return match, false, c.loadErr
	}
	if err := ctx.Err(); err != nil {
		return match, false, err
	}

	radiusDeg := astro.ArcsecToDeg(radiusArcsec)
	best := -1
	bestSep := 0.0
	for i, e := range c.entries {
		if e.ra < ra-0.5 || e.ra > ra+0.5 || e.dec < dec-0.5 || e.dec > dec+0.5 {
			continue
		}
		sep := astro.Separation(ra, dec, e.ra, e.dec)
		if sep > radiusDeg {
			continue
		}
		if best < 0 || sep < bestSep {
			best, bestSep = i, sep
		}
	}
	if best < 0 {
		return match, false, nil
	}

	e := c.entries[best]
	c.log.WithFields(logrus.Fields{
		"galaxy":     e.name,
		"sep_arcsec": bestSep * 3600,
	}).Info("host galaxy associated")
	return ports.GalaxyMatch{
		Name:          e.name,
		RA:            e.ra,
		Dec:           e.dec,
		DistanceMpc:   e.distanceMpc,
		Redshift:      e.redshift,
		SeparationDeg: bestSep,
	}, true, nil
}

func (c *CSVCatalog) load() {
	f, err := os.Open(c.path)
	if err != nil {
		c.loadErr = apperrors.Wrap(err, "failed to open galaxy catalog")
		return
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		c.loadErr = apperrors.Wrap(err, "failed to read galaxy catalog header")
		return
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"RA", "Dec"} {
		if _, ok := cols[required]; !ok {
			c.loadErr = apperrors.ConfigInvalid(
				fmt.Sprintf("galaxy catalog is missing column %q", required))
			return
		}
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.loadErr = apperrors.Wrap(err, "failed to read galaxy catalog row")
			return
		}

		ra, err1 := strconv.ParseFloat(record[cols["RA"]], 64)
		dec, err2 := strconv.ParseFloat(record[cols["Dec"]], 64)
		if err1 != nil || err2 != nil {
			continue
		}

		e := entry{ra: ra, dec: dec}
		for _, col := range nameColumns {
			idx, ok := cols[col]
			if !ok || record[idx] == "" {
				continue
			}
			e.name = fmt.Sprintf("%s (%s)", record[idx], col)
			break
		}
		if e.name == "" {
			continue
		}
		if idx, ok := cols["d_L"]; ok {
			if v, err := strconv.ParseFloat(record[idx], 64); err == nil {
				e.distanceMpc = &v
			}
		}
		if idx, ok := cols["z_helio"]; ok {
			if v, err := strconv.ParseFloat(record[idx], 64); err == nil {
				e.redshift = &v
			}
		}
		c.entries = append(c.entries, e)
	}

	c.log.WithField("entries", len(c.entries)).Info("galaxy catalog loaded")
}
