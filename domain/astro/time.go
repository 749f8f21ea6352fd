package astro

import "time"

// Julian date of the Unix epoch (1970-01-01T00:00:00 UTC).
const unixEpochJD = 2440587.5

// mjdOffset converts between Julian and Modified Julian dates.
const mjdOffset = 2400000.5

// JD converts a time to its Julian date.
func JD(t time.Time) float64 {
	return float64(t.UnixNano())/1e9/86400.0 + unixEpochJD
}

// MJD converts a time to its Modified Julian date.
func MJD(t time.Time) float64 {
	return JD(t) - mjdOffset
}

// FromJD converts a Julian date back to a UTC time.
func FromJD(jd float64) time.Time {
	seconds := (jd - unixEpochJD) * 86400.0
	return time.Unix(0, int64(seconds*1e9)).UTC()
}

// FromMJD converts a Modified Julian date back to a UTC time.
func FromMJD(mjd float64) time.Time {
	return FromJD(mjd + mjdOffset)
}
