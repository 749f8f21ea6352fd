package astro

import (
	"fmt"
	"math"
)

// Name derives the survey-style identifier for a sky position, e.g.
// "LAST J123456.78+123456.78". RA is rendered in hours, Dec in degrees, both
// as zero-padded sexagesimal with two decimal places on the seconds.
func Name(ra, dec float64) string {
	raH, raM, raS := sexagesimal(ra / 15.0)

	sign := "+"
	if dec < 0 {
		sign = "-"
	}
	decD, decM, decS := sexagesimal(math.Abs(dec))

	return fmt.Sprintf("LAST J%02d%02d%05.2f%s%02d%02d%05.2f", raH, raM, raS, sign, decD, decM, decS)
}

// sexagesimal splits a positive value into whole units, minutes and seconds,
// rounding seconds to two decimals and carrying overflow upward so 59.999
// seconds never renders as "60.00".
func sexagesimal(value float64) (int, int, float64) {
	units := int(value)
	rem := (value - float64(units)) * 60
	minutes := int(rem)
	seconds := (rem - float64(minutes)) * 60

	seconds = math.Round(seconds*100) / 100
	if seconds >= 60 {
		seconds -= 60
		minutes++
	}
	if minutes >= 60 {
		minutes -= 60
		units++
	}
	return units, minutes, seconds
}
