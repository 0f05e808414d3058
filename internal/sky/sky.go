// Package sky supplies the observation geometry the instrument model needs:
// parallactic angle and altitude for a site, sexagesimal coordinate helpers,
// and the polarimetric standard star catalog.
//
// This is deliberately the offline closed-form version: two spherical-trig
// formulas for an equatorial target tracked from an alt-az mount. Anything
// needing real ephemerides (precession, refraction, IERS) belongs to an
// external provider feeding angles in through the same numeric interface.
package sky

import "math"

// Site is an observing location. Latitude in radians.
type Site struct {
	Name     string
	Latitude float64
}

// Keck returns the Mauna Kea site the standard catalog was calibrated from.
func Keck() Site {
	return Site{Name: "Keck Observatory", Latitude: Radians(19.8260)}
}

// ParallacticAngle returns the angle between the target's hour circle and
// vertical for the given hour angle and declination (all radians).
func (s Site) ParallacticAngle(ha, dec float64) float64 {
	return math.Atan(math.Sin(ha) / (math.Cos(dec)*math.Tan(s.Latitude) - math.Sin(dec)*math.Cos(ha)))
}

// Altitude returns the target's elevation above the horizon (radians).
func (s Site) Altitude(ha, dec float64) float64 {
	return math.Asin(math.Sin(s.Latitude)*math.Sin(dec) + math.Cos(s.Latitude)*math.Cos(dec)*math.Cos(ha))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// RAHours converts a sexagesimal right ascension to radians.
func RAHours(h, m, s float64) float64 {
	return Radians(15 * (h + m/60 + s/3600))
}

// DecDegrees converts a sexagesimal declination to radians. Negative
// declinations carry the sign on the degree term.
func DecDegrees(d, m, s float64) float64 {
	sign := 1.0
	if d < 0 || math.Signbit(d) {
		sign = -1.0
		d = -d
	}
	return sign * Radians(d+m/60+s/3600)
}

// Target is a catalog entry: equatorial coordinates (radians) and the known
// linear polarization fraction.
type Target struct {
	Name         string
	RA           float64
	Dec          float64
	Polarization float64
}

// Standards returns the UKIRT IRPOL polarimetric standards used for
// calibration runs.
// http://www.ukirt.hawaii.edu/instruments/irpol/irpol_stds.html
func Standards() []Target {
	return []Target{
		{Name: "HDE 279652", RA: RAHours(4, 14, 50.2), Dec: DecDegrees(37, 35, 54), Polarization: 0.0061},
		{Name: "HDE 279658", RA: RAHours(4, 13, 47.3), Dec: DecDegrees(37, 9, 32), Polarization: 0.0142},
		{Name: "HDE 283637", RA: RAHours(4, 22, 53.3), Dec: DecDegrees(27, 30, 18), Polarization: 0.0157},
	}
}
