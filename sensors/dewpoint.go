package sensors

import (
	"errors"
	"math"
)

// ErrNoHumidity is returned for a relative humidity of zero or less, where
// the dew point is undefined.
var ErrNoHumidity = errors.New("dew point undefined for zero humidity")

// ClampHumidity caps the known over range fault of the hygrometer. Values
// below zero are passed through untouched.
func ClampHumidity(rh float64) float64 {
	return math.Min(rh, 100)
}

/*
DewPointC uses the NOAA reference formula (Magnus form, saturation vapour
pressure from the Goff-Gratch fit):

	ratio = 373.15 / (273.15 + T)
	rhs   = -7.90298 (ratio-1) + 5.02808 log10(ratio)
	        - 1.3816e-7 (10^(11.344 (1 - 1/ratio)) - 1)
	        + 8.1328e-3 (10^(-3.49149 (ratio-1)) - 1)
	        + log10(1013.246)
	vp    = 10^(rhs-3) * RH
	t     = ln(vp / 0.61078)
	Td    = 241.88 t / (17.558 - t)
*/
func DewPointC(tempC float64, rh float64) (float64, error) {
	if rh <= 0 || math.IsNaN(rh) {
		return math.NaN(), ErrNoHumidity
	}
	ratio := 373.15 / (273.15 + tempC)
	rhs := -7.90298 * (ratio - 1)
	rhs += 5.02808 * math.Log10(ratio)
	rhs += -1.3816e-7 * (math.Pow(10, 11.344*(1-1/ratio)) - 1)
	rhs += 8.1328e-3 * (math.Pow(10, -3.49149*(ratio-1)) - 1)
	rhs += math.Log10(1013.246)

	vp := math.Pow(10, rhs-3) * rh
	t := math.Log(vp / 0.61078)
	return (241.88 * t) / (17.558 - t), nil
}

func CtoF(c float64) float64 {
	//(0°C × 9/5) + 32 = 32°F
	return (c * 9 / 5) + 32
}

// SeaLevelPa reduces station pressure to sea level with the international
// barometric formula.
func SeaLevelPa(pa float64, altitudeM float64) float64 {
	return pa / math.Pow(1.0-altitudeM/44330.0, 5.255)
}
