package sensors

import (
	"math"
	"time"

	"github.com/gr-butler/weathernode/data"
	"github.com/gr-butler/weathernode/env"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

type SignalReader interface {
	SignalDBm() (int, error)
}

// Station turns raw sensor output into a Reading.
type Station struct {
	hygrometer  Senser
	barometer   Senser
	thermometer Senser
	radio       SignalReader
	altitudeM   float64
	now         func() time.Time

	// last good raw values, reused when a read fails. NaN until the first
	// good read.
	tempC      float64
	humidity   float64
	pressurePa float64
}

func NewStation(hygrometer Senser, barometer Senser, radio SignalReader, altitudeM float64) *Station {
	return &Station{
		hygrometer: hygrometer,
		barometer:  barometer,
		radio:      radio,
		altitudeM:  altitudeM,
		now:        time.Now,
		tempC:      math.NaN(),
		humidity:   math.NaN(),
		pressurePa: math.NaN(),
	}
}

// SetThermometer replaces the hygrometer temperature with a higher
// resolution sensor.
func (s *Station) SetThermometer(t Senser) {
	s.thermometer = t
}

func (s *Station) HasBarometer() bool {
	return s.barometer != nil
}

// Sample reads every sensor once. It never fails: a sensor fault keeps the
// previous value and is logged.
func (s *Station) Sample() data.Reading {
	em := physic.Env{}
	if err := s.hygrometer.Sense(&em); err != nil {
		logger.Errorf("Hygrometer read failed [%v]", err)
	} else {
		s.humidity = ClampHumidity(float64(em.Humidity) / float64(physic.PercentRH))
		s.tempC = em.Temperature.Celsius()
	}

	if s.thermometer != nil {
		hiT := physic.Env{}
		if err := s.thermometer.Sense(&hiT); err != nil {
			logger.Errorf("Thermometer read failed [%v]", err)
		} else {
			s.tempC = hiT.Temperature.Celsius()
		}
	}

	if s.barometer != nil {
		pe := physic.Env{}
		if err := s.barometer.Sense(&pe); err != nil {
			logger.Errorf("Barometer read failed [%v]", err)
		} else {
			s.pressurePa = float64(pe.Pressure) / float64(physic.Pascal)
		}
	}

	r := data.Reading{
		TemperatureF: CtoF(s.tempC),
		HumidityPct:  s.humidity,
		PressureInHg: SeaLevelPa(s.pressurePa, s.altitudeM) * env.PaToInHg,
		Taken:        s.now(),
	}

	dewC, err := DewPointC(s.tempC, s.humidity)
	if err != nil {
		logger.Debugf("No dew point [%v]", err)
	}
	r.DewPointF = CtoF(dewC)

	if s.radio != nil {
		dbm, err := s.radio.SignalDBm()
		if err != nil {
			logger.Debugf("No signal level [%v]", err)
		}
		r.SignalDBm = dbm
	}
	return r
}
