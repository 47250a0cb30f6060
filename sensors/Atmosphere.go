package sensors

import (
	"fmt"

	"github.com/gr-butler/weathernode/env"
	logger "github.com/sirupsen/logrus"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/devices/v3/mcp9808"
	"periph.io/x/host/v3"
)

// Senser is a single environmental sensor, satisfied by the periph devices.
type Senser interface {
	Sense(e *physic.Env) error
}

type Hardware struct {
	Bus     i2c.BusCloser
	Station *Station
}

// Open initialises the I2C bus and the sensors on it. A missing barometer is
// logged once and the station carries on without pressure.
func Open(cfg env.Sensors) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C [%v]: %w", cfg.Bus, err)
	}

	logger.Infof("Starting BME280 hygrometer [%x]", cfg.HygrometerAddr)
	hygrometer, err := bmxx80.NewI2C(bus, cfg.HygrometerAddr, &bmxx80.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("failed to initialize hygrometer: %w", err)
	}

	var barometer Senser
	logger.Infof("Starting barometer [%x]", cfg.BarometerAddr)
	bmp, err := bmxx80.NewI2C(bus, cfg.BarometerAddr, &bmxx80.DefaultOpts)
	if err != nil {
		logger.Errorf("Could not find a valid barometer, check wiring! [%v]", err)
	} else {
		barometer = bmp
	}

	var thermometer Senser
	if cfg.ThermometerHi {
		logger.Infof("Starting MCP9808 Temperature Sensor [%x]", env.ThermometerI2C)
		mcp, err := mcp9808.New(bus, &mcp9808.Opts{Addr: env.ThermometerI2C, Res: mcp9808.High})
		if err != nil {
			logger.Errorf("Failed to open MCP9808 sensor, using hygrometer temperature [%v]", err)
		} else {
			thermometer = mcp
		}
	}

	st := NewStation(hygrometer, barometer, NewRadio(cfg.Wireless), cfg.AltitudeM)
	if thermometer != nil {
		st.SetThermometer(thermometer)
	}
	logger.Info("Sensors initialized.")
	return &Hardware{Bus: bus, Station: st}, nil
}

func (h *Hardware) Close() error {
	return h.Bus.Close()
}
