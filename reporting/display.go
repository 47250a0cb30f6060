package reporting

import (
	"fmt"
	"strings"

	"github.com/gr-butler/weathernode/data"
	logger "github.com/sirupsen/logrus"
)

type Screen interface {
	Print(text string, row int, col int)
	Flush() error
}

// Display draws the reading and the last upload status at fixed positions.
// Values are padded to a fixed width so a shorter value overwrites a longer
// one left over from the previous frame.
type Display struct {
	screen Screen
	store  *data.Store
}

func NewDisplay(screen Screen, store *data.Store) *Display {
	return &Display{screen: screen, store: store}
}

func (d *Display) Update() {
	r := d.store.Latest()
	s := d.screen

	s.Print("Weather Station", 0, 0)

	s.Print("WiFi sig:", 1, 0)
	s.Print(fmt.Sprintf("%4d", r.SignalDBm), 1, 9)
	s.Print("dBm", 1, 13)

	s.Print("Humid:", 2, 0)
	s.Print(fmt.Sprintf("%6s", FormatValue(r.HumidityPct)), 2, 9)
	s.Print("%", 2, 15)

	s.Print("Temp:", 3, 0)
	s.Print(fmt.Sprintf("%6s", FormatValue(r.TemperatureF)), 3, 9)
	s.Print("F", 3, 15)

	s.Print("Press:", 4, 0)
	s.Print(fmt.Sprintf("%6s", FormatValue(r.PressureInHg)), 4, 9)
	s.Print("\"", 4, 15)

	s.Print("Dew pt:", 5, 0)
	s.Print(fmt.Sprintf("%6s", FormatValue(r.DewPointF)), 5, 9)
	s.Print("F", 5, 15)

	s.Print("PWS:", 6, 0)
	s.Print(fmt.Sprintf("%-13.13s", strings.TrimSpace(d.store.UploadStatus())), 6, 5)

	if err := s.Flush(); err != nil {
		// nothing the node can do about a dead panel
		logger.Debugf("Display flush failed [%v]", err)
	}
}
