package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gr-butler/weathernode/data"
)

// FormatValue renders a field the way every sink shows it, two decimals.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Console writes the current reading to the serial console, one line per
// field. Write errors are ignored, the console is best effort.
type Console struct {
	out   io.Writer
	store *data.Store
}

func NewConsole(out io.Writer, store *data.Store) *Console {
	return &Console{out: out, store: store}
}

func (c *Console) Update() {
	r := c.store.Latest()
	fmt.Fprintf(c.out, "Humidity: %v %%\n", FormatValue(r.HumidityPct))
	fmt.Fprintf(c.out, "Temperature: %v F\n", FormatValue(r.TemperatureF))
	fmt.Fprintf(c.out, "Sealevel pressure: %v in\n", FormatValue(r.PressureInHg))
	fmt.Fprintf(c.out, "Dew point: %v F\n", FormatValue(r.DewPointF))
	fmt.Fprintf(c.out, "WiFi signal: %v dBm\n", r.SignalDBm)
}
