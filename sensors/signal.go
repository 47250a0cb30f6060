package sensors

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const procWireless = "/proc/net/wireless"

// Radio reports the signal level of a wireless interface.
type Radio struct {
	Interface string
	path      string
}

func NewRadio(iface string) *Radio {
	return &Radio{Interface: iface, path: procWireless}
}

func (r *Radio) SignalDBm() (int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return 0, fmt.Errorf("open %v: %w", r.path, err)
	}
	defer f.Close()
	return parseWireless(f, r.Interface)
}

// parseWireless finds the level column for iface in /proc/net/wireless
// format:
//
//	Inter-| sta-|   Quality        |   Discarded packets ...
//	 face | tus | link level noise |  nwid  crypt ...
//	 wlan0: 0000   54.  -56.  -256        0 ...
func parseWireless(r io.Reader, iface string) (int, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] != iface+":" {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("bad signal level [%v]: %w", fields[3], err)
		}
		return int(level), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("interface %v not found", iface)
}
