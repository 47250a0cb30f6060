package bridge

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// OpenSerial opens the UART the bridge relays to, 8N1.
func OpenSerial(device string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		if ports, lerr := serial.GetPortsList(); lerr == nil {
			logger.Infof("Available serial ports [%v]", ports)
		}
		return nil, fmt.Errorf("open serial %v: %w", device, err)
	}
	logger.Infof("Serial port [%v] open at [%v] baud", device, baud)
	return port, nil
}
