// Package led drives the node's status LED: steady while the broker is
// connected, with a short flash on every heartbeat.
package led

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

const pulse = time.Millisecond * 100

// output is the part of a GPIO pin the LED needs.
type output interface {
	Out(l gpio.Level) error
}

type LED struct {
	Name  string
	lock  sync.Mutex
	on    bool
	blink chan struct{}
	done  chan struct{}
	once  sync.Once
	pin   output
}

// Open finds the pin by name. An unknown pin gives an LED that does nothing.
func Open(name string, pinName string) *LED {
	logger.Infof("Creating new LED on pin [%v] called [%v]", pinName, name)
	p := gpioreg.ByName(pinName)
	if p == nil {
		logger.Errorf("Failed to find %v pin", pinName)
		return New(name, nil)
	}
	return New(name, p)
}

func New(name string, pin output) *LED {
	l := &LED{
		Name:  name,
		blink: make(chan struct{}, 1),
		done:  make(chan struct{}),
		pin:   pin,
	}
	if pin == nil {
		return l
	}
	_ = pin.Out(gpio.Low)
	go func() {
		for {
			select {
			case <-l.blink:
				l.flash()
			case <-l.done:
				l.Set(false)
				return
			}
		}
	}()
	return l
}

// Set changes the steady state, writing the pin only on a change.
func (l *LED) Set(on bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.on == on {
		return
	}
	l.on = on
	if l.pin != nil {
		_ = l.pin.Out(gpio.Level(on))
	}
}

func (l *LED) IsOn() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.on
}

// Flash asks for a single blink and never blocks. A request while one is
// already queued is dropped.
func (l *LED) Flash() {
	if l.pin == nil {
		return
	}
	select {
	case l.blink <- struct{}{}:
	default:
		logger.Debugf("LED busy [%v]", l.Name)
	}
}

// an 'off' flash when the LED is lit. The lock is not held over the pulse
// so Set never waits on a flash; the pin ends on whatever Set last chose.
func (l *LED) flash() {
	l.lock.Lock()
	_ = l.pin.Out(gpio.Level(!l.on))
	l.lock.Unlock()

	time.Sleep(pulse)

	l.lock.Lock()
	_ = l.pin.Out(gpio.Level(l.on))
	l.lock.Unlock()
}

func (l *LED) Close() {
	if l.pin == nil {
		return
	}
	l.once.Do(func() { close(l.done) })
}
