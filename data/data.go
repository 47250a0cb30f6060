package data

import (
	"sync/atomic"
	"time"

	"github.com/gr-butler/weathernode/buffer"
)

// holder for the latest snapshot produced by the sensors and the last
// upload response. Only acquisition writes the reading, only the uploader
// writes the status; anyone may read.

const (
	Temperature = "temperature"
	Humidity    = "humidity"
	Pressure    = "pressure"
	DewPoint    = "dew_point"
	Signal      = "signal"

	// one minute of 1 second samples
	historySize = 60

	// InitialUploadStatus is shown until the first upload completes
	InitialUploadStatus = "N/U"
)

// Reading is a single consistent snapshot. It is never modified once stored.
type Reading struct {
	TemperatureF float64
	HumidityPct  float64
	PressureInHg float64
	DewPointF    float64
	SignalDBm    int
	Taken        time.Time
}

type Store struct {
	reading atomic.Pointer[Reading]
	status  atomic.Pointer[string]
	history map[string]*buffer.SampleBuffer
}

func CreateStore() *Store {
	s := &Store{
		history: make(map[string]*buffer.SampleBuffer),
	}
	for _, name := range []string{Temperature, Humidity, Pressure, DewPoint, Signal} {
		s.history[name] = buffer.NewBuffer(historySize)
	}
	s.reading.Store(&Reading{})
	status := InitialUploadStatus
	s.status.Store(&status)
	return s
}

// Update swaps in a new snapshot and records it in the history buffers.
func (s *Store) Update(r Reading) {
	s.reading.Store(&r)
	s.history[Temperature].AddItem(r.TemperatureF)
	s.history[Humidity].AddItem(r.HumidityPct)
	s.history[Pressure].AddItem(r.PressureInHg)
	s.history[DewPoint].AddItem(r.DewPointF)
	s.history[Signal].AddItem(float64(r.SignalDBm))
}

// Latest returns a copy of the current snapshot.
func (s *Store) Latest() Reading {
	return *s.reading.Load()
}

func (s *Store) SetUploadStatus(status string) {
	s.status.Store(&status)
}

func (s *Store) UploadStatus() string {
	return *s.status.Load()
}

// History returns the one minute buffer for a field, nil for unknown names.
func (s *Store) History(name string) *buffer.SampleBuffer {
	return s.history[name]
}
