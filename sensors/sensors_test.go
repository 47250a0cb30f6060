package sensors

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

type fakeSenser struct {
	env physic.Env
	err error
}

func (f *fakeSenser) Sense(e *physic.Env) error {
	if f.err != nil {
		return f.err
	}
	*e = f.env
	return nil
}

type fakeRadio struct {
	dbm int
	err error
}

func (f fakeRadio) SignalDBm() (int, error) {
	return f.dbm, f.err
}

func celsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}

func TestClampHumidity(t *testing.T) {
	assert.Equal(t, 100.0, ClampHumidity(150))
	assert.Equal(t, 42.3, ClampHumidity(42.3))
	assert.Equal(t, 100.0, ClampHumidity(100))
	assert.Equal(t, 0.0, ClampHumidity(0))
}

func TestDewPoint(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		rh   float64
		want float64
	}{
		{"reference table 20C 50%", 20, 50, 9.3},
		{"saturated air", 20, 100, 20},
		{"cold and dry", 0, 30, -15.5},
		{"warm and humid", 30, 80, 26.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DewPointC(tt.t, tt.rh)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.1)
		})
	}
}

func TestDewPointZeroHumidity(t *testing.T) {
	got, err := DewPointC(20, 0)
	assert.ErrorIs(t, err, ErrNoHumidity)
	assert.True(t, math.IsNaN(got))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, 32.0, CtoF(0))
	assert.Equal(t, 212.0, CtoF(100))
	assert.Equal(t, 101325.0, SeaLevelPa(101325, 0))
	assert.Greater(t, SeaLevelPa(98000, 241.2), 98000.0)
}

func TestStationSample(t *testing.T) {
	hyg := &fakeSenser{env: physic.Env{
		Temperature: celsius(20),
		Humidity:    150 * physic.PercentRH,
	}}
	baro := &fakeSenser{env: physic.Env{Pressure: 101325 * physic.Pascal}}
	s := NewStation(hyg, baro, fakeRadio{dbm: -56}, 0)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	r := s.Sample()
	assert.Equal(t, 100.0, r.HumidityPct)
	assert.InDelta(t, 68.0, r.TemperatureF, 0.01)
	assert.InDelta(t, 68.0, r.DewPointF, 0.2)
	assert.InDelta(t, 29.92, r.PressureInHg, 0.01)
	assert.Equal(t, -56, r.SignalDBm)
	assert.Equal(t, at, r.Taken)
}

func TestStationWithoutBarometer(t *testing.T) {
	hyg := &fakeSenser{env: physic.Env{Temperature: celsius(20), Humidity: 50 * physic.PercentRH}}
	s := NewStation(hyg, nil, nil, 241.2)
	require.False(t, s.HasBarometer())

	r := s.Sample()
	assert.True(t, math.IsNaN(r.PressureInHg))
	assert.InDelta(t, 50.0, r.HumidityPct, 0.001)
	assert.InDelta(t, CtoF(9.3), r.DewPointF, 0.2)
}

func TestStationKeepsLastGoodValues(t *testing.T) {
	hyg := &fakeSenser{env: physic.Env{Temperature: celsius(10), Humidity: 60 * physic.PercentRH}}
	s := NewStation(hyg, nil, fakeRadio{err: errors.New("no wifi")}, 0)
	first := s.Sample()

	hyg.err = errors.New("i2c nack")
	second := s.Sample()
	assert.Equal(t, first.TemperatureF, second.TemperatureF)
	assert.Equal(t, first.HumidityPct, second.HumidityPct)
	assert.Equal(t, 0, second.SignalDBm)
}

func TestStationFirstReadFails(t *testing.T) {
	hyg := &fakeSenser{err: errors.New("i2c nack")}
	baro := &fakeSenser{err: errors.New("i2c nack")}
	s := NewStation(hyg, baro, nil, 0)

	r := s.Sample()
	assert.True(t, math.IsNaN(r.TemperatureF))
	assert.True(t, math.IsNaN(r.HumidityPct))
	assert.True(t, math.IsNaN(r.PressureInHg))
	assert.True(t, math.IsNaN(r.DewPointF))

	// the first good read replaces the placeholders
	hyg.err = nil
	hyg.env = physic.Env{Temperature: celsius(20), Humidity: 50 * physic.PercentRH}
	r = s.Sample()
	assert.InDelta(t, 68.0, r.TemperatureF, 0.01)
	assert.InDelta(t, 50.0, r.HumidityPct, 0.001)
	assert.True(t, math.IsNaN(r.PressureInHg))
}

func TestStationHiResThermometer(t *testing.T) {
	hyg := &fakeSenser{env: physic.Env{Temperature: celsius(10), Humidity: 60 * physic.PercentRH}}
	s := NewStation(hyg, nil, nil, 0)
	s.SetThermometer(&fakeSenser{env: physic.Env{Temperature: celsius(12.5)}})

	r := s.Sample()
	assert.InDelta(t, CtoF(12.5), r.TemperatureF, 0.01)
}

func TestStationZeroHumidity(t *testing.T) {
	hyg := &fakeSenser{env: physic.Env{Temperature: celsius(10)}}
	s := NewStation(hyg, nil, nil, 0)
	r := s.Sample()
	assert.True(t, math.IsNaN(r.DewPointF))
}

const wireless = `Inter-| sta-|   Quality        |   Discarded packets               | Missed | WE
 face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22
 wlan0: 0000   54.  -56.  -256        0      0      0      0      0        0
`

func TestParseWireless(t *testing.T) {
	dbm, err := parseWireless(strings.NewReader(wireless), "wlan0")
	require.NoError(t, err)
	assert.Equal(t, -56, dbm)

	_, err = parseWireless(strings.NewReader(wireless), "wlan1")
	assert.Error(t, err)
}
