package reporting

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gr-butler/weathernode/data"
	"github.com/gr-butler/weathernode/display"
	"github.com/gr-butler/weathernode/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore() *data.Store {
	s := data.CreateStore()
	s.Update(data.Reading{
		TemperatureF: 70.0,
		HumidityPct:  45.0,
		PressureInHg: 29.92,
		DewPointF:    48.0,
		SignalDBm:    -56,
	})
	return s
}

type fakePublisher struct {
	connected bool
	failOn    string
	sent      map[string]string
	order     []string
}

func newFakePublisher(connected bool) *fakePublisher {
	return &fakePublisher{connected: connected, sent: map[string]string{}}
}

func (f *fakePublisher) IsConnected() bool {
	return f.connected
}

func (f *fakePublisher) Publish(topic string, payload string) error {
	if topic == f.failOn {
		return errors.New("broken pipe")
	}
	f.sent[topic] = payload
	f.order = append(f.order, topic)
	return nil
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "70.00", FormatValue(70))
	assert.Equal(t, "29.92", FormatValue(29.92))
	assert.Equal(t, "-3.46", FormatValue(-3.456))
	assert.Equal(t, "NaN", FormatValue(math.NaN()))
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	NewConsole(&out, sampleStore()).Update()
	assert.Equal(t,
		"Humidity: 45.00 %\n"+
			"Temperature: 70.00 F\n"+
			"Sealevel pressure: 29.92 in\n"+
			"Dew point: 48.00 F\n"+
			"WiFi signal: -56 dBm\n",
		out.String())
}

func TestDisplay(t *testing.T) {
	store := sampleStore()
	store.SetUploadStatus("success\n")
	g := display.NewGrid(nil)
	NewDisplay(g, store).Update()

	lines := g.Lines()
	assert.Equal(t, "Weather Station", lines[0])
	assert.Equal(t, "WiFi sig: -56dBm", lines[1])
	assert.Equal(t, "Humid:    45.00%", lines[2])
	assert.Equal(t, "Temp:     70.00F", lines[3])
	assert.Equal(t, "Press:    29.92\"", lines[4])
	assert.Equal(t, "Dew pt:   48.00F", lines[5])
	assert.Equal(t, "PWS: success", lines[6])
}

func TestDisplayOverwritesLongerValues(t *testing.T) {
	store := sampleStore()
	g := display.NewGrid(nil)
	d := NewDisplay(g, store)
	store.SetUploadStatus("INVALIDPASSWORDID")
	d.Update()
	store.SetUploadStatus("success")
	store.Update(data.Reading{HumidityPct: 100})
	d.Update()

	lines := g.Lines()
	assert.Equal(t, "Humid:   100.00%", lines[2])
	assert.Equal(t, "PWS: success", lines[6])
}

func TestBrokerDisconnected(t *testing.T) {
	pub := newFakePublisher(false)
	n := NewBroker(pub, sampleStore(), "weathernode").Update()
	assert.Equal(t, 0, n)
	assert.Empty(t, pub.sent)
}

func TestBrokerConnected(t *testing.T) {
	pub := newFakePublisher(true)
	n := NewBroker(pub, sampleStore(), "weathernode").Update()
	assert.Equal(t, 4, n)
	assert.Equal(t, map[string]string{
		"weathernode/temperature": "70.00",
		"weathernode/humidity":    "45.00",
		"weathernode/pressure":    "29.92",
		"weathernode/dew_point":   "48.00",
	}, pub.sent)
	assert.Equal(t, []string{
		"weathernode/temperature",
		"weathernode/humidity",
		"weathernode/pressure",
		"weathernode/dew_point",
	}, pub.order)
}

func TestBrokerPublishFailureIsNotRetried(t *testing.T) {
	pub := newFakePublisher(true)
	pub.failOn = "weathernode/pressure"
	n := NewBroker(pub, sampleStore(), "weathernode").Update()
	assert.Equal(t, 3, n)
	assert.NotContains(t, pub.sent, "weathernode/pressure")
}

func TestUpload(t *testing.T) {
	var got url.Values
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		path = r.URL.Path
		got = r.URL.Query()
		_, _ = w.Write([]byte("success\n"))
	}))
	defer srv.Close()

	store := sampleStore()
	u := NewUploader(env.Upload{Host: srv.URL, ID: "KXXTEST1", Password: "pw"}, store)
	require.NoError(t, u.Upload(context.Background()))

	assert.Equal(t, "/weatherstation/updateweatherstation.php", path)
	assert.Equal(t, url.Values{
		"ID":       {"KXXTEST1"},
		"PASSWORD": {"pw"},
		"dateutc":  {"now"},
		"tempf":    {"70.00"},
		"baromin":  {"29.92"},
		"humidity": {"45.00"},
		"dewptf":   {"48.00"},
		"action":   {"updateraw"},
	}, got)
	assert.Equal(t, "success\n", store.UploadStatus())
}

func TestUploadErrorStatusStoredVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("INVALIDPASSWORDID|Password or key and/or id are incorrect\n"))
	}))
	defer srv.Close()

	store := sampleStore()
	u := NewUploader(env.Upload{Host: srv.URL, ID: "KXXTEST1", Password: "wrong"}, store)
	require.NoError(t, u.Upload(context.Background()))
	assert.Equal(t, "INVALIDPASSWORDID|Password or key and/or id are incorrect\n", store.UploadStatus())
}

func TestUploadTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := srv.URL
	srv.Close()

	store := sampleStore()
	u := NewUploader(env.Upload{Host: host}, store)
	assert.Error(t, u.Upload(context.Background()))
	assert.Equal(t, ErrStatus, store.UploadStatus())
}

func TestUploadWithoutDewPoint(t *testing.T) {
	store := data.CreateStore()
	store.Update(data.Reading{TemperatureF: 50, DewPointF: math.NaN()})
	u := NewUploader(env.Upload{Host: "http://example.invalid"}, store)
	target, err := u.requestURL()
	require.NoError(t, err)
	assert.NotContains(t, target, "dewptf")
	assert.Contains(t, target, "humidity=0.00")
}

func TestUploadBeforeFirstGoodRead(t *testing.T) {
	store := data.CreateStore()
	nan := math.NaN()
	store.Update(data.Reading{TemperatureF: nan, HumidityPct: nan, PressureInHg: nan, DewPointF: nan})
	u := NewUploader(env.Upload{Host: "http://example.invalid", ID: "KXX1"}, store)
	target, err := u.requestURL()
	require.NoError(t, err)
	for _, key := range []string{"tempf", "baromin", "humidity", "dewptf"} {
		assert.NotContains(t, target, key+"=")
	}
	assert.Contains(t, target, "ID=KXX1")
	assert.Contains(t, target, "action=updateraw")
}
