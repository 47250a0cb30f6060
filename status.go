package main

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/gr-butler/weathernode/buffer"
	"github.com/gr-butler/weathernode/data"

	logger "github.com/sirupsen/logrus"
)

// samples in the short average, 1 s apart
const shortWindow = 10

type summary struct {
	Samples  int      `json:"samples"`
	Last     *float64 `json:"last"`
	Min      *float64 `json:"min"`
	Avg      *float64 `json:"avg"`
	Max      *float64 `json:"max"`
	AvgShort *float64 `json:"avg_10s"`
}

type webdata struct {
	TimeNow      string             `json:"time"`
	Taken        string             `json:"taken"`
	Temperature  *float64           `json:"temperature_F"`
	Humidity     *float64           `json:"humidity_RH"`
	PressureHg   *float64           `json:"pressure_InchHg"`
	DewPoint     *float64           `json:"dew_point_F"`
	Signal       int                `json:"signal_dBm"`
	UploadStatus string             `json:"upload_status"`
	LastMinute   map[string]summary `json:"last_minute"`
}

// JSON has no NaN, a missing value goes out as null
func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func history(store *data.Store) map[string]summary {
	out := make(map[string]summary)
	for _, name := range []string{data.Temperature, data.Humidity, data.Pressure, data.DewPoint, data.Signal} {
		buf := store.History(name)
		if buf == nil || buf.IsEmpty() {
			continue
		}
		avg, min, max, _ := buf.GetAverageMinMaxSum()
		s := summary{
			Samples:  buf.GetSize(),
			Last:     jsonFloat(buf.GetLast()),
			Avg:      jsonFloat(float64(avg)),
			AvgShort: jsonFloat(float64(buf.AverageLast(shortWindow))),
		}
		// min above max means every sample was NaN
		if min <= buffer.Minimum(max) {
			s.Min = jsonFloat(float64(min))
			s.Max = jsonFloat(float64(max))
		}
		out[name] = s
	}
	return out
}

func (w *weathernode) handler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	rd := w.store.Latest()
	wd := webdata{
		TimeNow:      time.Now().Format(time.RFC822),
		Temperature:  jsonFloat(rd.TemperatureF),
		Humidity:     jsonFloat(rd.HumidityPct),
		PressureHg:   jsonFloat(rd.PressureInHg),
		DewPoint:     jsonFloat(rd.DewPointF),
		Signal:       rd.SignalDBm,
		UploadStatus: w.store.UploadStatus(),
		LastMinute:   history(w.store),
	}
	if !rd.Taken.IsZero() {
		wd.Taken = rd.Taken.Format(time.RFC822)
	}

	js, err := json.Marshal(wd)
	if err != nil {
		logger.Errorf("JSON error [%v]", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Debugf("Web read: \n[%v]", string(js))
	_, _ = rw.Write(js) // not much we can do if this fails
}
