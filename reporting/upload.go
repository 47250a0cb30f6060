package reporting

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/gr-butler/weathernode/data"
	"github.com/gr-butler/weathernode/env"
	"github.com/gr-butler/weathernode/metrics"

	logger "github.com/sirupsen/logrus"
)

/*

Weather Underground personal weather station upload protocol

 The station sends an HTTP GET to
 http://weatherstation.wunderground.com/weatherstation/updateweatherstation.php
 followed by key/value pairs.

KEY				Description															UNIT

ID				Station ID as registered
PASSWORD		Station key
dateutc			"now" lets the server stamp the observation
tempf			Outdoor Temperature 												Fahrenheit
baromin			Barometric Pressure 												Inch of Mercury
humidity		Outdoor Humidity 													0-100 %
dewptf			Outdoor Dewpoint 													Fahrenheit
action			always "updateraw"

 The server answers with a short text body, "success" or a reason. That body
 is what the operator sees on the display.

*/

const (
	// ErrStatus replaces the upload status when the request never got an answer
	ErrStatus = "ERR"

	uploadTimeout = time.Second * 30
	maxBody       = 4096
)

type uploadData struct {
	ID       string `url:"ID"`
	Password string `url:"PASSWORD"`
	DateUTC  string `url:"dateutc"`
	TempF    string `url:"tempf,omitempty"`
	BaromIn  string `url:"baromin,omitempty"`
	Humidity string `url:"humidity,omitempty"`
	DewPtF   string `url:"dewptf,omitempty"`
	Action   string `url:"action"`
}

// Uploader sends the reading to the weather upload endpoint and keeps the
// answer as the upload status.
type Uploader struct {
	client *http.Client
	cfg    env.Upload
	store  *data.Store
}

func NewUploader(cfg env.Upload, store *data.Store) *Uploader {
	return &Uploader{
		client: &http.Client{Timeout: uploadTimeout},
		cfg:    cfg,
		store:  store,
	}
}

// a field with no reading yet, or no dew point without humidity, is left
// out of the request
func knownValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return FormatValue(v)
}

// build the request url from the current reading
func (u *Uploader) requestURL() (string, error) {
	r := u.store.Latest()
	wd := uploadData{
		ID:       u.cfg.ID,
		Password: u.cfg.Password,
		DateUTC:  "now",
		TempF:    knownValue(r.TemperatureF),
		BaromIn:  knownValue(r.PressureInHg),
		Humidity: knownValue(r.HumidityPct),
		DewPtF:   knownValue(r.DewPointF),
		Action:   "updateraw",
	}
	vals, err := query.Values(wd)
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}
	return u.cfg.Host + env.UploadPath + "?" + vals.Encode(), nil
}

// Upload sends one request. Any answer from the server, good or bad, is
// stored verbatim; only a transport failure is returned as an error.
func (u *Uploader) Upload(ctx context.Context) error {
	target, err := u.requestURL()
	if err != nil {
		u.store.SetUploadStatus(ErrStatus)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		u.store.SetUploadStatus(ErrStatus)
		return fmt.Errorf("build upload request: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		u.store.SetUploadStatus(ErrStatus)
		metrics.UploadResponses.WithLabelValues("error").Inc()
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		logger.Warnf("Short upload response [%v]", err)
	}
	metrics.UploadResponses.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	logger.Infof("Request status: [%v]", resp.StatusCode)
	logger.Infof("Server response: [%s]", body)

	u.store.SetUploadStatus(string(body))
	return nil
}
