package metrics

import (
	"github.com/gr-butler/weathernode/data"
	"github.com/prometheus/client_golang/prometheus"
)

var Prom_temperature = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "temperature",
		Help: "Temperature F",
	},
)

var Prom_humidity = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "relative_humidity",
		Help: "Relative Humidity",
	},
)

var Prom_atmPresure = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "atmospheric_pressure",
		Help: "Sea level pressure inHg",
	},
)

var Prom_dewPoint = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "dew_point",
		Help: "Dew point F",
	},
)

var Prom_signal = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "wifi_signal_dbm",
		Help: "Radio signal strength dBm",
	},
)

var TaskRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_task_runs_total",
		Help: "Scheduled task firings",
	},
	[]string{"task"},
)

var BrokerMessages = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "broker_messages_total",
		Help: "Broker messages by result (sent, dropped, failed)",
	},
	[]string{"result"},
)

var UploadResponses = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "upload_responses_total",
		Help: "Upload responses by HTTP status, 'error' for transport failures",
	},
	[]string{"code"},
)

var BridgePeers = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_peers_total",
		Help: "Bridge connections by outcome (admitted, rejected, evicted)",
	},
	[]string{"outcome"},
)

var BridgeBytes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_bytes_total",
		Help: "Bytes relayed by the bridge",
	},
	[]string{"direction"},
)

var ConnectAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "broker_connect_attempts_total",
		Help: "Broker connect attempts by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(
		Prom_temperature,
		Prom_humidity,
		Prom_atmPresure,
		Prom_dewPoint,
		Prom_signal,
		TaskRuns,
		BrokerMessages,
		UploadResponses,
		BridgePeers,
		BridgeBytes,
		ConnectAttempts)
}

// Observe copies a reading into the gauges.
func Observe(r data.Reading) {
	Prom_temperature.Set(r.TemperatureF)
	Prom_humidity.Set(r.HumidityPct)
	Prom_atmPresure.Set(r.PressureInHg)
	Prom_dewPoint.Set(r.DewPointF)
	Prom_signal.Set(float64(r.SignalDBm))
}
