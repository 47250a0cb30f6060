package env

import "time"

const (
	Version = "GRB-WeatherNode-1.0.0"

	// task intervals
	SampleInterval    = time.Second
	ConsoleInterval   = time.Second * 2
	DisplayInterval   = time.Second * 2
	BrokerInterval    = time.Second * 10
	UploadInterval    = time.Second * 30
	ArchiveInterval   = time.Minute * 15
	HeartbeatInterval = time.Second * 30

	// main loop idle between iterations
	LoopIdle = time.Millisecond * 10

	// fixed wait between broker connect attempts
	ReconnectDelay = time.Second * 5

	// minimum gap between writes to a bridge peer
	BridgePacing = time.Millisecond

	TelnetPort     = 23
	BridgeCapacity = 1
	SerialBaud     = 115200

	HygrometerI2C  = 0x76 // BME280 temperature & humidity
	BarometerI2C   = 0x77 // BMP180/BMP280 pressure
	ThermometerI2C = 0x18 // MCP9808 hi res temperature (optional)

	// station height above sea level in metres
	AltitudeM = 241.2

	PaToInHg = 0.0002953

	UploadHost = "http://weatherstation.wunderground.com"
	UploadPath = "/weatherstation/updateweatherstation.php"

	MQTTPort     = 1883
	MQTTClientID = "weathernode"
	BaseTopic    = "weathernode"

	WirelessInterface = "wlan0"
	StatusAddr        = ":80"
)
