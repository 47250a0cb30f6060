package env

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Args struct {
	Test      *bool
	Verbose   *bool
	NoDisplay *bool
	NoUpload  *bool
	Config    *string
}

func ParseArgs(fs *flag.FlagSet, arguments []string) (Args, error) {
	a := Args{
		Test:      fs.Bool("test", false, "test mode, does not upload or archive data"),
		Verbose:   fs.Bool("verbose", false, "debug logging"),
		NoDisplay: fs.Bool("nodisplay", false, "do not drive the OLED display"),
		NoUpload:  fs.Bool("noupload", false, "do not send data to the upload endpoint"),
		Config:    fs.String("config", "", "YAML config file"),
	}
	return a, fs.Parse(arguments)
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

type Upload struct {
	Host     string `yaml:"host"`
	ID       string `yaml:"id"`
	Password string `yaml:"password"`
}

type Bridge struct {
	Port     int    `yaml:"port"`
	Capacity int    `yaml:"capacity"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
}

type Sensors struct {
	Bus            string  `yaml:"bus"`
	HygrometerAddr uint16  `yaml:"hygrometer_addr"`
	BarometerAddr  uint16  `yaml:"barometer_addr"`
	ThermometerHi  bool    `yaml:"thermometer_hi_res"`
	AltitudeM      float64 `yaml:"altitude_m"`
	Wireless       string  `yaml:"wireless_interface"`
}

type Intervals struct {
	Sample  time.Duration `yaml:"sample"`
	Console time.Duration `yaml:"console"`
	Display time.Duration `yaml:"display"`
	Broker  time.Duration `yaml:"broker"`
	Upload  time.Duration `yaml:"upload"`
	Archive time.Duration `yaml:"archive"`
}

// Config holds the build time constants of the node. Everything has a
// default so a missing file is not an error.
type Config struct {
	MQTT        MQTT      `yaml:"mqtt"`
	Upload      Upload    `yaml:"upload"`
	Bridge      Bridge    `yaml:"bridge"`
	Sensors     Sensors   `yaml:"sensors"`
	Intervals   Intervals `yaml:"intervals"`
	DatabaseURL string    `yaml:"database_url"`
	StatusAddr  string    `yaml:"status_addr"`
	SendProm    bool      `yaml:"send_prom_data"`
	StatusLED   string    `yaml:"status_led"`
}

func Defaults() Config {
	return Config{
		MQTT: MQTT{
			Port:     MQTTPort,
			ClientID: MQTTClientID,
			Topic:    BaseTopic,
		},
		Upload: Upload{
			Host: UploadHost,
		},
		Bridge: Bridge{
			Port:     TelnetPort,
			Capacity: BridgeCapacity,
			Baud:     SerialBaud,
		},
		Sensors: Sensors{
			HygrometerAddr: HygrometerI2C,
			BarometerAddr:  BarometerI2C,
			AltitudeM:      AltitudeM,
			Wireless:       WirelessInterface,
		},
		Intervals: Intervals{
			Sample:  SampleInterval,
			Console: ConsoleInterval,
			Display: DisplayInterval,
			Broker:  BrokerInterval,
			Upload:  UploadInterval,
			Archive: ArchiveInterval,
		},
		StatusAddr: StatusAddr,
	}
}

// Load reads the optional YAML file over the defaults then applies the
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %v: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"MQTT_BROKER":   &c.MQTT.Broker,
		"MQTT_USER":     &c.MQTT.User,
		"MQTT_PASSWORD": &c.MQTT.Password,
		"MQTT_TOPIC":    &c.MQTT.Topic,
		"PWS_ID":        &c.Upload.ID,
		"PWS_PASSWORD":  &c.Upload.Password,
		"SERIAL_DEVICE": &c.Bridge.Device,
		"DATABASE_URL":  &c.DatabaseURL,
		"STATUS_LED":    &c.StatusLED,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("MQTT_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MQTT_PORT %q: %w", v, err)
		}
		c.MQTT.Port = port
	}
	if v, ok := os.LookupEnv("SENDPROMDATA"); ok {
		c.SendProm = v == "true"
	}
	return nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) Validate() error {
	intervals := map[string]time.Duration{
		"sample":  c.Intervals.Sample,
		"console": c.Intervals.Console,
		"display": c.Intervals.Display,
		"broker":  c.Intervals.Broker,
		"upload":  c.Intervals.Upload,
		"archive": c.Intervals.Archive,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%w: %v interval must be positive, got %v", ErrInvalidConfig, name, d)
		}
	}
	if c.Bridge.Capacity < 1 {
		return fmt.Errorf("%w: bridge capacity must be at least 1, got %v", ErrInvalidConfig, c.Bridge.Capacity)
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt broker is empty, MQTT_BROKER should be set", ErrInvalidConfig)
	}
	if c.MQTT.Topic == "" {
		return fmt.Errorf("%w: mqtt topic is empty", ErrInvalidConfig)
	}
	if c.Upload.ID == "" || c.Upload.Password == "" {
		// not fatal, the endpoint will answer with an error the operator can read
		logger.Warn("PWS id and or password not set! PWS_ID and PWS_PASSWORD should be set.")
	}
	return nil
}
