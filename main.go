package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gr-butler/weathernode/archive"
	"github.com/gr-butler/weathernode/bridge"
	"github.com/gr-butler/weathernode/data"
	"github.com/gr-butler/weathernode/display"
	"github.com/gr-butler/weathernode/env"
	"github.com/gr-butler/weathernode/led"
	"github.com/gr-butler/weathernode/metrics"
	"github.com/gr-butler/weathernode/mqtt"
	"github.com/gr-butler/weathernode/ota"
	"github.com/gr-butler/weathernode/reporting"
	"github.com/gr-butler/weathernode/scheduler"
	"github.com/gr-butler/weathernode/sensors"
	"github.com/gr-butler/weathernode/supervisor"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logger "github.com/sirupsen/logrus"
)

type weathernode struct {
	args     env.Args
	cfg      env.Config
	clock    clockwork.Clock
	store    *data.Store
	hw       *sensors.Hardware
	grid     *display.Grid
	broker   *mqtt.Client
	super    *supervisor.Supervisor
	bridge   *bridge.Bridge
	serial   io.Closer
	oled     *display.OLED
	led      *led.LED
	archive  *archive.Recorder
	updater  *ota.Updater
	sched    *scheduler.Scheduler
	restart  bool
	testMode bool
}

func main() {
	logger.Infof("Starting weather node [%v]", env.Version)

	args, err := env.ParseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Fatalf("Bad arguments [%v]", err)
	}
	if *args.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	if *args.Test {
		logger.Info("TEST MODE")
	}

	cfg, err := env.Load(*args.Config)
	if err != nil {
		logger.Fatalf("Failed to load config [%v]", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &weathernode{
		args:     args,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		store:    data.CreateStore(),
		sched:    scheduler.New(),
		testMode: *args.Test,
	}
	if err := w.setup(ctx, stop); err != nil {
		logger.Errorf("Failed to start [%v]", err)
		w.shutdown()
		logger.Exit(1)
	}

	w.run(ctx)
	w.shutdown()

	if w.restart {
		w.reexec()
	}
	logger.Info("Exiting")
}

// setup brings up the hardware and every collaborator, in the order the node
// needs them.
func (w *weathernode) setup(ctx context.Context, stop context.CancelFunc) error {
	logger.Infof("%v: Initialize sensors...", time.Now().Format(time.RFC822))
	hw, err := sensors.Open(w.cfg.Sensors)
	if err != nil {
		return fmt.Errorf("sensors: %w", err)
	}
	w.hw = hw

	if w.cfg.StatusLED != "" {
		w.led = led.Open("status", w.cfg.StatusLED)
	} else {
		w.led = led.New("status", nil)
	}

	w.grid = display.NewGrid(w.panel())
	w.grid.Print("Starting...", 0, 0)
	if err := w.grid.Flush(); err != nil {
		logger.Warnf("Display flush failed [%v]", err)
	}

	w.broker = mqtt.NewClient(w.cfg.MQTT)
	w.super = supervisor.New(w.broker, w.clock, env.ReconnectDelay)

	if err := w.startBridge(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}

	if w.cfg.DatabaseURL != "" && !w.testMode {
		rec, err := archive.Open(ctx, w.cfg.DatabaseURL, w.store)
		if err != nil {
			// the archive is optional, carry on without it
			logger.Errorf("Failed to open archive db [%v]", err)
		} else {
			w.archive = rec
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	w.updater = ota.New(exe, func() {
		w.restart = true
		stop()
	})

	w.register(ctx)
	go w.serveStatus()
	return nil
}

// panel picks the OLED, or the terminal when there is no panel to drive.
func (w *weathernode) panel() display.Panel {
	if *w.args.NoDisplay {
		return display.Terminal{W: os.Stdout}
	}
	oled, err := display.NewOLED(w.hw.Bus)
	if err != nil {
		logger.Errorf("SSD1306 allocation failed, using terminal [%v]", err)
		return display.Terminal{W: os.Stdout}
	}
	w.oled = oled
	return oled
}

func (w *weathernode) startBridge() error {
	if w.cfg.Bridge.Device == "" {
		logger.Warn("No serial device set, telnet bridge disabled. SERIAL_DEVICE should be set.")
		return nil
	}
	port, err := bridge.OpenSerial(w.cfg.Bridge.Device, w.cfg.Bridge.Baud)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", w.cfg.Bridge.Port))
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("listen on telnet port: %w", err)
	}
	w.serial = port
	w.bridge = bridge.New(l, port, w.cfg.Bridge.Capacity, env.BridgePacing)
	w.bridge.Start()
	return nil
}

// register adds the periodic tasks. Sampling goes first so every sink in the
// same tick sees the fresh reading.
func (w *weathernode) register(ctx context.Context) {
	start := w.clock.Now()
	iv := w.cfg.Intervals

	w.sched.Register("sample", iv.Sample, start, func() {
		r := w.hw.Station.Sample()
		w.store.Update(r)
		metrics.Observe(r)
	})

	console := reporting.NewConsole(os.Stdout, w.store)
	w.sched.Register("console", iv.Console, start, console.Update)

	screen := reporting.NewDisplay(w.grid, w.store)
	w.sched.Register("display", iv.Display, start, screen.Update)

	pub := reporting.NewBroker(w.broker, w.store, w.cfg.MQTT.Topic)
	w.sched.Register("broker", iv.Broker, start, func() {
		n := pub.Update()
		logger.Debugf("Published [%v] messages", n)
	})

	if !w.testMode && !*w.args.NoUpload {
		up := reporting.NewUploader(w.cfg.Upload, w.store)
		w.sched.Register("upload", iv.Upload, start, func() {
			if err := up.Upload(ctx); err != nil {
				logger.Errorf("Upload failed [%v]", err)
			}
		})
	}

	if w.archive != nil {
		w.sched.Register("archive", iv.Archive, start, func() {
			logger.Info("Saving record to db")
			if err := w.archive.WriteRecord(ctx); err != nil {
				logger.Errorf("Failed to write to db [%v]", err)
			}
		})
	}

	w.sched.Register("heartbeat", env.HeartbeatInterval, start, func() {
		logger.Infof("Sending heartbeat, broker [%v]", w.super.State())
		w.led.Flash()
	})
}

// run is the cooperative main loop. Nothing in it blocks except the
// supervisor while the broker is down.
func (w *weathernode) run(ctx context.Context) {
	logger.Info("Main loop started")
	for {
		if err := w.super.Poll(ctx); err != nil {
			return
		}
		w.led.Set(w.super.State() == supervisor.Connected)
		if w.bridge != nil {
			if err := w.bridge.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Bridge poll failed [%v]", err)
			}
		}
		w.sched.Tick(w.clock.Now())
		w.updater.Handle()

		select {
		case <-ctx.Done():
			return
		case <-w.clock.After(env.LoopIdle):
		}
	}
}

func (w *weathernode) serveStatus() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", w.handler)
	mux.Handle("/ota", w.updater)
	if w.cfg.SendProm && !w.testMode {
		logger.Info("Serving prometheus metrics")
		mux.Handle("/metrics", promhttp.Handler())
	}
	logger.Infof("Starting webservice on [%v]", w.cfg.StatusAddr)
	if err := http.ListenAndServe(w.cfg.StatusAddr, mux); err != nil {
		logger.Errorf("Webservice stopped [%v]", err)
	}
}

func (w *weathernode) shutdown() {
	if w.bridge != nil {
		_ = w.bridge.Close()
	}
	if w.serial != nil {
		_ = w.serial.Close()
	}
	if w.oled != nil {
		_ = w.oled.Halt()
	}
	if w.led != nil {
		w.led.Close()
	}
	if w.broker != nil {
		w.broker.Disconnect()
	}
	if w.archive != nil {
		_ = w.archive.Close()
	}
	if w.hw != nil {
		_ = w.hw.Close()
	}
}

// reexec replaces the process with the freshly installed binary.
func (w *weathernode) reexec() {
	exe, err := os.Executable()
	if err != nil {
		logger.Fatalf("Cannot restart [%v]", err)
	}
	logger.Infof("Restarting [%v]", exe)
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		logger.Fatalf("Restart failed [%v]", err)
	}
}
