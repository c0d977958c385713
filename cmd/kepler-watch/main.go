// Command kepler-watch runs the watch application: it serves the BLE
// notification and clock profile, drives the display and buttons, and
// publishes activity to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/kepler-watch/internal/ble"
	"github.com/sweeney/kepler-watch/internal/clock"
	"github.com/sweeney/kepler-watch/internal/config"
	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/metrics"
	"github.com/sweeney/kepler-watch/internal/mqtt"
	"github.com/sweeney/kepler-watch/internal/status"
	"github.com/sweeney/kepler-watch/internal/web"
)

// simulatedFrames bounds the frames kept by the simulated panel.
const simulatedFrames = 4

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	broker := flag.String("broker", "", `MQTT broker address, overrides config ("off" disables)`)
	httpAddr := flag.String("http", "", `HTTP status address, overrides config ("off" disables)`)
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat interval, overrides config (0 disables)")
	printState := flag.Bool("print-state", false, "Print current button state and exit")
	simulate := flag.Bool("simulate", false, "Run without display, GPIO or BLE hardware")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	// Flags override the file only when given on the command line.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = disabled(*broker)
		case "http":
			cfg.HTTP = disabled(*httpAddr)
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printState, *simulate); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func disabled(v string) string {
	if strings.EqualFold(v, "off") {
		return ""
	}
	return v
}

func run(cfg *config.Config, printState, simulate bool) error {
	if printState {
		return printButtons(cfg)
	}

	m := metrics.New()

	hw, closeHW, err := openHardware(cfg, simulate)
	if err != nil {
		return err
	}
	defer closeHW()

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	var client *mqtt.RealPublisher
	if cfg.MQTT.Broker != "" {
		client = mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Prefix:   cfg.MQTT.TopicPrefix,
			Backlog:  cfg.MQTT.Backlog,
		})
		defer client.Close()
		publisher, mqttStatus = client, client
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:         cfg.MQTT.Broker,
		TopicPrefix:    cfg.MQTT.TopicPrefix,
		HTTPAddr:       cfg.HTTP,
		BLEName:        cfg.BLE.Name,
		HeartbeatMs:    cfg.Heartbeat.Milliseconds(),
		DebounceMs:     cfg.Buttons.Debounce.Milliseconds(),
		IdleTimeoutMs:  cfg.Timeouts.Idle.Milliseconds(),
		AlertTimeoutMs: cfg.Timeouts.Alert.Milliseconds(),
		Simulated:      simulate,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	w, err := newWatch(cfg, hw, tracker, publisher, m)
	if err != nil {
		return err
	}
	defer w.close()

	if client != nil {
		bridge := mqtt.NewBridge(cfg.MQTT.TopicPrefix, w.table)
		if err := bridge.Start(client); err != nil {
			log.Printf("mqtt: set topics unavailable: %v", err)
		}
	}

	if cfg.BLE.Enabled && !simulate {
		srv, err := ble.Start(cfg.BLE.Name, w.table, w.router.PostConnection)
		if err != nil {
			return fmt.Errorf("init ble: %w", err)
		}
		defer srv.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clockTick := time.NewTicker(time.Second)
	defer clockTick.Stop()
	fault := w.start(ctx, clockTick.C)

	// Publish startup event with full status snapshot
	w.collect()
	if publisher != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, w.surface, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: debounce=%v idle=%v alert=%v broker=%s heartbeat=%v simulate=%v",
		cfg.Buttons.Debounce, cfg.Timeouts.Idle, cfg.Timeouts.Alert, cfg.MQTT.Broker, cfg.Heartbeat, simulate)

	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(w.collect, publisher, mqttStatus, tracker, time.Now, refresh.C, heartbeat, sigCh, fault)
}

// openHardware opens the panel and describes how to open the buttons.
// With simulate set, nothing touches real hardware.
func openHardware(cfg *config.Config, simulate bool) (hardware, func(), error) {
	rtc := clock.NewSystemRTC(time.Now, cfg.Epoch)

	if simulate {
		tr := display.NewFakeTransport()
		tr.Limit = simulatedFrames
		return hardware{
			transport: tr,
			rtc:       rtc,
			openPins: func(h gpio.EdgeHandler) (gpio.Pins, error) {
				p := gpio.NewFakePins()
				p.SetHandler(h)
				return p, nil
			},
		}, func() {}, nil
	}

	tr, err := display.OpenI2C(cfg.Display.Bus, cfg.Display.Address)
	if err != nil {
		return hardware{}, nil, fmt.Errorf("init display: %w", err)
	}
	closeHW := func() {
		if err := tr.Close(); err != nil {
			log.Printf("display close: %v", err)
		}
	}
	return hardware{
		transport: tr,
		rtc:       rtc,
		openPins: func(h gpio.EdgeHandler) (gpio.Pins, error) {
			return gpio.NewRealPins(cfg.Buttons.Chip, cfg.Buttons.Lines(), cfg.Buttons.Polarity(), h)
		},
	}, closeHW, nil
}

func printButtons(cfg *config.Config) error {
	pins, err := gpio.NewRealPins(cfg.Buttons.Chip, cfg.Buttons.Lines(), cfg.Buttons.Polarity(), func(gpio.ButtonID) {})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	var states []string
	for id := gpio.Button0; id < gpio.NumButtons; id++ {
		pressed, err := pins.Pressed(id)
		if err != nil {
			return fmt.Errorf("read %s: %w", id, err)
		}
		states = append(states, fmt.Sprintf("%s: %s", id, stateString(pressed)))
	}
	fmt.Println(strings.Join(states, ", "))
	return nil
}

// runLoop keeps the status tracker fresh, publishes heartbeats and
// publishes SHUTDOWN on a signal. A fault from the router or the clock is
// returned. publisher may be nil when MQTT is disabled.
func runLoop(collect func(), publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, refresh, heartbeat <-chan time.Time, sig <-chan os.Signal, fault <-chan error) error {
	update := func() {
		collect()
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher == nil {
				return nil
			}
			update()
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case err := <-fault:
			return err

		case <-refresh:
			update()

		case <-heartbeat:
			update()
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v writes=%d alerts=%d display=%v",
				snap.Uptime().Round(time.Second), snap.Counts.CharWrites, snap.Counts.AlertsShown, snap.Watch.DisplayOn)
			if publisher == nil {
				continue
			}
			hbEvent := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
