// Command cell-charger runs the closed charge-control loop for a single cell:
// it samples the converter, drives the charger and indicator outputs, and
// publishes state changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/cell-charger/internal/adc"
	"github.com/sweeney/cell-charger/internal/config"
	"github.com/sweeney/cell-charger/internal/gpio"
	"github.com/sweeney/cell-charger/internal/logic"
	"github.com/sweeney/cell-charger/internal/mqtt"
	"github.com/sweeney/cell-charger/internal/sim"
	"github.com/sweeney/cell-charger/internal/status"
	"github.com/sweeney/cell-charger/internal/web"
)

const defaultConfigPath = "/etc/cell-charger/config.yaml"

var errSourceClosed = errors.New("conversion source closed")

func main() {
	cfg, printConfig, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("fatal: %v", err)
	}

	if printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(data)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags loads the config file named by -config and applies any
// explicitly set flags on top of it.
func parseFlags(args []string) (*config.Config, bool, error) {
	fs := flag.NewFlagSet("cell-charger", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to the YAML config file (missing file uses defaults)")
	broker := fs.String("broker", "", "MQTT broker address, empty disables MQTT (overrides config)")
	httpAddr := fs.String("http", "", "HTTP status address, empty disables (overrides config)")
	heartbeat := fs.Duration("heartbeat", 0, "Heartbeat interval, 0 disables (overrides config)")
	printConfig := fs.Bool("print-config", false, "Print the effective configuration and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, false, fmt.Errorf("load config: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}

	return cfg, *printConfig, nil
}

func run(cfg *config.Config) error {
	source, outputs, bench, err := openHardware(cfg)
	if err != nil {
		return err
	}
	// Outputs are released after runLoop has driven them to DISCONNECTED.
	defer outputs.Close()
	defer source.Close()

	if bench != nil {
		toggle := make(chan os.Signal, 1)
		signal.Notify(toggle, syscall.SIGUSR1)
		defer signal.Stop(toggle)
		go func() {
			for range toggle {
				log.Printf("sim: supply present=%v", bench.ToggleSupply())
			}
		}()
		log.Printf("sim: send SIGUSR1 to connect or remove the supply")
	}

	publisher, mqttStatus, err := newPublisher(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	startTime := time.Now()
	core, err := logic.New(cfg.Core(), source, outputs, startTime)
	if err != nil {
		return err
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: adc=%s outputs=%s low=%d high=%d window=%d broker=%q heartbeat=%v",
		cfg.ADC.Driver, cfg.Outputs.Driver, cfg.Charge.LowCharge, cfg.Charge.HighCharge,
		cfg.Charge.MaxSamples, cfg.MQTT.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(tickInterval(cfg.ADC.StallTimeout))
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(core, source.Conversions(), publisher, mqttStatus, tracker, cfg.Heartbeat, cfg.ADC.StallTimeout, time.Now, ticker.C, sigCh)
}

// openHardware builds the converter source and the outputs. With the sim
// driver both are the same bench, which is also returned.
func openHardware(cfg *config.Config) (adc.Source, gpio.Outputs, *sim.Bench, error) {
	if cfg.ADC.Driver == config.DriverSim {
		bench := sim.New(sim.Config{
			Interval:   cfg.Sim.Interval,
			CellStart:  cfg.Sim.CellStart,
			Reference:  cfg.Sim.Reference,
			ChargeStep: cfg.Sim.ChargeStep,
			DrainStep:  cfg.Sim.DrainStep,
			MaxRaw:     cfg.ADC.MaxRaw,
		})
		return bench, bench, bench, nil
	}

	source, err := adc.OpenSerial(cfg.ADC.Port, cfg.ADC.BaudRate, cfg.ADC.MaxRaw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init adc: %w", err)
	}

	p := cfg.Outputs.Pins
	outputs, err := gpio.NewRealOutputs(cfg.Outputs.Chip, gpio.Pins{
		ChargeEnable: p.ChargeEnable,
		Low:          p.Low,
		Full:         p.Full,
		Charging:     p.Charging,
		Presence:     p.Presence,
	})
	if err != nil {
		source.Close()
		return nil, nil, nil, fmt.Errorf("init gpio: %w", err)
	}

	return source, outputs, nil, nil
}

// newPublisher connects to the broker, or returns a publisher that discards
// everything when no broker is configured.
func newPublisher(cfg config.MQTTConfig) (mqtt.Publisher, mqtt.ConnectionStatus, error) {
	if cfg.Broker == "" {
		log.Printf("mqtt disabled (no broker configured)")
		return mqtt.NopPublisher{}, mqtt.NopPublisher{}, nil
	}
	p, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.Broker,
		ClientID:   cfg.ClientID,
		BufferSize: cfg.BufferSize,
	})
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		LowCharge:     cfg.Charge.LowCharge,
		HighCharge:    cfg.Charge.HighCharge,
		MaxSamples:    cfg.Charge.MaxSamples,
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		ADCDriver:     cfg.ADC.Driver,
		OutputsDriver: cfg.Outputs.Driver,
	}
}

// tickInterval is the housekeeping period: fine enough to notice a stall
// within half the stall timeout, and at most one second.
func tickInterval(stall time.Duration) time.Duration {
	if stall > 0 && stall/2 < time.Second {
		if stall/2 < 10*time.Millisecond {
			return 10 * time.Millisecond
		}
		return stall / 2
	}
	return time.Second
}

// runLoop owns the core. Conversions drive the control path; ticks drive the
// stall watchdog, heartbeats and connection status; a signal shuts down.
func runLoop(core *logic.Core, conversions <-chan adc.Conversion, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat, stall time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	if err := core.Start(); err != nil {
		if logic.IsFatal(err) {
			shutdown(core, publisher, mqttStatus, tracker, now, "ERROR")
			return fmt.Errorf("start sampling: %w", err)
		}
		log.Printf("output error at start: %v", err)
	}
	tracker.SetDecision(core.Decision())
	lastConversion := now()

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
			shutdown(core, publisher, mqttStatus, tracker, now, signalName)
			return nil

		case conv, ok := <-conversions:
			if !ok {
				shutdown(core, publisher, mqttStatus, tracker, now, "ERROR")
				return errSourceClosed
			}
			t := now()
			lastConversion = t

			dropped := core.Discarded()
			u, err := core.OnConversionComplete(conv.Channel, conv.Raw, t)
			if core.Discarded() > dropped {
				log.Printf("dropped late duplicate of channel %s", conv.Channel)
			}
			if err != nil {
				if logic.IsFatal(err) {
					shutdown(core, publisher, mqttStatus, tracker, now, "ERROR")
					return fmt.Errorf("control loop: %w", err)
				}
				// Outputs are re-asserted on the next settled estimate.
				log.Printf("output error: %v", err)
			}

			tracker.Record(u)
			if u.Cycle.Complete {
				_, filled := core.Estimator().Pending()
				tracker.SetCounters(core.Cycles(), core.Settles(), core.Counts(), filled)
			}

			if ev := u.Event; ev != nil {
				log.Printf("state: %s -> %s (value=%d presence=%s charge_enable=%v)",
					ev.From, ev.To, ev.Value, ev.Presence, ev.ChargeEnable)
				if err := publisher.Publish(*ev); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

		case <-tick:
			t := now()

			if stall > 0 && t.Sub(lastConversion) >= stall {
				log.Printf("no conversion for %v, re-issuing channel %s", t.Sub(lastConversion), core.Pending())
				if err := core.Kick(); err != nil {
					log.Printf("re-issue failed: %v", err)
				}
				lastConversion = t
			}

			tracker.SetMQTTConnected(mqttStatus.IsConnected())

			if hb := core.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Printf("heartbeat: uptime=%v state=%s cycles=%d settles=%d",
					hb.Uptime, hb.State, hb.Cycles, hb.Settles)

				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hb.Timestamp,
					Event:      mqtt.EventHeartbeat,
					RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// shutdown forces the DISCONNECTED outputs and publishes the SHUTDOWN event.
func shutdown(core *logic.Core, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, reason string) {
	t := now()
	ev, err := core.Stop(t)
	if err != nil {
		log.Printf("output error at shutdown: %v", err)
	}
	tracker.SetDecision(core.Decision())
	if ev != nil {
		tracker.Record(logic.Update{Event: ev})
		log.Printf("state: %s -> %s (shutdown)", ev.From, ev.To)
		if err := publisher.Publish(*ev); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	tracker.SetMQTTConnected(mqttStatus.IsConnected())
	snap := tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      mqtt.EventShutdown,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, reason),
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
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
