package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	BuildVersion = "0.1.0"
)

type Initializer func(container *Container)

var initializers = make(map[int][]Initializer)

// RegisterInitializer adds an initializer. Higher priorities run first.
func RegisterInitializer(priority int, initializer Initializer) {
	initializers[priority] = append(initializers[priority], initializer)
}

func runInitializers(container *Container) {
	priorities := make([]int, 0, len(initializers))
	for priority := range initializers {
		priorities = append(priorities, priority)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(priorities)))
	for _, priority := range priorities {
		for _, initializer := range initializers[priority] {
			initializer(container)
		}
	}
}

func main() {
	var dataDir string
	flag.StringVar(&dataDir, "data-dir", "/data/onoff2mqtt/", "Sets the directory where the data, including config, files are stored")

	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Sets the log level. Options are panic, fatal, error, warning, info, debug, trace")

	var logCecMessages bool
	flag.BoolVar(&logCecMessages, "log-cec-messages", false, "Enables logging of the libcec log")

	var adapterPath string
	flag.StringVar(&adapterPath, "adapter", "", "Path of the CEC adapter to use, defaults to the first one found")

	flag.Parse()

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	log.WithField("version", BuildVersion).Info("Starting onoff2mqtt")

	container := NewContainer()

	config, err := ParseConfig(dataDir)
	if nil != err {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Error reading configuration")
	}
	container.Register("config", config)

	devices := NewDeviceRegistry(dataDir)
	container.Register("devices", devices)

	metrics := NewMetrics()
	container.Register("metrics", metrics)

	mqtt, err := ConnectMqtt(config)
	if nil != err {
		log.WithFields(log.Fields{
			"host":  config.Mqtt.Host,
			"error": err,
		}).Fatal("Failed to connect to MQTT broker")
	}
	container.Register("mqtt", mqtt)

	cec, err := InitialiseCec(devices, adapterPath)
	if nil != err {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Failed to setup CEC connection")
	}
	cec.LibCecLoggingEnabled = logCecMessages
	container.Register("cec", cec)

	runInitializers(container)

	cec.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if config.Metrics.Listen != "" {
		g.Go(func() error { return serveMetrics(ctx, config.Metrics.Listen, metrics) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	log.Info("onoff2mqtt started")
	if err = g.Wait(); err != nil {
		log.WithField("error", err).Error("Metrics server failed")
	}
	log.Info("Exiting")

	if bridge, ok := Resolve[*PowerBridge](container, "bridge.power"); ok {
		bridge.Stop()
	}
	if bridge, ok := Resolve[*ActiveSourceBridge](container, "active-source"); ok {
		bridge.Stop()
	}

	if err = config.Save(dataDir); err != nil {
		log.WithField("error", err).Error("Failed to save configuration")
	}
	if err = devices.Save(dataDir); err != nil {
		log.WithField("error", err).Error("Failed to save devices")
	}
}

func serveMetrics(ctx context.Context, addr string, metrics *Metrics) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("Serving metrics")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
