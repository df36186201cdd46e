// The quickmp profile service: receives prometheus remote-write data
// and computes a matrix profile per series window.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/mux"
	"github.com/kpaschen/quickmp/lib"
	"github.com/kpaschen/quickmp/lib/accel"
	"github.com/kpaschen/quickmp/lib/reporter"
	"github.com/kpaschen/quickmp/lib/settings"
	"github.com/kpaschen/quickmp/receiver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type config struct {
	ListenAddress  string `toml:"listen-address"`
	MetricsAddress string `toml:"metrics-address"`

	Backend            string `toml:"backend"`
	KernelPath         string `toml:"kernel-path"`
	DeviceStart        int    `toml:"device-start"`
	DeviceCount        int    `toml:"device-count"`
	WindowSize         int    `toml:"window-size"`
	SubsequenceLength  int    `toml:"subsequence-length"`
	SampleInterval     int    `toml:"sample-interval"`
	RawDistance        bool   `toml:"raw-distance"`
	ResultsDirectory   string `toml:"results-directory"`
	MaxRowsPerRowGroup int64  `toml:"max-rows-per-row-group"`
}

func readConfig(cfgPath string) (*config, error) {
	cfg := &config{}
	if cfgPath == "" {
		return cfg, nil
	}
	_, err := toml.DecodeFile(cfgPath, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("read config file %s\n", cfgPath)
	return cfg, nil
}

func buildEngine(cfg settings.QuickmpSettings) lib.Engine {
	switch cfg.Backend {
	case settings.BACKEND_SIM:
		return lib.NewAccelEngine(accel.NewSimRuntime(1), cfg)
	default:
		return lib.NewCPUEngine()
	}
}

func main() {
	var configFile string
	var metricsAddr string
	var listenAddr string

	flag.StringVar(&configFile, "config-file", "", "Path to a toml config file.")
	flag.StringVar(&metricsAddr, "metrics-address", ":9203", "The address the metrics endpoint binds to.")
	flag.StringVar(&listenAddr, "listen-address", ":9201", "The address that the storage endpoint binds to.")

	flag.Parse()

	cfg, err := readConfig(configFile)
	if err != nil {
		log.Fatalf("failed to read config file %s: %v", configFile, err)
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = listenAddr
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = metricsAddr
	}

	quickmpConfig := settings.QuickmpSettings{
		Backend:            cfg.Backend,
		KernelPath:         cfg.KernelPath,
		DeviceStart:        cfg.DeviceStart,
		DeviceCount:        cfg.DeviceCount,
		WindowSize:         cfg.WindowSize,
		SubsequenceLength:  cfg.SubsequenceLength,
		SampleInterval:     cfg.SampleInterval,
		RawDistance:        cfg.RawDistance,
		ResultsDirectory:   cfg.ResultsDirectory,
		MaxRowsPerRowGroup: cfg.MaxRowsPerRowGroup,
	}.ComputeSettingsFields()

	engine := buildEngine(quickmpConfig)
	if err := engine.Initialize(quickmpConfig.DeviceStart, quickmpConfig.DeviceCount); err != nil {
		log.Fatalf("failed to initialize %s engine: %v", quickmpConfig.Backend, err)
	}
	defer engine.Finalize()

	rep := reporter.NewParquetReporter(quickmpConfig.ResultsDirectory,
		quickmpConfig.MaxRowsPerRowGroup)

	processor := receiver.NewProfileProcessor(quickmpConfig, engine, rep)

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/api/v1/write", processor.ReceivePrometheusData)

	http.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(cfg.MetricsAddress, nil)

	server := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("profile service listening on %s\n", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}
	}()

	<-stop
	log.Println("profile service shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// This is where the profile service gets a chance to dump results to disk.
	if err := processor.Shutdown(); err != nil {
		log.Printf("failed to flush results: %v\n", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
