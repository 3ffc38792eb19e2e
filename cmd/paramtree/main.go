// Command paramtree runs a parameter tree with an interactive management
// shell.
//
// The tree is built from a bundled data model or from YAML model files.
// The shell talks to it through the management protocol (in-process
// loopback), so every command takes the same path a remote manager's
// requests would. With -listen the same protocol is also served over TCP
// (optionally TLS) to remote managers. Value changes are tracked for
// notification and can be published to an MQTT broker.
//
// Usage:
//
//	paramtree [flags]
//
// Flags:
//
//	-config string     YAML configuration file
//	-bundle string     Bundled data model: tr181, tr135, tr196 (default "tr181")
//	-model string      Comma-separated model files (overrides -bundle)
//	-store string      State store: none, file, sqlite, postgres (default "none")
//	-store-path string State file, SQLite database or PostgreSQL DSN
//	-capture string    Write captured events to this file (CBOR)
//	-listen string     Serve the management protocol on this address
//	-tls-cert string   TLS certificate file for -listen
//	-tls-key string    TLS key file for -listen
//	-mqtt string       MQTT broker URL for active notifications
//	-log-level string  Log level: trace, debug, info, warn, error (default "info")
//	-simulate          Update device statistics periodically
//
// Examples:
//
//	# Explore the TR-181 model
//	paramtree
//
//	# Keep state in SQLite and publish notifications
//	paramtree -store sqlite -store-path cpe.db -mqtt tcp://localhost:1883
//
//	# Accept remote managers over TLS
//	paramtree -listen :7547 -tls-cert cpe.crt -tls-key cpe.key
//
//	# Use a configuration file
//	paramtree -config /etc/paramtree/cpe.yaml
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/paramtree/paramtree-go/cmd/paramtree/interactive"
	"github.com/paramtree/paramtree-go/pkg/interaction"
	"github.com/paramtree/paramtree-go/pkg/log"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/notify"
	"github.com/paramtree/paramtree-go/pkg/persistence"
	"github.com/paramtree/paramtree-go/pkg/schema"
	"github.com/paramtree/paramtree-go/pkg/transport"
)

// StoreKind selects the persistence backend.
type StoreKind string

const (
	StoreNone     StoreKind = "none"
	StoreFile     StoreKind = "file"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
)

// Config holds the command configuration.
type Config struct {
	ConfigFile string `yaml:"-"`

	Bundle     string   `yaml:"bundle"`
	ModelFiles []string `yaml:"models"`

	Store     StoreKind `yaml:"store"`
	StorePath string    `yaml:"storePath"`
	StoreName string    `yaml:"storeName"`

	CaptureFile string `yaml:"capture"`
	LogLevel    string `yaml:"logLevel"`
	Simulate    bool   `yaml:"simulate"`

	ParameterKeyPath string `yaml:"parameterKeyPath"`

	Listen  string `yaml:"listen"`
	TLSCert string `yaml:"tlsCert"`
	TLSKey  string `yaml:"tlsKey"`

	Notify NotifyConfig `yaml:"notify"`
}

// NotifyConfig configures notification delivery.
type NotifyConfig struct {
	MinInterval      time.Duration `yaml:"minInterval"`
	IgnoreManagement bool          `yaml:"ignoreManagement"`

	MQTTBroker   string `yaml:"mqttBroker"`
	MQTTClientID string `yaml:"mqttClientID"`
	MQTTTopic    string `yaml:"mqttTopic"`
	MQTTRetained bool   `yaml:"mqttRetained"`
}

var (
	config     Config
	modelFiles string // Temp var for flag parsing
)

func init() {
	config.Notify.IgnoreManagement = true

	flag.StringVar(&config.ConfigFile, "config", "", "YAML configuration file")
	flag.StringVar(&config.Bundle, "bundle", "tr181", "Bundled data model: "+strings.Join(schema.Bundles(), ", "))
	flag.StringVar(&modelFiles, "model", "", "Comma-separated model files (overrides -bundle)")
	flag.StringVar((*string)(&config.Store), "store", string(StoreNone), "State store: none, file, sqlite, postgres")
	flag.StringVar(&config.StorePath, "store-path", "", "State file, SQLite database or PostgreSQL DSN")
	flag.StringVar(&config.StoreName, "store-name", "", "Name the state is stored under (default: root object name)")
	flag.StringVar(&config.CaptureFile, "capture", "", "Write captured events to this file (CBOR)")
	flag.StringVar(&config.Listen, "listen", "", "Serve the management protocol on this address (e.g. :7547)")
	flag.StringVar(&config.TLSCert, "tls-cert", "", "TLS certificate file for -listen")
	flag.StringVar(&config.TLSKey, "tls-key", "", "TLS key file for -listen")
	flag.StringVar(&config.Notify.MQTTBroker, "mqtt", "", "MQTT broker URL for active notifications")
	flag.StringVar(&config.Notify.MQTTTopic, "mqtt-topic", "", "MQTT topic prefix (default: paramtree/<client-id>)")
	flag.DurationVar(&config.Notify.MinInterval, "notify-interval", 0, "Coalescing window for active notifications")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	flag.BoolVar(&config.Simulate, "simulate", false, "Update device statistics periodically")
}

func main() {
	flag.Parse()
	if modelFiles != "" {
		config.ModelFiles = strings.Split(modelFiles, ",")
	}

	if config.ConfigFile != "" {
		if err := loadConfigFile(&config, config.ConfigFile, explicitFlags()); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	def, err := loadModel(&config)
	if err != nil {
		return err
	}
	applyDefaults(&config, def)

	// The shell owns the terminal; logs go through it once it exists.
	logOut := &switchWriter{w: os.Stderr}
	logger := setupLogging(logOut, config.LogLevel)
	logger.Info("paramtree starting", "root", def.Name, "store", config.Store)

	// Event capture
	var loggers []log.Logger
	if config.CaptureFile != "" {
		fl, err := log.NewFileLogger(config.CaptureFile)
		if err != nil {
			return err
		}
		defer fl.Close()
		loggers = append(loggers, fl)
	}
	loggers = append(loggers, log.NewSlogAdapter(logger).WithLevel(slog.LevelDebug))
	recorder := log.NewRecorder(log.NewMultiLogger(loggers...), "")
	logger.Info("capture session", "session_id", recorder.SessionID())

	// Notification tracking
	trackerCfg := notify.DefaultConfig()
	trackerCfg.MinInterval = config.Notify.MinInterval
	trackerCfg.IgnoreManagement = config.Notify.IgnoreManagement
	tracker := notify.NewTracker(notify.WithConfig(trackerCfg), notify.WithLogger(logger))

	tree, err := model.NewTree(def,
		model.WithLogger(logger),
		model.WithChangeListener(tracker),
		model.WithChangeListener(recorder),
	)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(&config)
	if err != nil {
		return err
	}
	defer closeStore()
	if store != nil {
		restored, err := persistence.Load(store, tree)
		if err != nil {
			return fmt.Errorf("restoring state: %w", err)
		}
		logger.Info("state loaded", "restored", restored)
		// Restored values are not changes.
		tracker.Drain()
	}

	// Management protocol, looped back in-process
	opts := []interaction.ServerOption{
		interaction.WithRecorder(recorder),
		interaction.WithLogger(logger),
		interaction.WithRemoteAddr("loopback"),
	}
	if config.ParameterKeyPath != "" {
		opts = append(opts, interaction.WithParameterKeyPath(config.ParameterKeyPath))
	}
	server := interaction.NewServer(tree, opts...)
	lb := interaction.NewLoopback(server)
	defer lb.Close()

	notifier := interaction.NewNotifier(lb.Client().SessionID(), lb.Notify)
	notifier.SetRecorder(recorder)
	tracker.AddSink(notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Listen != "" {
		tlsConf, err := loadTLSConfig(&config)
		if err != nil {
			return err
		}
		srv := transport.NewServer(server, transport.ServerConfig{
			Address:   config.Listen,
			TLSConfig: tlsConf,
			Logger:    logger,
		})
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop()

		remote := interaction.NewNotifier("tcp://"+srv.Addr().String(), srv.Broadcast)
		remote.SetRecorder(recorder)
		tracker.AddSink(remote)
	}

	if config.Notify.MQTTBroker != "" {
		sink, err := notify.DialMQTT(notify.MQTTConfig{
			Broker:      config.Notify.MQTTBroker,
			ClientID:    config.Notify.MQTTClientID,
			TopicPrefix: config.Notify.MQTTTopic,
			Retained:    config.Notify.MQTTRetained,
		})
		if err != nil {
			return err
		}
		defer sink.Close()
		tracker.AddSink(sink)
		logger.Info("publishing notifications", "broker", config.Notify.MQTTBroker)
	}

	go func() {
		if err := tracker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("notification tracker stopped", "error", err)
		}
	}()

	if config.Simulate {
		go runSimulation(ctx, tree, logger)
	}

	var save func() error
	if store != nil {
		save = func() error { return persistence.Save(store, tree) }
	}

	shell, err := interactive.New(tree, lb.Client(), interactive.Options{
		Save:    save,
		Pending: tracker.Drain,
	})
	if err != nil {
		return err
	}
	logOut.Set(shell.Stderr())

	// Shut down on signal as well as on "quit"
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shell.Run(ctx, cancel)
	logOut.Set(os.Stderr)

	if save != nil {
		if err := save(); err != nil {
			return fmt.Errorf("saving state: %w", err)
		}
		logger.Info("state saved")
	}
	return nil
}

func setupLogging(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "trace":
		lvl = model.LevelTrace
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func validateConfig(c *Config) error {
	if c.Bundle == "" && len(c.ModelFiles) == 0 {
		return fmt.Errorf("either a bundle or model files are required")
	}
	switch c.Store {
	case StoreNone, "":
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.StorePath == "" {
			return fmt.Errorf("store %s requires -store-path (DSN)", c.Store)
		}
	default:
		return fmt.Errorf("unknown store: %s", c.Store)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("-tls-cert and -tls-key must be given together")
	}
	if c.TLSCert != "" && c.Listen == "" {
		return fmt.Errorf("TLS requires -listen")
	}
	if c.Notify.MinInterval < 0 {
		return fmt.Errorf("notify interval must not be negative, got %s", c.Notify.MinInterval)
	}
	return nil
}

func applyDefaults(c *Config, def *model.ObjectDef) {
	if c.Store == "" {
		c.Store = StoreNone
	}
	if c.StoreName == "" {
		c.StoreName = def.Name
	}
	if c.StorePath == "" {
		switch c.Store {
		case StoreFile:
			c.StorePath = strings.ToLower(def.Name) + "-state.json"
		case StoreSQLite:
			c.StorePath = strings.ToLower(def.Name) + "-state.db"
		}
	}
	if c.Notify.MQTTClientID == "" {
		c.Notify.MQTTClientID = "paramtree-" + strings.ToLower(def.Name)
	}
	if c.Notify.MQTTTopic == "" {
		c.Notify.MQTTTopic = "paramtree/" + c.Notify.MQTTClientID
	}
}

func loadModel(c *Config) (*model.ObjectDef, error) {
	if len(c.ModelFiles) > 0 {
		return schema.LoadFiles(c.ModelFiles...)
	}
	return schema.LoadBundle(c.Bundle)
}

// openStore opens the configured store. The returned close function is
// never nil.
func openStore(c *Config) (persistence.Store, func(), error) {
	switch c.Store {
	case StoreFile:
		return persistence.NewFileStore(c.StorePath), func() {}, nil
	case StoreSQLite:
		s, err := persistence.OpenSQLite(c.StorePath, c.StoreName)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case StorePostgres:
		s, err := persistence.OpenPostgres(c.StorePath, c.StoreName)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// switchWriter lets the log destination change after the logger is built.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Set redirects subsequent writes to w.
func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

// loadTLSConfig returns nil when no certificate is configured.
func loadTLSConfig(c *Config) (*tls.Config, error) {
	if c.TLSCert == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.TLSCert, c.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("loading TLS key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}
