package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/dispatcher"
	"github.com/routethat/playsim/internal/influx"
	"github.com/routethat/playsim/internal/logging"
	intOtel "github.com/routethat/playsim/internal/otel"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/internal/worker"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "playsim"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFile *os.File

	SessionStartTime time.Time = time.Now()

	// Services
	workerManager   *worker.Manager
	influxManager   *influx.Manager
	eventDispatcher *dispatcher.Dispatcher
	storageBackend  storage.Backend
	playStore       storage.PlayStore
)

const usage = `usage: playsim <command> [args]

commands:
  run [play] [seed]           simulate a play headless and print the result
  serve                       start the HTTP API
  plays list                  list stored plays
  plays builtin               list built-in plays
  plays save <name> <file>    store route data from a JSON file
  plays delete <name>         remove a stored play
  plays import <file>         store every play in a JSON array file
  results [limit]             list recent results
  inspect <export file>       summarise an exported run
  version                     print version
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(2)
	}

	cmd := strings.ToLower(args[0])
	if cmd == "version" {
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return
	}
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Print(usage)
		return
	}

	setupLogging()
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "inspect":
		err = inspectExport(args[1:])
	default:
		if err = startServices(); err != nil {
			break
		}
		switch cmd {
		case "run":
			err = runPlay(ctx, args[1:])
		case "serve":
			err = serve(ctx)
		case "plays":
			err = playsCommand(ctx, args[1:])
		case "results":
			err = listResults(ctx, args[1:])
		default:
			err = fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
		}
	}

	if err != nil {
		Logger.Error("Command failed", "command", cmd, "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		shutdown()
		os.Exit(1)
	}
}

// setupLogging loads config and points logging at a per-session file,
// adding OTel export when enabled.
func setupLogging() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	configDir := os.Getenv("PLAYSIM_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(logFilePath); err == nil {
		_ = os.Rename(logFilePath, logFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
		LogFile = nil
	}

	// nil interface, not a nil *os.File, when the file could not be opened
	var fileWriter io.Writer
	if LogFile != nil {
		fileWriter = LogFile
	}

	otelCfg := config.GetOTelConfig()
	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    fileWriter,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider, _ = intOtel.New(intOtel.Config{})
	} else if OTelProvider.Enabled() {
		Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}

	SlogManager.Setup(fileWriter, viper.GetString("logLevel"), OTelProvider.LoggerProvider())
	Logger = SlogManager.Logger()
	Logger.Info("Starting up", "version", CurrentVersion, "log", logFilePath)
}

// startServices wires storage, telemetry and the command dispatcher.
func startServices() error {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	storageBackend = backend
	playStore = createPlayStore(storageCfg, backend)
	Logger.Info("Storage initialized", "type", storageCfg.Type)

	if viper.GetBool("influx.enabled") {
		influxManager = influx.NewManager(
			logging.NewZerolog(logWriter(), viper.GetString("logLevel"), "influx"),
			filepath.Join(viper.GetString("logsDir"),
				fmt.Sprintf("%s.influx.%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405"))),
		)
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB disabled", "error", err)
			influxManager = nil
		}
	}

	meter := OTelProvider.Meter("playsim")
	eventDispatcher, err = dispatcher.NewWithMeter(
		logging.NewZerologAdapter(logging.NewZerolog(logWriter(), viper.GetString("logLevel"), "dispatcher")),
		meter,
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	workerManager = worker.NewManager(worker.Dependencies{
		LogManager: SlogManager,
		Plays:      playStore,
		Influx:     influxManager,
		Meter:      meter,
		Sim:        config.GetSimConfig(),
	}, storageBackend)
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Debug("Command handlers registered", "commands", eventDispatcher.Commands())
	return nil
}

// logWriter is the session log file, or stderr when it could not be opened.
func logWriter() io.Writer {
	if LogFile == nil {
		return os.Stderr
	}
	return LogFile
}

var shutdownDone bool

func shutdown() {
	if shutdownDone {
		return
	}
	shutdownDone = true

	// drain buffered commands before closing their sinks
	if eventDispatcher != nil {
		eventDispatcher.Close()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Warn("Failed to close storage backend", "error", err)
		}
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Warn("Failed to close InfluxDB writer", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = SlogManager.Flush(ctx)
	if OTelProvider != nil {
		_ = OTelProvider.Shutdown(ctx)
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
