package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"gesturekeys/internal/ctlnode"
	"gesturekeys/internal/keyhandler"
	"gesturekeys/internal/leds"
	"gesturekeys/internal/logging"
	"gesturekeys/internal/mediasession"
	"gesturekeys/internal/proximity"
	"gesturekeys/internal/settings"
	"gesturekeys/internal/wakelock"
)

func printVersion() {
	fmt.Printf("gesturekeysd v%s\n", version)
	fmt.Println("Screen-off gesture and alert slider daemon for the OnePlus 2")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gesturekeysd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads gesture and slider scancodes from Linux input devices and turns")
	fmt.Println("  them into torch, media, do-not-disturb and ringer actions. Gestures")
	fmt.Println("  are rejected while the proximity sensor is covered.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Printf("        YAML config file (default %q, used when present)\n", defaultConfigPath)
	fmt.Println()
	fmt.Println("  -input-devices string")
	fmt.Println("        Comma separated evdev devices carrying gesture and slider keys")
	fmt.Println()
	fmt.Println("  -proximity-device string")
	fmt.Println("        evdev device reporting ABS_DISTANCE (empty disables the proximity gate)")
	fmt.Println()
	fmt.Println("  -settings-file string")
	fmt.Printf("        Persisted settings file (default %q)\n", defaultSettingsFile)
	fmt.Println()
	fmt.Println("  -media-ws-url string")
	fmt.Println("        Media session bridge websocket URL (empty disables media gestures)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocket)
	fmt.Println()
	fmt.Println("  -state-ws-addr string")
	fmt.Printf("        Listen address for the state websocket (default %q, empty disables)\n", defaultStateWSAddr)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-output string")
	fmt.Println("        Log output: auto, terminal, journal (default \"auto\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with the default config")
	fmt.Println("  gesturekeysd")
	fmt.Println()
	fmt.Println("  # Two input devices and a media bridge")
	fmt.Println("  gesturekeysd -input-devices /dev/input/event1,/dev/input/event3 -media-ws-url ws://127.0.0.1:3003/media")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to input devices and write access to control nodes")
	fmt.Println("  - Settings can be changed with gesturectl or by editing the settings file")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath   = flag.String("config", "", "YAML config file")
		inputDevices = flag.String("input-devices", "", "Comma separated evdev devices")
		proximityDev = flag.String("proximity-device", "", "Proximity evdev device")
		settingsFile = flag.String("settings-file", "", "Persisted settings file")
		mediaWsURL   = flag.String("media-ws-url", "", "Media session bridge websocket URL")
		ipcSocket    = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		stateWSAddr  = flag.String("state-ws-addr", "", "Listen address for the state websocket")
		logLevelStr  = flag.String("log-level", "", "Log level: error, warn, info, debug")
		logOutput    = flag.String("log-output", "", "Log output: auto, terminal, journal")
		_            = flag.Bool("version", false, "Print version and exit")
		_            = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Only flags given on the command line override the config file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-devices":
			o.InputDevices = inputDevices
		case "proximity-device":
			o.ProximityDev = proximityDev
		case "settings-file":
			o.SettingsFile = settingsFile
		case "media-ws-url":
			o.MediaWsURL = mediaWsURL
		case "ipc-socket":
			o.IPCSocketPath = ipcSocket
		case "state-ws-addr":
			o.StateWSAddr = stateWSAddr
		case "log-level":
			o.LogLevel = logLevelStr
		case "log-output":
			o.LogOutput = logOutput
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	output, _ := logging.ParseOutput(cfg.Logging.Output)
	logger := logging.New(level, output, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gesturekeysd stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

// loadConfig reads path, or the default config path if it exists, over the
// built-in defaults.
func loadConfig(path string) (Config, error) {
	if path != "" {
		return LoadConfigFile(path)
	}
	if _, err := os.Stat(defaultConfigPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("stat config: %w", err)
	}
	return LoadConfigFile(defaultConfigPath)
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	logger.Debug("starting gesturekeysd", "version", version)

	eg, ctx := errgroup.WithContext(ctx)

	events := make(chan Event, 64)

	// State websocket hub; every publisher goes through it.
	stateWS := NewServer(logger, events, HubConfig{})
	hub := stateWS.Hub()

	runner := execRunner{ctx: ctx, timeout: ms(cfg.Host.CommandTimeoutMS), logger: logger}

	pol := newPolicy(runner, cfg.Host.PolicyCommand, func(kind, mode string) {
		hub.Broadcast(kind, wsModeData{Mode: mode})
	}, logger)

	store, err := settings.Open(ExpandPath(cfg.Settings.File), logger)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	cameras := leds.New(cfg.Cameras(), logger)

	opts := keyhandler.Options{
		Camera:        cameras,
		Zen:           pol,
		Ringer:        pol,
		Settings:      store,
		KeysNode:      ctlnode.New(cfg.ControlNodes.KeysDisable),
		ProximityNode: ctlnode.New(cfg.ControlNodes.Proximity),
		Logger:        logger,
	}

	var lock *wakelock.Lock
	if cfg.WakeLock.Enabled {
		lock = wakelock.New(cfg.WakeLock.Name, wakelock.SysfsBackend{
			LockPath:   cfg.WakeLock.LockPath,
			UnlockPath: cfg.WakeLock.UnlockPath,
		}, logger)
		defer lock.Release()
		opts.WakeLock = lock
	}

	if cfg.Media.WsURL != "" {
		media, err := mediasession.New(cfg.Media.WsURL, ms(cfg.Media.RetryMS), logger)
		if err != nil {
			return fmt.Errorf("media session: %w", err)
		}
		opts.Media = media
		eg.Go(func() error { return media.Run(ctx) })
	}

	if cfg.Proximity.Device != "" {
		sensors, err := proximity.Open(cfg.Proximity.Device, logger)
		if err != nil {
			// Without a sensor the gate never vetoes.
			logger.Warn("proximity sensor unavailable", "device", cfg.Proximity.Device, "error", err)
		} else {
			opts.Sensors = sensors
		}
	}

	handler := keyhandler.New(opts)
	defer handler.Close()

	d := &daemon{
		host: &host{
			router:        handler,
			runner:        runner,
			wakeCommand:   cfg.Host.WakeCommand,
			cameraCommand: cfg.Host.CameraCommand,
			logger:        logger,
		},
		handler:   handler,
		settings:  store,
		policy:    pol,
		broadcast: hub.Broadcast,
		logger:    logger,
		displayOn: true,
	}

	eg.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	eg.Go(func() error { return handler.Run(ctx) })
	eg.Go(func() error {
		d.run(ctx, events)
		return nil
	})

	for _, dev := range cfg.Input.Devices {
		lis := inputListener{
			Device: dev,
			Events: events,
			Retry:  ms(cfg.Input.RetryMS),
			Logger: logger,
		}
		eg.Go(func() error { return lis.Run(ctx) })
	}

	eg.Go(func() error { return runIPCServer(ctx, cfg.IPC.SocketPath, events, logger) })

	if cfg.StateWS.Addr != "" {
		mux := http.NewServeMux()
		stateWS.Register(mux, cfg.StateWS.Path)
		mux.HandleFunc("/healthz", handleHealthz)
		eg.Go(func() error { return runHTTPServer(ctx, cfg.StateWS.Addr, mux, logger) })
	}

	if cfg.Display.BlPowerPath != "" {
		w := displayWatcher{
			Path:     cfg.Display.BlPowerPath,
			Interval: ms(cfg.Display.PollMS),
			Events:   events,
			Logger:   logger,
		}
		eg.Go(func() error { return w.Run(ctx) })
	}

	if cfg.Settings.Watch {
		eg.Go(func() error {
			err := store.Watch(ctx)
			if err != nil && ctx.Err() == nil {
				// Settings still apply through IPC; only external edits go unseen.
				logger.Warn("settings watch stopped", "path", store.Path(), "error", err)
				return nil
			}
			return err
		})
	}

	eg.Go(func() error { return cameras.Run(ctx, ms(cfg.Torch.PollMS)) })

	logger.Info("listening",
		"input_devices", cfg.Input.Devices,
		"proximity_device", cfg.Proximity.Device,
		"ipc", cfg.IPC.SocketPath,
		"state_ws", cfg.StateWS.Addr,
		"media_ws", cfg.Media.WsURL)

	if ok, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify failed", "error", err)
	} else if ok {
		logger.Debug("notified systemd")
	}

	err = eg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
