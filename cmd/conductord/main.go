// Command conductord is the daemon entrypoint (spec §1/§4.14): it loads
// config, wires the device managers, mapping engine, action executor, and
// IPC server together, and runs until signaled to stop.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"github.com/relaydev/conductor/action"
	"github.com/relaydev/conductor/config"
	"github.com/relaydev/conductor/configwatch"
	"github.com/relaydev/conductor/devices/hid"
	"github.com/relaydev/conductor/devices/midi"
	"github.com/relaydev/conductor/devices/midiout"
	"github.com/relaydev/conductor/engine"
	"github.com/relaydev/conductor/input"
	"github.com/relaydev/conductor/ipc"
	"github.com/relaydev/conductor/logging"
	"github.com/relaydev/conductor/plugin/manager"
	"github.com/relaydev/conductor/plugin/signing"
	"github.com/relaydev/conductor/processor"
	"github.com/relaydev/conductor/state"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config TOML file")
	socketPath := flag.String("socket", defaultSocketPath(), "path to control IPC Unix socket")
	statePath := flag.String("state", defaultStatePath(), "path to persisted daemon state")
	pluginsDir := flag.String("plugins", defaultPluginsDir(), "path to the plugin directory")
	trustedKeysPath := flag.String("trusted-keys", defaultTrustedKeysPath(), "path to the trusted plugin signing keys store")
	requireSignedPlugins := flag.Bool("require-signed-plugins", false, "refuse to load unsigned plugins")
	logLevel := flag.String("log-level", "info", "default log level (debug|info|warn|error)")
	flag.Parse()

	logging.SetCategoryLevel(logging.App, logging.ParseLevel(*logLevel))
	log := logging.Get(logging.App)

	if err := run(*configPath, *socketPath, *statePath, *pluginsDir, *trustedKeysPath, *requireSignedPlugins); err != nil {
		log.Error("conductord exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, socketPath, statePath, pluginsDir, trustedKeysPath string, requireSignedPlugins bool) error {
	log := logging.Get(logging.App)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := state.New(statePath)
	if err != nil {
		return err
	}

	if err := sdl.Init(sdl.INIT_GAMECONTROLLER | sdl.INIT_JOYSTICK); err != nil {
		log.Warn("SDL2 gamepad subsystem unavailable, HID input disabled", "error", err)
	} else {
		defer sdl.Quit()
	}

	keyStore, err := signing.LoadStore(trustedKeysPath)
	if err != nil {
		return err
	}

	// TODO: elevated plugin capability grants (Filesystem, Subprocess,
	// SystemControl) are not yet sourced from the daemon config schema; until
	// that lands, no plugin receives them and only the low-risk capability
	// set (Network, Audio, Midi) is auto-granted.
	plugins := manager.New(pluginsDir, requireSignedPlugins, keyStore.PublicKeys(), st, nil)

	outMgr := midiout.New(midiout.OpenGomidiOutPort, 256)

	backends := action.Backends{
		Midi:   outMgr,
		Plugin: plugins,
	}
	executor := action.NewExecutor(backends)

	eng, err := engine.New(configPath, cfg, executor, st, nil)
	if err != nil {
		return err
	}
	if err := eng.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		outMgr.Run(ctx)
	}()

	proc := processor.New(processor.Windows{
		ChordTimeout:     time.Duration(cfg.Advanced.ChordTimeoutMs) * time.Millisecond,
		DoubleTapTimeout: time.Duration(cfg.Advanced.DoubleTapTimeoutMs) * time.Millisecond,
		HoldThreshold:    time.Duration(cfg.Advanced.HoldThresholdMs) * time.Millisecond,
	})

	midiMgr := midi.New(cfg.Device.Name, cfg.Device.AutoReconnect, midi.OpenGomidiPort)
	hidMgr := hid.New(cfg.Device.AutoReconnect)

	eng.SetListDevicesFunc(midi.ListPorts)
	eng.SetListHIDDevicesFunc(hid.ListControllers)
	eng.SetDeviceStatusFunc(func() state.DeviceStatus {
		info := midiMgr.DeviceInfo()
		var lastEvent *time.Time
		if !info.LastEventAt.IsZero() {
			t := info.LastEventAt
			lastEvent = &t
		}
		return state.DeviceStatus{Connected: info.Connected, Name: info.Name, Port: info.Port, LastEventAt: lastEvent}
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := midiMgr.Run(ctx); err != nil {
			log.Error("MIDI input manager stopped", "error", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hidMgr.Run(ctx); err != nil {
			log.Error("HID input manager stopped", "error", err)
		}
	}()

	im := input.New(proc, midiMgr.Events, hidMgr.Events)
	eng.SetInputManager(im)
	wg.Add(1)
	go func() {
		defer wg.Done()
		im.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.RunInput(ctx, im)
	}()

	watcher, err := configwatch.New(configPath)
	if err != nil {
		log.Warn("config watcher unavailable, hot-reload disabled", "error", err)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			watcher.Run(ctx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng.WatchConfig(ctx, watcher)
		}()
	}

	stopOnce := sync.Once{}
	stop := func() { stopOnce.Do(cancel) }

	srv := ipc.NewServer(socketPath, engine.NewIPCHandler(eng, stop))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx); err != nil {
			log.Error("IPC server stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	stop()
	_ = eng.Stop()
	wg.Wait()
	return nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "conductor.toml"
	}
	return filepath.Join(dir, "conductor", "config.toml")
}

func defaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "conductor.sock")
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "conductor-state.json"
	}
	return filepath.Join(dir, "conductor", "state.json")
}

func defaultPluginsDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "plugins"
	}
	return filepath.Join(dir, "conductor", "plugins")
}

func defaultTrustedKeysPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "trusted-keys.toml"
	}
	return filepath.Join(dir, "conductor", "trusted-keys.toml")
}
