package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/ipc"
	"github.com/relaydev/conductor/state"
)

// defaultLearnTriggerTimeout bounds how long a LearnTrigger call waits for a
// gesture when the caller does not specify one.
const defaultLearnTriggerTimeout = 10 * time.Second

const opHandle = "engine.IPCHandler.Handle"

// StopFunc signals the daemon's main goroutine to begin shutdown.
type StopFunc func()

// IPCHandler adapts a Manager to ipc.Handler, dispatching each wire command
// to the corresponding Manager method (spec §4.13/§4.14).
type IPCHandler struct {
	mgr  *Manager
	stop StopFunc
}

// NewIPCHandler constructs an IPCHandler over mgr. stop is invoked for the
// Stop command.
func NewIPCHandler(mgr *Manager, stop StopFunc) *IPCHandler {
	return &IPCHandler{mgr: mgr, stop: stop}
}

type setModeArgs struct {
	Mode string `json:"mode"`
}

type learnTriggerArgs struct {
	TimeoutMs int64 `json:"timeout_ms"`
}

type learnTriggerResponse struct {
	Kind      int    `json:"kind"`
	Note      uint8  `json:"note"`
	Velocity  uint8  `json:"velocity"`
	CC        uint8  `json:"cc"`
	Direction string `json:"direction"`
}

type statusResponse struct {
	State       string   `json:"state"`
	CurrentMode string   `json:"current_mode"`
	Modes       []string `json:"modes"`

	ConfigPath string `json:"config_path"`
	UptimeSecs int64  `json:"uptime_secs"`
	InputMode  string `json:"input_mode"`

	EventsProcessed      uint64  `json:"events_processed"`
	ErrorsSinceStart     uint64  `json:"errors_since_start"`
	ConfigReloads        uint64  `json:"config_reloads"`
	LastReloadDurationMs int64   `json:"last_reload_duration_ms"`
	FastestReloadMs      int64   `json:"fastest_reload_ms"`
	SlowestReloadMs      int64   `json:"slowest_reload_ms"`
	AvgReloadMs          float64 `json:"avg_reload_ms"`
	ReloadGrade          string  `json:"reload_grade"`

	Device     state.DeviceStatus `json:"device"`
	HIDDevices []string           `json:"hid_devices"`
}

type validateConfigArgs struct {
	Path string `json:"path"`
}

type getDeviceResponse struct {
	Device state.DeviceStatus `json:"device"`
}

type listDevicesResponse struct {
	Devices []string `json:"devices"`
}

// Handle implements ipc.Handler.
func (h *IPCHandler) Handle(ctx context.Context, cmd ipc.Command, args json.RawMessage) (any, error) {
	switch cmd {
	case ipc.CmdPing:
		return map[string]string{"pong": "true"}, nil

	case ipc.CmdStatus:
		stats := h.mgr.Statistics()
		return statusResponse{
			State:       h.mgr.State().String(),
			CurrentMode: h.mgr.CurrentMode(),
			Modes:       h.mgr.ListModes(),

			ConfigPath: h.mgr.ConfigPath(),
			UptimeSecs: int64(h.mgr.Uptime().Seconds()),
			InputMode:  "midi+hid",

			EventsProcessed:      stats.EventsProcessed,
			ErrorsSinceStart:     stats.ErrorsSinceStart,
			ConfigReloads:        stats.ConfigReloads,
			LastReloadDurationMs: stats.LastReloadDurationMs,
			FastestReloadMs:      stats.FastestReloadMs,
			SlowestReloadMs:      stats.SlowestReloadMs,
			AvgReloadMs:          stats.AvgReloadMs,
			ReloadGrade:          stats.Grade,

			Device:     h.mgr.DeviceStatus(),
			HIDDevices: h.mgr.ListHIDDevices(),
		}, nil

	case ipc.CmdValidateConfig:
		var a validateConfigArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, errs.Wrap(errs.KindIPC, opHandle, err)
			}
		}
		return h.mgr.ValidateConfig(a.Path), nil

	case ipc.CmdListDevices:
		return listDevicesResponse{Devices: h.mgr.ListDevices()}, nil

	case ipc.CmdGetDevice:
		return getDeviceResponse{Device: h.mgr.DeviceStatus()}, nil

	case ipc.CmdReload:
		if err := h.mgr.Reload(); err != nil {
			return nil, err
		}
		return map[string]string{"result": "reloaded"}, nil

	case ipc.CmdStop:
		if h.stop != nil {
			h.stop()
		}
		return map[string]string{"result": "stopping"}, nil

	case ipc.CmdSetMode:
		var a setModeArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, errs.Wrap(errs.KindIPC, opHandle, err)
		}
		if err := h.mgr.SetMode(a.Mode); err != nil {
			return nil, err
		}
		return map[string]string{"mode": a.Mode}, nil

	case ipc.CmdListModes:
		return map[string][]string{"modes": h.mgr.ListModes()}, nil

	case ipc.CmdLearnTrigger:
		var a learnTriggerArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, errs.Wrap(errs.KindIPC, opHandle, err)
			}
		}
		timeout := defaultLearnTriggerTimeout
		if a.TimeoutMs > 0 {
			timeout = time.Duration(a.TimeoutMs) * time.Millisecond
		}
		ev, err := h.mgr.LearnTrigger(ctx, timeout)
		if err != nil {
			return nil, err
		}
		return learnTriggerResponse{
			Kind:      int(ev.Kind),
			Note:      ev.Note,
			Velocity:  ev.Velocity,
			CC:        ev.CC,
			Direction: ev.Direction.String(),
		}, nil

	case ipc.CmdPluginStats:
		// Requires a handle to the Plugin Manager's state, which
		// engine.Manager does not hold; no other handler answers this
		// command.
		return nil, errs.New(errs.KindNotImplemented, opHandle, string(cmd)+" requires a daemon-level handler")

	case ipc.CmdSetDevice:
		// Reassigning the MIDI input device at runtime requires tearing
		// down and recreating the midi.Manager the daemon constructed at
		// startup; the Engine Manager does not currently hold a reference
		// to it. TODO: thread a devices/midi.Manager handle through New
		// so this can call its equivalent of Reconnect with a new name.
		return nil, errs.New(errs.KindNotImplemented, opHandle, "SetDevice is not yet wired to the running input device manager")

	default:
		return nil, errs.New(errs.KindUnknownCommand, opHandle, "unknown command: "+string(cmd))
	}
}
