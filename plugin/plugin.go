// Package plugin defines the types shared between the Plugin Manager, the
// WASM sandbox, and the Action Executor's Plugin action (spec §4.15/§4.16):
// plugin metadata, declared capabilities, and the trigger context a guest
// receives. Grounded on the original Rust daemon's plugin/types.rs and
// plugin_manager.rs, reimplemented with wazero instead of wasmtime (no Go
// WASM runtime appears in the retrieved pack; see DESIGN.md).
package plugin

// Capability is a coarse-grained permission a plugin must declare in its
// manifest before the sandbox grants it (spec §4.15/§4.16).
type Capability string

const (
	CapabilityNetwork       Capability = "Network"
	CapabilityFilesystem    Capability = "Filesystem"
	CapabilityAudio         Capability = "Audio"
	CapabilityMidi          Capability = "Midi"
	CapabilitySubprocess    Capability = "Subprocess"
	CapabilitySystemControl Capability = "SystemControl"
)

// LowRiskCapabilities are auto-granted to every plugin by default (spec
// §4.15): Filesystem, Subprocess, and SystemControl are elevated and require
// an operator's explicit grant instead.
var LowRiskCapabilities = []Capability{CapabilityNetwork, CapabilityAudio, CapabilityMidi}

// IsLowRisk reports whether cap is auto-granted by default.
func IsLowRisk(cap Capability) bool {
	for _, c := range LowRiskCapabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Metadata describes one plugin's identity and declared requirements,
// loaded from its manifest file (spec's supplemented feature D.1: manifests
// expressed as YAML, repurposing the teacher's gopkg.in/yaml.v3 dependency).
type Metadata struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Description  string       `yaml:"description,omitempty"`
	Entry        string       `yaml:"entry"`
	Capabilities []Capability `yaml:"capabilities,omitempty"`
	Signed       bool         `yaml:"signed,omitempty"`
}

// HasCapability reports whether m declares cap.
func (m Metadata) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// TriggerContext is the JSON payload a plugin's guest code receives
// describing the gesture that invoked it (spec §4.15).
type TriggerContext struct {
	Velocity    *uint8 `json:"velocity,omitempty"`
	CurrentMode string `json:"current_mode"`
}
