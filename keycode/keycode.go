// Package keycode defines platform-independent key, modifier, and mouse
// button vocabularies (spec §3). The actual synthesis of keystrokes and mouse
// events is an external collaborator (the platform backend); this package
// only names what can be requested of it.
package keycode

// KeyKind tags whether a Key names a Unicode character or a named special key.
type KeyKind int

const (
	KindUnicode KeyKind = iota
	KindSpecial
)

// Special enumerates the named special keys a mapping can reference.
type Special string

const (
	ArrowUp    Special = "ArrowUp"
	ArrowDown  Special = "ArrowDown"
	ArrowLeft  Special = "ArrowLeft"
	ArrowRight Special = "ArrowRight"

	Home     Special = "Home"
	End      Special = "End"
	PageUp   Special = "PageUp"
	PageDown Special = "PageDown"

	Enter     Special = "Enter"
	Tab       Special = "Tab"
	Escape    Special = "Escape"
	Backspace Special = "Backspace"
	Delete    Special = "Delete"
	Space     Special = "Space"

	F1  Special = "F1"
	F2  Special = "F2"
	F3  Special = "F3"
	F4  Special = "F4"
	F5  Special = "F5"
	F6  Special = "F6"
	F7  Special = "F7"
	F8  Special = "F8"
	F9  Special = "F9"
	F10 Special = "F10"
	F11 Special = "F11"
	F12 Special = "F12"

	MediaPlayPause  Special = "MediaPlayPause"
	MediaNextTrack  Special = "MediaNextTrack"
	MediaPrevTrack  Special = "MediaPrevTrack"
	MediaVolumeUp   Special = "MediaVolumeUp"
	MediaVolumeDown Special = "MediaVolumeDown"
	MediaMute       Special = "MediaMute"
)

var specials = map[string]Special{
	"arrowup": ArrowUp, "arrowdown": ArrowDown, "arrowleft": ArrowLeft, "arrowright": ArrowRight,
	"home": Home, "end": End, "pageup": PageUp, "pagedown": PageDown,
	"enter": Enter, "return": Enter, "tab": Tab, "escape": Escape, "esc": Escape,
	"backspace": Backspace, "delete": Delete, "space": Space,
	"f1": F1, "f2": F2, "f3": F3, "f4": F4, "f5": F5, "f6": F6,
	"f7": F7, "f8": F8, "f9": F9, "f10": F10, "f11": F11, "f12": F12,
	"mediaplaypause": MediaPlayPause, "medianexttrack": MediaNextTrack,
	"mediaprevtrack": MediaPrevTrack, "mediavolumeup": MediaVolumeUp,
	"mediavolumedown": MediaVolumeDown, "mediamute": MediaMute,
}

// Key is a tagged Unicode-char-or-special-key value.
type Key struct {
	Kind    KeyKind
	Unicode rune
	Special Special
}

// Parse turns a config "keys" token ("space", "a", "F5", ...) into a Key,
// preferring a recognized special-key name and falling back to the token's
// first rune.
func Parse(s string) (Key, bool) {
	if sp, ok := specials[lower(s)]; ok {
		return Key{Kind: KindSpecial, Special: sp}, true
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return Key{}, false
	}
	return Key{Kind: KindUnicode, Unicode: runes[0]}, true
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Modifier enumerates the modifier keys a Keystroke action can hold.
type Modifier int

const (
	Command Modifier = iota
	Control
	Option
	Shift
	Fn
)

var modifiers = map[string]Modifier{
	"cmd": Command, "command": Command,
	"ctrl": Control, "control": Control,
	"alt": Option, "option": Option,
	"shift": Shift,
	"fn":    Fn,
}

// ParseModifier maps the config allowlist {cmd, shift, alt, ctrl, fn} (spec
// §4.10) onto a Modifier.
func ParseModifier(s string) (Modifier, bool) {
	m, ok := modifiers[lower(s)]
	return m, ok
}

// MouseButton enumerates the buttons a MouseClick action can target.
type MouseButton int

const (
	Left MouseButton = iota
	Right
	Middle
)

var mouseButtons = map[string]MouseButton{
	"left": Left, "right": Right, "middle": Middle,
}

// ParseMouseButton maps the config allowlist {left, right, middle} (spec
// §4.10) onto a MouseButton.
func ParseMouseButton(s string) (MouseButton, bool) {
	b, ok := mouseButtons[lower(s)]
	return b, ok
}
