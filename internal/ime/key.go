package ime

import (
	"fmt"
	"unicode"
)

// SpecialKey is a non-character key.
type SpecialKey int

const (
	KeyNone SpecialKey = iota
	KeySpace
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeyLeft
	KeyUp
	KeyRight
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyDelete
)

var specialKeyNames = [...]string{
	KeyNone:      "none",
	KeySpace:     "space",
	KeyEnter:     "enter",
	KeyEscape:    "escape",
	KeyBackspace: "backspace",
	KeyTab:       "tab",
	KeyLeft:      "left",
	KeyUp:        "up",
	KeyRight:     "right",
	KeyDown:      "down",
	KeyPageUp:    "pageup",
	KeyPageDown:  "pagedown",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyDelete:    "delete",
}

func (k SpecialKey) String() string {
	if k >= 0 && int(k) < len(specialKeyNames) {
		return specialKeyNames[k]
	}
	return fmt.Sprintf("SpecialKey(%d)", int(k))
}

// ParseSpecialKey returns the key named s, as printed by String.
func ParseSpecialKey(s string) (SpecialKey, bool) {
	for i, name := range specialKeyNames {
		if name == s {
			return SpecialKey(i), true
		}
	}
	return KeyNone, false
}

// Modifiers represents modifier key state.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModMeta // Command on macOS, Windows key on Windows
)

// Key represents a key event from the platform IME.
type Key struct {
	// Code is the platform-specific virtual key code. The engine does not
	// interpret it.
	Code uint16

	// Char is the character the key produces, if any.
	Char rune

	// Special is set for non-character keys.
	Special SpecialKey

	// Modifiers indicates which modifier keys are held.
	Modifiers Modifiers
}

// NewKey creates a key event for a character. Control characters with a
// key of their own, such as '\b' or '\t', map to that key.
func NewKey(char rune) Key {
	return Key{Char: char, Special: specialFor(char)}
}

// NewSpecialKey creates a key event for a non-character key.
func NewSpecialKey(sk SpecialKey) Key {
	return Key{Special: sk}
}

// WithModifiers returns k with mods held.
func (k Key) WithModifiers(mods Modifiers) Key {
	k.Modifiers = mods
	return k
}

func specialFor(r rune) SpecialKey {
	switch r {
	case ' ':
		return KeySpace
	case '\r', '\n':
		return KeyEnter
	case 0x1b:
		return KeyEscape
	case '\b':
		return KeyBackspace
	case '\t':
		return KeyTab
	case 0x7f:
		return KeyDelete
	default:
		return KeyNone
	}
}

// isGraphic reports whether the key produces a visible character.
func (k Key) isGraphic() bool {
	return k.Special == KeyNone && unicode.IsGraphic(k.Char) && !unicode.IsSpace(k.Char)
}

// onlyShift reports whether no modifier other than Shift is held.
func (k Key) onlyShift() bool {
	return k.Modifiers&^ModShift == 0
}
