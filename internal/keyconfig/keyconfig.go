// Package keyconfig maps typed ASCII keys to the letters and markers of the
// romanization: nasal, dot above right, dots below, hyphen, khin and tone
// keys.
package keyconfig

import (
	"errors"
	"fmt"
	"strings"

	"khiin/internal/lomaji"
)

// VKey is a virtual key the layout can bind.
type VKey int

const (
	VKeyNone VKey = iota
	VKeyNasal
	VKeyDotAboveRight
	VKeyDotsBelow
	VKeyHyphen
	VKeyKhin
)

func (v VKey) String() string {
	switch v {
	case VKeyNasal:
		return "nasal"
	case VKeyDotAboveRight:
		return "dot_above_right"
	case VKeyDotsBelow:
		return "dots_below"
	case VKeyHyphen:
		return "hyphen"
	case VKeyKhin:
		return "khin"
	default:
		return "none"
	}
}

var (
	ErrKeyNotAllowed = errors.New("key not allowed")
	ErrKeyInUse      = errors.New("key already bound")
	ErrUnbindable    = errors.New("virtual key cannot be bound")
)

// Keys that no letter of the romanization uses.
const otherKeys = "dfqrvwxyz"

const (
	nasalStr         = "\u207f"
	nasalUpperStr    = "\u1d3a"
	oDotStr          = "o\u0358"
	oDotUpperStr     = "O\u0358"
	oDotsBelowStr    = "o\u0324"
	oDotsBelowUpper  = "O\u0324"
	uDotsBelowStr    = "u\u0324"
	uDotsBelowUpper  = "U\u0324"
	defaultNasal     = 'n'
	defaultDotAbove  = 'u'
	defaultDotsBelow = 'r'
	defaultHyphen    = '-'
	defaultKhin      = '0'
)

// Rule replaces From with To.
type Rule struct {
	From string
	To   string
}

type ruleSet struct {
	key   byte
	vkey  VKey
	rules []Rule
}

// Layout is the user facing key layout. Empty fields fall back to the
// default bindings.
type Layout struct {
	// Nasal is either a single standalone key, or "n" followed by the
	// second key of a digraph.
	Nasal string
	// DotAboveRight is a single standalone key, or "o" followed by the
	// second key of a digraph.
	DotAboveRight string
	DotsBelow     string
	AltHyphen     string
	TelexKhin     string
}

// KeyConfig holds the active bindings and their conversion rules.
type KeyConfig struct {
	sets   []ruleSet
	keys   map[VKey]byte
	cache  []Rule
	nasalS bool
	dotS   bool
}

// NewEmpty returns a key config with no bindings.
func NewEmpty() *KeyConfig {
	return &KeyConfig{keys: make(map[VKey]byte)}
}

// New returns the default layout: nn for nasal, ou for o͘ and r for dots
// below.
func New() *KeyConfig {
	kc := NewEmpty()
	kc.loadDefaults()
	return kc
}

func (kc *KeyConfig) loadDefaults() {
	_ = kc.SetKey(defaultNasal, VKeyNasal, false)
	_ = kc.SetKey(defaultDotAbove, VKeyDotAboveRight, false)
	_ = kc.SetKey(defaultDotsBelow, VKeyDotsBelow, false)
}

// FromLayout builds a key config from l. Invalid bindings are skipped and
// reported together; the defaults stand in for them.
func FromLayout(l Layout) (*KeyConfig, error) {
	kc := NewEmpty()
	var errs []error

	bind := func(v VKey, spec string, lead byte, def byte) {
		spec = strings.ToLower(spec)
		var err error
		switch {
		case len(spec) == 1:
			err = kc.SetKey(spec[0], v, true)
		case len(spec) == 2 && spec[0] == lead:
			err = kc.SetKey(spec[1], v, false)
		case spec == "":
			err = kc.SetKey(def, v, false)
		default:
			err = fmt.Errorf("%s %q: %w", v, spec, ErrKeyNotAllowed)
		}
		if err != nil {
			errs = append(errs, err)
			if _, ok := kc.keys[v]; !ok {
				_ = kc.SetKey(def, v, false)
			}
		}
	}

	bind(VKeyNasal, l.Nasal, 'n', defaultNasal)
	bind(VKeyDotAboveRight, l.DotAboveRight, 'o', defaultDotAbove)

	dots := strings.ToLower(l.DotsBelow)
	if len(dots) > 1 {
		errs = append(errs, fmt.Errorf("%s %q: %w", VKeyDotsBelow, dots, ErrKeyNotAllowed))
		dots = ""
	}
	if dots == "" {
		dots = string(rune(defaultDotsBelow))
	}
	if err := kc.SetKey(dots[0], VKeyDotsBelow, false); err != nil {
		errs = append(errs, err)
		_ = kc.SetKey(defaultDotsBelow, VKeyDotsBelow, false)
	}

	if len(l.AltHyphen) == 1 {
		if err := kc.SetKey(l.AltHyphen[0], VKeyHyphen, false); err != nil {
			errs = append(errs, err)
		}
	}
	if len(l.TelexKhin) == 1 {
		if err := kc.SetKey(l.TelexKhin[0], VKeyKhin, false); err != nil {
			errs = append(errs, err)
		}
	}

	return kc, errors.Join(errs...)
}

// SetKey binds key to v. Standalone bindings produce the mark from the
// single key; otherwise the key completes a digraph.
func (kc *KeyConfig) SetKey(key byte, v VKey, standalone bool) error {
	key = toLower(key)

	if !allowed(key, v, standalone) {
		return fmt.Errorf("%s %q: %w", v, key, ErrKeyNotAllowed)
	}
	if !kc.available(key, v) {
		return fmt.Errorf("%s %q: %w", v, key, ErrKeyInUse)
	}

	lc := string(rune(key))
	uc := string(rune(toUpper(key)))

	var rules []Rule
	switch v {
	case VKeyNasal:
		kc.nasalS = standalone
		if standalone {
			rules = []Rule{{lc, nasalStr}, {uc, nasalUpperStr}}
		} else {
			rules = []Rule{
				{"n" + lc, nasalStr},
				{"n" + uc, nasalStr},
				{"N" + lc, nasalUpperStr},
				{"N" + uc, nasalUpperStr},
			}
		}
	case VKeyDotAboveRight:
		kc.dotS = standalone
		if standalone {
			rules = []Rule{{lc, oDotStr}, {uc, oDotUpperStr}}
		} else {
			rules = []Rule{
				{"o" + lc, oDotStr},
				{"o" + uc, oDotStr},
				{"O" + lc, oDotUpperStr},
				{"O" + uc, oDotUpperStr},
			}
		}
	case VKeyDotsBelow:
		rules = []Rule{
			{"o" + lc, oDotsBelowStr},
			{"o" + uc, oDotsBelowStr},
			{"O" + lc, oDotsBelowUpper},
			{"O" + uc, oDotsBelowUpper},
			{"u" + lc, uDotsBelowStr},
			{"u" + uc, uDotsBelowStr},
			{"U" + lc, uDotsBelowUpper},
			{"U" + uc, uDotsBelowUpper},
		}
	case VKeyHyphen, VKeyKhin:
	default:
		return fmt.Errorf("%s: %w", v, ErrUnbindable)
	}

	set := kc.ruleSet(v)
	set.key = key
	set.rules = rules
	kc.keys[v] = key
	kc.cache = nil
	return nil
}

// Key returns the key bound to v.
func (kc *KeyConfig) Key(v VKey) (byte, bool) {
	k, ok := kc.keys[v]
	return k, ok
}

func (kc *KeyConfig) ruleSet(v VKey) *ruleSet {
	for i := range kc.sets {
		if kc.sets[i].vkey == v {
			return &kc.sets[i]
		}
	}
	kc.sets = append(kc.sets, ruleSet{vkey: v})
	return &kc.sets[len(kc.sets)-1]
}

func (kc *KeyConfig) available(key byte, v VKey) bool {
	for bound, k := range kc.keys {
		if k == key && bound != v {
			return false
		}
	}
	return true
}

func allowed(key byte, v VKey, standalone bool) bool {
	other := strings.IndexByte(otherKeys, key) >= 0
	switch v {
	case VKeyNasal:
		return other || (!standalone && key == 'n')
	case VKeyDotAboveRight:
		return other || (!standalone && (key == 'o' || key == 'u'))
	case VKeyDotsBelow:
		return other
	case VKeyHyphen, VKeyKhin:
		return other
	}
	return false
}

// Rules returns all conversion rules in binding order.
func (kc *KeyConfig) Rules() []Rule {
	if kc.cache == nil {
		for _, s := range kc.sets {
			kc.cache = append(kc.cache, s.rules...)
		}
	}
	return kc.cache
}

// Convert applies each rule once, to its first occurrence.
func (kc *KeyConfig) Convert(s string) string {
	for _, r := range kc.Rules() {
		s = strings.Replace(s, r.From, r.To, 1)
	}
	return s
}

// Deconvert undoes Convert.
func (kc *KeyConfig) Deconvert(s string) string {
	for _, r := range kc.Rules() {
		s = strings.Replace(s, r.To, r.From, 1)
	}
	return s
}

func (kc *KeyConfig) HyphenKeys() []byte {
	ret := []byte{defaultHyphen}
	if k, ok := kc.keys[VKeyHyphen]; ok {
		ret = append(ret, k)
	}
	return ret
}

func (kc *KeyConfig) KhinKeys() []byte {
	ret := []byte{defaultKhin}
	if k, ok := kc.keys[VKeyKhin]; ok {
		ret = append(ret, k)
	}
	return ret
}

func (kc *KeyConfig) IsHyphen(c byte) bool {
	return bytesContain(kc.HyphenKeys(), c)
}

func (kc *KeyConfig) IsKhinKey(c byte) bool {
	return bytesContain(kc.KhinKeys(), c)
}

// ToneKey returns the digit key typed for tone t, or 0.
func (kc *KeyConfig) ToneKey(t lomaji.Tone) byte {
	if t >= lomaji.T1 && t <= lomaji.T9 {
		return byte('0' + int(t))
	}
	return 0
}

// CheckToneKey returns the tone selected by c, or NaT.
func (kc *KeyConfig) CheckToneKey(c byte) lomaji.Tone {
	if c >= '1' && c <= '9' {
		return lomaji.Tone(c - '0')
	}
	return lomaji.NaT
}

// IsToneKey reports whether c is any digit, including the khin digit.
func (kc *KeyConfig) IsToneKey(c byte) bool {
	return c >= '0' && c <= '9'
}

// NasalStandalone reports whether the nasal mark is bound to a single key.
func (kc *KeyConfig) NasalStandalone() bool { return kc.nasalS }

func (kc *KeyConfig) DotAboveRightStandalone() bool { return kc.dotS }

func bytesContain(bs []byte, c byte) bool {
	for _, b := range bs {
		if b == c {
			return true
		}
	}
	return false
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
