package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"khiin/internal/ime"
)

// parseKeys turns a key script into key events. Plain characters are typed
// as they are. Named keys go in angle brackets, optionally prefixed with
// modifiers: <space>, <enter>, <S-tab>, <C-a>. <lt> types a literal '<'.
func parseKeys(script string) ([]ime.Key, error) {
	var keys []ime.Key

	for len(script) > 0 {
		if script[0] != '<' {
			r, size := utf8.DecodeRuneInString(script)
			keys = append(keys, ime.NewKey(r))
			script = script[size:]
			continue
		}

		end := strings.IndexByte(script, '>')
		if end < 0 {
			return nil, fmt.Errorf("unterminated key name in %q", script)
		}
		k, err := parseNamedKey(script[1:end])
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		script = script[end+1:]
	}
	return keys, nil
}

func parseNamedKey(name string) (ime.Key, error) {
	var mods ime.Modifiers
	for len(name) > 2 && name[1] == '-' {
		switch name[0] {
		case 'S':
			mods |= ime.ModShift
		case 'C':
			mods |= ime.ModControl
		case 'A':
			mods |= ime.ModAlt
		case 'M':
			mods |= ime.ModMeta
		default:
			return ime.Key{}, fmt.Errorf("unknown modifier %q", name[:1])
		}
		name = name[2:]
	}

	if name == "lt" {
		return ime.NewKey('<').WithModifiers(mods), nil
	}
	if sk, ok := ime.ParseSpecialKey(strings.ToLower(name)); ok && sk != ime.KeyNone {
		return ime.NewSpecialKey(sk).WithModifiers(mods), nil
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return ime.NewKey(r).WithModifiers(mods), nil
	}
	return ime.Key{}, fmt.Errorf("unknown key <%s>", name)
}
