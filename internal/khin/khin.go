// Package khin marks neutral-tone syllables typed after a hyphen run.
package khin

import (
	"khiin/internal/buffer"
	"khiin/internal/keyconfig"
	"khiin/internal/lomaji"
	"khiin/internal/syllable"
)

// markerInput is the raw form of a standalone khin marker.
const markerInput = "--"

// Handler applies khin markers to a buffer.
type Handler struct {
	parser   *syllable.Parser
	keys     *keyconfig.KeyConfig
	autokhin bool
}

// New returns a handler. With autokhin set, the syllables following an
// explicit khin syllable are marked as well.
func New(parser *syllable.Parser, autokhin bool) *Handler {
	return &Handler{parser: parser, keys: parser.Keys(), autokhin: autokhin}
}

func (h *Handler) allHyphens(raw string) bool {
	for i := 0; i < len(raw); i++ {
		if !h.keys.IsHyphen(raw[i]) {
			return false
		}
	}
	return true
}

func (h *Handler) marker() buffer.Element {
	return buffer.Build(h.parser, markerInput, nil, false, false)
}

// Apply scans b left to right. A run of two or more hyphens loses its
// last two keys and the next element is marked khin; a run at the end of
// the buffer becomes a khin marker. Elements that cannot take the marking
// keep the hyphens as text and stop automatic marking.
func (h *Handler) Apply(b *buffer.Buffer) {
	auto := false

	for i := 0; i < b.Len(); {
		e := b.At(i)
		raw := e.Raw()

		if len(raw) >= 2 && h.allHyphens(raw) {
			auto = true

			if len(raw) == 2 {
				b.Erase(i)
				if i == b.Len() {
					b.Append(h.marker())
					return
				}
			} else {
				e.Replace(buffer.Text(raw[:len(raw)-2]))
				if i+1 == b.Len() {
					b.Append(h.marker())
					return
				}
				i++
			}

			if !b.At(i).SetKhin(lomaji.KhinStart, '-') {
				auto = false
			}
			i++
			continue
		}

		if h.autokhin && auto && !e.SetKhin(lomaji.KhinVirtual, 0) {
			auto = false
		}
		i++
	}
}
