package lomaji

// Tone is one of the eight tones of the romanization, or khin.
type Tone int

const (
	NaT Tone = iota // no tone
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	T8
	T9
	TK
)

var toneNames = [...]string{"NaT", "T1", "T2", "T3", "T4", "T5", "T6", "T7", "T8", "T9", "TK"}

func (t Tone) String() string {
	if t < 0 || int(t) >= len(toneNames) {
		return "NaT"
	}
	return toneNames[t]
}

// toneMarks lists the tones that are written with a diacritic.
var toneMarks = []struct {
	tone Tone
	mark rune
}{
	{T2, Tone2Mark},
	{T3, Tone3Mark},
	{T5, Tone5Mark},
	{T7, Tone7Mark},
	{T8, Tone8Mark},
	{T9, Tone9Mark},
}

// ToneMark returns the combining diacritic for t.
func ToneMark(t Tone) (rune, bool) {
	for _, tm := range toneMarks {
		if tm.tone == t {
			return tm.mark, true
		}
	}
	return 0, false
}

// NeedsToneDiacritic reports whether t is displayed with a diacritic.
// Tones 1 and 4 are unmarked.
func NeedsToneDiacritic(t Tone) bool {
	return t != NaT && t != T1 && t != T4
}

// KhinPosition records where the khin marker of a syllable was typed.
type KhinPosition int

const (
	KhinNone KhinPosition = iota
	// KhinStart is a leading double hyphen.
	KhinStart
	// KhinEnd is a trailing khin key.
	KhinEnd
	// KhinVirtual is an implied marker applied by auto-khin; it has no
	// keystrokes.
	KhinVirtual
)

func (p KhinPosition) String() string {
	switch p {
	case KhinStart:
		return "start"
	case KhinEnd:
		return "end"
	case KhinVirtual:
		return "virtual"
	default:
		return "none"
	}
}

// Direction is a caret movement direction.
type Direction int

const (
	Left Direction = iota
	Right
)
