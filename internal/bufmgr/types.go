package bufmgr

import (
	"fmt"
	"strings"
)

// EditState is the composition lifecycle state.
type EditState int

const (
	Empty EditState = iota
	Composing
	Converted
	Selecting
)

func (s EditState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Composing:
		return "composing"
	case Converted:
		return "converted"
	case Selecting:
		return "selecting"
	default:
		return fmt.Sprintf("EditState(%d)", int(s))
	}
}

// InputMode selects how typed keys are converted.
type InputMode int

const (
	// Continuous re-segments the whole composition on every key.
	Continuous InputMode = iota
	// Basic converts the first word and leaves the rest as typed.
	Basic
	// Manual performs no conversion.
	Manual
)

func (m InputMode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case Basic:
		return "basic"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("InputMode(%d)", int(m))
	}
}

// ParseInputMode parses a mode name, ignoring case.
func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continuous", "":
		return Continuous, nil
	case "basic":
		return Basic, nil
	case "manual":
		return Manual, nil
	default:
		return Continuous, fmt.Errorf("unknown input mode: %q", s)
	}
}

// SegmentStatus tells the host how to decorate a preedit segment.
type SegmentStatus int

const (
	Unmarked SegmentStatus = iota
	SegmentComposing
	SegmentConverted
	SegmentFocused
)

func (s SegmentStatus) String() string {
	switch s {
	case Unmarked:
		return "unmarked"
	case SegmentComposing:
		return "composing"
	case SegmentConverted:
		return "converted"
	case SegmentFocused:
		return "focused"
	default:
		return fmt.Sprintf("SegmentStatus(%d)", int(s))
	}
}

// Segment is a run of preedit text with one decoration.
type Segment struct {
	Status SegmentStatus `json:"status"`
	Value  string        `json:"value"`
}

// Preedit is the in-progress text shown at the insertion point. Carets
// count codepoints of the concatenated segment values.
type Preedit struct {
	Segments     []Segment `json:"segments"`
	Caret        int       `json:"caret"`
	FocusedCaret int       `json:"focused_caret"`
}

// Text concatenates the segment values.
func (p Preedit) Text() string {
	var sb strings.Builder
	for _, s := range p.Segments {
		sb.WriteString(s.Value)
	}
	return sb.String()
}

// Candidate is one entry of the candidate list.
type Candidate struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// CandidateList is the ranked candidates for the focused segment.
type CandidateList struct {
	Candidates []Candidate `json:"candidates"`
	Focused    int         `json:"focused"`
}
