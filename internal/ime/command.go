package ime

import (
	"errors"
	"fmt"

	"khiin/internal/bufmgr"
	"khiin/internal/config"
)

// ErrUnknownCommand is returned for a request of an unknown type.
var ErrUnknownCommand = errors.New("unknown command")

// CommandType selects the operation of a Request.
type CommandType int

const (
	CmdTestSendKey CommandType = iota
	CmdSendKey
	CmdSelectCandidate
	CmdFocusCandidate
	CmdReset
	CmdCommit
	CmdSetConfig
	CmdListEmojis
	CmdResetUserData
)

var commandNames = [...]string{
	CmdTestSendKey:     "test_send_key",
	CmdSendKey:         "send_key",
	CmdSelectCandidate: "select_candidate",
	CmdFocusCandidate:  "focus_candidate",
	CmdReset:           "reset",
	CmdCommit:          "commit",
	CmdSetConfig:       "set_config",
	CmdListEmojis:      "list_emojis",
	CmdResetUserData:   "reset_user_data",
}

func (c CommandType) String() string {
	if c >= 0 && int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("CommandType(%d)", int(c))
}

// Request is one command from the host.
type Request struct {
	Type CommandType `json:"type"`

	// Key is the key event of CmdTestSendKey and CmdSendKey.
	Key Key `json:"key"`

	// CandidateID is the index used by CmdSelectCandidate and
	// CmdFocusCandidate.
	CandidateID int `json:"candidate_id"`

	// Config is the new configuration of CmdSetConfig.
	Config *config.Config `json:"config,omitempty"`
}

// Response is the engine state after a command.
type Response struct {
	// Consumable reports whether the host should swallow the key.
	Consumable bool `json:"consumable"`

	// Committed is set when the composition was committed; CommittedText
	// holds the text to insert.
	Committed     bool   `json:"committed"`
	CommittedText string `json:"committed_text,omitempty"`

	EditState  bufmgr.EditState     `json:"edit_state"`
	Preedit    bufmgr.Preedit       `json:"preedit"`
	Candidates bufmgr.CandidateList `json:"candidate_list"`
}
