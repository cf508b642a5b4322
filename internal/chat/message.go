// Package chat defines the commands a browser sends to the classbot and the
// websocket channel that carries them.
package chat

import (
	"fmt"
	"strings"
)

// CommandType names a user interaction on the page.
type CommandType string

const (
	CommandInit        CommandType = "init"
	CommandView        CommandType = "view"
	CommandHome        CommandType = "home"
	CommandSelectClass CommandType = "select_class"
	CommandAction      CommandType = "action"
	CommandAsk         CommandType = "ask"
	CommandFAQ         CommandType = "faq"
	CommandAnswer      CommandType = "answer"
	CommandExitQuiz    CommandType = "exit_quiz"
)

var knownCommands = map[CommandType]bool{
	CommandInit:        true,
	CommandView:        true,
	CommandHome:        true,
	CommandSelectClass: true,
	CommandAction:      true,
	CommandAsk:         true,
	CommandFAQ:         true,
	CommandAnswer:      true,
	CommandExitQuiz:    true,
}

// InboundMessage is one command from the page.
type InboundMessage struct {
	Type     CommandType `json:"type"`
	ClassKey string      `json:"class_key,omitempty"`
	Action   string      `json:"action,omitempty"`
	Text     string      `json:"text,omitempty"`
	Choice   string      `json:"choice,omitempty"`
	Info     string      `json:"info,omitempty"` // deep-link value, e.g. "chapter3"
}

// Validate checks the command type is known.
func (m InboundMessage) Validate() error {
	if !knownCommands[m.Type] {
		return fmt.Errorf("unknown command %q", m.Type)
	}
	return nil
}

// ChoiceLabel extracts the choice label from either "B" or a formatted
// option such as "B: Standard deviation".
func (m InboundMessage) ChoiceLabel() string {
	label, _, _ := strings.Cut(m.Choice, ":")
	return strings.TrimSpace(label)
}

// OutboundMessage is sent back over the websocket after each command.
type OutboundMessage struct {
	Type  string `json:"type"` // "view" or "error"
	View  any    `json:"view,omitempty"`
	Error string `json:"error,omitempty"`
}
