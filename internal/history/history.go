// Package history holds conversation turns and converts them to chat messages.
package history

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"

	"github.com/avi3tal/infograph/pkg/types"
)

var (
	ErrNoMessages  = errors.New("no messages")
	ErrUnknownRole = errors.New("unknown conversation role")
)

// Conversation is an ordered list of turns, oldest first.
type Conversation struct {
	Turns []types.ConversationTurn `json:"turns"`
}

func (c Conversation) Validate() error {
	if len(c.Turns) == 0 {
		return ErrNoMessages
	}
	for i, t := range c.Turns {
		if t.Role != types.RoleUser && t.Role != types.RoleAssistant {
			return errors.Wrapf(ErrUnknownRole, "turn %d: %q", i, t.Role)
		}
	}
	return nil
}

// Append returns a conversation with turns added after the existing ones.
func (c Conversation) Append(turns ...types.ConversationTurn) Conversation {
	out := make([]types.ConversationTurn, 0, len(c.Turns)+len(turns))
	out = append(out, c.Turns...)
	out = append(out, turns...)
	return Conversation{Turns: out}
}

// Window returns the last n turns of history. n <= 0 yields none.
func Window(turns []types.ConversationTurn, n int) []types.ConversationTurn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]types.ConversationTurn(nil), turns...)
}

// ToMessages converts turns into chat messages. Turns with an unknown role
// are treated as user input.
func ToMessages(turns []types.ConversationTurn) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(turns))
	for _, t := range turns {
		role := llms.ChatMessageTypeHuman
		if t.Role == types.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, t.Content))
	}
	return out
}

func (c Conversation) Dump() ([]byte, error) {
	return json.Marshal(c)
}

func Load(data []byte) (Conversation, error) {
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return Conversation{}, errors.Wrap(err, "failed to decode conversation")
	}
	return c, nil
}
