// Package checkpoints keeps the orchestrator state blob and conversation
// history of each conversation between turns.
package checkpoints

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/pkg/types"
)

var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Key identifies one conversation of one user.
type Key struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// Checkpoint is the stored form of a conversation. State is kept encoded so a
// loaded checkpoint never aliases the caller's values.
type Checkpoint struct {
	Key       Key             `json:"key"`
	State     json.RawMessage `json:"state,omitempty"`
	History   json.RawMessage `json:"history,omitempty"`
	Turns     int             `json:"turns"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists checkpoints.
type Store interface {
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context, key Key) (*Checkpoint, error)
	Delete(ctx context.Context, key Key) error
}

// Conversation is a decoded checkpoint.
type Conversation struct {
	State   *types.OrchestratorState
	History []types.ConversationTurn
	Turns   int
}

// StateCheckpointer encodes conversations into a Store.
type StateCheckpointer struct {
	store Store
}

func NewStateCheckpointer(store Store) *StateCheckpointer {
	return &StateCheckpointer{store: store}
}

// Save records the state and history after a turn.
func (sc *StateCheckpointer) Save(
	ctx context.Context,
	key Key,
	state *types.OrchestratorState,
	history []types.ConversationTurn,
) error {
	stateData, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "failed to encode state for user %s conversation %s", key.UserID, key.ConversationID)
	}
	historyData, err := json.Marshal(history)
	if err != nil {
		return errors.Wrapf(err, "failed to encode history for user %s conversation %s", key.UserID, key.ConversationID)
	}

	cp := Checkpoint{
		Key:       key,
		State:     stateData,
		History:   historyData,
		Turns:     1,
		CreatedAt: time.Now(),
	}
	if prev, err := sc.store.Load(ctx, key); err == nil {
		cp.CreatedAt = prev.CreatedAt
		cp.Turns = prev.Turns + 1
	}

	if err := sc.store.Save(ctx, cp); err != nil {
		return errors.Wrapf(err, "failed to save checkpoint for user %s conversation %s", key.UserID, key.ConversationID)
	}
	return nil
}

// Load returns the last saved conversation for key.
func (sc *StateCheckpointer) Load(ctx context.Context, key Key) (*Conversation, error) {
	cp, err := sc.store.Load(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load checkpoint for user %s conversation %s", key.UserID, key.ConversationID)
	}

	conv := &Conversation{Turns: cp.Turns}
	if len(cp.State) > 0 && string(cp.State) != "null" {
		conv.State = &types.OrchestratorState{}
		if err := json.Unmarshal(cp.State, conv.State); err != nil {
			return nil, errors.Wrap(err, "failed to decode state")
		}
	}
	if len(cp.History) > 0 {
		if err := json.Unmarshal(cp.History, &conv.History); err != nil {
			return nil, errors.Wrap(err, "failed to decode history")
		}
	}
	return conv, nil
}

func (sc *StateCheckpointer) Delete(ctx context.Context, key Key) error {
	return sc.store.Delete(ctx, key)
}
