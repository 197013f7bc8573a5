// Package profile serves user context and preferences from static configuration.
package profile

import (
	"context"
	"sync"

	"github.com/avi3tal/infograph/pkg/types"
)

// Static answers every user with the same context and preferences, unless a
// per-user override was set.
type Static struct {
	mu          sync.RWMutex
	context     types.UserContext
	preferences types.UserPreferences
	overrides   map[string]types.UserPreferences
}

func NewStatic(userCtx types.UserContext, prefs types.UserPreferences) *Static {
	return &Static{
		context:     userCtx,
		preferences: prefs.WithDefaults(),
		overrides:   make(map[string]types.UserPreferences),
	}
}

func (s *Static) GetUserContext(_ context.Context, userID string) (types.UserContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.context
	out.UserID = userID
	if out.Accounts != nil {
		out.Accounts = append([]string(nil), out.Accounts...)
	}
	if out.Extra != nil {
		extra := make(map[string]any, len(out.Extra))
		for k, v := range out.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out, nil
}

func (s *Static) GetPreferences(_ context.Context, userID string) (types.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.overrides[userID]; ok {
		return p, nil
	}
	return s.preferences, nil
}

// SetPreferences overrides the preferences of one user.
func (s *Static) SetPreferences(userID string, prefs types.UserPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[userID] = prefs.WithDefaults()
}
