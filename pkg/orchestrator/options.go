package orchestrator

import "log/slog"

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithUserContext sets the service asked for the user's context before
// decomposition. Without one, the context only carries the user ID.
func WithUserContext(svc UserContextService) Option {
	return func(o *Orchestrator) {
		o.userContext = svc
	}
}

// WithPreferences sets the service asked for the user's answer preferences.
// Without one, types.DefaultPreferences is used.
func WithPreferences(svc PreferencesService) Option {
	return func(o *Orchestrator) {
		o.preferences = svc
	}
}

// WithHistoryWindow sets how many recent conversation turns reach the decomposer.
func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) {
		o.historyWindow = n
	}
}

// WithLogger sets the logger. Without one, the logger carried by the request
// context is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}
