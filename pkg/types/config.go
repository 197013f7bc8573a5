package types

import "time"

// Tone, verbosity and format values understood by the synthesis instructions.
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneConcise      = "concise"

	VerbosityBrief    = "brief"
	VerbosityDetailed = "detailed"

	FormatBullets = "bullets"
	FormatProse   = "prose"
)

// UserPreferences controls how the final answer is phrased.
type UserPreferences struct {
	Tone      string `json:"tone" yaml:"tone" mapstructure:"tone"`
	Verbosity string `json:"verbosity" yaml:"verbosity" mapstructure:"verbosity"`
	Format    string `json:"format" yaml:"format" mapstructure:"format"`
}

// DefaultPreferences is used when no preference service is configured.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Tone:      ToneProfessional,
		Verbosity: VerbosityBrief,
		Format:    FormatBullets,
	}
}

// WithDefaults fills empty fields from DefaultPreferences.
func (p UserPreferences) WithDefaults() UserPreferences {
	d := DefaultPreferences()
	if p.Tone == "" {
		p.Tone = d.Tone
	}
	if p.Verbosity == "" {
		p.Verbosity = d.Verbosity
	}
	if p.Format == "" {
		p.Format = d.Format
	}
	return p
}

// UserContext is whatever the user-context collaborator knows about the user.
type UserContext struct {
	UserID   string         `json:"user_id" yaml:"user_id"`
	Timezone string         `json:"timezone,omitempty" yaml:"timezone,omitempty" mapstructure:"timezone"`
	Accounts []string       `json:"accounts,omitempty" yaml:"accounts,omitempty" mapstructure:"accounts"`
	Extra    map[string]any `json:"extra,omitempty" yaml:"extra,omitempty" mapstructure:"extra"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message of prior conversation.
type ConversationTurn struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// DecomposeRequest is what the decomposer receives for one user turn.
type DecomposeRequest struct {
	Query       string
	History     []ConversationTurn
	UserContext UserContext
	Timestamp   time.Time
}

// Decomposition is the decomposer's output plus the tokens it spent.
type Decomposition struct {
	Graph      *ExecutionGraph
	TokensUsed int
}

// SynthesisRequest bundles everything the synthesis formatter needs.
type SynthesisRequest struct {
	Query       string
	Graph       *ExecutionGraph
	Results     ExecutionResults
	Preferences UserPreferences
}

// SynthesisMetadata reports the cost of producing the final message.
type SynthesisMetadata struct {
	TokensUsed      int   `json:"tokens_used"`
	FindingsCount   int   `json:"findings_count"`
	SynthesisTimeMs int64 `json:"synthesis_time_ms"`
}

// Synthesis is the final natural-language answer.
type Synthesis struct {
	Message  string            `json:"message"`
	Metadata SynthesisMetadata `json:"metadata"`
}
