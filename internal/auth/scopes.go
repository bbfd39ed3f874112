package auth

// Known OAuth scopes used by the run tracking backend.
const (
	ScopeRunsWrite       = "runs:write"
	ScopeRunsRead        = "runs:read"
	ScopeGoalsWrite      = "goals:write"
	ScopeChallengesRead  = "challenges:read"
	ScopeChallengesWrite = "challenges:write"
)
