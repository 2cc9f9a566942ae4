package domain

// ScopeKind differentiates client-scoped and agent-scoped callers.
type ScopeKind string

const (
	ScopeClient ScopeKind = "CLIENT"
	ScopeAgent  ScopeKind = "AGENT"
)

// Identity is the verified caller as extracted from the bearer token.
type Identity struct {
	Email string
	Token string
}

// Scope is the resolved visibility of an identity.
type Scope struct {
	Kind     ScopeKind
	ClientID int64
	AgentID  int64
}
