package model

// Roles understood by the API.  Tokens are issued by the external
// identity provider; this service only reads the role claim.
const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
)

// Principal is the authenticated caller extracted from the bearer token.
// It is trusted as-is; credentials are never re-validated here.
type Principal struct {
	ID    uint64
	Email string
	Role  string
}

// IsManager reports whether the principal may trigger sweeps.
func (p Principal) IsManager() bool { return p.Role == RoleManager }
