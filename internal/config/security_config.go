package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps HTTP route templates to their required security
// level. Role checks happen in the service layer; this only decides whether a
// bearer token must be present.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"/healthz": SecurityPublic,

	"/api/v1/reservations":               SecurityAccess,
	"/api/v1/reservations/{id}":          SecurityAccess,
	"/api/v1/reservations/{id}/cancel":   SecurityAccess,
	"/api/v1/reservations/{id}/assign":   SecurityAccess,
	"/api/v1/reservations/{id}/unassign": SecurityAccess,
	"/api/v1/reservations/{id}/depart":   SecurityAccess,
	"/api/v1/reservations/{id}/return":   SecurityAccess,
	"/api/v1/reservations/{id}/settle":   SecurityAccess,
	"/api/v1/reservations/{id}/approve":  SecurityAccess,
	"/api/v1/reservations/{id}/reject":   SecurityAccess,

	"/api/v1/board/changes": SecurityAccess,
	"/api/v1/board/ws":      SecurityAccess,
}

// RouteSecurity returns the level for a route template. Unlisted routes
// require an access token.
func RouteSecurity(template string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[template]; ok {
		return level
	}
	return SecurityAccess
}
