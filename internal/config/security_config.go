package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Valid access token required
	SecurityAdmin                       // Access token carrying the admin role
)

// EndpointSecurityConfig maps HTTP route names to their required security level.
// Routes missing from the map require SecurityAccess.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Catalogue - Public
	"ListEquipment":     SecurityPublic,
	"GetEquipment":      SecurityPublic,
	"CheckAvailability": SecurityPublic,
	"ListCategories":    SecurityPublic,

	// Owner and renter operations - Access Protected
	"CreateEquipment":     SecurityAccess,
	"UpdateEquipment":     SecurityAccess,
	"DeactivateEquipment": SecurityAccess,
	"ListReservations":    SecurityAccess,
	"CreateReservation":   SecurityAccess,
	"GetReservation":      SecurityAccess,
	"UpdateReservation":   SecurityAccess,

	// Moderation and maintenance - Admin only
	"ApproveEquipment": SecurityAdmin,
	"RejectEquipment":  SecurityAdmin,
	"SweepOverdue":     SecurityAdmin,
}

// RouteSecurity returns the level required for a named route.
func RouteSecurity(name string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[name]; ok {
		return level
	}
	return SecurityAccess
}
