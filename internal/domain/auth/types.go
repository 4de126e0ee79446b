package auth

// Package auth contains domain-level types for identity and role-gated access.
// It is pure and free of framework/adapter concerns.

// Role represents an application authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	// RoleGuest is the role of an unauthenticated visitor.
	RoleGuest Role = "guest"
	// RoleAuthenticated is the base role of any signed-in user.
	RoleAuthenticated Role = "authenticated"
	// RoleFamilyContact is the role of a family member coordinating a tribute.
	RoleFamilyContact Role = "family_contact"
	// RoleFuneralDirector is the role of funeral home staff.
	RoleFuneralDirector Role = "funeral_director"
)

// roleLabels maps roles to their human-facing display labels.
var roleLabels = map[Role]string{
	RoleGuest:           "Guest",
	RoleAuthenticated:   "Member",
	RoleFamilyContact:   "Family Contact",
	RoleFuneralDirector: "Funeral Director",
}

// rolePrivilege orders roles by privilege. The ordering is informational
// (display sorting only); authorization is always set membership.
var rolePrivilege = map[Role]int{
	RoleGuest:           0,
	RoleAuthenticated:   1,
	RoleFamilyContact:   2,
	RoleFuneralDirector: 3,
}

// ParseRole normalizes a role string to a member of the closed enumeration.
// Unknown or empty strings map to RoleGuest so that a forged or stale role
// hint can never escalate.
func ParseRole(s string) Role {
	r := Role(s)
	if _, ok := rolePrivilege[r]; ok {
		return r
	}
	return RoleGuest
}

// IsValid reports whether the role is a member of the closed enumeration.
func (r Role) IsValid() bool {
	_, ok := rolePrivilege[r]
	return ok
}

// Label returns the display label for the role. Unknown roles render as Guest.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return roleLabels[RoleGuest]
}

// Privilege returns the informational privilege rank of the role.
func (r Role) Privilege() int { return rolePrivilege[ParseRole(string(r))] }

// Credential is the opaque bearer token minted by the identity provider.
// The web tier stores and forwards it; it never inspects or mints one.
type Credential string

// IsZero reports whether no credential is present.
func (c Credential) IsZero() bool { return c == "" }

// Identity is the per-request materialized view of the authenticated subject.
// It is created fresh on every request and never persisted or shared.
type Identity struct {
	SubjectID   string
	DisplayName string
	Role        Role

	// Provisional marks an identity synthesized from credential presence and
	// the role hint alone, without a provider round trip. A provisional
	// identity never claims more than the hint does.
	Provisional bool
}

// Guest returns the identity of an unauthenticated visitor.
func Guest() Identity {
	return Identity{Role: RoleGuest}
}

// IsGuest reports whether the identity is unauthenticated.
func (i Identity) IsGuest() bool { return i.Role == RoleGuest }

// RouteRequirement declares the roles that may access a protected route and
// where to send a denied visitor. Static configuration, not persisted data.
type RouteRequirement struct {
	AllowedRoles []Role
	LoginPath    string
	DeniedPath   string
}

// Allows reports whether the role is a member of the allowed set.
// OR semantics; order is irrelevant.
func (rr RouteRequirement) Allows(r Role) bool {
	for _, allowed := range rr.AllowedRoles {
		if r == allowed {
			return true
		}
	}
	return false
}

// Registration carries the inputs of a new-subject registration.
type Registration struct {
	Username    string
	Email       string
	Secret      string
	DisplayName string
	// RequestedRole is assigned best-effort after the subject is created.
	RequestedRole Role
}
