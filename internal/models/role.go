package models

// UserRole represents the portal roles stored in user_roles.
type UserRole string

const (
	RoleAdmin           UserRole = "admin"
	RoleEnrollmentStaff UserRole = "enrollment_staff"
	RoleReadOnly        UserRole = "read_only"
)

// Roles lists every assignable role.
var Roles = []UserRole{RoleAdmin, RoleEnrollmentStaff, RoleReadOnly}

// Valid reports whether the role is one of the assignable values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleEnrollmentStaff, RoleReadOnly:
		return true
	}
	return false
}

// Capability is a single grantable permission. Roles expand into capability
// sets so route gating checks a capability rather than comparing role names.
type Capability string

const (
	CapViewPortal    Capability = "view_portal"
	CapModifyData    Capability = "modify_data"
	CapDeleteRecords Capability = "delete_records"
	CapManageUsers   Capability = "manage_users"
	CapExportData    Capability = "export_data"
	CapViewAuditLog  Capability = "view_audit_log"
)

var roleCapabilities = map[UserRole][]Capability{
	RoleAdmin: {
		CapViewPortal, CapModifyData, CapDeleteRecords,
		CapManageUsers, CapExportData, CapViewAuditLog,
	},
	RoleEnrollmentStaff: {CapViewPortal, CapModifyData, CapExportData},
	RoleReadOnly:        {CapViewPortal},
}

// RoleAssignment is the resolved permission view of a user. A user with no
// user_roles row resolves to the zero value: no role, no capabilities.
type RoleAssignment struct {
	UserID       string       `json:"user_id"`
	Role         *UserRole    `json:"role,omitempty"`
	Capabilities []Capability `json:"capabilities"`
}

// NewRoleAssignment expands a role row (nil when absent) into capabilities.
func NewRoleAssignment(userID string, role *UserRole) RoleAssignment {
	assignment := RoleAssignment{UserID: userID, Capabilities: []Capability{}}
	if role == nil || !role.Valid() {
		return assignment
	}
	assignment.Role = role
	assignment.Capabilities = append(assignment.Capabilities, roleCapabilities[*role]...)
	return assignment
}

// Has reports whether the assignment grants the capability.
func (a RoleAssignment) Has(cap Capability) bool {
	for _, c := range a.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the resolved role is admin.
func (a RoleAssignment) IsAdmin() bool {
	return a.Role != nil && *a.Role == RoleAdmin
}

// CanModifyData reports whether the user may create or edit records.
func (a RoleAssignment) CanModifyData() bool {
	return a.Has(CapModifyData)
}

// HasPortalAccess reports whether any role is assigned.
func (a RoleAssignment) HasPortalAccess() bool {
	return a.Role != nil
}
