package domain

// Role represents a member's role in the cooperative
type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleSecretary Role = "SECRETARY"
	RoleTreasurer Role = "TREASURER"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole converts a raw role name into a Role
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleMember, RoleSecretary, RoleTreasurer, RoleAdmin:
		return r, nil
	}
	return "", ErrInvalidRole
}

// Capability is a privileged action gated by role
type Capability string

const (
	CapViewMembers         Capability = "view_members"
	CapApproveMembers      Capability = "approve_members"
	CapManageRoles         Capability = "manage_roles"
	CapRecordForMember     Capability = "record_for_member"
	CapApproveTransactions Capability = "approve_transactions"
	CapViewAllTransactions Capability = "view_all_transactions"
	CapApproveLoans        Capability = "approve_loans"
	CapViewAllLoans        Capability = "view_all_loans"
	CapViewReports         Capability = "view_reports"
)

var capabilities = map[Role]map[Capability]bool{
	RoleMember: {},
	RoleSecretary: {
		CapViewMembers:         true,
		CapRecordForMember:     true,
		CapViewAllTransactions: true,
		CapViewAllLoans:        true,
	},
	RoleTreasurer: {
		CapViewMembers:         true,
		CapRecordForMember:     true,
		CapApproveTransactions: true,
		CapViewAllTransactions: true,
		CapApproveLoans:        true,
		CapViewAllLoans:        true,
		CapViewReports:         true,
	},
	RoleAdmin: {
		CapViewMembers:         true,
		CapApproveMembers:      true,
		CapManageRoles:         true,
		CapRecordForMember:     true,
		CapApproveTransactions: true,
		CapViewAllTransactions: true,
		CapApproveLoans:        true,
		CapViewAllLoans:        true,
		CapViewReports:         true,
	},
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role Role, c Capability) bool {
	return capabilities[role][c]
}
