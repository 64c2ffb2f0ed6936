package auth

import (
	"dag-console/models"
)

// Permission names checked by screens and API routes.
const (
	PermViewDashboard   = "view_dashboard"
	PermViewDAG         = "view_dag"
	PermViewWallet      = "view_wallet"
	PermTrade           = "trade"
	PermViewNetwork     = "view_network"
	PermViewValidators  = "view_validators"
	PermManageValidator = "manage_validator"
	PermViewCompliance  = "view_compliance"
	PermExportReports   = "export_reports"
	PermManageUsers     = "manage_users"
	PermManageSettings  = "manage_settings"
)

// rolePermissions is the static default permission table. Each row is spelled
// out; roles do not inherit from one another.
var rolePermissions = map[models.Role][]string{
	models.RoleUser: {
		PermViewDashboard, PermViewDAG, PermViewWallet, PermTrade,
	},
	models.RoleValidator: {
		PermViewDashboard, PermViewDAG, PermViewWallet, PermTrade,
		PermViewNetwork, PermViewValidators, PermManageValidator,
	},
	models.RoleAdmin: {
		PermViewDashboard, PermViewDAG, PermViewWallet, PermTrade,
		PermViewNetwork, PermViewValidators, PermManageValidator,
		PermViewCompliance, PermExportReports, PermManageUsers, PermManageSettings,
	},
}

// KnownRole reports whether role has a row in the permission table.
func KnownRole(role models.Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

// PermissionsFor returns a copy of the default permission set of role.
func PermissionsFor(role models.Role) []string {
	return append([]string(nil), rolePermissions[role]...)
}
