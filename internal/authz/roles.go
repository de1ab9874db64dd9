package authz

const (
	RoleBD            = 10
	RoleInsurance     = 20
	RoleInsuranceHead = 30
	RoleOperations    = 40
	RoleAudit         = 50
	RoleAdmin         = 60
)

// Principal is the authenticated caller, passed explicitly into services
// instead of being read from ambient request state.
type Principal struct {
	UserID int
	RoleID int
}

func IsElevated(roleID int) bool {
	return roleID == RoleInsurance || roleID == RoleInsuranceHead ||
		roleID == RoleOperations || roleID == RoleAdmin
}

func IsInsurance(roleID int) bool {
	return roleID == RoleInsurance || roleID == RoleInsuranceHead
}

func IsReadOnly(roleID int) bool {
	return roleID == RoleAudit
}
