package authz

// Capability is a typed permission token. Checks go through Allowed so the
// role→capability mapping lives in one place instead of string literals
// scattered over handlers.
type Capability string

const (
	CapLeadsWrite     Capability = "leads:write"
	CapLeadsAssign    Capability = "leads:assign"
	CapKYPSubmit      Capability = "kyp:submit"
	CapKYPReview      Capability = "kyp:review"
	CapPreAuthSuggest Capability = "preauth:suggest"
	CapPreAuthRaise   Capability = "preauth:raise"
	CapPreAuthDecide  Capability = "preauth:decide"
	CapAdmissionWrite Capability = "admission:write"
	CapCaseSettle     Capability = "case:settle"
	CapMastersWrite   Capability = "masters:write"
	CapChatPost       Capability = "chat:post"
	CapUsersManage    Capability = "users:manage"
)

var roleCapabilities = map[int][]Capability{
	RoleBD: {
		CapLeadsWrite, CapKYPSubmit, CapPreAuthRaise,
		CapAdmissionWrite, CapChatPost,
	},
	RoleInsurance: {
		CapKYPReview, CapPreAuthSuggest, CapPreAuthDecide, CapChatPost,
	},
	RoleInsuranceHead: {
		CapKYPReview, CapPreAuthSuggest, CapPreAuthDecide,
		CapMastersWrite, CapLeadsAssign, CapChatPost,
	},
	RoleOperations: {
		CapCaseSettle, CapLeadsAssign, CapChatPost,
	},
	// audit is read-only: no capabilities
	RoleAudit: {},
}

// Allowed reports whether the role carries the capability. Admin passes every
// check.
func Allowed(roleID int, cap Capability) bool {
	if roleID == RoleAdmin {
		return true
	}
	for _, c := range roleCapabilities[roleID] {
		if c == cap {
			return true
		}
	}
	return false
}

// Capabilities returns the role's capability set (admin reports every token).
func Capabilities(roleID int) []Capability {
	if roleID == RoleAdmin {
		return []Capability{
			CapLeadsWrite, CapLeadsAssign, CapKYPSubmit, CapKYPReview,
			CapPreAuthSuggest, CapPreAuthRaise, CapPreAuthDecide,
			CapAdmissionWrite, CapCaseSettle, CapMastersWrite,
			CapChatPost, CapUsersManage,
		}
	}
	out := make([]Capability, len(roleCapabilities[roleID]))
	copy(out, roleCapabilities[roleID])
	return out
}
