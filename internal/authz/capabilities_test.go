package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		name   string
		roleID int
		cap    Capability
		want   bool
	}{
		{"bd submits kyp", RoleBD, CapKYPSubmit, true},
		{"bd raises preauth", RoleBD, CapPreAuthRaise, true},
		{"bd cannot decide preauth", RoleBD, CapPreAuthDecide, false},
		{"bd cannot suggest hospitals", RoleBD, CapPreAuthSuggest, false},
		{"insurance decides preauth", RoleInsurance, CapPreAuthDecide, true},
		{"insurance cannot raise", RoleInsurance, CapPreAuthRaise, false},
		{"insurance head writes masters", RoleInsuranceHead, CapMastersWrite, true},
		{"insurance cannot write masters", RoleInsurance, CapMastersWrite, false},
		{"operations settles", RoleOperations, CapCaseSettle, true},
		{"operations cannot submit kyp", RoleOperations, CapKYPSubmit, false},
		{"audit has nothing", RoleAudit, CapChatPost, false},
		{"admin passes everything", RoleAdmin, CapUsersManage, true},
		{"unknown role has nothing", 99, CapChatPost, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allowed(tc.roleID, tc.cap))
		})
	}
}

func TestAuditIsReadOnly(t *testing.T) {
	assert.True(t, IsReadOnly(RoleAudit))
	assert.Empty(t, Capabilities(RoleAudit))
}

func TestAdminReportsEveryCapability(t *testing.T) {
	caps := Capabilities(RoleAdmin)
	assert.Contains(t, caps, CapLeadsWrite)
	assert.Contains(t, caps, CapPreAuthDecide)
	assert.Contains(t, caps, CapCaseSettle)
	assert.Contains(t, caps, CapUsersManage)
}

func TestCapabilitiesReturnsACopy(t *testing.T) {
	caps := Capabilities(RoleBD)
	if assert.NotEmpty(t, caps) {
		caps[0] = Capability("mutated")
		assert.NotContains(t, Capabilities(RoleBD), Capability("mutated"))
	}
}
