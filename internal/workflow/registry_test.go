package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/authz"
	"carebridge/internal/models"
)

func TestRulesTargetValidStages(t *testing.T) {
	for action, rule := range rules {
		assert.True(t, rule.From.Valid(), "action %s has invalid From stage %q", action, rule.From)
		assert.True(t, rule.To.Valid(), "action %s has invalid To stage %q", action, rule.To)
		assert.NotEqual(t, rule.From, rule.To, "action %s is a no-op transition", action)
		assert.NotEmpty(t, rule.Capability, "action %s has no capability", action)
	}
}

func TestHappyPathIsAChain(t *testing.T) {
	// The main pipeline must be walkable end to end: each action starts
	// where the previous one ended.
	path := []Action{
		ActionSubmitKYP,
		ActionCompleteKYPBasic,
		ActionSuggestHospitals,
		ActionCompleteKYP,
		ActionRaisePreAuth,
		ActionApprovePreAuth,
		ActionInitiate,
		ActionIPDMark,
		ActionMarkPLPending,
		ActionMarkOutstanding,
	}

	stage := models.StageNewLead
	for _, action := range path {
		rule, ok := RuleFor(action)
		require.True(t, ok, "no rule for %s", action)
		require.Equal(t, stage, rule.From, "%s does not start at %s", action, stage)
		stage = rule.To
	}
	assert.Equal(t, models.StageOutstanding, stage)
}

func TestRejectReturnsToKYPComplete(t *testing.T) {
	rule, ok := RuleFor(ActionRejectPreAuth)
	require.True(t, ok)
	assert.Equal(t, models.StagePreAuthRaised, rule.From)
	assert.Equal(t, models.StageKYPComplete, rule.To)
}

func TestGuardChecksCapabilityBeforeStage(t *testing.T) {
	// Lead is in the wrong stage AND the role lacks the capability; the
	// capability failure must win so stage details never leak.
	lead := &models.Lead{ID: 1, CaseStage: models.StageOutstanding}
	_, err := Guard(lead, authz.RoleAudit, ActionSubmitKYP)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.NotContains(t, err.Error(), string(models.StageOutstanding))
}

func TestGuardRejectsWrongStage(t *testing.T) {
	lead := &models.Lead{ID: 1, CaseStage: models.StageNewLead}
	_, err := Guard(lead, authz.RoleBD, ActionRaisePreAuth)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Contains(t, err.Error(), "invalid stage transition")
	assert.Contains(t, err.Error(), string(models.StageNewLead))
	assert.Contains(t, err.Error(), string(models.StageKYPComplete))
}

func TestGuardNeverCoercesStage(t *testing.T) {
	// A case stranded two stages back cannot jump forward.
	lead := &models.Lead{ID: 1, CaseStage: models.StageKYPBasicComplete}
	_, err := Guard(lead, authz.RoleBD, ActionRaisePreAuth)
	require.Error(t, err)
	assert.Equal(t, models.StageKYPBasicComplete, lead.CaseStage)
}

func TestGuardAllowsExactStage(t *testing.T) {
	lead := &models.Lead{ID: 1, CaseStage: models.StageKYPComplete}
	rule, err := Guard(lead, authz.RoleBD, ActionRaisePreAuth)
	require.NoError(t, err)
	assert.Equal(t, models.StagePreAuthRaised, rule.To)
}

func TestGuardUnknownAction(t *testing.T) {
	lead := &models.Lead{ID: 1, CaseStage: models.StageNewLead}
	_, err := Guard(lead, authz.RoleAdmin, Action("NO_SUCH_ACTION"))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestLegacyStagesHaveNoProducingAction(t *testing.T) {
	legacy := []models.CaseStage{
		models.StageKYPPending,
		models.StageAdmitted,
		models.StageIPDDone,
	}
	for _, stage := range legacy {
		assert.True(t, stage.Valid(), "%s should remain a valid stored stage", stage)
		for action, rule := range rules {
			assert.NotEqual(t, stage, rule.To, "action %s produces legacy stage %s", action, stage)
		}
	}
}

func TestKindOfUnknownError(t *testing.T) {
	assert.Equal(t, KindUnexpected, KindOf(assert.AnError))
}
