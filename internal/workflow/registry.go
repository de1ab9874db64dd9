package workflow

import (
	"carebridge/internal/authz"
	"carebridge/internal/models"
)

// Action names a guarded case mutation. Every mutating endpoint in the
// pipeline maps to exactly one action here.
type Action string

const (
	ActionSubmitKYP        Action = "SUBMIT_KYP"
	ActionCompleteKYPBasic Action = "COMPLETE_KYP_BASIC"
	ActionSuggestHospitals Action = "SUGGEST_HOSPITALS"
	ActionCompleteKYP      Action = "COMPLETE_KYP"
	ActionRaisePreAuth     Action = "RAISE_PREAUTH"
	ActionApprovePreAuth   Action = "APPROVE_PREAUTH"
	ActionRejectPreAuth    Action = "REJECT_PREAUTH"
	ActionInitiate         Action = "INITIATE_ADMISSION"
	ActionIPDMark          Action = "IPD_MARK"
	ActionMarkPLPending    Action = "MARK_PL_PENDING"
	ActionMarkOutstanding  Action = "MARK_OUTSTANDING"
)

// NotifyTarget is the role group (or the assigned BD) that gets notification
// rows after a successful transition.
type NotifyTarget int

const (
	NotifyNone NotifyTarget = iota
	NotifyAssignedBD
	NotifyInsuranceHeads
	NotifyInsuranceTeam
	NotifyOperations
)

// Rule describes one row of the transition table: the exact source stage,
// the stage the action produces, the capability the actor needs, and the
// fan-out that follows.
type Rule struct {
	From       models.CaseStage
	To         models.CaseStage
	Capability authz.Capability
	ChatWorthy bool
	Notify     NotifyTarget
}

// rules is the single transition table consulted by every handler. IPD_MARK
// is parameterized: only the DISCHARGED outcome produces the To stage, the
// other outcomes update the admission sub-status in place.
var rules = map[Action]Rule{
	ActionSubmitKYP: {
		From:       models.StageNewLead,
		To:         models.StageKYPBasicPending,
		Capability: authz.CapKYPSubmit,
		Notify:     NotifyInsuranceHeads,
	},
	ActionCompleteKYPBasic: {
		From:       models.StageKYPBasicPending,
		To:         models.StageKYPBasicComplete,
		Capability: authz.CapKYPReview,
	},
	ActionSuggestHospitals: {
		From:       models.StageKYPBasicComplete,
		To:         models.StageHospitalsSuggested,
		Capability: authz.CapPreAuthSuggest,
		Notify:     NotifyAssignedBD,
	},
	ActionCompleteKYP: {
		From:       models.StageHospitalsSuggested,
		To:         models.StageKYPComplete,
		Capability: authz.CapKYPReview,
		Notify:     NotifyAssignedBD,
	},
	ActionRaisePreAuth: {
		From:       models.StageKYPComplete,
		To:         models.StagePreAuthRaised,
		Capability: authz.CapPreAuthRaise,
		Notify:     NotifyInsuranceTeam,
	},
	ActionApprovePreAuth: {
		From:       models.StagePreAuthRaised,
		To:         models.StagePreAuthComplete,
		Capability: authz.CapPreAuthDecide,
		ChatWorthy: true,
		Notify:     NotifyAssignedBD,
	},
	ActionRejectPreAuth: {
		From:       models.StagePreAuthRaised,
		To:         models.StageKYPComplete,
		Capability: authz.CapPreAuthDecide,
		Notify:     NotifyAssignedBD,
	},
	ActionInitiate: {
		From:       models.StagePreAuthComplete,
		To:         models.StageInitiated,
		Capability: authz.CapAdmissionWrite,
		ChatWorthy: true,
		Notify:     NotifyOperations,
	},
	ActionIPDMark: {
		From:       models.StageInitiated,
		To:         models.StageDischarged,
		Capability: authz.CapAdmissionWrite,
		ChatWorthy: true,
		Notify:     NotifyOperations,
	},
	ActionMarkPLPending: {
		From:       models.StageDischarged,
		To:         models.StagePLPending,
		Capability: authz.CapCaseSettle,
	},
	ActionMarkOutstanding: {
		From:       models.StagePLPending,
		To:         models.StageOutstanding,
		Capability: authz.CapCaseSettle,
		Notify:     NotifyOperations,
	},
}

// RuleFor looks up the transition rule for an action.
func RuleFor(action Action) (Rule, bool) {
	r, ok := rules[action]
	return r, ok
}

// Guard checks the role's capability and the exact-stage precondition for an
// action against a lead. Capability failures come first so a caller without
// rights never learns stage details.
func Guard(lead *models.Lead, roleID int, action Action) (Rule, error) {
	rule, ok := rules[action]
	if !ok {
		return Rule{}, Validationf("unknown case action %q", action)
	}
	if !authz.Allowed(roleID, rule.Capability) {
		return Rule{}, Forbiddenf("role is not permitted to perform %s", action)
	}
	if lead.CaseStage != rule.From {
		return Rule{}, InvalidStageTransition(lead.CaseStage, rule.From, action)
	}
	return rule, nil
}
