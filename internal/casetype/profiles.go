package casetype

import "github.com/kokistudios/casebook/internal/model"

// Role is a party role admitted by a category, with the side it counts for.
type Role struct {
	ID   string
	Side model.Side
}

// Recipe describes one document a category can draft. The prerequisite
// analyses are computed through the cache before the document is generated.
// An empty Prerequisites list means the recipe derives them from the case's
// valid kinds.
type Recipe struct {
	Kind          string
	Prerequisites []string
	Store         model.MaterialType
}

// Label returns the display label of the document.
func (r Recipe) Label() string { return model.KindLabel(r.Kind) }

// Profile is the per-category configuration record driving the generic
// handler.
type Profile struct {
	Category      model.Category
	Kinds         []string
	BusinessKinds map[model.BusinessType][]string
	Documents     []Recipe
	Roles         []Role
}

var civil = Profile{
	Category: model.CategoryCivil,
	Kinds: []string{
		model.KindDisputeFocus,
		model.KindLitigationStrategy,
		model.KindEvidenceAnalysis,
		model.KindLegalBasis,
		model.KindBasicAnalysis,
	},
	Documents: []Recipe{
		{Kind: model.DocComplaint, Prerequisites: []string{model.KindDisputeFocus, model.KindLegalBasis}, Store: model.MaterialLitigationDocument},
		{Kind: model.DocDefense, Prerequisites: []string{model.KindDisputeFocus, model.KindEvidenceAnalysis}, Store: model.MaterialLitigationDocument},
	},
	Roles: []Role{
		{model.RolePlaintiff, model.SideClaimant},
		{model.RoleDefendant, model.SideRespondent},
		{model.RoleThirdParty, model.SideOther},
	},
}

var criminal = Profile{
	Category: model.CategoryCriminal,
	Kinds: []string{
		model.KindChargeAnalysis,
		model.KindEvidenceAnalysis,
		model.KindSentencing,
		model.KindDefenseStrategy,
		model.KindBasicAnalysis,
	},
	Documents: []Recipe{
		{Kind: model.DocDefenseOpinion, Prerequisites: []string{model.KindChargeAnalysis, model.KindEvidenceAnalysis}, Store: model.MaterialLitigationDocument},
	},
	Roles: []Role{
		{model.RoleDefendant, model.SideRespondent},
		{model.RoleVictim, model.SideClaimant},
		{model.RoleWitness, model.SideOther},
	},
}

var administrative = Profile{
	Category: model.CategoryAdministrative,
	Kinds: []string{
		model.KindLegalityReview,
		model.KindProcedureReview,
		model.KindEvidenceAnalysis,
		model.KindLegalBasis,
		model.KindBasicAnalysis,
	},
	Documents: []Recipe{
		{Kind: model.DocAdminComplaint, Prerequisites: []string{model.KindLegalityReview, model.KindLegalBasis}, Store: model.MaterialLitigationDocument},
	},
	Roles: []Role{
		{model.RolePlaintiff, model.SideClaimant},
		{model.RoleDefendant, model.SideRespondent},
		{model.RoleThirdParty, model.SideOther},
	},
}

var nonLitigation = Profile{
	Category: model.CategoryNonLitigation,
	BusinessKinds: map[model.BusinessType][]string{
		model.BusinessContractReview:    {model.KindContractRisk, model.KindClauseReview, model.KindBasicAnalysis},
		model.BusinessLegalConsultation: {model.KindLegalBasis, model.KindRiskAssessment, model.KindBasicAnalysis},
		model.BusinessComplianceReview:  {model.KindComplianceCheck, model.KindRiskAssessment, model.KindBasicAnalysis},
		model.BusinessUnspecified:       {model.KindBasicAnalysis, model.KindRiskAssessment, model.KindLegalBasis},
	},
	Documents: []Recipe{
		{Kind: model.DocLegalOpinion, Store: model.MaterialLegalDocument},
	},
	Roles: []Role{
		{model.RoleClient, model.SideClaimant},
		{model.RoleCounterparty, model.SideRespondent},
		{model.RoleOther, model.SideOther},
	},
}

// Profiles lists the built-in profiles in category display order.
func Profiles() []Profile {
	return []Profile{civil, criminal, administrative, nonLitigation}
}
