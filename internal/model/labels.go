package model

import "strings"

// Analysis kinds.
const (
	KindDisputeFocus       = "dispute-focus"
	KindLitigationStrategy = "litigation-strategy"
	KindEvidenceAnalysis   = "evidence-analysis"
	KindLegalBasis         = "legal-basis"
	KindBasicAnalysis      = "basic-analysis"
	KindChargeAnalysis     = "charge-analysis"
	KindSentencing         = "sentencing-analysis"
	KindDefenseStrategy    = "defense-strategy"
	KindLegalityReview     = "legality-review"
	KindProcedureReview    = "procedure-review"
	KindContractRisk       = "contract-risk"
	KindClauseReview       = "clause-review"
	KindRiskAssessment     = "risk-assessment"
	KindComplianceCheck    = "compliance-check"
)

// Document kinds.
const (
	DocComplaint      = "complaint"
	DocDefense        = "defense"
	DocDefenseOpinion = "defense-opinion"
	DocAdminComplaint = "admin-complaint"
	DocLegalOpinion   = "legal-opinion"
)

var kindLabels = map[string]string{
	KindDisputeFocus:       "争议焦点分析",
	KindLitigationStrategy: "诉讼策略",
	KindEvidenceAnalysis:   "证据分析",
	KindLegalBasis:         "法律依据分析",
	KindBasicAnalysis:      "基础分析",
	KindChargeAnalysis:     "罪名分析",
	KindSentencing:         "量刑分析",
	KindDefenseStrategy:    "辩护策略",
	KindLegalityReview:     "合法性审查",
	KindProcedureReview:    "程序审查",
	KindContractRisk:       "合同风险分析",
	KindClauseReview:       "条款审查",
	KindRiskAssessment:     "风险评估",
	KindComplianceCheck:    "合规检查",

	DocComplaint:      "起诉状",
	DocDefense:        "答辩状",
	DocDefenseOpinion: "辩护意见",
	DocAdminComplaint: "行政起诉状",
	DocLegalOpinion:   "法律意见书",
}

// KindLabel returns the display label of an analysis or document kind.
// Unknown kinds are returned unchanged.
func KindLabel(kind string) string {
	if l, ok := kindLabels[kind]; ok {
		return l
	}
	return kind
}

// LookupKind maps a kind id or label to the kind id.
func LookupKind(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if _, ok := kindLabels[strings.ToLower(s)]; ok {
		return strings.ToLower(s), true
	}
	for k, l := range kindLabels {
		if s == l {
			return k, true
		}
	}
	return "", false
}

// Party roles.
const (
	RolePlaintiff    = "plaintiff"
	RoleDefendant    = "defendant"
	RoleThirdParty   = "third-party"
	RoleVictim       = "victim"
	RoleWitness      = "witness"
	RoleClient       = "client"
	RoleCounterparty = "counterparty"
	RoleOther        = "other"
)

var roleLabels = map[string]string{
	RolePlaintiff:    "原告",
	RoleDefendant:    "被告",
	RoleThirdParty:   "第三人",
	RoleVictim:       "被害人",
	RoleWitness:      "证人",
	RoleClient:       "委托人",
	RoleCounterparty: "相对方",
	RoleOther:        "其他",
}

// RoleLabel returns the display label of a party role.
func RoleLabel(role string) string {
	if l, ok := roleLabels[role]; ok {
		return l
	}
	return roleLabels[RoleOther]
}

// LookupRole maps a role id or label to the role id.
func LookupRole(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if _, ok := roleLabels[strings.ToLower(s)]; ok {
		return strings.ToLower(s), true
	}
	for r, l := range roleLabels {
		if s == l {
			return r, true
		}
	}
	switch s {
	case "被告人", "犯罪嫌疑人":
		return RoleDefendant, true
	case "申请人", "上诉人":
		return RolePlaintiff, true
	case "被申请人", "被上诉人":
		return RoleDefendant, true
	}
	return "", false
}
