// Package engine produces analysis reports and legal documents from case
// materials.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kokistudios/casebook/internal/model"
)

// Request is one analysis or document generation call.
type Request struct {
	CaseName  string
	Materials []string // ordered material texts
	Category  model.Category
	Kind      string   // analysis or document kind
	Context   []string // prerequisite analyses for document generation
}

// Engine turns a request into formatted report text.
type Engine interface {
	Name() string
	Available() error
	Generate(ctx context.Context, req Request) (string, error)
}

var ErrInterrupted = errors.New("engine interrupted")

const materialSeparator = "\n\n--- 材料分隔线 ---\n\n"

// Prompt renders the instruction sent to an external model.
func Prompt(req Request) string {
	var b strings.Builder
	b.WriteString("你是一名资深法律专家。")
	fmt.Fprintf(&b, "请就以下%s案件完成「%s」，以 Markdown 格式输出，结构清晰、专业、准确。\n\n", req.Category.Label(), model.KindLabel(req.Kind))
	fmt.Fprintf(&b, "案件名称：%s\n", req.CaseName)
	fmt.Fprintf(&b, "案件类型：%s\n", req.Category.Label())
	if guide, ok := guides[req.Kind]; ok {
		b.WriteString("\n")
		b.WriteString(guide)
		b.WriteString("\n")
	}
	if len(req.Context) > 0 {
		b.WriteString("\n以下是已完成的分析，请在此基础上撰写：\n\n")
		b.WriteString(strings.Join(req.Context, materialSeparator))
		b.WriteString("\n")
	}
	b.WriteString("\n以下是案件材料：\n\n")
	b.WriteString(strings.Join(req.Materials, materialSeparator))
	b.WriteString("\n")
	return b.String()
}

var guides = map[string]string{
	model.KindDisputeFocus: `请按照三层次争议焦点识别方法论进行分析：
第一层：法律关系分析（法律关系性质、当事人地位、关键时间节点、适用法律体系）；
第二层：请求权基础分解（诉讼请求、请求权基础规范、构成要件、抗辩事由）；
第三层：争议焦点识别（事实争议、法律适用争议、证据争议，并给出初步判断）。`,
	model.KindLitigationStrategy: "请围绕诉讼目标、诉讼请求设计、证据组织、程序安排与风险控制给出可执行的诉讼策略。",
	model.KindEvidenceAnalysis:   "请逐项审查证据的真实性、合法性、关联性与证明力，并指出证据链缺口。",
	model.KindChargeAnalysis:     "请结合犯罪构成要件分析可能涉及的罪名、此罪与彼罪的界限。",
	model.KindLegalityReview:     "请从职权依据、事实认定、法律适用、程序正当性四个方面审查行政行为的合法性。",
	model.KindContractRisk:       "请逐条识别合同中的法律风险并给出修改建议。",
}
