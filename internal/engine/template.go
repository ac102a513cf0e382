package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kokistudios/casebook/internal/model"
)

// Template is an offline engine that assembles reports from fixed section
// outlines and facts extracted from the materials. Output depends only on
// the request.
type Template struct{}

func (t *Template) Name() string { return "template" }

func (t *Template) Available() error { return nil }

func (t *Template) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(req.Materials) == 0 {
		return "", fmt.Errorf("no materials supplied")
	}
	facts := extractFacts(req.Materials, 6)
	topics := detectTopics(req.Materials)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", req.CaseName, model.KindLabel(req.Kind))
	b.WriteString("## 基本信息\n\n")
	fmt.Fprintf(&b, "- 案件名称：%s\n", req.CaseName)
	fmt.Fprintf(&b, "- 案件类型：%s\n", req.Category.Label())
	fmt.Fprintf(&b, "- 材料数量：%d\n\n", len(req.Materials))

	switch req.Kind {
	case model.KindDisputeFocus:
		writeDisputeFocus(&b, facts, topics)
	default:
		if doc, ok := documentOutlines[req.Kind]; ok {
			writeDocument(&b, req, doc, facts, topics)
		} else {
			writeGeneric(&b, req.Kind, facts, topics)
		}
	}
	return b.String(), nil
}

func writeDisputeFocus(b *strings.Builder, facts []string, topics []topic) {
	b.WriteString("## 第一层：法律关系分析\n\n")
	if len(topics) > 0 {
		names := make([]string, 0, len(topics))
		for _, tp := range topics {
			names = append(names, tp.relation)
		}
		fmt.Fprintf(b, "本案涉及的法律关系：%s。\n\n", strings.Join(names, "、"))
	} else {
		b.WriteString("材料中未能识别出明确的法律关系类型，需结合当事人陈述进一步确认。\n\n")
	}
	b.WriteString("关键事实：\n")
	writeList(b, facts)

	b.WriteString("\n## 第二层：请求权基础分解\n\n")
	if len(topics) == 0 {
		b.WriteString("- 请求权基础待定，建议补充合同、票据或损害事实相关材料。\n")
	}
	for _, tp := range topics {
		fmt.Fprintf(b, "- %s：%s\n", tp.claim, tp.law)
	}

	b.WriteString("\n## 第三层：争议焦点识别\n\n")
	i := 1
	for _, tp := range topics {
		for _, q := range tp.issues {
			fmt.Fprintf(b, "%d. %s\n", i, q)
			i++
		}
	}
	fmt.Fprintf(b, "%d. 各方提交证据能否相互印证，形成完整证据链。\n", i)
}

func writeGeneric(b *strings.Builder, kind string, facts []string, topics []topic) {
	sections, ok := analysisOutlines[kind]
	if !ok {
		sections = []string{"案情概述", "分析意见", "结论与建议"}
	}
	for n, s := range sections {
		fmt.Fprintf(b, "## %s\n\n", s)
		switch n {
		case 0:
			writeList(b, facts)
		case len(sections) - 1:
			if len(topics) == 0 {
				b.WriteString("- 建议补充材料后进一步分析。\n")
			}
			for _, tp := range topics {
				fmt.Fprintf(b, "- 关注%s相关问题，适用%s。\n", tp.relation, tp.law)
			}
		default:
			for _, tp := range topics {
				for _, q := range tp.issues {
					fmt.Fprintf(b, "- %s\n", q)
				}
			}
			if len(topics) == 0 {
				b.WriteString("- 现有材料不足以得出明确意见。\n")
			}
		}
		b.WriteString("\n")
	}
}

func writeDocument(b *strings.Builder, req Request, sections []string, facts []string, topics []topic) {
	for n, s := range sections {
		fmt.Fprintf(b, "## %s\n\n", s)
		switch n {
		case 0:
			for _, tp := range topics {
				fmt.Fprintf(b, "- 依据%s，%s\n", tp.law, tp.claim)
			}
			if len(topics) == 0 {
				b.WriteString("- （请根据案件情况填写）\n")
			}
		case 1:
			writeList(b, facts)
			for _, c := range req.Context {
				if h := heading(c); h != "" {
					fmt.Fprintf(b, "\n参考：%s\n", h)
				}
			}
		default:
			b.WriteString("（此处由承办律师补充完善）\n")
		}
		b.WriteString("\n")
	}
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- （材料中未提取到有效事实）\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func heading(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// extractFacts returns up to limit distinct sentences from the materials,
// in material order.
func extractFacts(materials []string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range materials {
		for _, s := range splitSentences(m) {
			if len(out) >= limit {
				return out
			}
			if utf8.RuneCountInString(s) < 4 || seen[s] || strings.HasPrefix(s, "【") && strings.HasSuffix(s, "】") {
				continue
			}
			seen[s] = true
			out = append(out, truncate(s, 80))
		}
	}
	return out
}

func splitSentences(text string) []string {
	f := func(r rune) bool {
		return r == '\n' || r == '。' || r == '；' || r == '！' || r == '？'
	}
	var out []string
	for _, p := range strings.FieldsFunc(text, f) {
		p = strings.TrimSpace(strings.TrimLeft(p, "#-*> \t"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

type topic struct {
	keywords []string
	relation string
	claim    string
	law      string
	issues   []string
}

var topicTable = []topic{
	{
		keywords: []string{"借款", "借条", "欠款", "还款", "利息"},
		relation: "民间借贷法律关系",
		claim:    "返还借款本金及利息的请求",
		law:      "《中华人民共和国民法典》第六百六十七条至第六百八十条",
		issues:   []string{"借贷合意与款项交付是否真实发生。", "利息约定是否明确、是否超过法定上限。"},
	},
	{
		keywords: []string{"合同", "协议", "违约", "定金", "履行"},
		relation: "合同法律关系",
		claim:    "继续履行或承担违约责任的请求",
		law:      "《中华人民共和国民法典》合同编第五百七十七条",
		issues:   []string{"合同是否成立并有效。", "违约事实是否存在及违约责任的范围。"},
	},
	{
		keywords: []string{"事故", "受伤", "交通", "机动车", "侵权", "损害"},
		relation: "侵权责任法律关系",
		claim:    "人身及财产损害赔偿请求",
		law:      "《中华人民共和国民法典》侵权责任编第一千一百六十五条",
		issues:   []string{"侵权行为与损害后果之间是否存在因果关系。", "各责任主体的过错程度及责任比例。"},
	},
	{
		keywords: []string{"劳动", "工资", "解除", "社保", "加班"},
		relation: "劳动法律关系",
		claim:    "支付劳动报酬及经济补偿的请求",
		law:      "《中华人民共和国劳动合同法》第三十条、第四十六条",
		issues:   []string{"劳动关系是否成立及存续期间。", "解除劳动合同是否合法。"},
	},
	{
		keywords: []string{"盗窃", "诈骗", "伤害", "犯罪", "公诉"},
		relation: "刑事法律关系",
		claim:    "依法定罪量刑的指控",
		law:      "《中华人民共和国刑法》分则相关条文",
		issues:   []string{"犯罪构成要件是否齐备。", "是否存在自首、坦白等从轻减轻情节。"},
	},
	{
		keywords: []string{"行政", "处罚", "许可", "复议", "征收"},
		relation: "行政法律关系",
		claim:    "撤销或确认行政行为违法的请求",
		law:      "《中华人民共和国行政诉讼法》第七十条",
		issues:   []string{"行政机关是否具有法定职权。", "行政程序是否正当合法。"},
	},
}

func detectTopics(materials []string) []topic {
	joined := strings.Join(materials, "\n")
	type hit struct {
		t     topic
		count int
		order int
	}
	var hits []hit
	for i, tp := range topicTable {
		n := 0
		for _, kw := range tp.keywords {
			n += strings.Count(joined, kw)
		}
		if n > 0 {
			hits = append(hits, hit{tp, n, i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].order < hits[j].order
	})
	out := make([]topic, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.t)
	}
	return out
}

var analysisOutlines = map[string][]string{
	model.KindLitigationStrategy: {"案情概述", "诉讼目标与请求设计", "证据组织与程序安排", "风险提示与建议"},
	model.KindEvidenceAnalysis:   {"证据概况", "证据三性审查", "证据链评估"},
	model.KindLegalBasis:         {"案情概述", "法律依据梳理", "适用意见"},
	model.KindBasicAnalysis:      {"案情概述", "初步分析", "处理建议"},
	model.KindChargeAnalysis:     {"案情概述", "犯罪构成分析", "罪名认定意见"},
	model.KindSentencing:         {"案情概述", "量刑情节", "量刑建议"},
	model.KindDefenseStrategy:    {"案情概述", "辩护要点", "辩护方案"},
	model.KindLegalityReview:     {"行政行为概述", "合法性审查要点", "审查结论"},
	model.KindProcedureReview:    {"程序经过", "程序瑕疵审查", "审查结论"},
	model.KindContractRisk:       {"合同概况", "风险条款识别", "修改建议"},
	model.KindClauseReview:       {"合同概况", "条款逐项审查", "审查结论"},
	model.KindRiskAssessment:     {"事项概述", "风险识别", "风险应对建议"},
	model.KindComplianceCheck:    {"事项概述", "合规要点检查", "整改建议"},
}

var documentOutlines = map[string][]string{
	model.DocComplaint:      {"诉讼请求", "事实与理由", "此致"},
	model.DocDefense:        {"答辩意见", "事实与理由", "此致"},
	model.DocDefenseOpinion: {"辩护意见", "事实与证据", "结论"},
	model.DocAdminComplaint: {"诉讼请求", "事实与理由", "此致"},
	model.DocLegalOpinion:   {"法律意见", "事实基础", "声明与保留"},
}
