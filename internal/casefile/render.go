package casefile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kokistudios/casebook/internal/model"
)

const (
	summaryBegin = "<!-- casebook:summary -->"
	summaryEnd   = "<!-- /casebook:summary -->"
)

// RenderTimeline renders the full event list, ordered by date. The output
// depends only on the set of events, never on the order they were appended.
func RenderTimeline(caseName string, events []model.TimelineEvent) string {
	sorted := append([]model.TimelineEvent(nil), events...)
	model.SortEvents(sorted)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s 案件时间线\n\n", caseName)
	if len(sorted) == 0 {
		b.WriteString("暂无事件。\n")
		return b.String()
	}
	b.WriteString("| 日期 | 事件 | 说明 |\n")
	b.WriteString("|------|------|------|\n")
	for _, e := range sorted {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Date.Format("2006-01-02"), cell(e.Title), cell(e.Description))
	}
	return b.String()
}

// RenderParties renders parties grouped by role label.
func RenderParties(parties []model.Party) string {
	groups := map[string][]model.Party{}
	var labels []string
	for _, p := range parties {
		l := model.RoleLabel(p.Role)
		if _, ok := groups[l]; !ok {
			labels = append(labels, l)
		}
		groups[l] = append(groups[l], p)
	}
	sort.Strings(labels)

	var b strings.Builder
	b.WriteString("# 当事人\n")
	for _, l := range labels {
		fmt.Fprintf(&b, "\n## %s\n\n", l)
		for _, p := range groups[l] {
			if info := strings.TrimSpace(p.Info); info != "" {
				fmt.Fprintf(&b, "- %s：%s\n", p.Name, firstLine(info))
			} else {
				fmt.Fprintf(&b, "- %s\n", p.Name)
			}
		}
	}
	return b.String()
}

func renderSummary(c *model.Case) string {
	var b strings.Builder
	b.WriteString(summaryBegin + "\n")
	b.WriteString("## 案件概况\n\n")
	fmt.Fprintf(&b, "- 案件编号：%s\n", c.ID)
	fmt.Fprintf(&b, "- 案件类型：%s\n", c.Category.Label())
	if c.Category == model.CategoryNonLitigation {
		fmt.Fprintf(&b, "- 业务类型：%s\n", c.BusinessType.Label())
	}
	fmt.Fprintf(&b, "- 状态：%s\n", c.Status)
	fmt.Fprintf(&b, "- 材料数量：%d\n", c.MaterialCount)
	fmt.Fprintf(&b, "- 分析数量：%d\n", c.AnalysisCount)
	fmt.Fprintf(&b, "- 更新时间：%s\n", c.UpdatedAt.Format("2006-01-02 15:04"))
	b.WriteString(summaryEnd + "\n")
	return b.String()
}

// replaceSummary swaps the generated block in content, appending it when
// the markers are absent.
func replaceSummary(content, block string) string {
	start := strings.Index(content, summaryBegin)
	end := strings.Index(content, summaryEnd)
	if start == -1 || end == -1 || end < start {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + "\n" + block
	}
	tail := content[end+len(summaryEnd):]
	tail = strings.TrimPrefix(tail, "\n")
	return content[:start] + block + tail
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
