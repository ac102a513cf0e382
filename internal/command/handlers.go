package command

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/casefile"
	"github.com/kokistudios/casebook/internal/casetype"
	"github.com/kokistudios/casebook/internal/model"
)

// Canonical command names.
const (
	CmdCreateCase         = "create-case"
	CmdListCases          = "list-cases"
	CmdSwitchCase         = "switch-case"
	CmdAddMaterial        = "add-material"
	CmdListMaterials      = "list-materials"
	CmdAddParty           = "add-party"
	CmdAddEvent           = "add-event"
	CmdTimeline           = "timeline"
	CmdAnalyzeCase        = "analyze-case"
	CmdDisputeFocus       = "dispute-focus-by-name"
	CmdLitigationStrategy = "litigation-strategy-by-name"
	CmdGenerateDocument   = "generate-document"
	CmdCaseInfo           = "case-info"
	CmdKinds              = "kinds"
	CmdHelp               = "help"
	CmdExit               = "exit"
)

// DefaultTable returns the casebook command set.
func DefaultTable() *Table {
	return NewTable(
		&Command{Name: CmdCreateCase, Aliases: []string{"新建案件", "创建案件", "new"},
			Usage: "新建案件：<名称> [类型] [业务类型]", Summary: "创建案件并切换到该案件", Run: createCase},
		&Command{Name: CmdListCases, Aliases: []string{"查看案件列表", "案件列表", "list", "ls"},
			Usage: "查看案件列表 [类型]", Summary: "列出所有案件", Run: listCases},
		&Command{Name: CmdSwitchCase, Aliases: []string{"选择案件", "切换案件", "use"},
			Usage: "选择案件：<名称>", Summary: "切换当前案件", Run: switchCase},
		&Command{Name: CmdAddMaterial, Aliases: []string{"添加材料", "上传材料"},
			Usage: "添加材料：[材料类型/]<名称> <内容|@文件路径>", Summary: "为当前案件添加材料", Run: addMaterial},
		&Command{Name: CmdListMaterials, Aliases: []string{"查看材料", "materials"},
			Usage: "查看材料", Summary: "列出当前案件的材料", Run: listMaterials},
		&Command{Name: CmdAddParty, Aliases: []string{"添加当事人"},
			Usage: "添加当事人：<姓名> <角色> [说明]", Summary: "为当前案件添加当事人", Run: addParty},
		&Command{Name: CmdAddEvent, Aliases: []string{"添加事件", "记录事件"},
			Usage: "添加事件：[日期] <标题> [说明]", Summary: "在当前案件时间线上记录事件", Run: addEvent},
		&Command{Name: CmdTimeline, Aliases: []string{"查看时间线"},
			Usage: "查看时间线", Summary: "显示当前案件时间线", Run: showTimeline},
		&Command{Name: CmdAnalyzeCase, Aliases: []string{"分析案件", "分析案件材料", "analyze"},
			Usage: "分析案件：[案件名称] [分析类型]", Summary: "分析案件材料，结果自动缓存", Run: analyzeCase},
		&Command{Name: CmdDisputeFocus, Aliases: []string{"识别争议焦点"},
			Usage: "识别争议焦点：<案件名称>", Summary: "识别案件争议焦点", Run: analyzeByName(model.KindDisputeFocus)},
		&Command{Name: CmdLitigationStrategy, Aliases: []string{"生成诉讼策略"},
			Usage: "生成诉讼策略：<案件名称>", Summary: "生成诉讼策略", Run: analyzeByName(model.KindLitigationStrategy)},
		&Command{Name: CmdGenerateDocument, Aliases: []string{"起草", "生成文书", "draft"},
			Usage: "起草<文书类型>：[案件名称]", Summary: "起草法律文书并保存为材料", Run: generateDocument},
		&Command{Name: CmdCaseInfo, Aliases: []string{"案件信息", "info"},
			Usage: "案件信息 [案件名称]", Summary: "显示案件概况", Run: caseInfo},
		&Command{Name: CmdKinds, Aliases: []string{"分析类型"},
			Usage: "分析类型", Summary: "列出可用的分析类型与文书", Run: listKinds},
		&Command{Name: CmdHelp, Aliases: []string{"帮助", "h", "?"},
			Usage: "帮助", Summary: "显示可用指令", Run: help},
		&Command{Name: CmdExit, Aliases: []string{"退出", "quit", "q"},
			Usage: "退出", Summary: "退出", Run: exit},
	)
}

var errNoCase = apperr.Validation("尚未选择案件").WithHint("使用 选择案件：<名称> 选择案件，或 新建案件：<名称> 创建案件")

// caseArg returns the case named by args[i], or the session case.
func (cc *Context) caseArg(args []string, i int) (*model.Case, error) {
	if i < len(args) && strings.TrimSpace(args[i]) != "" {
		return cc.Cases.LoadCase(args[i])
	}
	if cc.Session.Current == nil {
		return nil, errNoCase
	}
	return cc.Session.Current, nil
}

func (cc *Context) requireCase() (*model.Case, error) {
	if cc.Session.Current == nil {
		return nil, errNoCase
	}
	return cc.Session.Current, nil
}

func createCase(_ context.Context, args []string, cc *Context) (Result, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return Result{}, apperr.Validation("缺少案件名称").WithHint("用法: 新建案件：<名称> [民商事|刑事|行政|非诉]")
	}
	var opts []string
	for _, a := range args[1:] {
		opts = append(opts, strings.Fields(a)...)
	}
	cat := model.CategoryCivil
	bt := model.BusinessUnspecified
	if len(opts) > 0 {
		c, err := model.ParseCategory(opts[0])
		if err != nil {
			return Result{}, err
		}
		cat = c
	}
	if len(opts) > 1 {
		b, err := model.ParseBusinessType(opts[1])
		if err != nil {
			return Result{}, err
		}
		bt = b
	}

	c, err := cc.Cases.CreateCase(args[0], cat, bt)
	if err != nil {
		return Result{}, err
	}
	out := fmt.Sprintf("已创建案件: %s\n类型: %s", c.Name, c.Category.Label())
	if c.Category == model.CategoryNonLitigation {
		out += fmt.Sprintf("\n业务类型: %s", c.BusinessType.Label())
	}
	out += fmt.Sprintf("\n目录: %s\n已切换到该案件", cc.Cases.Dir(c))
	return Result{Output: out, Switch: c}, nil
}

func listCases(_ context.Context, args []string, cc *Context) (Result, error) {
	cases, err := cc.Cases.ListCases()
	if err != nil {
		return Result{}, err
	}
	if len(args) > 0 {
		cat, err := model.ParseCategory(args[0])
		if err != nil {
			return Result{}, err
		}
		filtered := cases[:0]
		for _, c := range cases {
			if c.Category == cat {
				filtered = append(filtered, c)
			}
		}
		cases = filtered
	}
	if len(cases) == 0 {
		return Result{Output: "暂无案件。使用 新建案件：<名称> 创建案件"}, nil
	}

	var b strings.Builder
	b.WriteString("| # | 案件 | 类型 | 材料 | 分析 | 更新时间 |\n|---|---|---|---|---|---|\n")
	for i, c := range cases {
		mark := ""
		if cc.Session.Current != nil && cc.Session.Current.ID == c.ID {
			mark = " *"
		}
		fmt.Fprintf(&b, "| %d | %s%s | %s | %d | %d | %s |\n", i+1, c.Name, mark, c.Category.Label(),
			c.MaterialCount, c.AnalysisCount, c.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "\n共 %d 个案件", len(cases))
	return Result{Output: b.String()}, nil
}

func switchCase(_ context.Context, args []string, cc *Context) (Result, error) {
	if len(args) == 0 {
		return Result{}, apperr.Validation("缺少案件名称").WithHint("用法: 选择案件：<名称>")
	}
	c, err := cc.Cases.LoadCase(strings.Join(args, " "))
	if err != nil {
		return Result{}, err
	}
	return Result{
		Output: fmt.Sprintf("已选择案件: %s (%s，材料 %d，分析 %d)", c.Name, c.Category.Label(), c.MaterialCount, c.AnalysisCount),
		Switch: c,
	}, nil
}

func addMaterial(_ context.Context, args []string, cc *Context) (Result, error) {
	c, err := cc.requireCase()
	if err != nil {
		return Result{}, err
	}
	if len(args) < 2 {
		return Result{}, apperr.Validation("缺少材料名称或内容").WithHint("用法: 添加材料：<名称> <内容>")
	}
	name := args[0]
	typ := model.MaterialOther
	if label, rest, ok := strings.Cut(name, "/"); ok {
		if t, known := model.MaterialTypeFromLabel(label); known {
			typ, name = t, rest
		} else if t := model.NormalizeMaterialType(label); t != model.MaterialOther {
			typ, name = t, rest
		}
	}
	content := strings.Join(args[1:], " ")
	if path, ok := strings.CutPrefix(content, "@"); ok {
		data, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return Result{}, apperr.Validation("无法读取材料文件: %v", err)
		}
		content = string(data)
	}

	m, err := cc.Cases.AddMaterial(c, name, content, typ)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("已添加材料: %s [%s]，当前共 %d 份材料", m.Name, m.Type.Label(), c.MaterialCount)}, nil
}

func listMaterials(_ context.Context, args []string, cc *Context) (Result, error) {
	c, err := cc.caseArg(args, 0)
	if err != nil {
		return Result{}, err
	}
	ms, err := cc.Cases.ListMaterials(c)
	if err != nil {
		return Result{}, err
	}
	if len(ms) == 0 {
		return Result{Output: fmt.Sprintf("案件 %s 暂无材料", c.Name)}, nil
	}
	var b strings.Builder
	b.WriteString("| # | 名称 | 类型 | 字数 | 添加时间 |\n|---|---|---|---|---|\n")
	for i, m := range ms {
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %s |\n", i+1, m.Name, m.Type.Label(),
			len([]rune(m.Content)), m.CreatedAt.Format("2006-01-02 15:04"))
	}
	return Result{Output: b.String()}, nil
}

func addParty(_ context.Context, args []string, cc *Context) (Result, error) {
	c, err := cc.requireCase()
	if err != nil {
		return Result{}, err
	}
	if len(args) == 0 {
		return Result{}, apperr.Validation("缺少当事人姓名").WithHint("用法: 添加当事人：<姓名> <角色> [说明]")
	}
	var rest []string
	for _, a := range args[1:] {
		rest = append(rest, strings.Fields(a)...)
	}
	role := ""
	if len(rest) > 0 {
		role, rest = rest[0], rest[1:]
	}

	h, err := cc.Types.For(c)
	if err != nil {
		return Result{}, err
	}
	roleID, err := h.ValidateRole(role)
	if err != nil {
		return Result{}, err
	}
	p, err := cc.Cases.AddParty(c, args[0], roleID, strings.Join(rest, " "))
	if err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("已添加当事人: %s (%s，%s)", p.Name, model.RoleLabel(p.Role), sideLabel(h.Side(p.Role)))}, nil
}

func sideLabel(s model.Side) string {
	switch s {
	case model.SideClaimant:
		return "请求方"
	case model.SideRespondent:
		return "应对方"
	}
	return "其他方"
}

func addEvent(_ context.Context, args []string, cc *Context) (Result, error) {
	c, err := cc.requireCase()
	if err != nil {
		return Result{}, err
	}
	var words []string
	for _, a := range args {
		words = append(words, strings.Fields(a)...)
	}
	if len(words) == 0 {
		return Result{}, apperr.Validation("缺少事件标题").WithHint("用法: 添加事件：2024-03-15 签订合同 [说明]")
	}
	date := time.Now()
	if d, err := model.ParseDate(words[0]); err == nil {
		date, words = d, words[1:]
	}
	if len(words) == 0 {
		return Result{}, apperr.Validation("缺少事件标题").WithHint("用法: 添加事件：2024-03-15 签订合同 [说明]")
	}

	e, err := cc.Cases.AppendTimelineEvent(c, words[0], strings.Join(words[1:], " "), date)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("已记录事件: %s %s", e.Date.Format("2006-01-02"), e.Title)}, nil
}

func showTimeline(_ context.Context, args []string, cc *Context) (Result, error) {
	c, err := cc.caseArg(args, 0)
	if err != nil {
		return Result{}, err
	}
	events, err := cc.Cases.ListTimeline(c)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: casefile.RenderTimeline(c.Name, events)}, nil
}

// analyzeCase accepts an optional case name and an optional kind. A single
// argument that names a kind applies to the current case.
func analyzeCase(ctx context.Context, args []string, cc *Context) (Result, error) {
	var c *model.Case
	kind := ""
	switch {
	case len(args) == 0:
		cur, err := cc.requireCase()
		if err != nil {
			return Result{}, err
		}
		c = cur
	case isKind(args[0]) && cc.Session.Current != nil:
		c, kind = cc.Session.Current, args[0]
	default:
		loaded, err := cc.Cases.LoadCase(args[0])
		if err != nil {
			return Result{}, err
		}
		c = loaded
		if len(args) > 1 {
			kind = args[1]
		}
	}
	return runAnalysis(ctx, cc, c, kind)
}

func isKind(s string) bool {
	_, ok := model.LookupKind(s)
	return ok
}

func analyzeByName(kind string) HandlerFunc {
	return func(ctx context.Context, args []string, cc *Context) (Result, error) {
		c, err := cc.caseArg([]string{strings.Join(args, " ")}, 0)
		if err != nil {
			return Result{}, err
		}
		return runAnalysis(ctx, cc, c, kind)
	}
}

func runAnalysis(ctx context.Context, cc *Context, c *model.Case, kind string) (Result, error) {
	h, err := cc.Types.For(c)
	if err != nil {
		return Result{}, err
	}
	out, err := h.Analyze(ctx, c, kind)
	if err != nil {
		return Result{}, err
	}
	if out.Cached {
		cc.Logger.Info("returning stored analysis", "case", c.Name)
	}
	return Result{Output: out.Text}, nil
}

func generateDocument(ctx context.Context, args []string, cc *Context) (Result, error) {
	if len(args) == 0 {
		return Result{}, apperr.Validation("缺少文书类型").WithHint("用法: 起草起诉状：<案件名称>")
	}
	c, err := cc.caseArg(args, 1)
	if err != nil {
		return Result{}, err
	}
	h, err := cc.Types.For(c)
	if err != nil {
		return Result{}, err
	}
	doc, err := h.GenerateDocument(ctx, c, args[0])
	if err != nil {
		return Result{}, err
	}
	if doc.Failed {
		return Result{Output: doc.Text}, nil
	}
	return Result{Output: fmt.Sprintf("%s\n\n已保存为材料: %s [%s]", strings.TrimRight(doc.Text, "\n"), doc.Material.Name, doc.Material.Type.Label())}, nil
}

func caseInfo(_ context.Context, args []string, cc *Context) (Result, error) {
	c, err := cc.caseArg([]string{strings.Join(args, " ")}, 0)
	if err != nil {
		return Result{}, err
	}
	h, err := cc.Types.For(c)
	if err != nil {
		return Result{}, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Name)
	fmt.Fprintf(&b, "- 案件编号：%s\n- 案件类型：%s\n", c.ID, c.Category.Label())
	if c.Category == model.CategoryNonLitigation {
		fmt.Fprintf(&b, "- 业务类型：%s\n", c.BusinessType.Label())
	}
	fmt.Fprintf(&b, "- 材料数量：%d\n- 分析数量：%d\n- 创建时间：%s\n\n", c.MaterialCount, c.AnalysisCount, c.CreatedAt.Format("2006-01-02"))

	parties, err := cc.Cases.ListParties(c)
	if err != nil {
		return Result{}, err
	}
	if len(parties) > 0 {
		b.WriteString("## 当事人\n\n")
		for _, p := range parties {
			fmt.Fprintf(&b, "- %s：%s（%s）\n", model.RoleLabel(p.Role), p.Name, sideLabel(h.Side(p.Role)))
		}
		b.WriteString("\n")
	}

	results, err := cc.Cases.ListAnalysisResults(c)
	if err != nil {
		return Result{}, err
	}
	done := map[string]bool{}
	for _, r := range results {
		done[r.Kind] = true
	}
	b.WriteString("## 分析\n\n")
	for _, k := range h.ValidKinds(c) {
		mark := "未分析"
		if done[k] {
			mark = "已完成"
		}
		fmt.Fprintf(&b, "- %s：%s\n", model.KindLabel(k), mark)
	}
	return Result{Output: b.String()}, nil
}

func listKinds(_ context.Context, _ []string, cc *Context) (Result, error) {
	var b strings.Builder
	if c := cc.Session.Current; c != nil {
		h, err := cc.Types.For(c)
		if err != nil {
			return Result{}, err
		}
		writeProfile(&b, h, c)
		return Result{Output: b.String()}, nil
	}
	for _, p := range casetype.Profiles() {
		c := &model.Case{Category: p.Category}
		h, err := cc.Types.For(c)
		if err != nil {
			return Result{}, err
		}
		writeProfile(&b, h, c)
	}
	return Result{Output: strings.TrimRight(b.String(), "\n")}, nil
}

func writeProfile(b *strings.Builder, h *casetype.Handler, c *model.Case) {
	fmt.Fprintf(b, "## %s\n\n", c.Category.Label())
	labels := make([]string, 0)
	for _, k := range h.ValidKinds(c) {
		labels = append(labels, model.KindLabel(k))
	}
	fmt.Fprintf(b, "分析类型: %s\n", strings.Join(labels, ", "))
	docs := make([]string, 0)
	for _, r := range h.Documents() {
		docs = append(docs, r.Label())
	}
	fmt.Fprintf(b, "可起草文书: %s\n\n", strings.Join(docs, ", "))
}

func help(_ context.Context, _ []string, cc *Context) (Result, error) {
	var b strings.Builder
	b.WriteString("可用指令:\n")
	for _, c := range cc.table.Commands() {
		fmt.Fprintf(&b, "  %-28s %s (别名: %s)\n", c.Usage, c.Summary, strings.Join(c.Aliases, ", "))
	}
	b.WriteString("\n指令与参数之间可使用中文或英文冒号分隔")
	return Result{Output: b.String()}, nil
}

func exit(context.Context, []string, *Context) (Result, error) {
	return Result{Output: "感谢使用，再见！", Exit: true}, nil
}
