package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kokistudios/casebook/internal/catalog"
	"github.com/kokistudios/casebook/internal/command"
	"github.com/kokistudios/casebook/internal/model"
	"github.com/kokistudios/casebook/internal/ui"
)

func caseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Create, list and inspect cases",
	}
	cmd.AddCommand(caseCreateCmd())
	cmd.AddCommand(caseListCmd())
	cmd.AddCommand(caseShowCmd())
	return cmd
}

func caseCreateCmd() *cobra.Command {
	var category, business string
	var yes bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a case folder from the template",
		Example: `  casebook case create 张三诉李四借款纠纷
  casebook case create 盗窃案 --type 刑事
  casebook case create 采购合同审查 --type 非诉 --business 合同审查`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := model.ParseCategory(category)
			if err != nil {
				return err
			}
			bt, err := model.ParseBusinessType(business)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if existing, err := a.cases.LoadCase(args[0]); err == nil && !yes {
				ok, err := ui.Confirm(fmt.Sprintf("已存在相似案件 \"%s\"，仍要创建 \"%s\"？", existing.Name, args[0]))
				if err != nil {
					return err
				}
				if !ok {
					ui.EmptyState("已取消")
					return nil
				}
			}

			c, err := a.cases.CreateCase(args[0], cat, bt)
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("已创建案件 %s", c.Name))
			ui.Detail("编号:", c.ID)
			ui.Detail("类型:", c.Category.Label())
			if c.Category == model.CategoryNonLitigation {
				ui.Detail("业务类型:", c.BusinessType.Label())
			}
			ui.Detail("目录:", a.cases.Dir(c))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "type", "t", "", "Case category: 民商事, 刑事, 行政, 非诉")
	cmd.Flags().StringVarP(&business, "business", "b", "", "Business type for non-litigation cases: 合同审查, 法律咨询, 合规审查")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation when a similar case exists")
	return cmd
}

func caseListCmd() *cobra.Command {
	var category, query string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases",
		Long:  "List cases. With --query or --limit the SQLite catalog is used, most recently updated first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var cat model.Category
			if category != "" {
				if cat, err = model.ParseCategory(category); err != nil {
					return err
				}
			}

			var cases []model.Case
			if a.catalog != nil && (query != "" || limit > 0) {
				cases, err = a.catalog.List(cmd.Context(), catalog.ListParams{Category: cat, Query: query, Limit: limit})
			} else {
				cases, err = a.cases.ListCases()
				cases = filterCases(cases, cat, query)
			}
			if err != nil {
				return err
			}
			if len(cases) == 0 {
				ui.EmptyState("暂无案件。使用 casebook case create <名称> 创建案件")
				return nil
			}

			rows := make([][]string, 0, len(cases))
			for _, c := range cases {
				rows = append(rows, []string{
					c.Name, c.Category.Label(),
					strconv.Itoa(c.MaterialCount), strconv.Itoa(c.AnalysisCount),
					c.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			ui.Table([]string{"案件", "类型", "材料", "分析", "更新时间"}, rows)

			if a.catalog != nil {
				counts, err := a.catalog.Counts(cmd.Context())
				if err == nil {
					var parts []string
					for _, c := range model.Categories {
						parts = append(parts, fmt.Sprintf("%s %d", c.Label(), counts[c]))
					}
					ui.Info(fmt.Sprintf("共 %s 个案件 %s", ui.Bold(strconv.Itoa(len(cases))), ui.Dim("索引: "+strings.Join(parts, " · "))))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "type", "t", "", "Only list cases of this category")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only list cases whose name contains this text")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of cases")
	return cmd
}

func filterCases(cases []model.Case, cat model.Category, query string) []model.Case {
	out := cases[:0]
	for _, c := range cases {
		if cat != "" && c.Category != cat {
			continue
		}
		if query != "" && !strings.Contains(c.Name, query) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func caseShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a case summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.cases.LoadCase(args[0])
			if err != nil {
				return err
			}
			ui.Reply(a.interpreter(command.WithCurrent(c)).Execute(cmd.Context(), "案件信息"))

			events, err := a.cases.ListTimeline(c)
			if err != nil {
				return err
			}
			if len(events) > 0 {
				ui.SectionHeader("时间线")
				for _, e := range events {
					ui.Detail(e.Date.Format("2006-01-02"), e.Title)
				}
			}
			return nil
		},
	}
}

func materialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "material",
		Short: "Add and list case materials",
	}

	var typ, file string
	add := &cobra.Command{
		Use:   "add <case> <name> [content]",
		Short: "Attach a material to a case",
		Example: `  casebook material add 张三案 借条 "张三向李四借款十万元"
  casebook material add 张三案 采购合同 --file ./contract.txt --type 合同文件`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := ""
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read material file: %w", err)
				}
				content = string(data)
			case len(args) == 3:
				content = args[2]
			default:
				return fmt.Errorf("material content required: pass it as an argument or with --file")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.cases.LoadCase(args[0])
			if err != nil {
				return err
			}
			m, err := a.cases.AddMaterial(c, args[1], content, model.NormalizeMaterialType(typ))
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("已添加材料 %s [%s] 到 %s", m.Name, m.Type.Label(), c.Name))
			return nil
		},
	}
	add.Flags().StringVarP(&typ, "type", "t", "", "Material type: 证据材料, 诉辩材料, 合同文件, 诉讼文书, 法律文书, 其他材料")
	add.Flags().StringVarP(&file, "file", "f", "", "Read the content from a file")

	list := &cobra.Command{
		Use:   "list <case>",
		Short: "List a case's materials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.cases.LoadCase(args[0])
			if err != nil {
				return err
			}
			ms, err := a.cases.ListMaterials(c)
			if err != nil {
				return err
			}
			if len(ms) == 0 {
				ui.EmptyState("暂无材料")
				return nil
			}
			rows := make([][]string, 0, len(ms))
			for _, m := range ms {
				rows = append(rows, []string{m.ID, m.Name, m.Type.Label(), m.CreatedAt.Format("2006-01-02 15:04")})
			}
			ui.Table([]string{"ID", "名称", "类型", "添加时间"}, rows)
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func partyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "party",
		Short: "Record case parties",
	}
	var role, info string
	add := &cobra.Command{
		Use:     "add <case> <name>",
		Short:   "Add a party to a case",
		Example: `  casebook party add 张三案 李四 --role 被告 --info "身份证号..."`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.cases.LoadCase(args[0])
			if err != nil {
				return err
			}
			h, err := a.types.For(c)
			if err != nil {
				return err
			}
			roleID, err := h.ValidateRole(role)
			if err != nil {
				return err
			}
			p, err := a.cases.AddParty(c, args[1], roleID, info)
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("已添加当事人 %s (%s)", p.Name, model.RoleLabel(p.Role)))
			return nil
		},
	}
	add.Flags().StringVarP(&role, "role", "r", "", "Party role, e.g. 原告, 被告, 被害人, 委托人")
	add.Flags().StringVar(&info, "info", "", "Free-form notes about the party")
	cmd.AddCommand(add)
	return cmd
}

func eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Record timeline events",
	}
	var when, desc string
	add := &cobra.Command{
		Use:     "add <case> <title>",
		Short:   "Append an event to a case timeline",
		Example: `  casebook event add 张三案 签订借款合同 --date 2023-06-25`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := time.Now()
			if when != "" {
				parsed, err := model.ParseDate(when)
				if err != nil {
					return err
				}
				d = parsed
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.cases.LoadCase(args[0])
			if err != nil {
				return err
			}
			e, err := a.cases.AppendTimelineEvent(c, args[1], desc, d)
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("已记录事件 %s %s", e.Date.Format("2006-01-02"), e.Title))
			return nil
		},
	}
	add.Flags().StringVarP(&when, "date", "d", "", "Event date (default today)")
	add.Flags().StringVar(&desc, "desc", "", "Event description")
	cmd.AddCommand(add)
	return cmd
}
