package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kokistudios/casebook/internal/command"
	"github.com/kokistudios/casebook/internal/model"
	"github.com/kokistudios/casebook/internal/ui"
)

func analyzeCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "analyze <case> [kind]",
		Short: "Run or reuse a cached analysis",
		Long: `Analyze a case. A report already saved under 分析结果/ is returned without calling
the engine, even after new materials are added. Delete the report file to recompute it.

Kinds accept ids or Chinese labels, e.g. dispute-focus or 争议焦点分析.`,
		Example: `  casebook analyze 张三案
  casebook analyze 张三案 诉讼策略`,
		Args: cobra.RangeArgs(1, 2),
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
			kind := ""
			if len(args) == 2 {
				kind = args[1]
			}
			if kind, err = h.ResolveKind(c, kind); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var text string
			var cached bool
			err = a.run(fmt.Sprintf("%s %s", c.Name, model.KindLabel(kind)), func() error {
				out, err := h.Analyze(ctx, c, kind)
				if err != nil {
					return err
				}
				text, cached = out.Text, out.Cached
				return nil
			})
			if err != nil {
				return err
			}
			if cached {
				ui.Logger.Debug("analysis cache hit", "case", c.Name, "kind", kind)
			}
			printReport(text, raw)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without terminal rendering")
	return cmd
}

func draftCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "draft <case> <document>",
		Short: "Draft a document and save it as a case material",
		Example: `  casebook draft 张三案 起诉状
  casebook draft 采购合同审查 legal-opinion`,
		Args: cobra.ExactArgs(2),
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
			r, err := h.Recipe(args[1])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var doc string
			var saved *model.Material
			err = a.run(fmt.Sprintf("起草 %s", r.Label()), func() error {
				out, err := h.GenerateDocument(ctx, c, r.Kind)
				if err != nil {
					return err
				}
				doc, saved = out.Text, out.Material
				return nil
			})
			if err != nil {
				return err
			}
			printReport(doc, raw)
			if saved != nil {
				ui.Success(fmt.Sprintf("已保存为材料 %s [%s]", saved.Name, saved.Type.Label()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without terminal rendering")
	return cmd
}

func printReport(text string, raw bool) {
	if raw {
		fmt.Println(text)
		return
	}
	ui.RenderMarkdown(text)
}

func execCmd() *cobra.Command {
	var caseName string
	cmd := &cobra.Command{
		Use:   "exec <command...>",
		Short: "Run a single interpreter command",
		Example: `  casebook exec 新建案件：张三借款纠纷 民商事
  casebook exec --case 张三 分析案件：争议焦点分析`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []command.Option
			if caseName != "" {
				c, err := a.cases.LoadCase(caseName)
				if err != nil {
					return err
				}
				opts = append(opts, command.WithCurrent(c))
			}
			in := a.interpreter(opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ui.Reply(in.Execute(ctx, strings.Join(args, " ")))
			return nil
		},
	}
	cmd.Flags().StringVarP(&caseName, "case", "c", "", "Select this case before running the command")
	return cmd
}

func shellCmd() *cobra.Command {
	var caseName string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive command shell",
		Long: `Start an interactive shell that accepts colon commands such as
  新建案件：张三借款纠纷 民商事
  添加材料：借条 张三向李四借款十万元
  分析案件：争议焦点分析

Type 帮助 for the command list and 退出 to leave. Ctrl-C cancels a running analysis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []command.Option
			if caseName != "" {
				c, err := a.cases.LoadCase(caseName)
				if err != nil {
					return err
				}
				opts = append(opts, command.WithCurrent(c))
			}
			in := a.interpreter(opts...)
			ui.Banner(fmt.Sprintf("引擎: %s · 输入 帮助 查看指令", a.engine.Name()))
			return repl(cmd.Context(), in, os.Stdin, os.Stderr)
		},
	}
	cmd.Flags().StringVarP(&caseName, "case", "c", "", "Start with this case selected")
	return cmd
}

// repl reads one command per line until the interpreter is done or in hits EOF.
func repl(ctx context.Context, in *command.Interpreter, r io.Reader, prompt io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for !in.Done() {
		name := ""
		if cur := in.Session().Current; cur != nil {
			name = cur.Name
		}
		fmt.Fprint(prompt, ui.Prompt(name))
		if !sc.Scan() {
			fmt.Fprintln(prompt)
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		cmdCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		out := in.Execute(cmdCtx, line)
		stop()
		ui.Reply(out)
	}
	return sc.Err()
}
