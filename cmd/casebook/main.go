package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/casebook/internal/analysis"
	"github.com/kokistudios/casebook/internal/casefile"
	"github.com/kokistudios/casebook/internal/casetype"
	"github.com/kokistudios/casebook/internal/catalog"
	"github.com/kokistudios/casebook/internal/command"
	"github.com/kokistudios/casebook/internal/engine"
	casebookmcp "github.com/kokistudios/casebook/internal/mcp"
	"github.com/kokistudios/casebook/internal/store"
	"github.com/kokistudios/casebook/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor, verbose bool

	rootCmd := &cobra.Command{
		Use:   "casebook",
		Short: "casebook — 法律案件工作台",
		Long:  "A local CLI that keeps legal case files, materials and cached analyses in human-readable folders.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
			ui.SetVerbose(verbose)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "case", Title: "Case Commands:"},
		&cobra.Group{ID: "analysis", Title: "Analysis Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{initCmd(), doctorCmd(), shellCmd(), execCmd()} {
		c.GroupID = "core"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{caseCmd(), materialCmd(), partyCmd(), eventCmd()} {
		c.GroupID = "case"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{analyzeCmd(), draftCmd()} {
		c.GroupID = "analysis"
		rootCmd.AddCommand(c)
	}
	configC := configCmd()
	configC.GroupID = "config"
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(completionCmd())
	rootCmd.AddCommand(mcpServeCmd())

	if err := rootCmd.Execute(); err != nil {
		ui.Reply(command.FormatError(err))
		os.Exit(1)
	}
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("casebook not initialized — run 'casebook init' first: %w", err)
	}
	return s, nil
}

// app wires the services shared by every case command.
type app struct {
	st      *store.Store
	cases   *casefile.Store
	catalog *catalog.Catalog
	engine  engine.Engine
	cache   *analysis.Cache
	types   *casetype.Registry
}

func openApp() (*app, error) {
	st, err := loadStore()
	if err != nil {
		return nil, err
	}
	a := &app{st: st}

	opts := []casefile.Option{casefile.WithLogger(ui.Logger)}
	if st.Config.Catalog.Enabled {
		cat, err := catalog.Open(st.CatalogPath())
		if err != nil {
			ui.Logger.Warn("case catalog unavailable", "path", st.CatalogPath(), "err", err)
		} else {
			a.catalog = cat
			opts = append(opts, casefile.WithIndexer(cat))
		}
	}
	a.cases = casefile.Open(st, opts...)

	timeout := time.Duration(st.Config.Engine.TimeoutSeconds) * time.Second
	a.engine, err = engine.New(st.Config.Engine.Type, st.Config.Engine.Path, timeout)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%w (run 'casebook config set engine.type template')", err)
	}
	a.cache = analysis.New(a.cases, a.engine, ui.Logger)
	a.types = casetype.NewRegistry(a.cases, a.cache)
	return a, nil
}

func (a *app) Close() {
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			ui.Logger.Warn("closing catalog", "err", err)
		}
	}
}

func (a *app) interpreter(opts ...command.Option) *command.Interpreter {
	opts = append([]command.Option{command.WithLogger(ui.Logger)}, opts...)
	return command.New(command.Env{Cases: a.cases, Types: a.types}, opts...)
}

// run executes fn with the engine spinner showing.
func (a *app) run(msg string, fn func() error) error {
	if _, ok := a.engine.(*engine.CLI); !ok {
		return fn()
	}
	sp := ui.NewSpinner(msg)
	err := fn()
	sp.Stop()
	if err == nil {
		ui.Notify("casebook", msg+" 完成")
	}
	return err
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize CASEBOOK_HOME directory structure",
		Long:    "Create the CASEBOOK_HOME directory (~/.casebook by default) with cases/, legacy/, the case template and config.yaml.",
		Example: "  casebook init\n  casebook init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Success("casebook initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if CASEBOOK_HOME already exists")
	return cmd
}

func doctorCmd() *cobra.Command {
	var fix, reindex bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of the casebook home, engine and catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if _, err := loadStore(); err != nil {
				return err
			}

			if fix {
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if reindex {
				if a.catalog == nil {
					ui.Warning("catalog disabled or unavailable; nothing to reindex")
				} else {
					cases, err := a.cases.ListCases()
					if err != nil {
						return err
					}
					n, err := a.catalog.Rebuild(cmd.Context(), cases)
					if err != nil {
						return fmt.Errorf("reindex failed: %w", err)
					}
					ui.Success(fmt.Sprintf("[FIXED] reindexed %d cases", n))
				}
			}

			issues := store.CheckHealth(home)
			engineState := ui.Green(a.engine.Name())
			if err := a.engine.Available(); err != nil {
				engineState = ui.Yellow(a.engine.Name())
				issues = append(issues, store.Issue{Severity: "warning", Message: fmt.Sprintf("engine %s: %v", a.engine.Name(), err)})
			}
			catalogState := ui.Dim("disabled")
			switch {
			case a.catalog != nil:
				catalogState = ui.Green("ok")
			case a.st.Config.Catalog.Enabled:
				catalogState = ui.Red("unavailable")
				issues = append(issues, store.Issue{Severity: "warning", Message: "case catalog could not be opened"})
			}
			ui.Detail("home", ui.Bold(home))
			ui.Detail("engine", engineState)
			ui.Detail("catalog", catalogState)

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				return nil
			}
			errs, warns := 0, 0
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					errs++
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
					warns++
				}
			}
			ui.Info(fmt.Sprintf("%s errors, %s warnings", ui.Red(strconv.Itoa(errs)), ui.Yellow(strconv.Itoa(warns))))
			if errs > 0 {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate missing directories, the case template and config")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild the case catalog from the case folders")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit casebook configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Valid keys: " + strings.Join(store.ConfigKeys, ", "),
		Example: `  casebook config set engine.type claude
  casebook config set engine.timeout_seconds 600
  casebook config set legacy.enabled false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	})
	return cmd
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run casebook as an MCP server",
		Long:   "Start casebook as a Model Context Protocol (MCP) server over stdio so MCP clients can list cases, read analyses and draft documents.",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return casebookmcp.NewServer(a.cases, a.types, a.catalog, buildVersion()).Run(ctx)
		},
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
