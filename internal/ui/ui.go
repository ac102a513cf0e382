package ui

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Logger is the package-level structured logger.
var Logger *log.Logger

// Styles, initialized in Init().
var (
	headerStyle  lipgloss.Style
	bannerStyle  lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	boldStyle    lipgloss.Style
	promptStyle  lipgloss.Style
	accentStyle  lipgloss.Style
)

// Init sets up color detection, lipgloss styles, and the structured logger.
// Call this once at CLI startup.
func Init(noColorFlag bool) {
	noColor := noColorFlag || os.Getenv("NO_COLOR") != ""

	// Pre-set dark background to prevent termenv OSC query that leaks ^[[I focus events
	lipgloss.SetHasDarkBackground(true)

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.NewOutput(os.Stderr).EnvColorProfile())
	}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bannerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		PaddingLeft(1).
		PaddingRight(1)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))

	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "casebook",
	})
	if noColor {
		Logger.SetStyles(log.DefaultStyles())
	}
}

// SetVerbose switches the logger to debug level.
func SetVerbose(v bool) {
	if v {
		Logger.SetLevel(log.DebugLevel)
	} else {
		Logger.SetLevel(log.InfoLevel)
	}
}

func Bold(s string) string   { return boldStyle.Render(s) }
func Dim(s string) string    { return dimStyle.Render(s) }
func Red(s string) string    { return errorStyle.Render(s) }
func Green(s string) string  { return successStyle.Render(s) }
func Yellow(s string) string { return warningStyle.Render(s) }

// Prompt renders the shell prompt, showing the current case when set.
func Prompt(caseName string) string {
	if caseName == "" {
		return promptStyle.Render("casebook> ")
	}
	return promptStyle.Render("casebook") + dimStyle.Render("["+caseName+"]") + promptStyle.Render("> ")
}

// Banner renders the shell welcome box.
func Banner(subtitle string) {
	content := headerStyle.Render("casebook · 案件工作台")
	if subtitle != "" {
		content += "\n" + dimStyle.Render(subtitle)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, bannerStyle.Render(content))
	fmt.Fprintln(os.Stderr)
}

// Warning prints a styled warning message.
func Warning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), msg)
}

// Error prints a styled error message.
func Error(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), msg)
}

// Info prints a styled informational message.
func Info(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", accentStyle.Render("▸"), msg)
}

// Success prints a green check with a message.
func Success(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successStyle.Render("✓"), msg)
}

// Table prints a formatted table with headers and rows.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, boldStyle.Render(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// Detail prints an indented key-value detail line.
func Detail(key, value string) {
	label := dimStyle.Render(fmt.Sprintf("  %s", key))
	fmt.Fprintf(os.Stderr, "%s %s\n", label, value)
}

// SectionHeader prints a styled section divider with a label.
func SectionHeader(label string) {
	fmt.Fprintf(os.Stderr, "\n%s\n\n", headerStyle.Render(fmt.Sprintf("── %s ──", label)))
}

// EmptyState prints a styled message for empty results.
func EmptyState(msg string) {
	fmt.Fprintf(os.Stderr, "  %s\n", dimStyle.Render(msg))
}

// Reply prints interpreter output. Errors and hints get their own styling
// and markdown reports are rendered.
func Reply(out string) {
	if out == "" {
		return
	}
	if strings.HasPrefix(out, "错误: ") {
		msg, hint, _ := strings.Cut(out, "\n提示: ")
		Error(strings.TrimPrefix(msg, "错误: "))
		if hint != "" {
			Detail("提示", hint)
		}
		return
	}
	if IsMarkdown(out) {
		RenderMarkdown(out)
		return
	}
	fmt.Println(out)
}

// --- prompts ---

// confirmModel is a bubbletea model for y/n confirmation.
type confirmModel struct {
	prompt   string
	cursor   int // 0 = yes, 1 = no
	accepted bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.accepted = true
		return m, tea.Quit
	case "n", "N", "ctrl+c", "esc":
		m.accepted = false
		return m, tea.Quit
	case "left", "h":
		m.cursor = 0
	case "right", "l":
		m.cursor = 1
	case "enter", " ":
		m.accepted = m.cursor == 0
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	yes, no := dimStyle.Render("  是 "), dimStyle.Render("  否  ")
	if m.cursor == 0 {
		yes = successStyle.Render("▸ 是 ")
	} else {
		no = errorStyle.Render("▸ 否  ")
	}
	return fmt.Sprintf("%s\n\n  %s  %s\n\n%s",
		promptStyle.Render(m.prompt), yes, no,
		dimStyle.Render("  ←/→ 选择 • 回车确认 • y/n 快速选择"))
}

// Confirm prompts the user with a yes/no question and returns the response.
func Confirm(prompt string) (bool, error) {
	p := tea.NewProgram(confirmModel{prompt: prompt}, tea.WithOutput(os.Stderr))
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	fmt.Fprintln(os.Stderr)
	return result.(confirmModel).accepted, nil
}

// Spinner displays an animated spinner with a message on stderr.
// Stop is safe to call multiple times.
type Spinner struct {
	msg      string
	start    time.Time
	stop     chan struct{}
	done     sync.WaitGroup
	stopOnce sync.Once
}

// NewSpinner starts a spinner with the given message.
func NewSpinner(msg string) *Spinner {
	s := &Spinner{msg: msg, start: time.Now(), stop: make(chan struct{})}
	s.done.Add(1)
	go s.run()
	return s
}

func (s *Spinner) run() {
	defer s.done.Done()
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	draw := func(i int) {
		elapsed := time.Since(s.start).Truncate(time.Second)
		fmt.Fprintf(os.Stderr, "\r%s %s %s", accentStyle.Render(frames[i%len(frames)]), dimStyle.Render(s.msg), dimStyle.Render(elapsed.String()))
	}
	draw(0)
	for i := 1; ; i++ {
		select {
		case <-s.stop:
			fmt.Fprintf(os.Stderr, "\r\033[K")
			return
		case <-ticker.C:
			draw(i)
		}
	}
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.done.Wait()
}
