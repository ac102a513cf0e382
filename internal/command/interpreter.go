// Package command interprets the colon-style commands typed into the casebook
// shell. Parsing and alias resolution are pure functions; the Interpreter
// owns the session and dispatches one command at a time.
package command

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/casefile"
	"github.com/kokistudios/casebook/internal/casetype"
	"github.com/kokistudios/casebook/internal/model"
)

// State is the interpreter's operational state.
type State int

const (
	StateIdle State = iota
	StateDispatching
)

func (s State) String() string {
	if s == StateDispatching {
		return "dispatching"
	}
	return "idle"
}

// Session is the state carried between commands.
type Session struct {
	Current *model.Case
}

// Env holds the services handlers operate on.
type Env struct {
	Cases *casefile.Store
	Types *casetype.Registry
}

// Context is what a handler sees. Session is a snapshot; handlers request
// changes through Result.
type Context struct {
	Env
	Session Session
	Logger  *log.Logger
	table   *Table
}

// Result is a handler's reply. Switch replaces the current case after the
// handler returns; Exit ends the session.
type Result struct {
	Output string
	Switch *model.Case
	Exit   bool
}

// HandlerFunc runs one command.
type HandlerFunc func(ctx context.Context, args []string, cc *Context) (Result, error)

// Interpreter reads one command at a time and dispatches it.
type Interpreter struct {
	env     Env
	table   *Table
	session Session
	state   State
	done    bool
	logger  *log.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithLogger(l *log.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithTable replaces the built-in command table.
func WithTable(t *Table) Option {
	return func(in *Interpreter) { in.table = t }
}

// WithCurrent starts the session on a case.
func WithCurrent(c *model.Case) Option {
	return func(in *Interpreter) { in.session.Current = c }
}

func New(env Env, opts ...Option) *Interpreter {
	in := &Interpreter{
		env:    env,
		table:  DefaultTable(),
		logger: log.New(io.Discard),
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

func (in *Interpreter) State() State { return in.state }

// Session returns a copy of the session.
func (in *Interpreter) Session() Session { return in.session }

// Done reports whether an exit command was executed.
func (in *Interpreter) Done() bool { return in.done }

func (in *Interpreter) Table() *Table { return in.table }

// Execute runs one line of input to completion and returns the text to
// print. Handler errors and panics are rendered as messages.
func (in *Interpreter) Execute(ctx context.Context, input string) (out string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	token, args := Parse(input)
	cmd, ok := in.table.Lookup(token)
	if !ok {
		var rest string
		cmd, rest, ok = in.table.ResolveGlued(token)
		if ok && rest != "" {
			args = append([]string{rest}, args...)
		}
	}
	if !ok {
		return in.unknown(token)
	}

	in.state = StateDispatching
	defer func() {
		in.state = StateIdle
		if r := recover(); r != nil {
			in.logger.Error("command panicked", "command", cmd.Name, "panic", r, "stack", string(debug.Stack()))
			out = FormatError(fmt.Errorf("内部错误: %v", r))
		}
	}()

	in.logger.Debug("dispatch", "command", cmd.Name, "args", len(args))
	cc := &Context{Env: in.env, Session: in.session, Logger: in.logger, table: in.table}
	res, err := cmd.Run(ctx, args, cc)
	if err != nil {
		return FormatError(err)
	}
	if res.Switch != nil {
		in.session.Current = res.Switch
	}
	if res.Exit {
		in.done = true
	}
	return res.Output
}

func (in *Interpreter) unknown(token string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "无法识别的指令: %s\n", token)
	if s := in.table.Suggest(token); len(s) > 0 {
		fmt.Fprintf(&b, "您是否想输入: %s\n", strings.Join(s, ", "))
	}
	b.WriteString("输入 帮助 查看可用指令")
	return b.String()
}

// FormatError renders an error for the user, with its hint on a second line.
func FormatError(err error) string {
	msg := "错误: " + err.Error()
	if hint := apperr.HintOf(err); hint != "" {
		msg += "\n提示: " + hint
	}
	return msg
}
