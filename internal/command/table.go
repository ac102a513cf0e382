package command

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// MaxSuggestions bounds the suggestion list for an unknown command.
const MaxSuggestions = 3

// Command is one entry of the dispatch table.
type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Summary string
	Run     HandlerFunc
}

// Names returns the canonical name followed by the aliases.
func (c *Command) Names() []string {
	return append([]string{c.Name}, c.Aliases...)
}

// Table resolves command tokens. Lookup ignores case and character width.
type Table struct {
	commands []*Command
	index    map[string]*Command
}

func NewTable(cmds ...*Command) *Table {
	t := &Table{index: make(map[string]*Command)}
	for _, c := range cmds {
		t.Register(c)
	}
	return t
}

// Register adds a command. Names already taken keep their first owner.
func (t *Table) Register(c *Command) {
	t.commands = append(t.commands, c)
	for _, n := range c.Names() {
		key := fold(n)
		if _, ok := t.index[key]; !ok {
			t.index[key] = c
		}
	}
}

// Commands returns the commands in registration order.
func (t *Table) Commands() []*Command { return t.commands }

// Lookup returns the command registered under token.
func (t *Table) Lookup(token string) (*Command, bool) {
	c, ok := t.index[fold(token)]
	return c, ok
}

// Resolve maps a token to its canonical command name.
func (t *Table) Resolve(token string) (string, bool) {
	c, ok := t.Lookup(token)
	if !ok {
		return "", false
	}
	return c.Name, true
}

// ResolveGlued handles commands typed without a separator, such as
// 新建案件张三. The longest registered name that prefixes token wins and the
// rest of the token is returned as the leading argument.
func (t *Table) ResolveGlued(token string) (*Command, string, bool) {
	var best *Command
	end := 0
	for i := range token {
		if i == 0 {
			continue
		}
		key := fold(token[:i])
		if c, ok := t.index[key]; ok && !isASCII(key) {
			best, end = c, i
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best, strings.TrimSpace(token[end:]), true
}

// ASCII aliases like "q" or "ls" would swallow ordinary words.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Suggest returns up to MaxSuggestions registered names close to token: a
// name containing token or contained in it, or within edit distance 2.
// Suggestions follow table order.
func (t *Table) Suggest(token string) []string {
	folded := fold(token)
	if folded == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, c := range t.commands {
		for _, n := range c.Names() {
			key := fold(n)
			if seen[key] {
				continue
			}
			if strings.Contains(key, folded) || strings.Contains(folded, key) || levenshtein.ComputeDistance(key, folded) <= 2 {
				seen[key] = true
				out = append(out, n)
				if len(out) == MaxSuggestions {
					return out
				}
			}
		}
	}
	return out
}
