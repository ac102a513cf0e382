// Package resolver maps a loosely typed case name onto a case directory.
//
// Matching runs in three tiers and the first tier that yields a candidate
// wins: exact name (with or without the prefix marker and the trailing 案),
// substring
// containment in either direction, then keyword overlap. Within a tier the
// first candidate in directory listing order is returned.
package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kokistudios/casebook/internal/apperr"
)

// DefaultPrefix marks human-readable case directories.
const DefaultPrefix = "案件："

// CaseSuffix is the conventional trailing "case" character of a case name.
const CaseSuffix = "案"

// Tier identifies which matching strategy produced a result.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierSubstring
	TierKeyword
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierKeyword:
		return "keyword"
	}
	return "none"
}

type options struct {
	prefix   string
	reserved map[string]bool
}

// Option configures resolution.
type Option func(*options)

// WithPrefix overrides the directory name prefix marker.
func WithPrefix(p string) Option {
	return func(o *options) { o.prefix = p }
}

// WithReserved excludes directory names from candidacy. Names are compared
// against the raw directory name.
func WithReserved(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.reserved[n] = true
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{prefix: DefaultPrefix, reserved: map[string]bool{}}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Match is a resolved case directory.
type Match struct {
	Path string
	Name string // directory name without the prefix marker
	Tier Tier
}

// Resolve returns the directory for caseName under root.
func Resolve(root, caseName string, opts ...Option) (string, error) {
	m, err := ResolveMatch(root, caseName, opts...)
	if err != nil {
		return "", err
	}
	return m.Path, nil
}

// ResolveMatch is Resolve with the matching tier reported.
func ResolveMatch(root, caseName string, opts ...Option) (Match, error) {
	o := buildOptions(opts)
	name := strings.TrimSpace(caseName)
	if name == "" {
		return Match{}, apperr.Validation("缺少案件名称")
	}

	dirs, err := candidates(root, o)
	if err != nil || len(dirs) == 0 {
		return Match{}, notFound(name)
	}

	if d, ok := exact(dirs, name, o); ok {
		return match(root, d, o, TierExact), nil
	}

	for _, d := range dirs {
		bare := strings.TrimPrefix(d, o.prefix)
		if strings.Contains(bare, name) || strings.Contains(name, bare) {
			return match(root, d, o, TierSubstring), nil
		}
	}

	keywords := Keywords(name)
	for _, d := range dirs {
		bare := strings.TrimPrefix(d, o.prefix)
		for _, kw := range keywords {
			if strings.Contains(d, kw) || strings.Contains(bare, kw) {
				return match(root, d, o, TierKeyword), nil
			}
		}
	}

	return Match{}, notFound(name)
}

// exact looks for the canonical directory of name. Prefixed directories
// are preferred over bare ones, and a trailing CaseSuffix is ignored on
// both sides, so "张三" and "张三案" name the same case.
func exact(dirs []string, name string, o options) (string, bool) {
	key := strings.TrimSuffix(name, CaseSuffix)
	for _, d := range dirs {
		if d == o.prefix+name {
			return d, true
		}
	}
	for _, d := range dirs {
		if strings.HasPrefix(d, o.prefix) && strings.TrimSuffix(strings.TrimPrefix(d, o.prefix), CaseSuffix) == key {
			return d, true
		}
	}
	for _, d := range dirs {
		if d == name {
			return d, true
		}
	}
	for _, d := range dirs {
		if strings.TrimSuffix(d, CaseSuffix) == key {
			return d, true
		}
	}
	return "", false
}

// Keywords splits a name on whitespace, keeping tokens longer than one rune.
func Keywords(name string) []string {
	var out []string
	for _, f := range strings.Fields(name) {
		if utf8.RuneCountInString(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// CaseDirs lists candidate case directories under root in listing order.
func CaseDirs(root string, opts ...Option) ([]Match, error) {
	o := buildOptions(opts)
	dirs, err := candidates(root, o)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, match(root, d, o, TierNone))
	}
	return out, nil
}

// DisplayName strips the prefix marker from a directory name.
func DisplayName(dir string, opts ...Option) string {
	o := buildOptions(opts)
	return strings.TrimPrefix(filepath.Base(dir), o.prefix)
}

func candidates(root string, o options) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, ".") || o.reserved[n] {
			continue
		}
		dirs = append(dirs, n)
	}
	return dirs, nil
}

func match(root, dir string, o options, tier Tier) Match {
	return Match{
		Path: filepath.Join(root, dir),
		Name: strings.TrimPrefix(dir, o.prefix),
		Tier: tier,
	}
}

func notFound(name string) error {
	return apperr.NotFound("案件 \"%s\" 不存在", name).
		WithHint("使用 查看案件列表 查看已有案件")
}
