package command

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/kokistudios/casebook/internal/model"
)

// Tokenize splits input at the first half-width or full-width colon into the
// command token and the raw argument text. Without a colon the first
// whitespace-delimited word is the command and the remainder is returned as
// raw text.
func Tokenize(input string) (cmd, raw string, hasColon bool) {
	input = strings.TrimSpace(input)
	if i := strings.IndexAny(input, ":："); i >= 0 {
		_, size := utf8.DecodeRuneInString(input[i:])
		return strings.TrimSpace(input[:i]), strings.TrimSpace(input[i+size:]), true
	}
	i := strings.IndexFunc(input, unicode.IsSpace)
	if i < 0 {
		return input, "", false
	}
	return input[:i], strings.TrimSpace(input[i:]), false
}

// SplitArgs splits the text after a colon. Text without whitespace is one
// argument. When the last word is a case category label the text splits
// into everything before it and the label; otherwise it splits at the first
// whitespace into two arguments.
func SplitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	first := strings.IndexFunc(raw, unicode.IsSpace)
	if first < 0 {
		return []string{raw}
	}
	last := strings.LastIndexFunc(raw, unicode.IsSpace)
	tail := strings.TrimSpace(raw[last:])
	if _, ok := model.LookupCategory(tail); ok {
		return []string{strings.TrimSpace(raw[:last]), tail}
	}
	return []string{raw[:first], strings.TrimSpace(raw[first:])}
}

// Parse tokenizes input and splits its arguments. Colon-less input takes
// every remaining word as an argument.
func Parse(input string) (cmd string, args []string) {
	cmd, raw, hasColon := Tokenize(input)
	if hasColon {
		return cmd, SplitArgs(raw)
	}
	if raw == "" {
		return cmd, nil
	}
	return cmd, strings.Fields(raw)
}

// fold normalizes a command token for lookup: full-width letters become
// half-width and case is ignored.
func fold(s string) string {
	return strings.ToLower(width.Fold.String(strings.TrimSpace(s)))
}
