package casefile

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// splitDocument separates a markdown document into its YAML frontmatter and
// body. Documents without a leading --- line have no frontmatter and the
// whole input is the body.
func splitDocument(raw []byte) (fm []byte, body string, ok bool, err error) {
	content := string(raw)
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content, false, nil
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(content, "---"), "\r")
	rest = rest[1:]

	end := strings.Index("\n"+rest, "\n---")
	if end == -1 {
		return nil, "", false, fmt.Errorf("unterminated frontmatter: missing closing ---")
	}
	if end == 0 {
		fm = nil
	} else {
		fm = []byte(rest[:end-1])
	}
	body = rest[end+3:]
	body = strings.TrimPrefix(body, "\r")
	// The writer emits "---\n\n" before the body.
	if strings.HasPrefix(body, "\n\n") {
		body = body[2:]
	} else {
		body = strings.TrimPrefix(body, "\n")
	}
	return fm, body, true, nil
}

// parseDocument decodes the frontmatter of raw into meta and returns the
// body. ok is false when the document carries no frontmatter.
func parseDocument(raw []byte, meta any) (body string, ok bool, err error) {
	fm, body, ok, err := splitDocument(raw)
	if err != nil || !ok {
		return body, ok, err
	}
	if err := yaml.Unmarshal(fm, meta); err != nil {
		return "", false, fmt.Errorf("invalid frontmatter YAML: %w", err)
	}
	return body, true, nil
}

// renderDocument is the inverse of parseDocument.
func renderDocument(meta any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	fm, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
