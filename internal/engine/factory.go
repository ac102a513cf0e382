package engine

import (
	"fmt"
	"time"
)

// New returns the engine configured by engineType.
func New(engineType, path string, timeout time.Duration) (Engine, error) {
	switch engineType {
	case "", "template":
		return &Template{}, nil
	case "claude":
		return &CLI{Tool: ToolClaude, Path: path, Timeout: timeout}, nil
	case "codex":
		return &CLI{Tool: ToolCodex, Path: path, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", engineType)
	}
}
