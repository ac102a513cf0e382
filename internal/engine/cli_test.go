package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kokistudios/casebook/internal/model"
)

func fakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-claude")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLI_Generate(t *testing.T) {
	// Echo the prompt argument back as the report.
	path := fakeTool(t, `echo "$2"`)
	e := &CLI{Tool: ToolClaude, Path: path, Timeout: 10 * time.Second}

	out, err := e.Generate(context.Background(), Request{
		CaseName: "甲", Materials: []string{"借条内容"}, Category: model.CategoryCivil, Kind: model.KindDisputeFocus,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out, "借条内容") || !strings.Contains(out, "案件名称：甲") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCLI_Failures(t *testing.T) {
	ctx := context.Background()
	req := Request{CaseName: "甲", Materials: []string{"x"}, Kind: model.KindBasicAnalysis}

	failing := &CLI{Tool: ToolClaude, Path: fakeTool(t, `echo "quota exceeded" >&2; exit 3`)}
	_, err := failing.Generate(ctx, req)
	if err == nil || !strings.Contains(err.Error(), "code 3") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected exit code error, got %v", err)
	}

	silent := &CLI{Tool: ToolClaude, Path: fakeTool(t, `exit 0`)}
	if _, err := silent.Generate(ctx, req); err == nil {
		t.Error("expected error for empty output")
	}

	missing := &CLI{Tool: ToolCodex, Path: filepath.Join(t.TempDir(), "nope")}
	if err := missing.Available(); err == nil {
		t.Error("expected Available to fail for missing binary")
	}

	slow := &CLI{Tool: ToolClaude, Path: fakeTool(t, `exec sleep 5`), Timeout: 100 * time.Millisecond}
	if _, err := slow.Generate(ctx, req); err == nil {
		t.Error("expected timeout error")
	}
}

func TestCLI_Args(t *testing.T) {
	c := &CLI{Tool: ToolCodex}
	args := c.args("p")
	if args[0] != "exec" || args[len(args)-1] != "p" {
		t.Errorf("codex args = %v", args)
	}
	c = &CLI{Tool: ToolClaude}
	if got := c.args("p"); got[0] != "-p" || got[1] != "p" {
		t.Errorf("claude args = %v", got)
	}
}
