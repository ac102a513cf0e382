package ui

import (
	"strings"
	"testing"
)

func TestBold_ContainsText(t *testing.T) {
	Init(false)
	result := Bold("案件")
	if !strings.Contains(result, "案件") {
		t.Errorf("Bold output should contain '案件', got %q", result)
	}
}

func TestColorDisabled_PlainText(t *testing.T) {
	Init(true) // no color
	defer Init(false)

	if Bold("hello") != "hello" {
		t.Errorf("expected plain text when color disabled, got %q", Bold("hello"))
	}
	if Red("error") != "error" {
		t.Errorf("expected plain text, got %q", Red("error"))
	}
	if Green("ok") != "ok" {
		t.Errorf("expected plain text, got %q", Green("ok"))
	}
	if Yellow("warn") != "warn" {
		t.Errorf("expected plain text, got %q", Yellow("warn"))
	}
	if Dim("dim") != "dim" {
		t.Errorf("expected plain text, got %q", Dim("dim"))
	}
}

func TestLoggerInitialized(t *testing.T) {
	Init(false)
	if Logger == nil {
		t.Fatal("Logger should be initialized after Init()")
	}
	SetVerbose(true)
	SetVerbose(false)
}

func TestPrompt(t *testing.T) {
	Init(true)
	defer Init(false)

	if got := Prompt(""); got != "casebook> " {
		t.Errorf("Prompt(\"\") = %q", got)
	}
	if got := Prompt("张三案"); got != "casebook[张三案]> " {
		t.Errorf("Prompt(张三案) = %q", got)
	}
}

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		out  string
		want bool
	}{
		{"# 张三案 争议焦点分析\n\n正文", true},
		{"| # | 案件 |\n|---|---|", true},
		{"已添加材料: 借条", false},
		{"错误: 尚未选择案件", false},
	}
	for _, tt := range tests {
		if got := IsMarkdown(tt.out); got != tt.want {
			t.Errorf("IsMarkdown(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}

func TestMarkdownString_KeepsText(t *testing.T) {
	out := MarkdownString("# 标题\n\n争议焦点", 80)
	if !strings.Contains(out, "争议焦点") {
		t.Errorf("rendered markdown lost its text: %q", out)
	}
}

func TestWideShare(t *testing.T) {
	if s := wideShare("abc"); s != 0 {
		t.Errorf("wideShare(abc) = %v", s)
	}
	if s := wideShare("争议焦点"); s != 1 {
		t.Errorf("wideShare(争议焦点) = %v", s)
	}
}

func TestEscapeAppleScript(t *testing.T) {
	if got := escapeAppleScript(`say "hi" \ bye`); got != `say \"hi\" \\ bye` {
		t.Errorf("escapeAppleScript = %q", got)
	}
}

func TestSpinner_StopTwice(t *testing.T) {
	Init(true)
	s := NewSpinner("分析中")
	s.Stop()
	s.Stop()
}
