package command

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTable_Resolve(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		token string
		want  string
		ok    bool
	}{
		{"新建案件", CmdCreateCase, true},
		{"create-case", CmdCreateCase, true},
		{"查看案件列表", CmdListCases, true},
		{"ＨＥＬＰ", CmdHelp, true},
		{"？", CmdHelp, true},
		{"Quit", CmdExit, true},
		{"起草", CmdGenerateDocument, true},
		{"识别争议焦点", CmdDisputeFocus, true},
		{"不存在", "", false},
	}
	for _, tt := range tests {
		got, ok := table.Resolve(tt.token)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.token, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTable_ResolveGlued(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		token string
		want  string
		rest  string
		ok    bool
	}{
		{"新建案件张三", CmdCreateCase, "张三", true},
		{"分析案件材料张三", CmdAnalyzeCase, "张三", true},
		{"分析案件张三", CmdAnalyzeCase, "张三", true},
		{"起草起诉状", CmdGenerateDocument, "起诉状", true},
		{"识别争议焦点合同纠纷", CmdDisputeFocus, "合同纠纷", true},
		{"quitnow", "", "", false},
		{"hello", "", "", false},
	}
	for _, tt := range tests {
		c, rest, ok := table.ResolveGlued(tt.token)
		if ok != tt.ok {
			t.Errorf("ResolveGlued(%q) ok = %v, want %v", tt.token, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if c.Name != tt.want || rest != tt.rest {
			t.Errorf("ResolveGlued(%q) = (%q, %q), want (%q, %q)", tt.token, c.Name, rest, tt.want, tt.rest)
		}
	}
}

func TestTable_Suggest(t *testing.T) {
	table := DefaultTable()

	if got := table.Suggest("halp"); !slices.Contains(got, "help") {
		t.Errorf("Suggest(halp) = %v, want it to contain help", got)
	}
	if got := table.Suggest("新建按件"); !slices.Contains(got, "新建案件") {
		t.Errorf("Suggest(新建按件) = %v, want it to contain 新建案件", got)
	}
	if got := table.Suggest("timexxx"); slices.Contains(got, "timeline") {
		t.Errorf("Suggest(timexxx) = %v, timeline is too far away", got)
	}
	if got := table.Suggest("zzzzzzzz"); len(got) != 0 {
		t.Errorf("Suggest(zzzzzzzz) = %v, want none", got)
	}
	if got := table.Suggest(""); got != nil {
		t.Errorf("Suggest(\"\") = %v, want nil", got)
	}

	// substring matches are capped and follow table order
	want := []string{"新建案件", "创建案件", "查看案件列表"}
	if diff := cmp.Diff(want, table.Suggest("案件")); diff != "" {
		t.Errorf("Suggest(案件) mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_FirstRegistrationWins(t *testing.T) {
	table := NewTable(
		&Command{Name: "a", Aliases: []string{"x"}},
		&Command{Name: "b", Aliases: []string{"x"}},
	)
	if got, _ := table.Resolve("x"); got != "a" {
		t.Errorf("Resolve(x) = %q, want a", got)
	}
}
