package casefile

import (
	"strings"
	"testing"
	"time"

	"github.com/kokistudios/casebook/internal/model"
)

func TestDocumentRoundTrip(t *testing.T) {
	bodies := []string{"", "正文", "\n前导空行", "多行\n\n---\n分隔线之后"}
	for _, body := range bodies {
		in := model.Material{ID: "01H", Name: "借条", Type: model.MaterialEvidence, CreatedAt: time.Unix(1700000000, 0)}
		raw, err := renderDocument(in, body)
		if err != nil {
			t.Fatal(err)
		}
		var out model.Material
		got, ok, err := parseDocument(raw, &out)
		if err != nil || !ok {
			t.Fatalf("parseDocument(%q): ok=%v err=%v", body, ok, err)
		}
		if got != body {
			t.Errorf("body = %q, want %q", got, body)
		}
		if out.ID != in.ID || out.Name != in.Name || !out.CreatedAt.Equal(in.CreatedAt) {
			t.Errorf("meta = %+v, want %+v", out, in)
		}
	}
}

func TestParseDocument_NoFrontmatter(t *testing.T) {
	var m model.Material
	body, ok, err := parseDocument([]byte("# 只是正文"), &m)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if body != "# 只是正文" {
		t.Errorf("body = %q", body)
	}
}

func TestParseDocument_Unterminated(t *testing.T) {
	var m model.Material
	if _, _, err := parseDocument([]byte("---\nid: x\n正文"), &m); err == nil {
		t.Error("expected error for unterminated frontmatter")
	}
}

func TestReplaceSummary(t *testing.T) {
	c := &model.Case{ID: "CASE-1", Name: "甲", Category: model.CategoryCivil, Status: "active", MaterialCount: 1}
	first := replaceSummary("# 甲\n\n正文\n", renderSummary(c))
	c.MaterialCount = 5
	second := replaceSummary(first, renderSummary(c))

	if strings.Count(second, summaryBegin) != 1 {
		t.Errorf("summary block duplicated:\n%s", second)
	}
	if !strings.Contains(second, "材料数量：5") || strings.Contains(second, "材料数量：1") {
		t.Errorf("summary not replaced:\n%s", second)
	}
	if !strings.HasPrefix(second, "# 甲\n\n正文\n") {
		t.Errorf("user content not preserved:\n%s", second)
	}
}

func TestReadmeCaseID(t *testing.T) {
	dir := t.TempDir()
	writeFile(dir+"/"+ReadmeFile, []byte("# x\n\n- 案件编号：CASE654321\n- 创建日期：2024-01-01\n"))
	if got := ReadmeCaseID(dir); got != "CASE654321" {
		t.Errorf("ReadmeCaseID = %q", got)
	}
}
