package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kokistudios/casebook/internal/apperr"
)

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(root, n), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolve_ExactWithPrefixBeatsSubstring(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：张三案", "张三", "李四张三纠纷")

	m, err := ResolveMatch(root, "张三")
	if err != nil {
		t.Fatalf("ResolveMatch: %v", err)
	}
	if filepath.Base(m.Path) != "案件：张三案" {
		t.Errorf("resolved %q, want %q", filepath.Base(m.Path), "案件：张三案")
	}
	if m.Tier != TierExact {
		t.Errorf("tier = %v, want exact", m.Tier)
	}
}

func TestResolve_BareExactBeforeSubstring(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "李四张三纠纷", "张三")

	m, err := ResolveMatch(root, "张三")
	if err != nil {
		t.Fatalf("ResolveMatch: %v", err)
	}
	if filepath.Base(m.Path) != "张三" || m.Tier != TierExact {
		t.Errorf("resolved %q (%v), want exact 张三", filepath.Base(m.Path), m.Tier)
	}
}

func TestResolve_PrefixedExactPreferred(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：张三案", "张三案", "李四张三纠纷")

	got, err := Resolve(root, "张三案")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(got) != "案件：张三案" {
		t.Errorf("resolved %q, want %q", filepath.Base(got), "案件：张三案")
	}
}

func TestResolve_SubstringBeforeKeyword(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：张三借款案")

	m, err := ResolveMatch(root, "张三")
	if err != nil {
		t.Fatalf("ResolveMatch: %v", err)
	}
	if filepath.Base(m.Path) != "案件：张三借款案" {
		t.Errorf("resolved %q", m.Path)
	}
	if m.Tier != TierSubstring {
		t.Errorf("tier = %v, want substring", m.Tier)
	}
	if m.Name != "张三借款案" {
		t.Errorf("Name = %q, want %q", m.Name, "张三借款案")
	}
}

func TestResolve_ReverseContainment(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：合同纠纷")

	got, err := Resolve(root, "王五合同纠纷一审")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(got) != "案件：合同纠纷" {
		t.Errorf("resolved %q", got)
	}
}

func TestResolve_Keyword(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：交通事故责任纠纷", "案件：借款合同")

	m, err := ResolveMatch(root, "借款 X")
	if err != nil {
		t.Fatalf("ResolveMatch: %v", err)
	}
	if m.Name != "借款合同" {
		t.Errorf("resolved %q, want 借款合同", m.Name)
	}
	if m.Tier != TierKeyword {
		t.Errorf("tier = %v, want keyword", m.Tier)
	}
}

func TestResolve_ReservedExcluded(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：示例案件", ".hidden")

	_, err := Resolve(root, "示例案件", WithReserved("案件：示例案件"))
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected NotFound for reserved template, got %v", err)
	}
	_, err = Resolve(root, "hidden")
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected NotFound for hidden dir, got %v", err)
	}
}

func TestResolve_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nope")
	_, err := Resolve(root, "张三")
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Error("resolver must not create the root directory")
	}
}

func TestResolve_EmptyName(t *testing.T) {
	if _, err := Resolve(t.TempDir(), "  "); !apperr.Is(err, apperr.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestResolve_Stable(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：甲乙纠纷", "案件：甲丙纠纷")
	first, _ := Resolve(root, "纠纷")
	for i := 0; i < 5; i++ {
		got, _ := Resolve(root, "纠纷")
		if got != first {
			t.Fatalf("resolution changed between calls: %s vs %s", first, got)
		}
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("张 三四 借款合同 a")
	want := []string{"三四", "借款合同"}
	if len(got) != len(want) {
		t.Fatalf("Keywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keywords[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCaseDirsAndDisplayName(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "案件：甲", "乙")
	os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644)

	dirs, err := CaseDirs(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 dirs, got %d", len(dirs))
	}
	if got := DisplayName(filepath.Join(root, "案件：甲")); got != "甲" {
		t.Errorf("DisplayName = %q, want 甲", got)
	}
}
