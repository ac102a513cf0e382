package casefile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/model"
	"github.com/kokistudios/casebook/internal/store"
)

func setupStore(t *testing.T, opts ...Option) (*store.Store, *Store) {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".casebook")
	if err := store.Init(home, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	st, err := store.Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return st, Open(st, opts...)
}

type countingIndex struct {
	upserts map[string]int
}

func (c *countingIndex) Upsert(cs model.Case) error {
	c.upserts[cs.ID]++
	return nil
}

// nameIndex answers ByName for the cases it holds.
type nameIndex struct {
	countingIndex
	byName map[string]model.Case
}

func (n *nameIndex) ByName(_ context.Context, name string) (*model.Case, error) {
	c, ok := n.byName[name]
	if !ok {
		return nil, apperr.NotFound("案件 %s 不存在", name)
	}
	return &c, nil
}

func TestCreateCase(t *testing.T) {
	st, s := setupStore(t)

	c, err := s.CreateCase("合同纠纷", model.CategoryCivil, "")
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if c.ID == "" || c.Status != model.StatusActive {
		t.Errorf("unexpected case %+v", c)
	}

	dir := filepath.Join(st.CasesDir(), "案件：合同纠纷")
	if s.Dir(c) != dir {
		t.Errorf("Dir() = %s, want %s", s.Dir(c), dir)
	}
	readme, err := os.ReadFile(filepath.Join(dir, ReadmeFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# 合同纠纷", c.ID, summaryBegin} {
		if !strings.Contains(string(readme), want) {
			t.Errorf("README missing %q:\n%s", want, readme)
		}
	}
	if strings.Contains(string(readme), "CASE001") || strings.Contains(string(readme), "示例案件") {
		t.Errorf("README placeholders not substituted:\n%s", readme)
	}
	for _, sub := range []string{SidecarFile, MaterialsDir, AnalysesDir, PartiesDir, TimelineDir} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("expected %s in case directory", sub)
		}
	}
	if _, err := os.Stat(filepath.Join(st.LegacyDir(), c.ID, "metadata.json")); err != nil {
		t.Error("expected legacy metadata.json")
	}

	loaded, err := s.LoadCase("合同纠纷")
	if err != nil {
		t.Fatalf("LoadCase: %v", err)
	}
	if loaded.ID != c.ID {
		t.Errorf("LoadCase ID = %s, want %s", loaded.ID, c.ID)
	}
}

func TestCreateCase_Errors(t *testing.T) {
	st, s := setupStore(t)
	if _, err := s.CreateCase("甲", model.CategoryCivil, ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cat  model.Category
		code apperr.Code
	}{
		{"", model.CategoryCivil, apperr.CodeValidation},
		{"甲", model.CategoryCivil, apperr.CodeValidation},
		{"乙", model.Category("maritime"), apperr.CodeValidation},
		{"a/b", model.CategoryCivil, apperr.CodeValidation},
	}
	for _, tc := range tests {
		_, err := s.CreateCase(tc.name, tc.cat, "")
		if !apperr.Is(err, tc.code) {
			t.Errorf("CreateCase(%q, %q) error = %v, want %s", tc.name, tc.cat, err, tc.code)
		}
	}

	os.RemoveAll(st.TemplateDir())
	if _, err := s.CreateCase("丙", model.CategoryCivil, ""); !apperr.Is(err, apperr.CodeTemplateMissing) {
		t.Errorf("expected TEMPLATE_MISSING, got %v", err)
	}
}

func TestCreateCase_IndexedNameIsDuplicate(t *testing.T) {
	ix := &nameIndex{
		countingIndex: countingIndex{upserts: map[string]int{}},
		byName:        map[string]model.Case{"已索引": {ID: "CASE-IX", Name: "已索引"}},
	}
	_, s := setupStore(t, WithIndexer(ix))

	if _, err := s.CreateCase("已索引", model.CategoryCivil, ""); !apperr.Is(err, apperr.CodeValidation) {
		t.Errorf("expected VALIDATION for indexed name, got %v", err)
	}
	if _, err := s.CreateCase("未索引", model.CategoryCivil, ""); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
}

func TestCreateCase_LegacyReadFailure(t *testing.T) {
	st, s := setupStore(t)
	if err := os.RemoveAll(st.LegacyDir()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(st.LegacyDir(), []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.CreateCase("新案", model.CategoryCivil, ""); !apperr.Is(err, apperr.CodePersistence) {
		t.Errorf("expected PERSISTENCE, got %v", err)
	}
}

func TestCreateCase_BusinessTypeOnlyForNonLitigation(t *testing.T) {
	_, s := setupStore(t)
	c, err := s.CreateCase("民事案", model.CategoryCivil, model.BusinessContractReview)
	if err != nil {
		t.Fatal(err)
	}
	if c.BusinessType != model.BusinessUnspecified {
		t.Errorf("BusinessType = %q, want empty for civil case", c.BusinessType)
	}
	n, err := s.CreateCase("审查项目", model.CategoryNonLitigation, model.BusinessContractReview)
	if err != nil {
		t.Fatal(err)
	}
	if n.BusinessType != model.BusinessContractReview {
		t.Errorf("BusinessType = %q", n.BusinessType)
	}
}

func TestMaterial_DualSchemaEquivalence(t *testing.T) {
	_, s := setupStore(t)
	c, _ := s.CreateCase("X", model.CategoryCivil, "")

	if _, err := s.AddMaterial(c, "M1", "C1\n第二行", model.MaterialEvidence); err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}
	if _, err := s.AddMaterial(c, "M2", "\n以空行开头", "录音"); err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}
	fromNew, err := s.ListMaterials(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(fromNew) != 2 {
		t.Fatalf("expected 2 materials, got %d", len(fromNew))
	}
	if fromNew[1].Type != model.MaterialOther {
		t.Errorf("unrecognized type should become other, got %q", fromNew[1].Type)
	}

	if err := os.RemoveAll(filepath.Join(s.Dir(c), MaterialsDir)); err != nil {
		t.Fatal(err)
	}
	fromLegacy, err := s.ListMaterials(c)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fromNew, fromLegacy); diff != "" {
		t.Errorf("legacy materials differ (-new +legacy):\n%s", diff)
	}
}

func TestAnalysis_DualSchemaEquivalence(t *testing.T) {
	_, s := setupStore(t)
	c, _ := s.CreateCase("X", model.CategoryCivil, "")

	saved, err := s.SaveAnalysisResult(c, model.KindDisputeFocus, "# 争议焦点\n\n- 借款是否成立\n")
	if err != nil {
		t.Fatal(err)
	}
	fromNew, err := s.GetAnalysisResult(c, model.KindDisputeFocus)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(saved, fromNew); diff != "" {
		t.Errorf("stored analysis differs (-saved +read):\n%s", diff)
	}

	os.RemoveAll(filepath.Join(s.Dir(c), AnalysesDir))
	fromLegacy, err := s.GetAnalysisResult(c, model.KindDisputeFocus)
	if err != nil {
		t.Fatalf("legacy fallback: %v", err)
	}
	if diff := cmp.Diff(fromNew, fromLegacy); diff != "" {
		t.Errorf("legacy analysis differs (-new +legacy):\n%s", diff)
	}

	if _, err := s.GetAnalysisResult(c, model.KindLegalBasis); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for absent kind, got %v", err)
	}
}

func TestAnalysis_LatestFileWins(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	_, s := setupStore(t, WithClock(func() time.Time { return now }))
	c, _ := s.CreateCase("X", model.CategoryCivil, "")

	s.SaveAnalysisResult(c, model.KindDisputeFocus, "旧")
	now = now.Add(time.Hour)
	s.SaveAnalysisResult(c, model.KindDisputeFocus, "新")

	r, err := s.GetAnalysisResult(c, model.KindDisputeFocus)
	if err != nil {
		t.Fatal(err)
	}
	if r.Result != "新" {
		t.Errorf("Result = %q, want latest", r.Result)
	}
	all, _ := s.ListAnalysisResults(c)
	if len(all) != 1 {
		t.Errorf("expected one result per kind, got %d", len(all))
	}
}

func TestAnalysis_RootLevelReportCounted(t *testing.T) {
	_, s := setupStore(t)
	c, _ := s.CreateCase("X", model.CategoryCivil, "")

	root := filepath.Join(s.Dir(c), AnalysesDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	name := model.KindLabel(model.KindDisputeFocus) + "-20240501090000.md"
	if err := os.WriteFile(filepath.Join(root, name), []byte("# 争议焦点\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := s.GetAnalysisResult(c, model.KindDisputeFocus)
	if err != nil {
		t.Fatalf("GetAnalysisResult: %v", err)
	}
	all, err := s.ListAnalysisResults(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Kind != model.KindDisputeFocus || all[0].Result != r.Result {
		t.Errorf("ListAnalysisResults = %+v", all)
	}
	if err := s.UpdateCaseMetadata(c); err != nil {
		t.Fatal(err)
	}
	if c.AnalysisCount != 1 {
		t.Errorf("AnalysisCount = %d, want 1", c.AnalysisCount)
	}
}

func TestParty_DualSchemaEquivalence(t *testing.T) {
	_, s := setupStore(t)
	c, _ := s.CreateCase("X", model.CategoryCivil, "")

	if _, err := s.AddParty(c, "张三", model.RolePlaintiff, "出借人"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddParty(c, "李四", model.RoleDefendant, ""); err != nil {
		t.Fatal(err)
	}
	fromNew, _ := s.ListParties(c)
	if len(fromNew) != 2 {
		t.Fatalf("expected 2 parties, got %d", len(fromNew))
	}
	summary, err := os.ReadFile(filepath.Join(s.Dir(c), PartiesDir, PartiesFile))
	if err != nil || !strings.Contains(string(summary), "张三：出借人") {
		t.Errorf("party summary not rendered: %s", summary)
	}

	os.RemoveAll(filepath.Join(s.Dir(c), PartiesDir))
	fromLegacy, _ := s.ListParties(c)
	if diff := cmp.Diff(fromNew, fromLegacy); diff != "" {
		t.Errorf("legacy parties differ (-new +legacy):\n%s", diff)
	}
}

func TestTimeline_RenderingIsOrderIndependent(t *testing.T) {
	_, s := setupStore(t)
	c, _ := s.CreateCase("X", model.CategoryCivil, "")

	dates := []string{"2024-05-01", "2024-01-10", "2024-03-01", "2023-12-31"}
	for i, d := range dates {
		date, _ := model.ParseDate(d)
		if _, err := s.AppendTimelineEvent(c, "事件"+d, "", date); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	events, err := s.ListTimeline(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != len(dates) {
		t.Fatalf("expected %d events, got %d", len(dates), len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Date.Before(events[i-1].Date) {
			t.Errorf("events not sorted by date at %d", i)
		}
	}

	rendered, err := os.ReadFile(filepath.Join(s.Dir(c), TimelineDir, TimelineFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(rendered) != RenderTimeline(c.Name, events) {
		t.Error("rendered timeline differs from a single regeneration over all events")
	}

	reversed := make([]model.TimelineEvent, len(events))
	for i, e := range events {
		reversed[len(events)-1-i] = e
	}
	if RenderTimeline(c.Name, reversed) != string(rendered) {
		t.Error("rendering depends on input order")
	}

	text := string(rendered)
	prev := -1
	for _, d := range []string{"2023-12-31", "2024-01-10", "2024-03-01", "2024-05-01"} {
		idx := strings.Index(text, d)
		if idx < 0 || strings.Count(text, "| "+d+" |") != 1 {
			t.Errorf("date %s missing or duplicated", d)
		}
		if idx < prev {
			t.Errorf("date %s out of order", d)
		}
		prev = idx
	}

	os.Remove(filepath.Join(s.Dir(c), TimelineDir, EventsFile))
	fromLegacy, _ := s.ListTimeline(c)
	if diff := cmp.Diff(events, fromLegacy); diff != "" {
		t.Errorf("legacy timeline differs (-new +legacy):\n%s", diff)
	}
}

func TestUpdateCaseMetadata_Counts(t *testing.T) {
	ix := &countingIndex{upserts: map[string]int{}}
	st, s := setupStore(t, WithIndexer(ix))
	c, _ := s.CreateCase("X", model.CategoryCivil, "")

	s.AddMaterial(c, "M1", "C1", model.MaterialEvidence)
	s.AddMaterial(c, "M2", "C2", model.MaterialContract)
	s.SaveAnalysisResult(c, model.KindDisputeFocus, "r")

	if c.MaterialCount != 2 || c.AnalysisCount != 1 {
		t.Errorf("in-memory counts = %d/%d, want 2/1", c.MaterialCount, c.AnalysisCount)
	}
	loaded, _ := s.LoadCase("X")
	if loaded.MaterialCount != 2 || loaded.AnalysisCount != 1 {
		t.Errorf("sidecar counts = %d/%d, want 2/1", loaded.MaterialCount, loaded.AnalysisCount)
	}
	legacy := &Legacy{Root: st.LegacyDir()}
	lc, err := legacy.ReadCase(Ref{ID: c.ID})
	if err != nil {
		t.Fatal(err)
	}
	if lc.MaterialCount != 2 || lc.AnalysisCount != 1 {
		t.Errorf("legacy counts = %d/%d, want 2/1", lc.MaterialCount, lc.AnalysisCount)
	}
	if ix.upserts[c.ID] < 4 {
		t.Errorf("expected an index upsert per mutation, got %d", ix.upserts[c.ID])
	}
}

func TestUpdateAndDeleteMaterial(t *testing.T) {
	_, s := setupStore(t)
	c, _ := s.CreateCase("X", model.CategoryCivil, "")
	m, _ := s.AddMaterial(c, "借条", "原文", model.MaterialEvidence)

	m.Content = "修订"
	m.Type = model.MaterialContract
	if err := s.UpdateMaterial(c, *m); err != nil {
		t.Fatalf("UpdateMaterial: %v", err)
	}
	ms, _ := s.ListMaterials(c)
	if len(ms) != 1 || ms[0].Content != "修订" || ms[0].Type != model.MaterialContract {
		t.Errorf("after update got %+v", ms)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(c), MaterialsDir, "证据材料", "借条.md")); !os.IsNotExist(err) {
		t.Error("old material file should be moved with its type")
	}

	if err := s.DeleteMaterial(c, m.ID); err != nil {
		t.Fatalf("DeleteMaterial: %v", err)
	}
	ms, _ = s.ListMaterials(c)
	if len(ms) != 0 {
		t.Errorf("expected no materials after delete, got %d", len(ms))
	}
	if err := s.DeleteMaterial(c, m.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND deleting twice, got %v", err)
	}
}

func TestHandPlacedMaterialFiles(t *testing.T) {
	_, s := setupStore(t)
	c, _ := s.CreateCase("X", model.CategoryCivil, "")
	dir := filepath.Join(s.Dir(c), MaterialsDir, "证据材料")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "借条.txt"), []byte("今借到"), 0644)

	ms, err := s.ListMaterials(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 {
		t.Fatalf("expected 1 material, got %d", len(ms))
	}
	if ms[0].Name != "借条" || ms[0].Type != model.MaterialEvidence || ms[0].Content != "今借到" {
		t.Errorf("unexpected material %+v", ms[0])
	}
}

func TestLoadCase_AdoptsHandMadeDirectory(t *testing.T) {
	st, s := setupStore(t)
	dir := filepath.Join(st.CasesDir(), "案件：手工案件")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, ReadmeFile), []byte("# 手工案件\n\n- 案件编号：CASE123456\n"), 0644)

	c, err := s.LoadCase("手工")
	if err != nil {
		t.Fatalf("LoadCase: %v", err)
	}
	if c.ID != "CASE123456" || c.Name != "手工案件" {
		t.Errorf("adopted case = %+v", c)
	}
	if _, err := os.Stat(filepath.Join(dir, SidecarFile)); err != nil {
		t.Error("expected sidecar to be written on adoption")
	}
}

func TestLoadCase_LegacyOnly(t *testing.T) {
	st, s := setupStore(t)
	legacy := &Legacy{Root: st.LegacyDir()}
	lc := &model.Case{ID: "CASE-OLD", Name: "旧案", Category: model.CategoryCriminal, Status: model.StatusActive}
	if err := legacy.WriteCase(Ref{ID: lc.ID}, lc); err != nil {
		t.Fatal(err)
	}

	c, err := s.LoadCase("旧案")
	if err != nil {
		t.Fatalf("LoadCase: %v", err)
	}
	if c.ID != "CASE-OLD" || c.Category != model.CategoryCriminal {
		t.Errorf("loaded %+v", c)
	}
	if _, err := s.AddMaterial(c, "起诉书", "内容", model.MaterialPleading); err != nil {
		t.Fatalf("AddMaterial on legacy-only case: %v", err)
	}
	if s.Dir(c) != "" {
		t.Error("legacy-only case must not grow a human-readable directory")
	}
	ms, _ := s.ListMaterials(c)
	if len(ms) != 1 {
		t.Errorf("expected 1 legacy material, got %d", len(ms))
	}

	all, _ := s.ListCases()
	found := false
	for _, x := range all {
		if x.ID == "CASE-OLD" {
			found = true
		}
	}
	if !found {
		t.Error("ListCases should include legacy-only cases")
	}
}

func TestLoadCase_ExactLegacyNameBeatsSubstring(t *testing.T) {
	st, s := setupStore(t)
	legacy := &Legacy{Root: st.LegacyDir()}
	lc := &model.Case{ID: "CASE-OLD", Name: "张三", Category: model.CategoryCivil, Status: model.StatusActive}
	if err := legacy.WriteCase(Ref{ID: lc.ID}, lc); err != nil {
		t.Fatal(err)
	}
	newer, err := s.CreateCase("张三借款纠纷", model.CategoryCivil, "")
	if err != nil {
		t.Fatal(err)
	}

	c, err := s.LoadCase("张三")
	if err != nil {
		t.Fatalf("LoadCase: %v", err)
	}
	if c.ID != "CASE-OLD" {
		t.Errorf("LoadCase(张三) = %s %q, want the legacy case", c.ID, c.Name)
	}

	c, err = s.LoadCase("借款纠纷")
	if err != nil {
		t.Fatalf("LoadCase: %v", err)
	}
	if c.ID != newer.ID {
		t.Errorf("LoadCase(借款纠纷) = %s, want %s", c.ID, newer.ID)
	}
}

func TestLoadCase_NotFound(t *testing.T) {
	_, s := setupStore(t)
	if _, err := s.LoadCase("不存在"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestListCases_ExcludesTemplate(t *testing.T) {
	_, s := setupStore(t)
	s.CreateCase("甲", model.CategoryCivil, "")
	s.CreateCase("乙", model.CategoryCriminal, "")

	cases, err := s.ListCases()
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d: %+v", len(cases), cases)
	}
	for _, c := range cases {
		if c.Name == "示例案件" {
			t.Error("template must not be listed")
		}
	}
}

func TestLegacyDisabled(t *testing.T) {
	st, _ := setupStore(t)
	st.Config.Legacy.Enabled = false
	s := Open(st)
	c, err := s.CreateCase("单写", model.CategoryCivil, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(st.LegacyDir(), c.ID)); !os.IsNotExist(err) {
		t.Error("legacy mirror written while disabled")
	}
}
