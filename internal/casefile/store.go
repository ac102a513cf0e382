package casefile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/model"
	"github.com/kokistudios/casebook/internal/resolver"
	"github.com/kokistudios/casebook/internal/store"
)

// Indexer receives every case metadata refresh.
type Indexer interface {
	Upsert(c model.Case) error
}

// NameIndex is an Indexer that also answers exact name lookups. CreateCase
// consults it for name uniqueness.
type NameIndex interface {
	Indexer
	ByName(ctx context.Context, name string) (*model.Case, error)
}

// Store is the case entity store. Writes go to the human-readable layout
// when the case directory exists and are mirrored to the legacy layout;
// reads prefer the human-readable layout and fall back per entity.
type Store struct {
	primary  Repository
	fallback Repository

	casesDir string
	prefix   string
	template string
	index    Indexer
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithIndexer(ix Indexer) Option {
	return func(s *Store) { s.index = ix }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithPrefix(p string) Option {
	return func(s *Store) { s.prefix = p }
}

// WithTemplate names the template case directory (without the prefix).
func WithTemplate(name string) Option {
	return func(s *Store) { s.template = name }
}

// New returns a Store rooted at casesDir. An empty legacyDir disables the
// legacy mirror.
func New(casesDir, legacyDir string, opts ...Option) *Store {
	s := &Store{
		casesDir: casesDir,
		prefix:   resolver.DefaultPrefix,
		template: "示例案件",
		logger:   log.New(io.Discard),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.primary = &Layout{Root: casesDir, Prefix: s.prefix, Reserved: []string{s.prefix + s.template}}
	if legacyDir != "" {
		s.fallback = &Legacy{Root: legacyDir}
	}
	return s
}

// Open returns a Store configured from a loaded home directory.
func Open(st *store.Store, opts ...Option) *Store {
	legacy := st.LegacyDir()
	if !st.Config.Legacy.Enabled {
		legacy = ""
	}
	base := []Option{WithPrefix(st.Config.Cases.Prefix), WithTemplate(st.Config.Cases.Template)}
	return New(st.CasesDir(), legacy, append(base, opts...)...)
}

// CasesDir is the root of the human-readable layout.
func (s *Store) CasesDir() string { return s.casesDir }

// TemplateDir is the directory new cases are copied from.
func (s *Store) TemplateDir() string {
	return filepath.Join(s.casesDir, s.prefix+s.template)
}

// Dir returns the human-readable directory of c, or "" when it has none.
func (s *Store) Dir(c *model.Case) string {
	for _, name := range []string{s.prefix + c.Name, c.Name} {
		p := filepath.Join(s.casesDir, name)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	return ""
}

func (s *Store) ref(c *model.Case) Ref {
	return Ref{ID: c.ID, Dir: s.Dir(c)}
}

func (s *Store) resolverOpts() []resolver.Option {
	return []resolver.Option{resolver.WithPrefix(s.prefix), resolver.WithReserved(s.prefix + s.template)}
}

func (s *Store) fail(op string, c *model.Case, err error) error {
	name := ""
	if c != nil {
		name = c.Name
	}
	s.logger.Error("persistence failure", "op", op, "case", name, "err", err)
	return apperr.Persistence(op, err)
}

// mirror runs a write against every layout the case lives in.
func (s *Store) mirror(c *model.Case, op string, fn func(r Repository, ref Ref) error) error {
	ref := s.ref(c)
	wrote := false
	if s.primary.Exists(ref) {
		if err := fn(s.primary, ref); err != nil {
			return s.fail(op, c, err)
		}
		wrote = true
	}
	if s.fallback != nil {
		if err := fn(s.fallback, ref); err != nil {
			return s.fail(op, c, err)
		}
		wrote = true
	}
	if !wrote {
		return s.fail(op, c, fmt.Errorf("case %s has no storage location", c.ID))
	}
	return nil
}

// CreateCase copies the template directory into a new case directory,
// fills in the README placeholders and writes the initial metadata.
func (s *Store) CreateCase(name string, cat model.Category, bt model.BusinessType) (*model.Case, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("缺少案件名称").WithHint("用法: 新建案件：<案件名称> [案件类型]")
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, apperr.Validation("案件名称不能包含路径分隔符: %s", name)
	}
	if _, ok := model.LookupCategory(string(cat)); !ok {
		return nil, apperr.Validation("无效的案件类型: %s", cat).WithHint("可选类型: 民商事, 刑事, 行政, 非诉")
	}
	if cat != model.CategoryNonLitigation {
		bt = model.BusinessUnspecified
	}
	if name == s.template {
		return nil, apperr.Validation("\"%s\" 是保留的模板名称", name)
	}
	dup, err := s.exists(name)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.Validation("案件 \"%s\" 已存在", name).WithHint("使用 选择案件：" + name + " 切换到该案件")
	}

	tmpl := s.TemplateDir()
	if info, err := os.Stat(tmpl); err != nil || !info.IsDir() {
		return nil, apperr.TemplateMissing(tmpl)
	}

	now := s.now()
	c := &model.Case{
		ID:           model.NewCaseID(),
		Name:         name,
		Category:     cat,
		BusinessType: bt,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	dir := filepath.Join(s.casesDir, s.prefix+name)
	if err := os.CopyFS(dir, os.DirFS(tmpl)); err != nil {
		return nil, s.fail("copy template", c, err)
	}
	if err := s.fillReadme(dir, c); err != nil {
		return nil, s.fail("write README", c, err)
	}
	for _, sub := range []string{MaterialsDir, AnalysesDir, PartiesDir, TimelineDir} {
		if err := ensureDir(filepath.Join(dir, sub)); err != nil {
			return nil, s.fail("create case directory", c, err)
		}
	}
	if err := s.UpdateCaseMetadata(c); err != nil {
		return nil, err
	}
	s.logger.Info("case created", "case", name, "id", c.ID, "type", cat)
	return c, nil
}

func (s *Store) fillReadme(dir string, c *model.Case) error {
	path := filepath.Join(dir, ReadmeFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	r := strings.NewReplacer(
		s.template, c.Name,
		"CASE001", c.ID,
		"2023-06-25", c.CreatedAt.Format("2006-01-02"),
	)
	return os.WriteFile(path, []byte(r.Replace(string(data))), 0644)
}

func (s *Store) exists(name string) (bool, error) {
	if s.Dir(&model.Case{Name: name}) != "" {
		return true, nil
	}
	if ix, ok := s.index.(NameIndex); ok {
		_, err := ix.ByName(context.Background(), name)
		if err == nil {
			return true, nil
		}
		if !apperr.Is(err, apperr.CodeNotFound) {
			s.logger.Warn("catalog lookup failed", "case", name, "err", err)
		}
	}
	c, err := s.legacyByExactName(name)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}

// LoadCase finds a case by loose name. An exact name in either layout wins
// over fuzzy matches; otherwise the human-readable layout is searched first.
// A directory without a metadata sidecar is adopted.
func (s *Store) LoadCase(name string) (*model.Case, error) {
	name = strings.TrimSpace(name)
	m, err := resolver.ResolveMatch(s.casesDir, name, s.resolverOpts()...)
	if err == nil && m.Tier != resolver.TierExact {
		exact, lerr := s.legacyByExactName(name)
		if lerr != nil {
			return nil, lerr
		}
		if exact != nil {
			return exact, nil
		}
	}
	if err != nil {
		if !apperr.Is(err, apperr.CodeNotFound) {
			return nil, err
		}
		if c := s.legacyByName(name); c != nil {
			return c, nil
		}
		return nil, err
	}

	c, err := s.primary.ReadCase(Ref{Dir: m.Path})
	if err == nil {
		return c, nil
	}
	if !isNotExist(err) {
		return nil, s.fail("read case", &model.Case{Name: m.Name}, err)
	}
	if c := s.legacyByName(m.Name); c != nil {
		return c, nil
	}
	return s.adopt(m)
}

func (s *Store) legacyByName(name string) *model.Case {
	if s.fallback == nil || name == "" {
		return nil
	}
	entries, err := s.fallback.Cases()
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Case
		}
	}
	for _, e := range entries {
		if e.Name != "" && (strings.Contains(e.Name, name) || strings.Contains(name, e.Name)) {
			return e.Case
		}
	}
	return nil
}

// adopt registers a case directory that was created by hand.
func (s *Store) adopt(m resolver.Match) (*model.Case, error) {
	c := s.describe(Entry{Ref: Ref{Dir: m.Path}, Name: m.Name})
	if err := s.UpdateCaseMetadata(c); err != nil {
		return nil, err
	}
	s.logger.Info("adopted case directory", "case", c.Name, "id", c.ID)
	return c, nil
}

func (s *Store) describe(e Entry) *model.Case {
	id := ReadmeCaseID(e.Ref.Dir)
	if id == "" {
		id = model.NewCaseID()
	}
	created := s.now()
	if info, err := os.Stat(e.Ref.Dir); err == nil {
		created = info.ModTime()
	}
	return &model.Case{
		ID:        id,
		Name:      e.Name,
		Category:  model.CategoryCivil,
		Status:    model.StatusActive,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// ListCases returns every case in the human-readable layout in directory
// order, followed by cases that only exist in the legacy layout.
func (s *Store) ListCases() ([]model.Case, error) {
	entries, err := s.primary.Cases()
	if err != nil {
		return nil, s.fail("list cases", nil, err)
	}
	seen := map[string]bool{}
	var out []model.Case
	for _, e := range entries {
		c := e.Case
		if c == nil {
			lc, err := s.legacyByExactName(e.Name)
			if err != nil {
				return nil, err
			}
			if lc != nil {
				c = lc
			} else {
				c = s.describe(e)
			}
		}
		seen[c.ID] = true
		out = append(out, *c)
	}
	if s.fallback != nil {
		legacy, err := s.fallback.Cases()
		if err != nil {
			return nil, s.fail("list legacy cases", nil, err)
		}
		var extra []model.Case
		for _, e := range legacy {
			if e.Case != nil && !seen[e.Case.ID] {
				extra = append(extra, *e.Case)
			}
		}
		sort.SliceStable(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
		out = append(out, extra...)
	}
	return out, nil
}

func (s *Store) legacyByExactName(name string) (*model.Case, error) {
	if s.fallback == nil {
		return nil, nil
	}
	entries, err := s.fallback.Cases()
	if err != nil {
		return nil, s.fail("list legacy cases", &model.Case{Name: name}, err)
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Case, nil
		}
	}
	return nil, nil
}

// UpdateCaseMetadata recomputes the derived counts, bumps UpdatedAt and
// writes the case to every layout it lives in.
func (s *Store) UpdateCaseMetadata(c *model.Case) error {
	ms, err := s.ListMaterials(c)
	if err != nil {
		return err
	}
	as, err := s.ListAnalysisResults(c)
	if err != nil {
		return err
	}
	c.MaterialCount = len(ms)
	c.AnalysisCount = len(as)
	c.UpdatedAt = s.now()
	if c.Status == "" {
		c.Status = model.StatusActive
	}
	if err := s.mirror(c, "write case metadata", func(r Repository, ref Ref) error {
		return r.WriteCase(ref, c)
	}); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Upsert(*c); err != nil {
			s.logger.Warn("catalog update failed", "case", c.Name, "err", err)
		}
	}
	return nil
}

// --- materials ---

func (s *Store) AddMaterial(c *model.Case, name, content string, typ model.MaterialType) (*model.Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("缺少材料名称").WithHint("用法: 添加材料：<名称> <内容>")
	}
	now := s.now()
	m := model.Material{
		ID:        model.NewID(now),
		Name:      name,
		Content:   content,
		Type:      model.NormalizeMaterialType(string(typ)),
		CreatedAt: now,
	}
	if err := s.mirror(c, "write material", func(r Repository, ref Ref) error {
		return r.WriteMaterial(ref, m)
	}); err != nil {
		return nil, err
	}
	if err := s.UpdateCaseMetadata(c); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMaterials merges both layouts by material id, ordered by creation time.
func (s *Store) ListMaterials(c *model.Case) ([]model.Material, error) {
	ref := s.ref(c)
	seen := map[string]bool{}
	var out []model.Material
	if s.primary.Exists(ref) {
		ms, err := s.primary.ReadMaterials(ref)
		if err != nil {
			return nil, s.fail("read materials", c, err)
		}
		for _, m := range ms {
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	if s.fallback != nil {
		ms, err := s.fallback.ReadMaterials(ref)
		if err != nil && !isNotExist(err) {
			return nil, s.fail("read legacy materials", c, err)
		}
		for _, m := range ms {
			if !seen[m.ID] {
				out = append(out, m)
			}
		}
	}
	model.SortMaterials(out)
	return out, nil
}

func (s *Store) findMaterial(c *model.Case, id string) (*model.Material, error) {
	ms, err := s.ListMaterials(c)
	if err != nil {
		return nil, err
	}
	for i := range ms {
		if ms[i].ID == id {
			return &ms[i], nil
		}
	}
	return nil, apperr.NotFound("材料 %s 不存在", id).WithHint("使用 查看材料 列出案件材料")
}

func (s *Store) UpdateMaterial(c *model.Case, m model.Material) error {
	old, err := s.findMaterial(c, m.ID)
	if err != nil {
		return err
	}
	m.Type = model.NormalizeMaterialType(string(m.Type))
	if m.CreatedAt.IsZero() {
		m.CreatedAt = old.CreatedAt
	}
	if err := s.mirror(c, "update material", func(r Repository, ref Ref) error {
		return r.WriteMaterial(ref, m)
	}); err != nil {
		return err
	}
	return s.UpdateCaseMetadata(c)
}

func (s *Store) DeleteMaterial(c *model.Case, id string) error {
	if _, err := s.findMaterial(c, id); err != nil {
		return err
	}
	if err := s.mirror(c, "delete material", func(r Repository, ref Ref) error {
		return r.DeleteMaterial(ref, id)
	}); err != nil {
		return err
	}
	return s.UpdateCaseMetadata(c)
}

// --- parties ---

func (s *Store) AddParty(c *model.Case, name, role, info string) (*model.Party, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("缺少当事人姓名").WithHint("用法: 添加当事人：<姓名> <角色>")
	}
	now := s.now()
	p := model.Party{ID: model.NewID(now), Name: name, Role: role, Info: info, CreatedAt: now}
	if err := s.mirror(c, "write party", func(r Repository, ref Ref) error {
		return r.WriteParty(ref, p)
	}); err != nil {
		return nil, err
	}
	if err := s.UpdateCaseMetadata(c); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListParties(c *model.Case) ([]model.Party, error) {
	ref := s.ref(c)
	seen := map[string]bool{}
	var out []model.Party
	if s.primary.Exists(ref) {
		ps, err := s.primary.ReadParties(ref)
		if err != nil {
			return nil, s.fail("read parties", c, err)
		}
		for _, p := range ps {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	if s.fallback != nil {
		ps, err := s.fallback.ReadParties(ref)
		if err != nil {
			return nil, s.fail("read legacy parties", c, err)
		}
		for _, p := range ps {
			if !seen[p.ID] {
				out = append(out, p)
			}
		}
	}
	sortParties(out)
	return out, nil
}

// --- timeline ---

// AppendTimelineEvent adds an event and rewrites the whole timeline in both
// layouts.
func (s *Store) AppendTimelineEvent(c *model.Case, title, description string, date time.Time) (*model.TimelineEvent, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("缺少事件标题").WithHint("用法: 添加事件：<日期> <事件>")
	}
	events, err := s.ListTimeline(c)
	if err != nil {
		return nil, err
	}
	now := s.now()
	e := model.TimelineEvent{
		ID:          model.NewID(now),
		Title:       title,
		Description: strings.TrimSpace(description),
		Date:        date,
		CreatedAt:   now,
	}
	events = append(events, e)
	model.SortEvents(events)
	if err := s.mirror(c, "write timeline", func(r Repository, ref Ref) error {
		return r.WriteTimeline(ref, c, events)
	}); err != nil {
		return nil, err
	}
	if err := s.UpdateCaseMetadata(c); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListTimeline(c *model.Case) ([]model.TimelineEvent, error) {
	ref := s.ref(c)
	if s.primary.Exists(ref) {
		events, err := s.primary.ReadTimeline(ref)
		if err == nil {
			return events, nil
		}
		if !isNotExist(err) {
			return nil, s.fail("read timeline", c, err)
		}
	}
	if s.fallback != nil {
		events, err := s.fallback.ReadTimeline(ref)
		if err == nil {
			return events, nil
		}
		if !isNotExist(err) {
			return nil, s.fail("read legacy timeline", c, err)
		}
	}
	return nil, nil
}

// --- analyses ---

// GetAnalysisResult returns the stored result for kind, or a NOT_FOUND
// error when none exists in either layout.
func (s *Store) GetAnalysisResult(c *model.Case, kind string) (*model.AnalysisResult, error) {
	ref := s.ref(c)
	if s.primary.Exists(ref) {
		r, err := s.primary.ReadAnalysis(ref, kind)
		if err == nil {
			return withCaseID(r, c), nil
		}
		if !isNotExist(err) {
			return nil, s.fail("read analysis", c, err)
		}
	}
	if s.fallback != nil {
		r, err := s.fallback.ReadAnalysis(ref, kind)
		if err == nil {
			return withCaseID(r, c), nil
		}
		if !isNotExist(err) {
			return nil, s.fail("read legacy analysis", c, err)
		}
	}
	return nil, apperr.NotFound("案件 \"%s\" 尚无%s结果", c.Name, model.KindLabel(kind))
}

func withCaseID(r *model.AnalysisResult, c *model.Case) *model.AnalysisResult {
	if r.CaseID == "" {
		r.CaseID = c.ID
	}
	return r
}

func (s *Store) SaveAnalysisResult(c *model.Case, kind, text string) (*model.AnalysisResult, error) {
	r := model.AnalysisResult{CaseID: c.ID, Kind: kind, Result: text, CreatedAt: s.now()}
	if err := s.mirror(c, "write analysis", func(repo Repository, ref Ref) error {
		return repo.WriteAnalysis(ref, r)
	}); err != nil {
		return nil, err
	}
	if err := s.UpdateCaseMetadata(c); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListAnalysisResults merges both layouts by kind, ordered by creation time.
func (s *Store) ListAnalysisResults(c *model.Case) ([]model.AnalysisResult, error) {
	ref := s.ref(c)
	seen := map[string]bool{}
	var out []model.AnalysisResult
	if s.primary.Exists(ref) {
		rs, err := s.primary.ReadAnalyses(ref)
		if err != nil {
			return nil, s.fail("read analyses", c, err)
		}
		for _, r := range rs {
			seen[r.Kind] = true
			out = append(out, *withCaseID(&r, c))
		}
	}
	if s.fallback != nil {
		rs, err := s.fallback.ReadAnalyses(ref)
		if err != nil {
			return nil, s.fail("read legacy analyses", c, err)
		}
		for _, r := range rs {
			if !seen[r.Kind] {
				out = append(out, *withCaseID(&r, c))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
