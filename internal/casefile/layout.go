package casefile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/casebook/internal/model"
	"github.com/kokistudios/casebook/internal/resolver"
)

// Directory and file names of the human-readable layout.
const (
	MaterialsDir  = "案件材料"
	AnalysesDir   = "分析结果"
	PartiesDir    = "当事人"
	TimelineDir   = "时间线"
	SidecarFile   = "case.yaml"
	ReadmeFile    = "README.md"
	EventsFile    = "events.yaml"
	TimelineFile  = "时间线.md"
	PartiesFile   = "当事人.md"
	stampLayout   = "20060102150405"
	filePrefixRef = "file:"
)

// Layout stores cases under Root/<prefix><name>/.
type Layout struct {
	Root     string
	Prefix   string
	Reserved []string
}

func (l *Layout) resolverOpts() []resolver.Option {
	return []resolver.Option{resolver.WithPrefix(l.Prefix), resolver.WithReserved(l.Reserved...)}
}

func (l *Layout) Exists(ref Ref) bool {
	if ref.Dir == "" {
		return false
	}
	info, err := os.Stat(ref.Dir)
	return err == nil && info.IsDir()
}

func (l *Layout) Cases() ([]Entry, error) {
	dirs, err := resolver.CaseDirs(l.Root, l.resolverOpts()...)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Entry, 0, len(dirs))
	for _, d := range dirs {
		e := Entry{Ref: Ref{Dir: d.Path}, Name: d.Name}
		if c, err := l.ReadCase(e.Ref); err == nil {
			e.Case = c
			e.Ref.ID = c.ID
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *Layout) ReadCase(ref Ref) (*model.Case, error) {
	data, err := os.ReadFile(filepath.Join(ref.Dir, SidecarFile))
	if err != nil {
		return nil, err
	}
	var c model.Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", SidecarFile, err)
	}
	return &c, nil
}

func (l *Layout) WriteCase(ref Ref, c *model.Case) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal case: %w", err)
	}
	if err := writeFile(filepath.Join(ref.Dir, SidecarFile), data); err != nil {
		return err
	}
	return l.refreshReadme(ref, c)
}

// refreshReadme replaces the generated summary block of README.md, leaving
// the rest of the file alone.
func (l *Layout) refreshReadme(ref Ref, c *model.Case) error {
	path := filepath.Join(ref.Dir, ReadmeFile)
	data, err := os.ReadFile(path)
	if err != nil && !isNotExist(err) {
		return err
	}
	content := string(data)
	if content == "" {
		content = "# " + c.Name + "\n"
	}
	return os.WriteFile(path, []byte(replaceSummary(content, renderSummary(c))), 0644)
}

// ReadmeCaseID extracts the case number a template-derived README carries.
func ReadmeCaseID(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ReadmeFile))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		for _, key := range []string{"案件编号：", "案件编号:"} {
			if strings.HasPrefix(line, key) {
				return strings.TrimSpace(strings.TrimPrefix(line, key))
			}
		}
	}
	return ""
}

// --- materials ---

func (l *Layout) ReadMaterials(ref Ref) ([]model.Material, error) {
	root := filepath.Join(ref.Dir, MaterialsDir)
	var out []model.Material
	err := walkLabelled(root, func(label, path string) error {
		m, err := readMaterialFile(root, label, path)
		if err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	model.SortMaterials(out)
	return out, nil
}

// readMaterialFile decodes a material document. Files without frontmatter
// were dropped into the folder by hand and become materials keyed by their
// relative path.
func readMaterialFile(root, label, path string) (model.Material, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Material{}, err
	}
	var m model.Material
	body, ok, perr := parseDocument(data, &m)
	if perr == nil && ok && m.ID != "" {
		m.Content = body
		m.Type = model.NormalizeMaterialType(string(m.Type))
		return m, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Material{}, err
	}
	rel, _ := filepath.Rel(root, path)
	typ := model.MaterialOther
	if t, ok := model.MaterialTypeFromLabel(label); ok {
		typ = t
	}
	base := filepath.Base(path)
	return model.Material{
		ID:        filePrefixRef + filepath.ToSlash(rel),
		Name:      strings.TrimSuffix(base, filepath.Ext(base)),
		Content:   string(data),
		Type:      typ,
		CreatedAt: info.ModTime(),
	}, nil
}

func (l *Layout) WriteMaterial(ref Ref, m model.Material) error {
	if err := l.DeleteMaterial(ref, m.ID); err != nil {
		return err
	}
	dir := filepath.Join(ref.Dir, MaterialsDir, m.Type.Label())
	path := freePath(dir, m.Name, m.ID)
	data, err := renderDocument(m, m.Content)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func (l *Layout) DeleteMaterial(ref Ref, id string) error {
	root := filepath.Join(ref.Dir, MaterialsDir)
	if rel, ok := strings.CutPrefix(id, filePrefixRef); ok {
		err := os.Remove(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil && !isNotExist(err) {
			return err
		}
		return nil
	}
	return walkLabelled(root, func(label, path string) error {
		m, err := readMaterialFile(root, label, path)
		if err != nil || m.ID != id {
			return err
		}
		return os.Remove(path)
	})
}

// --- analyses ---

func (l *Layout) ReadAnalysis(ref Ref, kind string) (*model.AnalysisResult, error) {
	label := model.KindLabel(kind)
	dir := filepath.Join(ref.Dir, AnalysesDir, label)
	var files []string
	entries, err := os.ReadDir(dir)
	if err != nil && !isNotExist(err) {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	// Reports written straight into the analyses root, named <label>-<stamp>.md.
	rootEntries, _ := os.ReadDir(filepath.Join(ref.Dir, AnalysesDir))
	for _, e := range rootEntries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), label+"-") {
			files = append(files, filepath.Join(ref.Dir, AnalysesDir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("analysis %s: %w", kind, os.ErrNotExist)
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return readAnalysisFile(files[len(files)-1], kind)
}

func readAnalysisFile(path, kind string) (*model.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r model.AnalysisResult
	body, ok, perr := parseDocument(data, &r)
	if perr == nil && ok {
		r.Result = body
		if r.Kind == "" {
			r.Kind = kind
		}
		return &r, nil
	}
	r = model.AnalysisResult{Kind: kind, Result: string(data)}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(base, "-"); i >= 0 {
		if t, err := time.ParseInLocation(stampLayout, base[i+1:], time.Local); err == nil {
			r.CreatedAt = t
		}
	}
	if r.CreatedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			r.CreatedAt = info.ModTime()
		}
	}
	return &r, nil
}

func (l *Layout) ReadAnalyses(ref Ref) ([]model.AnalysisResult, error) {
	entries, err := os.ReadDir(filepath.Join(ref.Dir, AnalysesDir))
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var labels []string
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() {
			// <label>-<stamp>.md saved in the analyses root.
			base := strings.TrimSuffix(name, filepath.Ext(name))
			i := strings.LastIndex(base, "-")
			if i <= 0 {
				continue
			}
			name = base[:i]
		}
		if !seen[name] {
			seen[name] = true
			labels = append(labels, name)
		}
	}
	var out []model.AnalysisResult
	for _, label := range labels {
		kind, ok := model.LookupKind(label)
		if !ok {
			kind = label
		}
		r, err := l.ReadAnalysis(ref, kind)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (l *Layout) WriteAnalysis(ref Ref, r model.AnalysisResult) error {
	label := model.KindLabel(r.Kind)
	name := label + "-" + r.CreatedAt.Format(stampLayout) + ".md"
	data, err := renderDocument(r, r.Result)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(ref.Dir, AnalysesDir, label, name), data)
}

// --- parties ---

func (l *Layout) ReadParties(ref Ref) ([]model.Party, error) {
	root := filepath.Join(ref.Dir, PartiesDir)
	var out []model.Party
	err := walkLabelled(root, func(label, path string) error {
		if label == "" {
			return nil // rendered summary
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var p model.Party
		body, ok, perr := parseDocument(data, &p)
		if perr != nil || !ok || p.ID == "" {
			role, known := model.LookupRole(label)
			if !known {
				role = model.RoleOther
			}
			base := filepath.Base(path)
			rel, _ := filepath.Rel(root, path)
			p = model.Party{
				ID:   filePrefixRef + filepath.ToSlash(rel),
				Name: strings.TrimSuffix(base, filepath.Ext(base)),
				Role: role,
			}
			if info, err := os.Stat(path); err == nil {
				p.CreatedAt = info.ModTime()
			}
			body = string(data)
		}
		p.Info = body
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortParties(out)
	return out, nil
}

func (l *Layout) WriteParty(ref Ref, p model.Party) error {
	dir := filepath.Join(ref.Dir, PartiesDir, model.RoleLabel(p.Role))
	data, err := renderDocument(p, p.Info)
	if err != nil {
		return err
	}
	if err := writeFile(freePath(dir, p.Name, p.ID), data); err != nil {
		return err
	}
	parties, err := l.ReadParties(ref)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(ref.Dir, PartiesDir, PartiesFile), []byte(RenderParties(parties)))
}

// --- timeline ---

func (l *Layout) ReadTimeline(ref Ref) ([]model.TimelineEvent, error) {
	data, err := os.ReadFile(filepath.Join(ref.Dir, TimelineDir, EventsFile))
	if err != nil {
		return nil, err
	}
	var events []model.TimelineEvent
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EventsFile, err)
	}
	model.SortEvents(events)
	return events, nil
}

func (l *Layout) WriteTimeline(ref Ref, c *model.Case, events []model.TimelineEvent) error {
	data, err := yaml.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}
	if err := writeFile(filepath.Join(ref.Dir, TimelineDir, EventsFile), data); err != nil {
		return err
	}
	return writeFile(filepath.Join(ref.Dir, TimelineDir, TimelineFile), []byte(RenderTimeline(c.Name, events)))
}

// walkLabelled visits regular files one level below root (label is the
// folder name) and files directly in root (label is empty). A missing root
// is not an error.
func walkLabelled(root string, fn func(label, path string) error) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() {
			if err := fn("", filepath.Join(root, name)); err != nil {
				return err
			}
			continue
		}
		sub, err := os.ReadDir(filepath.Join(root, name))
		if err != nil {
			return err
		}
		for _, f := range sub {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			if err := fn(name, filepath.Join(root, name, f.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// freePath picks <dir>/<name>.md, or a name carrying an id suffix when that
// file already belongs to another entity.
func freePath(dir, name, id string) string {
	base := safeName(name)
	path := filepath.Join(dir, base+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return path
	}
	var meta struct {
		ID string `yaml:"id"`
	}
	if _, ok, _ := parseDocument(data, &meta); ok && meta.ID == id {
		return path
	}
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return filepath.Join(dir, base+"-"+safeName(suffix)+".md")
}

func sortParties(ps []model.Party) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}
