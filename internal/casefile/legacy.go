package casefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kokistudios/casebook/internal/model"
)

// Legacy stores cases under Root/<caseId>/ as JSON documents: a single
// metadata.json holding the case, its parties and its timeline, one file per
// material and one file per analysis kind.
type Legacy struct {
	Root string
}

type legacyMetadata struct {
	model.Case
	Parties  []model.Party         `json:"parties,omitempty"`
	Timeline []model.TimelineEvent `json:"timeline,omitempty"`
}

func (l *Legacy) dir(ref Ref) string {
	return filepath.Join(l.Root, safeName(ref.ID))
}

func (l *Legacy) Exists(ref Ref) bool {
	if ref.ID == "" {
		return false
	}
	info, err := os.Stat(l.dir(ref))
	return err == nil && info.IsDir()
}

func (l *Legacy) Cases() ([]Entry, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ref := Ref{ID: e.Name()}
		meta, err := l.readMeta(ref)
		if err != nil {
			continue
		}
		c := meta.Case
		ref.ID = c.ID
		out = append(out, Entry{Ref: ref, Name: c.Name, Case: &c})
	}
	return out, nil
}

func (l *Legacy) readMeta(ref Ref) (*legacyMetadata, error) {
	data, err := os.ReadFile(filepath.Join(l.dir(ref), "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta legacyMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("invalid metadata.json: %w", err)
	}
	return &meta, nil
}

// updateMeta applies fn to the stored metadata, creating it when absent.
func (l *Legacy) updateMeta(ref Ref, fn func(*legacyMetadata)) error {
	meta, err := l.readMeta(ref)
	if err != nil {
		if !isNotExist(err) {
			return err
		}
		meta = &legacyMetadata{Case: model.Case{ID: ref.ID}}
	}
	fn(meta)
	return writeJSON(filepath.Join(l.dir(ref), "metadata.json"), meta)
}

func (l *Legacy) ReadCase(ref Ref) (*model.Case, error) {
	meta, err := l.readMeta(ref)
	if err != nil {
		return nil, err
	}
	return &meta.Case, nil
}

func (l *Legacy) WriteCase(ref Ref, c *model.Case) error {
	return l.updateMeta(ref, func(m *legacyMetadata) { m.Case = *c })
}

func (l *Legacy) ReadMaterials(ref Ref) ([]model.Material, error) {
	var out []model.Material
	err := readJSONDir(filepath.Join(l.dir(ref), "materials"), func(data []byte) error {
		var m model.Material
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		m.Type = model.NormalizeMaterialType(string(m.Type))
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	model.SortMaterials(out)
	return out, nil
}

func (l *Legacy) WriteMaterial(ref Ref, m model.Material) error {
	return writeJSON(filepath.Join(l.dir(ref), "materials", safeName(m.ID)+".json"), m)
}

func (l *Legacy) DeleteMaterial(ref Ref, id string) error {
	err := os.Remove(filepath.Join(l.dir(ref), "materials", safeName(id)+".json"))
	if err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

func (l *Legacy) ReadAnalysis(ref Ref, kind string) (*model.AnalysisResult, error) {
	data, err := os.ReadFile(filepath.Join(l.dir(ref), "analyses", safeName(kind)+".json"))
	if err != nil {
		return nil, err
	}
	var r model.AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid analysis %s: %w", kind, err)
	}
	return &r, nil
}

func (l *Legacy) ReadAnalyses(ref Ref) ([]model.AnalysisResult, error) {
	var out []model.AnalysisResult
	err := readJSONDir(filepath.Join(l.dir(ref), "analyses"), func(data []byte) error {
		var r model.AnalysisResult
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (l *Legacy) WriteAnalysis(ref Ref, r model.AnalysisResult) error {
	return writeJSON(filepath.Join(l.dir(ref), "analyses", safeName(r.Kind)+".json"), r)
}

func (l *Legacy) ReadParties(ref Ref) ([]model.Party, error) {
	meta, err := l.readMeta(ref)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := append([]model.Party(nil), meta.Parties...)
	sortParties(out)
	return out, nil
}

func (l *Legacy) WriteParty(ref Ref, p model.Party) error {
	return l.updateMeta(ref, func(m *legacyMetadata) {
		for i := range m.Parties {
			if m.Parties[i].ID == p.ID {
				m.Parties[i] = p
				return
			}
		}
		m.Parties = append(m.Parties, p)
	})
}

func (l *Legacy) ReadTimeline(ref Ref) ([]model.TimelineEvent, error) {
	meta, err := l.readMeta(ref)
	if err != nil {
		return nil, err
	}
	out := append([]model.TimelineEvent(nil), meta.Timeline...)
	model.SortEvents(out)
	return out, nil
}

func (l *Legacy) WriteTimeline(ref Ref, _ *model.Case, events []model.TimelineEvent) error {
	return l.updateMeta(ref, func(m *legacyMetadata) {
		m.Timeline = append([]model.TimelineEvent(nil), events...)
	})
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, append(data, '\n'))
}

// readJSONDir calls fn for every *.json file in dir, in name order. A
// missing dir is empty.
func readJSONDir(dir string, fn func([]byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
	}
	return nil
}
