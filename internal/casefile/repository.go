// Package casefile persists cases, materials, analyses, parties and timeline
// events. Two on-disk layouts are supported: the human-readable layout keyed
// by case name and the legacy layout keyed by case id. Both implement
// Repository; Store composes them and owns the business rules.
package casefile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kokistudios/casebook/internal/model"
)

// Ref locates one case in both layouts. Dir is empty when the case has no
// human-readable directory.
type Ref struct {
	ID  string
	Dir string
}

// Entry is one case found while enumerating a layout. Case is nil when the
// directory exists but carries no readable metadata.
type Entry struct {
	Ref  Ref
	Name string
	Case *model.Case
}

// Repository is the I/O adapter for one on-disk layout. Read methods return
// an error wrapping fs.ErrNotExist when the requested entity is absent.
type Repository interface {
	Exists(ref Ref) bool
	Cases() ([]Entry, error)

	ReadCase(ref Ref) (*model.Case, error)
	WriteCase(ref Ref, c *model.Case) error

	ReadMaterials(ref Ref) ([]model.Material, error)
	WriteMaterial(ref Ref, m model.Material) error
	DeleteMaterial(ref Ref, id string) error

	ReadAnalysis(ref Ref, kind string) (*model.AnalysisResult, error)
	ReadAnalyses(ref Ref) ([]model.AnalysisResult, error)
	WriteAnalysis(ref Ref, r model.AnalysisResult) error

	ReadParties(ref Ref) ([]model.Party, error)
	WriteParty(ref Ref, p model.Party) error

	ReadTimeline(ref Ref) ([]model.TimelineEvent, error)
	WriteTimeline(ref Ref, c *model.Case, events []model.TimelineEvent) error
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// safeName turns a user-supplied name into a single path element.
func safeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", "\n", " ", "\r", " ")
	s := strings.TrimSpace(r.Replace(name))
	s = strings.Trim(s, ".")
	if s == "" {
		return "untitled"
	}
	return s
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func writeFile(path string, data []byte) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
