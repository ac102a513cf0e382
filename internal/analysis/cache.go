// Package analysis memoizes analysis results per case and kind.
package analysis

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/engine"
	"github.com/kokistudios/casebook/internal/model"
)

// Store is the persistence the cache needs.
type Store interface {
	GetAnalysisResult(c *model.Case, kind string) (*model.AnalysisResult, error)
	SaveAnalysisResult(c *model.Case, kind, text string) (*model.AnalysisResult, error)
}

// Outcome is the text produced for a request. Cached reports a hit; Failed
// reports that Text is a placeholder written because the engine failed.
type Outcome struct {
	Text   string
	Cached bool
	Failed bool
}

// Cache returns stored analyses and computes missing ones through an engine.
// Entries are never invalidated.
type Cache struct {
	store  Store
	engine engine.Engine
	logger *log.Logger
}

func New(store Store, eng engine.Engine, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Cache{store: store, engine: eng, logger: logger}
}

// Engine returns the engine computing misses.
func (c *Cache) Engine() engine.Engine { return c.engine }

// GetOrCompute returns the stored result for (cs, kind). On a miss the
// engine is invoked with the materials in creation order and the result is
// persisted before it is returned. A cancelled context aborts the call and
// nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, cs *model.Case, kind string, materials []model.Material) (*Outcome, error) {
	r, err := c.store.GetAnalysisResult(cs, kind)
	if err == nil {
		c.logger.Debug("analysis cache hit", "case", cs.Name, "kind", kind)
		return &Outcome{Text: r.Result, Cached: true}, nil
	}
	if !apperr.Is(err, apperr.CodeNotFound) {
		return nil, err
	}
	if len(materials) == 0 {
		return nil, apperr.NoMaterials(cs.Name)
	}

	out, err := c.run(ctx, cs, kind, nil, materials)
	if err != nil {
		return nil, err
	}
	if out.Failed {
		return out, nil
	}
	saved, err := c.store.SaveAnalysisResult(cs, kind, out.Text)
	if err != nil {
		return nil, err
	}
	return &Outcome{Text: saved.Result}, nil
}

// Generate runs an uncached document generation request with the given
// prerequisite analyses as context.
func (c *Cache) Generate(ctx context.Context, cs *model.Case, docKind string, prerequisites []string, materials []model.Material) (*Outcome, error) {
	if len(materials) == 0 {
		return nil, apperr.NoMaterials(cs.Name)
	}
	return c.run(ctx, cs, docKind, prerequisites, materials)
}

func (c *Cache) run(ctx context.Context, cs *model.Case, kind string, prereq []string, materials []model.Material) (*Outcome, error) {
	req := engine.Request{
		CaseName:  cs.Name,
		Materials: MaterialTexts(materials),
		Category:  cs.Category,
		Kind:      kind,
		Context:   prereq,
	}
	c.logger.Info("invoking analysis engine", "engine", c.engine.Name(), "case", cs.Name, "kind", kind, "materials", len(materials))
	text, err := c.engine.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("analysis engine failed", "case", cs.Name, "kind", kind, "err", err)
		return &Outcome{Text: FailureReport(cs.Name, kind, apperr.Collaborator(err)), Failed: true}, nil
	}
	return &Outcome{Text: text}, nil
}

// MaterialTexts renders materials as engine input, oldest first.
func MaterialTexts(materials []model.Material) []string {
	sorted := append([]model.Material(nil), materials...)
	model.SortMaterials(sorted)
	out := make([]string, 0, len(sorted))
	for _, m := range sorted {
		out = append(out, fmt.Sprintf("【%s】\n%s", m.Name, m.Content))
	}
	return out
}

// FailureReport is the placeholder shown when the engine fails.
func FailureReport(caseName, kind string, err error) string {
	return fmt.Sprintf(`# %s %s

## 分析失败

分析引擎调用失败：%v

请稍后重试，或运行 casebook doctor 检查引擎配置。本次结果未保存，再次请求时将重新分析。
`, caseName, model.KindLabel(kind), err)
}
