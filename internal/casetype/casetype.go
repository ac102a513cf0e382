// Package casetype maps case categories to the analyses, documents and party
// roles they support. A single Handler serves every category; what differs
// is the Profile it is built from.
package casetype

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kokistudios/casebook/internal/analysis"
	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/model"
)

// Store is the entity access the handlers need.
type Store interface {
	ListMaterials(c *model.Case) ([]model.Material, error)
	AddMaterial(c *model.Case, name, content string, typ model.MaterialType) (*model.Material, error)
}

// Registry resolves a case to the handler for its category.
type Registry struct {
	profiles map[model.Category]*Profile
	store    Store
	cache    *analysis.Cache
	now      func() time.Time
}

func NewRegistry(store Store, cache *analysis.Cache) *Registry {
	r := &Registry{
		profiles: make(map[model.Category]*Profile),
		store:    store,
		cache:    cache,
		now:      time.Now,
	}
	for _, p := range Profiles() {
		r.profiles[p.Category] = &p
	}
	return r
}

// Profile returns the configuration record for a category.
func (r *Registry) Profile(cat model.Category) (*Profile, bool) {
	p, ok := r.profiles[cat]
	return p, ok
}

// For returns the handler for the case's category.
func (r *Registry) For(c *model.Case) (*Handler, error) {
	p, ok := r.profiles[c.Category]
	if !ok {
		return nil, apperr.Validation("无效的案件类型: %s", c.Category).
			WithHint("可选类型: 民商事, 刑事, 行政, 非诉")
	}
	return &Handler{profile: p, store: r.store, cache: r.cache, now: r.now}, nil
}

// Handler implements the case-type capabilities for one profile.
type Handler struct {
	profile *Profile
	store   Store
	cache   *analysis.Cache
	now     func() time.Time
}

func (h *Handler) Profile() *Profile { return h.profile }

// ValidKinds returns the analysis kinds available for the case, in
// display order. Non-litigation cases branch on their business type.
func (h *Handler) ValidKinds(c *model.Case) []string {
	if h.profile.BusinessKinds != nil {
		if kinds, ok := h.profile.BusinessKinds[c.BusinessType]; ok {
			return kinds
		}
		return h.profile.BusinessKinds[model.BusinessUnspecified]
	}
	return h.profile.Kinds
}

// DefaultKind is the kind analyzed when none is requested.
func (h *Handler) DefaultKind(c *model.Case) string {
	return h.ValidKinds(c)[0]
}

// ResolveKind accepts a kind id or label and checks it against the case.
// An empty kind selects the default.
func (h *Handler) ResolveKind(c *model.Case, kind string) (string, error) {
	if strings.TrimSpace(kind) == "" {
		return h.DefaultKind(c), nil
	}
	id, ok := model.LookupKind(kind)
	if ok {
		for _, k := range h.ValidKinds(c) {
			if k == id {
				return id, nil
			}
		}
	}
	return "", apperr.Validation("%s案件不支持分析类型: %s", c.Category.Label(), kind).
		WithHint("可选分析类型: " + labels(h.ValidKinds(c)))
}

// Analyze returns the memoized analysis of the given kind.
func (h *Handler) Analyze(ctx context.Context, c *model.Case, kind string) (*analysis.Outcome, error) {
	id, err := h.ResolveKind(c, kind)
	if err != nil {
		return nil, err
	}
	materials, err := h.store.ListMaterials(c)
	if err != nil {
		return nil, err
	}
	return h.cache.GetOrCompute(ctx, c, id, materials)
}

// Documents returns the recipes available for the category.
func (h *Handler) Documents() []Recipe { return h.profile.Documents }

// Recipe looks a document up by kind id or label.
func (h *Handler) Recipe(doc string) (Recipe, error) {
	doc = strings.TrimSpace(doc)
	for _, r := range h.profile.Documents {
		if doc == r.Kind || doc == r.Label() || strings.EqualFold(doc, r.Kind) {
			return r, nil
		}
	}
	names := make([]string, 0, len(h.profile.Documents))
	for _, r := range h.profile.Documents {
		names = append(names, r.Label())
	}
	return Recipe{}, apperr.Validation("%s案件无法起草: %s", h.profile.Category.Label(), doc).
		WithHint("可起草文书: " + strings.Join(names, ", "))
}

// Prerequisites returns the analyses a recipe needs for this case.
func (h *Handler) Prerequisites(c *model.Case, r Recipe) []string {
	if len(r.Prerequisites) > 0 {
		return r.Prerequisites
	}
	valid := h.ValidKinds(c)
	out := []string{valid[0]}
	for _, k := range valid[1:] {
		if k == model.KindRiskAssessment {
			out = append(out, k)
		}
	}
	return out
}

// Document is the outcome of a drafting request. Material is nil when the
// draft was not stored because an analysis step failed.
type Document struct {
	Recipe   Recipe
	Text     string
	Failed   bool
	Material *model.Material
}

// GenerateDocument computes the recipe's prerequisite analyses, drafts the
// document from them and the case materials, and stores the draft as a new
// material.
func (h *Handler) GenerateDocument(ctx context.Context, c *model.Case, doc string) (*Document, error) {
	r, err := h.Recipe(doc)
	if err != nil {
		return nil, err
	}
	materials, err := h.store.ListMaterials(c)
	if err != nil {
		return nil, err
	}
	if len(materials) == 0 {
		return nil, apperr.NoMaterials(c.Name)
	}

	var prereq []string
	for _, kind := range h.Prerequisites(c, r) {
		out, err := h.cache.GetOrCompute(ctx, c, kind, materials)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", model.KindLabel(kind), err)
		}
		if out.Failed {
			return &Document{Recipe: r, Text: out.Text, Failed: true}, nil
		}
		prereq = append(prereq, out.Text)
	}

	out, err := h.cache.Generate(ctx, c, r.Kind, prereq, materials)
	if err != nil {
		return nil, err
	}
	if out.Failed {
		return &Document{Recipe: r, Text: out.Text, Failed: true}, nil
	}
	name := fmt.Sprintf("%s-%s", r.Label(), h.now().Format("20060102150405"))
	m, err := h.store.AddMaterial(c, name, out.Text, r.Store)
	if err != nil {
		return nil, err
	}
	return &Document{Recipe: r, Text: out.Text, Material: m}, nil
}

// Roles returns the role vocabulary of the category.
func (h *Handler) Roles() []Role { return h.profile.Roles }

// ValidateRole accepts a role id or label admitted by the category and
// returns the role id.
func (h *Handler) ValidateRole(role string) (string, error) {
	if strings.TrimSpace(role) == "" {
		return h.profile.Roles[0].ID, nil
	}
	if id, ok := model.LookupRole(role); ok {
		for _, r := range h.profile.Roles {
			if r.ID == id {
				return id, nil
			}
		}
	}
	names := make([]string, 0, len(h.profile.Roles))
	for _, r := range h.profile.Roles {
		names = append(names, model.RoleLabel(r.ID))
	}
	return "", apperr.Validation("%s案件不支持当事人角色: %s", h.profile.Category.Label(), role).
		WithHint("可选角色: " + strings.Join(names, ", "))
}

// Side buckets a role. Roles outside the vocabulary count as other.
func (h *Handler) Side(role string) model.Side {
	for _, r := range h.profile.Roles {
		if r.ID == role {
			return r.Side
		}
	}
	return model.SideOther
}

func labels(kinds []string) string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, model.KindLabel(k))
	}
	return strings.Join(out, ", ")
}
