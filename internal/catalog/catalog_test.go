package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/casefile"
	"github.com/kokistudios/casebook/internal/model"
	"github.com/kokistudios/casebook/internal/store"
)

var _ casefile.NameIndex = (*Catalog)(nil)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleCase(id, name string, cat model.Category, updated time.Time) model.Case {
	return model.Case{
		ID: id, Name: name, Category: cat, Status: model.StatusActive,
		CreatedAt: updated, UpdatedAt: updated,
	}
}

func TestUpsertAndByName(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)
	now := time.Now()

	cs := sampleCase("CASE-1", "合同纠纷", model.CategoryCivil, now)
	if err := c.Upsert(cs); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	cs.MaterialCount = 3
	if err := c.Upsert(cs); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := c.ByName(ctx, "合同纠纷")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if got.ID != "CASE-1" || got.MaterialCount != 3 {
		t.Errorf("got %+v", got)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
	}

	if _, err := c.ByName(ctx, "不存在"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Upsert(sampleCase("A", "张三借款", model.CategoryCivil, base))
	c.Upsert(sampleCase("B", "李四盗窃", model.CategoryCriminal, base.Add(time.Hour)))
	c.Upsert(sampleCase("C", "张三离婚", model.CategoryCivil, base.Add(2*time.Hour)))

	all, err := c.List(ctx, ListParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "C" {
		t.Errorf("expected newest first, got %+v", all)
	}

	civil, _ := c.List(ctx, ListParams{Category: model.CategoryCivil})
	if len(civil) != 2 {
		t.Errorf("category filter: got %d, want 2", len(civil))
	}

	zhang, _ := c.List(ctx, ListParams{Query: "张三", Limit: 1})
	if len(zhang) != 1 || zhang[0].ID != "C" {
		t.Errorf("query filter: got %+v", zhang)
	}

	counts, err := c.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.CategoryCivil] != 2 || counts[model.CategoryCriminal] != 1 {
		t.Errorf("Counts = %v", counts)
	}
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)
	now := time.Now()
	c.Upsert(sampleCase("STALE", "已删除", model.CategoryCivil, now))

	n, err := c.Rebuild(ctx, []model.Case{
		sampleCase("A", "甲", model.CategoryCivil, now),
		sampleCase("B", "乙", model.CategoryAdministrative, now),
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 2 {
		t.Errorf("rebuilt %d, want 2", n)
	}
	all, _ := c.List(ctx, ListParams{})
	if len(all) != 2 {
		t.Errorf("expected stale rows removed, got %d rows", len(all))
	}
}

func TestCreateCase_CatalogNameTaken(t *testing.T) {
	cat := newTestCatalog(t)
	home := filepath.Join(t.TempDir(), ".casebook")
	if err := store.Init(home, false); err != nil {
		t.Fatal(err)
	}
	st, err := store.Load(home)
	if err != nil {
		t.Fatal(err)
	}
	st.Config.Legacy.Enabled = false
	cs := casefile.Open(st, casefile.WithIndexer(cat))

	c, err := cs.CreateCase("张三借款纠纷", model.CategoryCivil, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(cs.Dir(c)); err != nil {
		t.Fatal(err)
	}
	if _, err := cs.CreateCase("张三借款纠纷", model.CategoryCivil, ""); !apperr.Is(err, apperr.CodeValidation) {
		t.Errorf("expected VALIDATION while the catalog still holds the name, got %v", err)
	}
}
