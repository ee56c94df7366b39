package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"expensed/internal/core"
	"expensed/internal/store"
)

func expense(id, date string, cents int64, cat core.Category, createdAt time.Time) core.Expense {
	return core.Expense{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		Category:    cat,
		Description: "d-" + id,
		Date:        date,
		CreatedAt:   createdAt,
	}
}

func TestCreateOrGetIdempotencyKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	first := expense("a", "2024-01-10", 100, core.CategoryFood, now)
	first.IdempotencyKey = "K"
	out, err := s.CreateOrGet(ctx, first)
	if err != nil || !out.Created {
		t.Fatalf("first write: created=%v err=%v", out.Created, err)
	}

	second := expense("b", "2024-01-11", 200, core.CategoryBills, now.Add(time.Second))
	second.IdempotencyKey = "K"
	out, err = s.CreateOrGet(ctx, second)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if out.Created || out.Expense.ID != "a" {
		t.Fatalf("expected existing record a, got created=%v id=%s", out.Created, out.Expense.ID)
	}

	// Keyless writes never collide.
	for i := 0; i < 3; i++ {
		e := expense(fmt.Sprintf("k%d", i), "2024-01-12", 50, core.CategoryOther, now)
		if out, err := s.CreateOrGet(ctx, e); err != nil || !out.Created {
			t.Fatalf("keyless write %d: created=%v err=%v", i, out.Created, err)
		}
	}
}

func TestListSortAndPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// Two records share a date; creation time must break the tie.
	dates := []string{"2024-01-20", "2024-01-10", "2024-02-05", "2024-01-20"}
	for i, d := range dates {
		e := expense(fmt.Sprintf("e%d", i), d, int64(100*(i+1)), core.CategoryFood, base.Add(time.Duration(i)*time.Minute))
		if _, err := s.CreateOrGet(ctx, e); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	res, err := s.List(ctx, store.ListQuery{Sort: store.SortDateAsc})
	if err != nil {
		t.Fatalf("list asc: %v", err)
	}
	gotIDs := ids(res.Items)
	wantAsc := []string{"e1", "e0", "e3", "e2"}
	if fmt.Sprint(gotIDs) != fmt.Sprint(wantAsc) {
		t.Fatalf("asc order = %v, want %v", gotIDs, wantAsc)
	}

	res, err = s.List(ctx, store.ListQuery{Sort: store.SortDateDesc})
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	gotIDs = ids(res.Items)
	wantDesc := []string{"e2", "e3", "e0", "e1"}
	if fmt.Sprint(gotIDs) != fmt.Sprint(wantDesc) {
		t.Fatalf("desc order = %v, want %v", gotIDs, wantDesc)
	}

	// Pagination over the ascending order.
	res, err = s.List(ctx, store.ListQuery{Sort: store.SortDateAsc, Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if res.Total != 4 || len(res.Items) != 2 {
		t.Fatalf("page 2: total=%d len=%d", res.Total, len(res.Items))
	}
	if res.Items[0].ID != "e3" || res.Items[1].ID != "e2" {
		t.Fatalf("page 2 items = %v", ids(res.Items))
	}

	// Limit 0 returns everything.
	res, err = s.List(ctx, store.ListQuery{Sort: store.SortDateDesc, Limit: 0})
	if err != nil || len(res.Items) != 4 || res.Total != 4 {
		t.Fatalf("limit 0: len=%d total=%d err=%v", len(res.Items), res.Total, err)
	}
}

func TestListCategoryFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	s.CreateOrGet(ctx, expense("f1", "2024-01-01", 100, core.CategoryFood, now))
	s.CreateOrGet(ctx, expense("t1", "2024-01-02", 200, core.CategoryTransport, now))
	s.CreateOrGet(ctx, expense("f2", "2024-01-03", 300, core.CategoryFood, now))

	food := core.CategoryFood
	res, err := s.List(ctx, store.ListQuery{Category: &food, Sort: store.SortDateAsc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 2 || len(res.Items) != 2 {
		t.Fatalf("expected 2 food records, got total=%d len=%d", res.Total, len(res.Items))
	}
	for _, e := range res.Items {
		if e.Category != core.CategoryFood {
			t.Fatalf("non-food record %s in filtered list", e.ID)
		}
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.CreateOrGet(ctx, expense("u1", "2024-01-01", 100, core.CategoryFood, time.Now().UTC()))

	cents := int64(250)
	cat := core.CategoryBills
	got, err := s.Update(ctx, "u1", store.UpdateFields{AmountCents: &cents, Category: &cat})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Amount.Cents != 250 || got.Category != core.CategoryBills || got.Description != "d-u1" {
		t.Fatalf("unexpected update result: %+v", got)
	}

	if _, err := s.Update(ctx, "missing", store.UpdateFields{AmountCents: &cents}); err != store.ErrNotFound {
		t.Fatalf("update missing: err=%v", err)
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "u1"); err != store.ErrNotFound {
		t.Fatalf("double delete: err=%v", err)
	}
}

func TestMonthlyStats(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	s.CreateOrGet(ctx, expense("m1", "2024-01-10", 1000, core.CategoryFood, now))
	s.CreateOrGet(ctx, expense("m2", "2024-01-20", 500, core.CategoryBills, now))
	s.CreateOrGet(ctx, expense("m3", "2024-02-05", 700, core.CategoryFood, now))

	stats, err := s.MonthlyStats(ctx)
	if err != nil {
		t.Fatalf("monthly stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(stats))
	}
	if stats[0].Month != "2024-02" || stats[0].TotalCents != 700 || stats[0].Count != 1 {
		t.Fatalf("unexpected first group: %+v", stats[0])
	}
	if stats[1].Month != "2024-01" || stats[1].TotalCents != 1500 || stats[1].Count != 2 {
		t.Fatalf("unexpected second group: %+v", stats[1])
	}
}

func TestCategoryStatsAndDistinct(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	s.CreateOrGet(ctx, expense("c1", "2024-01-10", 100, core.CategoryTransport, now))
	s.CreateOrGet(ctx, expense("c2", "2024-01-11", 900, core.CategoryFood, now))
	s.CreateOrGet(ctx, expense("c3", "2024-01-12", 400, core.CategoryTransport, now))

	stats, err := s.CategoryStats(ctx)
	if err != nil {
		t.Fatalf("category stats: %v", err)
	}
	// Ordered by summed amount, not alphabetically.
	if len(stats) != 2 || stats[0].Category != "Food" || stats[1].Category != "Transport" {
		t.Fatalf("unexpected order: %+v", stats)
	}
	if stats[1].TotalCents != 500 || stats[1].Count != 2 {
		t.Fatalf("unexpected transport group: %+v", stats[1])
	}

	cats, err := s.DistinctCategories(ctx)
	if err != nil {
		t.Fatalf("distinct: %v", err)
	}
	if fmt.Sprint(cats) != fmt.Sprint([]string{"Food", "Transport"}) {
		t.Fatalf("distinct = %v", cats)
	}
}

func ids(items []core.Expense) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}
