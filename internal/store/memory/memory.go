// Package memory implements the expense store in process memory. It is the
// default backend for local development and the double the service and HTTP
// tests run against.
package memory

import (
	"context"
	"sort"
	"sync"

	"expensed/internal/core"
	"expensed/internal/store"
)

type entry struct {
	exp core.Expense
	seq int64 // insertion order, tie-break behind created_at
}

// Store keeps expenses in insertion order behind a single mutex. The mutex
// is an implementation detail of this single-process backend, not part of
// the idempotency contract.
type Store struct {
	mu      sync.Mutex
	items   []entry
	nextSeq int64
}

func New() *Store {
	return &Store{}
}

var _ store.ExpenseStore = (*Store)(nil)

func (s *Store) CreateOrGet(_ context.Context, e core.Expense) (store.WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.IdempotencyKey != "" {
		for _, it := range s.items {
			if it.exp.IdempotencyKey == e.IdempotencyKey {
				return store.WriteOutcome{Expense: it.exp, Created: false}, nil
			}
		}
	}

	s.items = append(s.items, entry{exp: e, seq: s.nextSeq})
	s.nextSeq++
	return store.WriteOutcome{Expense: e, Created: true}, nil
}

func (s *Store) GetByID(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.exp.ID == id {
			return it.exp, nil
		}
	}
	return core.Expense{}, store.ErrNotFound
}

func (s *Store) GetByIdempotencyKey(_ context.Context, key string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.exp.IdempotencyKey != "" && it.exp.IdempotencyKey == key {
			return it.exp, nil
		}
	}
	return core.Expense{}, store.ErrNotFound
}

func (s *Store) Update(_ context.Context, id string, upd store.UpdateFields) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].exp.ID != id {
			continue
		}
		e := &s.items[i].exp
		if upd.AmountCents != nil {
			e.Amount = core.Money{Cents: *upd.AmountCents}
		}
		if upd.Category != nil {
			e.Category = *upd.Category
		}
		if upd.Description != nil {
			e.Description = *upd.Description
		}
		if upd.Date != nil {
			e.Date = *upd.Date
		}
		return *e, nil
	}
	return core.Expense{}, store.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].exp.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) List(_ context.Context, q store.ListQuery) (store.ListResult, error) {
	s.mu.Lock()
	matched := make([]entry, 0, len(s.items))
	for _, it := range s.items {
		if q.Category != nil && it.exp.Category != *q.Category {
			continue
		}
		matched = append(matched, it)
	}
	s.mu.Unlock()

	asc := q.Sort == store.SortDateAsc
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !asc {
			a, b = b, a
		}
		if a.exp.Date != b.exp.Date {
			return a.exp.Date < b.exp.Date
		}
		if !a.exp.CreatedAt.Equal(b.exp.CreatedAt) {
			return a.exp.CreatedAt.Before(b.exp.CreatedAt)
		}
		return a.seq < b.seq
	})

	total := len(matched)
	page := matched
	if q.Limit > 0 {
		start := (q.Page - 1) * q.Limit
		if start < 0 {
			start = 0
		}
		if start > total {
			start = total
		}
		end := start + q.Limit
		if end > total {
			end = total
		}
		page = matched[start:end]
	}

	items := make([]core.Expense, len(page))
	for i, it := range page {
		items[i] = it.exp
	}
	return store.ListResult{Items: items, Total: total}, nil
}

func (s *Store) MonthlyStats(_ context.Context) ([]store.MonthlyStat, error) {
	s.mu.Lock()
	byMonth := map[string]*store.MonthlyStat{}
	for _, it := range s.items {
		month := it.exp.Month()
		st, ok := byMonth[month]
		if !ok {
			st = &store.MonthlyStat{Month: month}
			byMonth[month] = st
		}
		st.TotalCents += it.exp.Amount.Cents
		st.Count++
	}
	s.mu.Unlock()

	stats := make([]store.MonthlyStat, 0, len(byMonth))
	for _, st := range byMonth {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Month > stats[j].Month })
	if len(stats) > 12 {
		stats = stats[:12]
	}
	return stats, nil
}

func (s *Store) CategoryStats(_ context.Context) ([]store.CategoryStat, error) {
	s.mu.Lock()
	byCat := map[string]*store.CategoryStat{}
	for _, it := range s.items {
		cat := string(it.exp.Category)
		st, ok := byCat[cat]
		if !ok {
			st = &store.CategoryStat{Category: cat}
			byCat[cat] = st
		}
		st.TotalCents += it.exp.Amount.Cents
		st.Count++
	}
	s.mu.Unlock()

	stats := make([]store.CategoryStat, 0, len(byCat))
	for _, st := range byCat {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalCents != stats[j].TotalCents {
			return stats[i].TotalCents > stats[j].TotalCents
		}
		return stats[i].Category < stats[j].Category
	})
	return stats, nil
}

func (s *Store) DistinctCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	seen := map[string]struct{}{}
	for _, it := range s.items {
		seen[string(it.exp.Category)] = struct{}{}
	}
	s.mu.Unlock()

	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, nil
}

func (s *Store) Close() error { return nil }
