// Package services orchestrates expense operations: the idempotent write
// path over the store's conditional insert, the query/aggregation reads,
// and optional event publishing after successful writes.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"expensed/internal/core"
	"expensed/internal/events"
	"expensed/internal/store"
)

// ErrUnknownCategory reports a listing filter outside the closed category set.
var ErrUnknownCategory = errors.New("unknown category")

// ExpenseService coordinates the store and the optional event publisher.
// now and newID are swappable for tests.
type ExpenseService struct {
	store  store.ExpenseStore
	events *events.Publisher
	now    func() time.Time
	newID  func() string
}

func NewExpenseService(st store.ExpenseStore, pub *events.Publisher) *ExpenseService {
	return &ExpenseService{
		store:  st,
		events: pub,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ExpenseView is the response shape of a single expense. Amount is in
// display units (major currency units, 2 decimals).
type ExpenseView struct {
	ID             string  `json:"id"`
	Amount         float64 `json:"amount"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Date           string  `json:"date"`
	CreatedAt      string  `json:"created_at"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// PaginatedExpenses is one page of a listing plus paging metadata.
type PaginatedExpenses struct {
	Expenses   []ExpenseView `json:"expenses"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

// MonthlyStatView aggregates one calendar month in display units.
type MonthlyStatView struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// CategoryStatView aggregates one category in display units.
type CategoryStatView struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// StatsView bundles both aggregate reports.
type StatsView struct {
	Monthly    []MonthlyStatView  `json:"monthly"`
	Categories []CategoryStatView `json:"categories"`
}

// ListParams carries the listing query after transport-level parsing.
// Limit 0 returns every matching record as a single page.
type ListParams struct {
	Category string
	Sort     string
	Page     int
	Limit    int
}

// Create runs the idempotent write path. When the input carries a key that
// already owns a record, the stored record is returned with created=false
// and nothing is written. Concurrent submissions of the same key converge
// on a single record: the store's conditional insert decides the winner,
// and losers re-read it.
func (s *ExpenseService) Create(ctx context.Context, in core.CreateExpenseInput) (ExpenseView, bool, error) {
	in = in.Normalize()

	// Fast path: a completed earlier request with this key short-circuits
	// before any candidate is built.
	if in.IdempotencyKey != "" {
		existing, err := s.store.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if err == nil {
			return toView(existing), false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return ExpenseView{}, false, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	candidate := core.Expense{
		ID:          s.newID(),
		Amount:      core.ToCents(in.Amount),
		Category:    core.Category(in.Category),
		Description: in.Description,
		Date:        in.Date,
		// Microsecond precision is the finest every backend's timestamp
		// column can reproduce on re-read.
		CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
		IdempotencyKey: in.IdempotencyKey,
	}

	out, err := s.store.CreateOrGet(ctx, candidate)
	if errors.Is(err, store.ErrDuplicateKey) {
		// Lost the insert race; the winner's record is the response.
		winner, rerr := s.store.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if rerr != nil {
			return ExpenseView{}, false, fmt.Errorf("re-read after duplicate key: %w", rerr)
		}
		return toView(winner), false, nil
	}
	if err != nil {
		return ExpenseView{}, false, fmt.Errorf("create expense: %w", err)
	}

	if out.Created {
		s.publishCreated(ctx, out.Expense.ID)
	}
	return toView(out.Expense), out.Created, nil
}

// Get returns a single expense by id.
func (s *ExpenseService) Get(ctx context.Context, id string) (ExpenseView, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return ExpenseView{}, err
	}
	return toView(e), nil
}

// List returns one page of expenses. The category filter is checked
// against the closed set before touching the store; an unknown sort value
// falls back to date descending.
func (s *ExpenseService) List(ctx context.Context, p ListParams) (PaginatedExpenses, error) {
	q := store.ListQuery{Sort: store.SortDateDesc}

	if p.Category != "" {
		cat, ok := core.ParseCategory(p.Category)
		if !ok {
			return PaginatedExpenses{}, fmt.Errorf("%w: %s", ErrUnknownCategory, p.Category)
		}
		q.Category = &cat
	}
	if store.SortOrder(p.Sort) == store.SortDateAsc {
		q.Sort = store.SortDateAsc
	}

	q.Page = p.Page
	if q.Page < 1 {
		q.Page = 1
	}
	q.Limit = p.Limit
	if q.Limit < 0 {
		q.Limit = 0
	}

	res, err := s.store.List(ctx, q)
	if err != nil {
		return PaginatedExpenses{}, fmt.Errorf("list expenses: %w", err)
	}

	page := PaginatedExpenses{
		Expenses: make([]ExpenseView, 0, len(res.Items)),
		Total:    res.Total,
		Page:     q.Page,
		Limit:    q.Limit,
	}
	for _, e := range res.Items {
		page.Expenses = append(page.Expenses, toView(e))
	}

	if q.Limit == 0 {
		// Everything in one page; report the effective limit.
		page.Page = 1
		page.Limit = res.Total
		page.TotalPages = 1
	} else {
		page.TotalPages = (res.Total + q.Limit - 1) / q.Limit
	}
	return page, nil
}

// Update applies a partial field replace and returns the updated expense.
func (s *ExpenseService) Update(ctx context.Context, id string, in core.UpdateExpenseInput) (ExpenseView, error) {
	in = in.Normalize()

	var upd store.UpdateFields
	if in.Amount != nil {
		cents := core.ToCents(*in.Amount).Cents
		upd.AmountCents = &cents
	}
	if in.Category != nil {
		cat := core.Category(*in.Category)
		upd.Category = &cat
	}
	upd.Description = in.Description
	upd.Date = in.Date

	e, err := s.store.Update(ctx, id, upd)
	if err != nil {
		return ExpenseView{}, err
	}
	return toView(e), nil
}

// Delete removes an expense and publishes the deletion event.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publishDeleted(ctx, id)
	return nil
}

// Stats returns the monthly and per-category aggregates.
func (s *ExpenseService) Stats(ctx context.Context) (StatsView, error) {
	monthly, err := s.store.MonthlyStats(ctx)
	if err != nil {
		return StatsView{}, fmt.Errorf("monthly stats: %w", err)
	}
	byCategory, err := s.store.CategoryStats(ctx)
	if err != nil {
		return StatsView{}, fmt.Errorf("category stats: %w", err)
	}

	view := StatsView{
		Monthly:    make([]MonthlyStatView, 0, len(monthly)),
		Categories: make([]CategoryStatView, 0, len(byCategory)),
	}
	for _, m := range monthly {
		view.Monthly = append(view.Monthly, MonthlyStatView{
			Month: m.Month,
			Total: core.Money{Cents: m.TotalCents}.Amount(),
			Count: m.Count,
		})
	}
	for _, c := range byCategory {
		view.Categories = append(view.Categories, CategoryStatView{
			Category: c.Category,
			Total:    core.Money{Cents: c.TotalCents}.Amount(),
			Count:    c.Count,
		})
	}
	return view, nil
}

// Categories returns the closed category set.
func (s *ExpenseService) Categories() []string {
	return core.CategoryNames()
}

// UsedCategories returns the categories that appear in stored expenses.
func (s *ExpenseService) UsedCategories(ctx context.Context) ([]string, error) {
	return s.store.DistinctCategories(ctx)
}

func (s *ExpenseService) publishCreated(ctx context.Context, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseCreated(ctx, id); err != nil {
		// The write already succeeded; the event is best-effort.
		slog.ErrorContext(ctx, "Failed to publish created event", "id", id, "error", err)
	}
}

func (s *ExpenseService) publishDeleted(ctx context.Context, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseDeleted(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish deleted event", "id", id, "error", err)
	}
}

// Close closes the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}
	return nil
}

func toView(e core.Expense) ExpenseView {
	return ExpenseView{
		ID:             e.ID,
		Amount:         e.Amount.Amount(),
		Category:       string(e.Category),
		Description:    e.Description,
		Date:           e.Date,
		CreatedAt:      e.CreatedAt.UTC().Format(core.CreatedAtLayout),
		IdempotencyKey: e.IdempotencyKey,
	}
}
