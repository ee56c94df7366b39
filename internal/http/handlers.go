package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"expensed/internal/core"
	applog "expensed/internal/log"
	"expensed/internal/services"
	"expensed/internal/store"
)

const maxBodyBytes = 1 << 20

// decodeBody decodes the request body into an untyped value, preserving
// number literals as json.Number so amounts keep their decimal-string form.
func decodeBody(r *http.Request) (any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		writeValidationError(w, []string{"request body must be valid JSON"})
		return
	}

	in, res := core.ParseCreateInput(raw)
	if !res.Valid {
		writeValidationError(w, res.Errors)
		return
	}

	view, created, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense write handled",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithExpense(view.ID, view.Category, core.ToCents(view.Amount).Cents).
			ToSlice()...)
	writeJSON(w, status, view)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	params, errs := parseListParams(r)
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	page, err := s.svc.List(r.Context(), params)
	if err != nil {
		if errors.Is(err, services.ErrUnknownCategory) {
			writeValidationError(w, []string{fmt.Sprintf("category must be one of: %s",
				strings.Join(s.svc.Categories(), ", "))})
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		writeValidationError(w, []string{"request body must be valid JSON"})
		return
	}

	in, res := core.ParseUpdateInput(raw)
	if !res.Valid {
		writeValidationError(w, res.Errors)
		return
	}

	view, err := s.svc.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeInternalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCategories returns the closed category set, or with used=true only
// the categories that appear in stored expenses.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.svc.Categories()
	if r.URL.Query().Get("used") == "true" {
		used, err := s.svc.UsedCategories(r.Context())
		if err != nil {
			writeInternalError(w, r, err)
			return
		}
		if used == nil {
			used = []string{}
		}
		cats = used
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

// parseListParams reads the listing query. Missing page and limit mean no
// pagination; explicit values must be non-negative integers.
func parseListParams(r *http.Request) (services.ListParams, []string) {
	q := r.URL.Query()
	params := services.ListParams{
		Category: strings.TrimSpace(q.Get("category")),
		Sort:     strings.TrimSpace(q.Get("sort")),
	}

	var errs []string
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			errs = append(errs, "page must be a positive integer")
		} else {
			params.Page = page
		}
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			errs = append(errs, "limit must be a non-negative integer")
		} else {
			params.Limit = limit
		}
	}
	if v := params.Sort; v != "" && v != string(store.SortDateAsc) && v != string(store.SortDateDesc) {
		errs = append(errs, "sort must be one of: date_asc, date_desc")
	}
	return params, errs
}
