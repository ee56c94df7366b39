package core

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxDescriptionLen is the limit on the raw, untrimmed description.
	MaxDescriptionLen = 500
	// MaxIdempotencyKeyLen is the limit on a client-supplied idempotency key.
	MaxIdempotencyKeyLen = 100
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidationResult carries the outcome of a single validation pass: every
// violated rule appends one message, so callers see all problems at once.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func (r *ValidationResult) add(msg string) {
	r.Errors = append(r.Errors, msg)
}

// ParseCreateInput validates an untyped request body and, when every rule
// passes, returns the typed input. The body must have been decoded with
// json.Number enabled so the amount keeps its decimal-string form; the
// two-decimal-place rule is checked on that form, not on a float.
//
// The input is returned unnormalized; callers run Normalize before use.
// ParseCreateInput never panics and never stops at the first field error —
// only a non-object body short-circuits.
func ParseCreateInput(raw any) (CreateExpenseInput, ValidationResult) {
	var res ValidationResult

	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		res.add("request body must be a JSON object")
		return CreateExpenseInput{}, res
	}

	var in CreateExpenseInput
	validateAmount(obj, &in, &res)
	validateCategory(obj, &in, &res)
	validateDescription(obj, &in, &res)
	validateDate(obj, &in, &res)
	validateIdempotencyKey(obj, &in, &res)

	res.Valid = len(res.Errors) == 0
	if !res.Valid {
		return CreateExpenseInput{}, res
	}
	return in, res
}

func validateAmount(obj map[string]any, in *CreateExpenseInput, res *ValidationResult) {
	v, present := obj["amount"]
	if !present || v == nil {
		res.add("amount is required")
		return
	}

	f, dec, ok := numericValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		res.add("amount must be a number")
		return
	}
	if f <= 0 {
		res.add("amount must be greater than 0")
	}
	if f > MaxAmount {
		res.add(fmt.Sprintf("amount must not exceed %d", MaxAmount))
	}
	if !atMostTwoDecimals(dec, f) {
		res.add("amount must have at most 2 decimal places")
	}
	in.Amount = f
}

func validateCategory(obj map[string]any, in *CreateExpenseInput, res *ValidationResult) {
	v, present := obj["category"]
	if !present || v == nil {
		res.add("category is required")
		return
	}
	s, ok := v.(string)
	if ok && strings.TrimSpace(s) == "" {
		res.add("category is required")
		return
	}
	if !ok {
		res.add(categorySetMessage())
		return
	}
	if _, valid := ParseCategory(s); !valid {
		res.add(categorySetMessage())
		return
	}
	in.Category = s
}

func categorySetMessage() string {
	return "category must be one of: " + strings.Join(CategoryNames(), ", ")
}

func validateDescription(obj map[string]any, in *CreateExpenseInput, res *ValidationResult) {
	v, present := obj["description"]
	if !present || v == nil {
		res.add("description is required")
		return
	}
	s, ok := v.(string)
	if !ok {
		res.add("description is required")
		return
	}
	if strings.TrimSpace(s) == "" {
		res.add("description must not be empty")
		return
	}
	// Limit applies to the raw length, before trimming.
	if utf8.RuneCountInString(s) > MaxDescriptionLen {
		res.add(fmt.Sprintf("description must not exceed %d characters", MaxDescriptionLen))
		return
	}
	in.Description = s
}

func validateDate(obj map[string]any, in *CreateExpenseInput, res *ValidationResult) {
	v, present := obj["date"]
	if !present || v == nil {
		res.add("date is required")
		return
	}
	s, ok := v.(string)
	if !ok || s == "" {
		res.add("date is required")
		return
	}
	if !dateRe.MatchString(s) {
		res.add("date must be in YYYY-MM-DD format")
		return
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		res.add("date must be a valid calendar date")
		return
	}
	// The ceiling is evaluated against UTC wall-clock time.
	if d.After(time.Now().UTC().AddDate(1, 0, 0)) {
		res.add("date must not be more than one year in the future")
		return
	}
	in.Date = s
}

func validateIdempotencyKey(obj map[string]any, in *CreateExpenseInput, res *ValidationResult) {
	v, present := obj["idempotency_key"]
	if !present || v == nil {
		return
	}
	s, ok := v.(string)
	if !ok {
		res.add("idempotency_key must be a string")
		return
	}
	if utf8.RuneCountInString(s) > MaxIdempotencyKeyLen {
		res.add(fmt.Sprintf("idempotency_key must not exceed %d characters", MaxIdempotencyKeyLen))
		return
	}
	in.IdempotencyKey = s
}

// numericValue extracts a float plus the decimal-string form from the
// shapes a decoded JSON body can carry a number in.
func numericValue(v any) (f float64, dec string, ok bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, "", false
		}
		return f, n.String(), true
	case float64:
		return n, strconv.FormatFloat(n, 'f', -1, 64), true
	case int:
		return float64(n), strconv.Itoa(n), true
	case int64:
		return float64(n), strconv.FormatInt(n, 10), true
	default:
		return 0, "", false
	}
}

// atMostTwoDecimals checks the two-decimal rule on the decimal-string form.
// Exponent notation falls back to a numeric round-trip check.
func atMostTwoDecimals(dec string, f float64) bool {
	if dec == "" || strings.ContainsAny(dec, "eE") {
		return RoundAmount(f) == f
	}
	dot := strings.IndexByte(dec, '.')
	if dot < 0 {
		return true
	}
	frac := strings.TrimRight(dec[dot+1:], "0")
	return len(frac) <= 2
}
