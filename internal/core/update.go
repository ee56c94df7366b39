package core

import "strings"

// UpdateExpenseInput is a partial field replace: nil fields stay untouched.
type UpdateExpenseInput struct {
	Amount      *float64
	Category    *string
	Description *string
	Date        *string
}

// ParseUpdateInput validates an untyped update body. Only fields that are
// present are checked, each against the same rule as on create; a body that
// names none of the updatable fields is rejected.
func ParseUpdateInput(raw any) (UpdateExpenseInput, ValidationResult) {
	var res ValidationResult

	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		res.add("request body must be a JSON object")
		return UpdateExpenseInput{}, res
	}

	var up UpdateExpenseInput
	var sink CreateExpenseInput
	touched := false

	if v, present := obj["amount"]; present && v != nil {
		touched = true
		before := len(res.Errors)
		validateAmount(obj, &sink, &res)
		if len(res.Errors) == before {
			up.Amount = &sink.Amount
		}
	}
	if v, present := obj["category"]; present && v != nil {
		touched = true
		before := len(res.Errors)
		validateCategory(obj, &sink, &res)
		if len(res.Errors) == before {
			up.Category = &sink.Category
		}
	}
	if v, present := obj["description"]; present && v != nil {
		touched = true
		before := len(res.Errors)
		validateDescription(obj, &sink, &res)
		if len(res.Errors) == before {
			up.Description = &sink.Description
		}
	}
	if v, present := obj["date"]; present && v != nil {
		touched = true
		before := len(res.Errors)
		validateDate(obj, &sink, &res)
		if len(res.Errors) == before {
			up.Date = &sink.Date
		}
	}

	if !touched {
		res.add("at least one of amount, category, description, date must be provided")
	}

	res.Valid = len(res.Errors) == 0
	if !res.Valid {
		return UpdateExpenseInput{}, res
	}
	return up, res
}

// Normalize trims provided string fields and display-rounds the amount,
// mirroring CreateExpenseInput.Normalize for the fields that are set.
func (up UpdateExpenseInput) Normalize() UpdateExpenseInput {
	out := UpdateExpenseInput{}
	if up.Amount != nil {
		a := RoundAmount(*up.Amount)
		out.Amount = &a
	}
	if up.Category != nil {
		c := strings.TrimSpace(*up.Category)
		out.Category = &c
	}
	if up.Description != nil {
		d := strings.TrimSpace(*up.Description)
		out.Description = &d
	}
	if up.Date != nil {
		d := strings.TrimSpace(*up.Date)
		out.Date = &d
	}
	return out
}
