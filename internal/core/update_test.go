package core

import (
	"strings"
	"testing"
)

func TestParseUpdateInputPartialFields(t *testing.T) {
	up, res := ParseUpdateInput(decode(t, `{"amount": 20.5, "category": "Bills"}`))
	if !res.Valid {
		t.Fatalf("errors: %v", res.Errors)
	}
	if up.Amount == nil || *up.Amount != 20.5 {
		t.Fatalf("amount: %+v", up.Amount)
	}
	if up.Category == nil || *up.Category != "Bills" {
		t.Fatalf("category: %+v", up.Category)
	}
	if up.Description != nil || up.Date != nil {
		t.Fatalf("absent fields must stay nil: %+v", up)
	}
}

func TestParseUpdateInputRejectsEmpty(t *testing.T) {
	for _, body := range []string{`{}`, `{"amount": null}`, `{"unknown": 1}`} {
		_, res := ParseUpdateInput(decode(t, body))
		if res.Valid {
			t.Errorf("%s: expected rejection", body)
			continue
		}
		if res.Errors[0] != "at least one of amount, category, description, date must be provided" {
			t.Errorf("%s: message %q", body, res.Errors[0])
		}
	}
}

func TestParseUpdateInputFieldRules(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero amount", `{"amount": 0}`, "amount must be greater than 0"},
		{"three decimals", `{"amount": 10.123}`, "amount must have at most 2 decimal places"},
		{"unknown category", `{"category": "Groceries"}`, "category must be one of:"},
		{"blank description", `{"description": "   "}`, "description must not be empty"},
		{"bad date", `{"date": "2024-13-40"}`, "date must be a valid calendar date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := ParseUpdateInput(decode(t, tt.body))
			if res.Valid {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(res.Errors[0], tt.want) {
				t.Fatalf("errors %v, want one containing %q", res.Errors, tt.want)
			}
		})
	}
}

func TestParseUpdateInputNonObject(t *testing.T) {
	_, res := ParseUpdateInput(decode(t, `[1, 2]`))
	if res.Valid || res.Errors[0] != "request body must be a JSON object" {
		t.Fatalf("result: %+v", res)
	}
}

func TestUpdateInputNormalize(t *testing.T) {
	amount := 100.556
	cat := " Food "
	in := UpdateExpenseInput{Amount: &amount, Category: &cat}

	out := in.Normalize()
	if *out.Amount != 100.56 {
		t.Fatalf("amount = %v, want 100.56", *out.Amount)
	}
	if *out.Category != "Food" {
		t.Fatalf("category = %q, want Food", *out.Category)
	}
	if out.Description != nil || out.Date != nil {
		t.Fatalf("unset fields must stay nil: %+v", out)
	}
}
