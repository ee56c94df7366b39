package events

import (
	"testing"
	"time"
)

func TestExpenseEventRoundTrip(t *testing.T) {
	ev := NewExpenseCreated("abc-123")
	if ev.Type != TypeExpenseCreated {
		t.Fatalf("type = %s, want %s", ev.Type, TypeExpenseCreated)
	}

	data, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ExpenseEventFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != ev.Type || got.ExpenseID != ev.ExpenseID || !got.OccurredAt.Equal(ev.OccurredAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, ev)
	}
}

func TestExpenseDeletedEvent(t *testing.T) {
	before := time.Now().UTC()
	ev := NewExpenseDeleted("xyz")
	if ev.Type != TypeExpenseDeleted || ev.ExpenseID != "xyz" {
		t.Fatalf("event: %+v", ev)
	}
	if ev.OccurredAt.Before(before) {
		t.Fatalf("occurred_at %v before %v", ev.OccurredAt, before)
	}
}

func TestExpenseEventFromInvalidJSON(t *testing.T) {
	if _, err := ExpenseEventFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
