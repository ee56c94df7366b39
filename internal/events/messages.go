package events

import (
	"encoding/json"
	"time"
)

const (
	TypeExpenseCreated = "expense.created"
	TypeExpenseDeleted = "expense.deleted"
)

// ExpenseEvent is the lightweight message published after a write.
// It carries only the id; consumers fetch the record themselves.
type ExpenseEvent struct {
	Type       string    `json:"type"`
	ExpenseID  string    `json:"expense_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewExpenseCreated(id string) *ExpenseEvent {
	return &ExpenseEvent{Type: TypeExpenseCreated, ExpenseID: id, OccurredAt: time.Now().UTC()}
}

func NewExpenseDeleted(id string) *ExpenseEvent {
	return &ExpenseEvent{Type: TypeExpenseDeleted, ExpenseID: id, OccurredAt: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes.
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON parses an event from JSON bytes.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
