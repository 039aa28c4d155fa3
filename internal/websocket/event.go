package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated    EventType = "created"
	EventTypeUpdated    EventType = "updated"
	EventTypeApproved   EventType = "approved"
	EventTypeRejected   EventType = "rejected"
	EventTypeDisbursed  EventType = "disbursed"
	EventTypePosted     EventType = "posted"
	EventTypeClosed     EventType = "closed"
	EventTypeDefaulted  EventType = "defaulted"
	EventTypeWrittenOff EventType = "written_off"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeProduct     EntityType = "loan_product"
	EntityTypeApplication EntityType = "loan_application"
	EntityTypeLoan        EntityType = "loan"
	EntityTypeRepayment   EntityType = "repayment"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "loan.disbursed"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "loan"
	Payload   interface{} `json:"payload"`   // Event data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type applicationPayload struct {
	ID                int32           `json:"id"`
	ApplicationNumber string          `json:"applicationNumber"`
	Amount            decimal.Decimal `json:"amount,omitempty"`
	Reason            string          `json:"reason,omitempty"`
}

type loanPayload struct {
	ID         int32           `json:"id"`
	LoanNumber string          `json:"loanNumber"`
	Amount     decimal.Decimal `json:"amount"`
}

type repaymentPayload struct {
	LoanID    int32           `json:"loanId"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

type productPayload struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// ApplicationApproved creates a loan_application.approved event
func ApplicationApproved(id int32, applicationNumber string, approvedAmount decimal.Decimal) Event {
	return NewEvent(EventTypeApproved, EntityTypeApplication, applicationPayload{
		ID:                id,
		ApplicationNumber: applicationNumber,
		Amount:            approvedAmount,
	})
}

// ApplicationRejected creates a loan_application.rejected event
func ApplicationRejected(id int32, applicationNumber string, reason string) Event {
	return NewEvent(EventTypeRejected, EntityTypeApplication, applicationPayload{
		ID:                id,
		ApplicationNumber: applicationNumber,
		Reason:            reason,
	})
}

// LoanDisbursed creates a loan.disbursed event
func LoanDisbursed(id int32, loanNumber string, principal decimal.Decimal) Event {
	return NewEvent(EventTypeDisbursed, EntityTypeLoan, loanPayload{ID: id, LoanNumber: loanNumber, Amount: principal})
}

// LoanClosed creates a loan.closed event
func LoanClosed(id int32, loanNumber string) Event {
	return NewEvent(EventTypeClosed, EntityTypeLoan, loanPayload{ID: id, LoanNumber: loanNumber, Amount: decimal.Zero})
}

// LoanDefaulted creates a loan.defaulted event
func LoanDefaulted(id int32, loanNumber string, outstanding decimal.Decimal) Event {
	return NewEvent(EventTypeDefaulted, EntityTypeLoan, loanPayload{ID: id, LoanNumber: loanNumber, Amount: outstanding})
}

// LoanWrittenOff creates a loan.written_off event
func LoanWrittenOff(id int32, loanNumber string, outstanding decimal.Decimal) Event {
	return NewEvent(EventTypeWrittenOff, EntityTypeLoan, loanPayload{ID: id, LoanNumber: loanNumber, Amount: outstanding})
}

// RepaymentPosted creates a repayment.posted event
func RepaymentPosted(loanID int32, reference string, amount decimal.Decimal) Event {
	return NewEvent(EventTypePosted, EntityTypeRepayment, repaymentPayload{LoanID: loanID, Reference: reference, Amount: amount})
}

// ProductCreated creates a loan_product.created event
func ProductCreated(id int32, name string) Event {
	return NewEvent(EventTypeCreated, EntityTypeProduct, productPayload{ID: id, Name: name})
}

// ProductUpdated creates a loan_product.updated event
func ProductUpdated(id int32, name string) Event {
	return NewEvent(EventTypeUpdated, EntityTypeProduct, productPayload{ID: id, Name: name})
}
