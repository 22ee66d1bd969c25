// Package domain defines the core domain models for the donor bot.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// UserProfile maps a WhatsApp id to the donor's identity and the
// payment-provider customer the id was onboarded as. CustomerID stays empty
// until onboarding succeeds.
type UserProfile struct {
	WhatsAppID string    `json:"whatsapp_id"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	TaxID      string    `json:"tax_id,omitempty"`
	CustomerID string    `json:"customer_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Onboarded reports whether the profile is bound to a provider customer.
func (p *UserProfile) Onboarded() bool {
	return p != nil && p.CustomerID != ""
}

// Turn is a single entry in a conversation. Assistant turns may carry tool
// calls; tool turns carry the correlation id of the call they answer.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolCall is a structured invocation request emitted by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ArchivedTurn is a durably stored conversation turn, kept independently of
// the bounded live session buffer.
type ArchivedTurn struct {
	WhatsAppID string    `json:"whatsapp_id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	ToolName   string    `json:"tool_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DonationRecord is a one-time payment created at the provider.
type DonationRecord struct {
	ID         string          `json:"id"`
	WhatsAppID string          `json:"whatsapp_id"`
	Value      decimal.Decimal `json:"value"`
	DueDate    string          `json:"due_date"`
	Status     string          `json:"status,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SubscriptionRecord is a recurring monthly donation at the provider.
type SubscriptionRecord struct {
	ID          string          `json:"id"`
	WhatsAppID  string          `json:"whatsapp_id"`
	Value       decimal.Decimal `json:"value"`
	NextDueDate string          `json:"next_due_date"`
	Status      string          `json:"status,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
