package session

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/opnlabs/donorbot/llm"
	"github.com/opnlabs/donorbot/payments"
)

// fakeProvider records calls and plays back canned provider responses.
type fakeProvider struct {
	customers       int
	paymentsCreated int
	subsCreated     int
	updates         []payments.PaymentUpdate
	failCreate      bool
	subLink         string
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, nc payments.NewCustomer) (*payments.Customer, error) {
	f.customers++
	if f.failCreate {
		return nil, errors.New("provider unavailable")
	}
	return &payments.Customer{ID: "cus_1", Name: nc.Name, Email: nc.Email, CPFCNPJ: nc.CPFCNPJ}, nil
}

func (f *fakeProvider) CreatePayment(ctx context.Context, customerID string, value decimal.Decimal) (*payments.Payment, error) {
	f.paymentsCreated++
	return &payments.Payment{
		ID:         "pay_1",
		Customer:   customerID,
		Value:      value.InexactFloat64(),
		DueDate:    "2024-04-01",
		Status:     "PENDING",
		InvoiceURL: "https://pay.example/pay_1",
	}, nil
}

func (f *fakeProvider) UpdatePayment(ctx context.Context, id string, upd payments.PaymentUpdate) (*payments.Payment, error) {
	f.updates = append(f.updates, upd)
	p := &payments.Payment{ID: id, Value: 50, DueDate: "2024-04-01", Status: "PENDING"}
	if upd.Value != nil {
		p.Value = upd.Value.InexactFloat64()
	}
	if upd.DueDate != nil {
		p.DueDate = *upd.DueDate
	}
	if upd.BillingType != nil {
		p.BillingType = string(*upd.BillingType)
	}
	return p, nil
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, customerID string, value decimal.Decimal, dueDay int) (*payments.Subscription, error) {
	f.subsCreated++
	return &payments.Subscription{
		ID:          "sub_1",
		Customer:    customerID,
		Value:       value.InexactFloat64(),
		NextDueDate: "2024-04-15",
		Cycle:       "MONTHLY",
		Status:      "ACTIVE",
		PaymentLink: f.subLink,
	}, nil
}

func (f *fakeProvider) UpdateSubscription(ctx context.Context, id string, upd payments.PaymentUpdate) (*payments.Subscription, error) {
	f.updates = append(f.updates, upd)
	s := &payments.Subscription{ID: id, Value: 30, NextDueDate: "2024-04-15", Status: "ACTIVE"}
	if upd.Value != nil {
		s.Value = upd.Value.InexactFloat64()
	}
	if upd.DueDate != nil {
		s.NextDueDate = *upd.DueDate
	}
	return s, nil
}

func (f *fakeProvider) ListSubscriptionPayments(ctx context.Context, subscriptionID string) ([]payments.Payment, error) {
	return []payments.Payment{{ID: "pay_s1", InvoiceURL: "https://pay.example/pay_s1"}}, nil
}

// fakeKB answers every question with a fixed string.
type fakeKB struct {
	answer string
	err    error
}

func (f *fakeKB) Ask(ctx context.Context, query string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// scriptedModel plays back responses in order and records every request.
type scriptedModel struct {
	responses []*llm.ChatCompletionResponse
	requests  []*llm.ChatCompletionRequest
}

func (m *scriptedModel) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func textResponse(content string) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: &llm.ChatMessage{Role: "assistant", Content: content}, FinishReason: "stop"}},
	}
}

func toolCallResponse(calls ...llm.ToolCall) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: &llm.ChatMessage{Role: "assistant", ToolCalls: calls}, FinishReason: "tool_calls"}},
	}
}

// allowGate approves everything.
type allowGate struct{}

func (allowGate) Evaluate(ctx context.Context, input interface{}) (string, error) {
	return "allow", nil
}

// blockGate rejects everything.
type blockGate struct{}

func (blockGate) Evaluate(ctx context.Context, input interface{}) (string, error) {
	return "block", nil
}
