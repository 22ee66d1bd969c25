package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/opnlabs/donorbot/domain"
	"github.com/opnlabs/donorbot/payments"
	"github.com/opnlabs/donorbot/store"
)

// PaymentProvider is the slice of the payments client the handlers need.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, nc payments.NewCustomer) (*payments.Customer, error)
	CreatePayment(ctx context.Context, customerID string, value decimal.Decimal) (*payments.Payment, error)
	UpdatePayment(ctx context.Context, id string, upd payments.PaymentUpdate) (*payments.Payment, error)
	CreateSubscription(ctx context.Context, customerID string, value decimal.Decimal, dueDay int) (*payments.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, upd payments.PaymentUpdate) (*payments.Subscription, error)
	ListSubscriptionPayments(ctx context.Context, subscriptionID string) ([]payments.Payment, error)
}

// OrgAnswerer answers free-form questions about the organization.
type OrgAnswerer interface {
	Ask(ctx context.Context, query string) (string, error)
}

// Handlers executes tool calls against the provider and the store.
type Handlers struct {
	provider PaymentProvider
	kb       OrgAnswerer
	db       store.Store
	log      zerolog.Logger
}

// NewHandlers creates the tool handlers.
func NewHandlers(provider PaymentProvider, kb OrgAnswerer, db store.Store, log zerolog.Logger) *Handlers {
	return &Handlers{provider: provider, kb: kb, db: db, log: log}
}

// Dispatch runs one tool call and renders the outcome as the JSON string
// handed back to the model. Errors become {"error": ...} results instead of
// aborting the conversation.
func (h *Handlers) Dispatch(ctx context.Context, userID string, kind domain.ToolKind, args json.RawMessage) string {
	var out interface{}
	var err error

	switch kind {
	case domain.ToolAskOrg:
		out, err = h.askOrg(ctx, args)
	case domain.ToolOnboard:
		out, err = h.onboard(ctx, userID, args)
	case domain.ToolMakeDonation:
		out, err = h.makeDonation(ctx, userID, args)
	case domain.ToolChangeDonation:
		out, err = h.changeDonation(ctx, userID, args)
	case domain.ToolSignSubscription:
		out, err = h.signSubscription(ctx, userID, args)
	case domain.ToolChangeSubscription:
		out, err = h.changeSubscription(ctx, userID, args)
	default:
		err = domain.ErrUnknownTool
	}

	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Str("tool", string(kind)).Msg("tool call failed")
		return errorResult(err)
	}
	return toolResult(out)
}

func toolResult(v interface{}) string {
	b, err := json.Marshal(map[string]interface{}{"result": v})
	if err != nil {
		return `{"error":"internal: unencodable tool result"}`
	}
	return string(b)
}

func errorResult(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

type askArgs struct {
	Query string `json:"query"`
}

func (h *Handlers) askOrg(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var a askArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed arguments: %w", err)
	}
	answer, err := h.kb.Ask(ctx, a.Query)
	if err != nil {
		return nil, err
	}
	return map[string]string{"answer": answer}, nil
}

type onboardArgs struct {
	Name    string `json:"name"`
	CPFCNPJ string `json:"cpfCnpj"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

func (h *Handlers) onboard(ctx context.Context, userID string, raw json.RawMessage) (interface{}, error) {
	var a onboardArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed arguments: %w", err)
	}

	profile, err := h.db.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Onboarded() {
		return nil, domain.ErrAlreadyOnboarded
	}

	customer, err := h.provider.CreateCustomer(ctx, payments.NewCustomer{
		Name:    a.Name,
		CPFCNPJ: a.CPFCNPJ,
		Email:   a.Email,
		Phone:   a.Phone,
		Mobile:  a.Phone,
	})
	if err != nil {
		return nil, err
	}

	if profile == nil {
		profile = &domain.UserProfile{WhatsAppID: userID}
	}
	profile.Name = a.Name
	profile.TaxID = a.CPFCNPJ
	profile.Email = a.Email
	profile.Phone = a.Phone
	profile.CustomerID = customer.ID
	if err := h.db.PutProfile(ctx, profile); err != nil {
		return nil, err
	}

	h.log.Info().Str("user_id", userID).Str("customer_id", customer.ID).Msg("donor onboarded")
	return map[string]string{"customer_id": customer.ID, "name": a.Name}, nil
}

// onboarded loads the user's profile and fails when the user has not been
// registered with the provider yet.
func (h *Handlers) onboarded(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := h.db.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.Onboarded() {
		return nil, domain.ErrNotOnboarded
	}
	return profile, nil
}

type donationArgs struct {
	Amount float64 `json:"amount"`
}

func (h *Handlers) makeDonation(ctx context.Context, userID string, raw json.RawMessage) (interface{}, error) {
	var a donationArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed arguments: %w", err)
	}

	profile, err := h.onboarded(ctx, userID)
	if err != nil {
		return nil, err
	}

	value := decimal.NewFromFloat(a.Amount)
	payment, err := h.provider.CreatePayment(ctx, profile.CustomerID, value)
	if err != nil {
		return nil, err
	}

	if err := h.db.PutDonation(ctx, &domain.DonationRecord{
		ID:         payment.ID,
		WhatsAppID: userID,
		Value:      value,
		DueDate:    payment.DueDate,
		Status:     payment.Status,
	}); err != nil {
		return nil, err
	}

	h.log.Info().Str("user_id", userID).Str("payment_id", payment.ID).Str("value", value.String()).Msg("donation created")
	return map[string]interface{}{
		"id":           payment.ID,
		"value":        payment.Value,
		"duedate":      payment.DueDate,
		"payment_link": paymentLink(payment),
	}, nil
}

type changeArgs struct {
	ID          string   `json:"id"`
	Amount      *float64 `json:"amount"`
	DueDate     *string  `json:"duedate"`
	PaymentType *string  `json:"payment_type"`
}

func (a changeArgs) update() payments.PaymentUpdate {
	var upd payments.PaymentUpdate
	if a.Amount != nil {
		v := decimal.NewFromFloat(*a.Amount)
		upd.Value = &v
	}
	upd.DueDate = a.DueDate
	if a.PaymentType != nil {
		bt := domain.BillingType(*a.PaymentType)
		upd.BillingType = &bt
	}
	return upd
}

func (h *Handlers) changeDonation(ctx context.Context, userID string, raw json.RawMessage) (interface{}, error) {
	var a changeArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed arguments: %w", err)
	}

	if _, err := h.onboarded(ctx, userID); err != nil {
		return nil, err
	}

	payment, err := h.provider.UpdatePayment(ctx, a.ID, a.update())
	if err != nil {
		return nil, err
	}

	if err := h.db.PutDonation(ctx, &domain.DonationRecord{
		ID:         payment.ID,
		WhatsAppID: userID,
		Value:      decimal.NewFromFloat(payment.Value),
		DueDate:    payment.DueDate,
		Status:     payment.Status,
	}); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":           payment.ID,
		"value":        payment.Value,
		"duedate":      payment.DueDate,
		"payment_type": payment.BillingType,
		"payment_link": paymentLink(payment),
	}, nil
}

type subscriptionArgs struct {
	Amount float64 `json:"amount"`
	DueDay int     `json:"duedate"`
}

func (h *Handlers) signSubscription(ctx context.Context, userID string, raw json.RawMessage) (interface{}, error) {
	var a subscriptionArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed arguments: %w", err)
	}

	profile, err := h.onboarded(ctx, userID)
	if err != nil {
		return nil, err
	}

	value := decimal.NewFromFloat(a.Amount)
	sub, err := h.provider.CreateSubscription(ctx, profile.CustomerID, value, a.DueDay)
	if err != nil {
		return nil, err
	}

	// Subscriptions often come back without a payment link; the first
	// generated invoice carries one.
	link := sub.PaymentLink
	if link == "" {
		if invoices, err := h.provider.ListSubscriptionPayments(ctx, sub.ID); err == nil && len(invoices) > 0 {
			link = paymentLink(&invoices[0])
		} else if err != nil {
			h.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("first invoice lookup failed")
		}
	}

	if err := h.db.PutSubscription(ctx, &domain.SubscriptionRecord{
		ID:          sub.ID,
		WhatsAppID:  userID,
		Value:       value,
		NextDueDate: sub.NextDueDate,
		Status:      sub.Status,
	}); err != nil {
		return nil, err
	}

	h.log.Info().Str("user_id", userID).Str("subscription_id", sub.ID).Str("value", value.String()).Msg("subscription signed")
	return map[string]interface{}{
		"id":           sub.ID,
		"value":        sub.Value,
		"nextduedate":  sub.NextDueDate,
		"payment_link": link,
	}, nil
}

func (h *Handlers) changeSubscription(ctx context.Context, userID string, raw json.RawMessage) (interface{}, error) {
	var a changeArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed arguments: %w", err)
	}

	if _, err := h.onboarded(ctx, userID); err != nil {
		return nil, err
	}

	sub, err := h.provider.UpdateSubscription(ctx, a.ID, a.update())
	if err != nil {
		return nil, err
	}

	if err := h.db.PutSubscription(ctx, &domain.SubscriptionRecord{
		ID:          sub.ID,
		WhatsAppID:  userID,
		Value:       decimal.NewFromFloat(sub.Value),
		NextDueDate: sub.NextDueDate,
		Status:      sub.Status,
	}); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":          sub.ID,
		"value":       sub.Value,
		"nextduedate": sub.NextDueDate,
	}, nil
}

func paymentLink(p *payments.Payment) string {
	if p.PaymentLink != "" {
		return p.PaymentLink
	}
	return p.InvoiceURL
}
