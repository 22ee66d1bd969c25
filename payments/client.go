// Package payments translates donation operations into payment-provider API
// calls. Each call is a single fire-and-forget request; whatever the remote
// returns is surfaced as-is.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/opnlabs/donorbot/domain"
)

// Client handles payment-provider API operations.
type Client struct {
	http *resty.Client
	org  string
	now  func() time.Time
}

// NewClient creates a new provider client.
func NewClient(baseURL, apiKey, org string, timeout time.Duration) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetHeader("accept", "application/json")
	c.SetHeader("content-type", "application/json")
	c.SetHeader("access_token", apiKey)
	c.SetHeader("User-Agent", "donorbot")

	return &Client{
		http: c,
		org:  org,
		now:  time.Now,
	}
}

// NewCustomer holds the fields required to register a donor.
type NewCustomer struct {
	Name    string
	CPFCNPJ string
	Email   string
	Phone   string
	Mobile  string
}

// Customer is the provider's customer record.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CPFCNPJ string `json:"cpfCnpj"`
}

// Payment is the provider's one-time payment record.
type Payment struct {
	ID          string  `json:"id"`
	Customer    string  `json:"customer"`
	Value       float64 `json:"value"`
	DueDate     string  `json:"dueDate"`
	Status      string  `json:"status"`
	BillingType string  `json:"billingType"`
	PaymentLink string  `json:"paymentLink"`
	InvoiceURL  string  `json:"invoiceUrl"`
}

// Subscription is the provider's recurring payment record.
type Subscription struct {
	ID          string  `json:"id"`
	Customer    string  `json:"customer"`
	Value       float64 `json:"value"`
	NextDueDate string  `json:"nextDueDate"`
	Cycle       string  `json:"cycle"`
	Status      string  `json:"status"`
	PaymentLink string  `json:"paymentLink"`
}

// PaymentList is the envelope of a subscription-payments lookup.
type PaymentList struct {
	Data []Payment `json:"data"`
}

// PaymentUpdate carries a partial update; nil fields are omitted from the
// payload so the provider leaves them untouched.
type PaymentUpdate struct {
	Value       *decimal.Decimal
	DueDate     *string
	BillingType *domain.BillingType
}

func (u PaymentUpdate) payload(dueDateKey string) map[string]interface{} {
	payload := map[string]interface{}{}
	if u.Value != nil {
		payload["value"] = u.Value.InexactFloat64()
	}
	if u.DueDate != nil {
		payload[dueDateKey] = *u.DueDate
	}
	if u.BillingType != nil {
		payload["billingType"] = string(*u.BillingType)
	}
	return payload
}

// CreateCustomer registers a donor with the provider.
func (c *Client) CreateCustomer(ctx context.Context, nc NewCustomer) (*Customer, error) {
	payload := map[string]interface{}{
		"name":        nc.Name,
		"cpfCnpj":     nc.CPFCNPJ,
		"email":       nc.Email,
		"phone":       nc.Phone,
		"mobilePhone": nc.Mobile,
	}
	var out Customer
	if err := c.post(ctx, "/customers", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayment creates a one-time payment due tomorrow (UTC-3).
func (c *Client) CreatePayment(ctx context.Context, customerID string, value decimal.Decimal) (*Payment, error) {
	payload := map[string]interface{}{
		"customer":    customerID,
		"billingType": string(domain.BillingUndefined),
		"dueDate":     TomorrowBrazil(c.now()),
		"value":       value.InexactFloat64(),
		"description": fmt.Sprintf("Doação única para instituição %q", c.org),
	}
	var out Payment
	if err := c.post(ctx, "/payments", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePayment applies a partial update to a payment.
func (c *Client) UpdatePayment(ctx context.Context, id string, upd PaymentUpdate) (*Payment, error) {
	var out Payment
	if err := c.put(ctx, "/payments/"+id, upd.payload("dueDate"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubscription signs a monthly subscription; the first charge lands on
// the next occurrence of dueDay.
func (c *Client) CreateSubscription(ctx context.Context, customerID string, value decimal.Decimal, dueDay int) (*Subscription, error) {
	payload := map[string]interface{}{
		"customer":    customerID,
		"billingType": string(domain.BillingUndefined),
		"nextDueDate": NextDueDate(c.now(), dueDay),
		"value":       value.InexactFloat64(),
		"cycle":       "MONTHLY",
		"description": fmt.Sprintf("Doação recorrente para instituição %q", c.org),
	}
	var out Subscription
	if err := c.post(ctx, "/subscriptions", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubscription applies a partial update to a subscription.
func (c *Client) UpdateSubscription(ctx context.Context, id string, upd PaymentUpdate) (*Subscription, error) {
	var out Subscription
	if err := c.put(ctx, "/subscriptions/"+id, upd.payload("nextDueDate"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubscriptionPayments returns the payments generated for a
// subscription, oldest last.
func (c *Client) ListSubscriptionPayments(ctx context.Context, subscriptionID string) ([]Payment, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/subscriptions/" + subscriptionID + "/payments")
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	var out PaymentList
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(payload).Post(path)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	return decode(resp, out)
}

func (c *Client) put(ctx context.Context, path string, payload, out interface{}) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(payload).Put(path)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	return decode(resp, out)
}

func decode(resp *resty.Response, out interface{}) error {
	if resp.IsError() {
		return &domain.ProviderError{Status: resp.StatusCode(), Body: resp.String()}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &domain.ProviderError{Status: resp.StatusCode(), Body: "malformed response: " + err.Error()}
	}
	return nil
}
