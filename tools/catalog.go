// Package tools defines the static tool catalog exposed to the model.
package tools

import (
	"github.com/opnlabs/donorbot/domain"
	"github.com/opnlabs/donorbot/llm"
)

// schema builds a JSON-schema object for a function's parameters.
func schema(properties map[string]interface{}, required []string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func enumProp(description string, values []string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "enum": values, "description": description}
}

var billingTypes = []string{
	string(domain.BillingBoleto),
	string(domain.BillingCreditCard),
	string(domain.BillingPix),
}

// definitions is the source of truth for the capabilities the model may
// invoke. Keys must cover domain.ToolKinds exactly.
var definitions = map[domain.ToolKind]llm.ToolFunction{
	domain.ToolAskOrg: {
		Name:        string(domain.ToolAskOrg),
		Description: "Ask general questions about the NGO, its founder, its mission, its history, its team and its projects",
		Parameters: schema(map[string]interface{}{
			"query": prop("string", "A short standalone question about the NGO"),
		}, []string{"query"}),
	},
	domain.ToolOnboard: {
		Name:        string(domain.ToolOnboard),
		Description: "Register a new donor before any donation. Collect all four fields from the user first; never invent values.",
		Parameters: schema(map[string]interface{}{
			"name":    prop("string", "The donor's full name, as provided by the user"),
			"cpfCnpj": prop("string", "The donor's CPF or CNPJ number, as provided by the user"),
			"email":   prop("string", "The donor's email address, as provided by the user"),
			"phone":   prop("string", "The donor's phone number, as provided by the user"),
		}, []string{"name", "cpfCnpj", "email", "phone"}),
	},
	domain.ToolMakeDonation: {
		Name:        string(domain.ToolMakeDonation),
		Description: "Create an immediate one-time donation",
		Parameters: schema(map[string]interface{}{
			"amount": prop("number", "Donation amount in Brazilian Real, confirmed by the user"),
		}, []string{"amount"}),
	},
	domain.ToolChangeDonation: {
		Name:        string(domain.ToolChangeDonation),
		Description: "Change the amount, due date, payment type or a combination of those of an existing one-time donation",
		Parameters: schema(map[string]interface{}{
			"id":           prop("string", "The id of the donation to update, provided by the user"),
			"amount":       prop("number", "The new amount in Brazilian Real"),
			"duedate":      prop("string", "The new due date in YYYY-MM-DD format"),
			"payment_type": enumProp("The new payment type", billingTypes),
		}, []string{"id"}),
	},
	domain.ToolSignSubscription: {
		Name:        string(domain.ToolSignSubscription),
		Description: "Sign a monthly donation subscription",
		Parameters: schema(map[string]interface{}{
			"amount":  prop("number", "Monthly amount in Brazilian Real, confirmed by the user"),
			"duedate": prop("integer", "Day of month the payment is due, e.g. 1 or 15"),
		}, []string{"amount", "duedate"}),
	},
	domain.ToolChangeSubscription: {
		Name:        string(domain.ToolChangeSubscription),
		Description: "Change the amount, due date, payment type or a combination of those of an existing subscription",
		Parameters: schema(map[string]interface{}{
			"id":           prop("string", "The id of the subscription to update, provided by the user"),
			"amount":       prop("number", "The new monthly amount in Brazilian Real"),
			"duedate":      prop("string", "The new next due date in YYYY-MM-DD format"),
			"payment_type": enumProp("The new payment type", billingTypes),
		}, []string{"id"}),
	},
}

// Catalog returns the tool definitions to attach to a model call, in
// stable order.
func Catalog() []llm.Tool {
	kinds := domain.ToolKinds()
	out := make([]llm.Tool, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, llm.Tool{Type: "function", Function: definitions[k]})
	}
	return out
}
