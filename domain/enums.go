package domain

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolKind is the closed set of capabilities the model may invoke. The
// dispatch loop switches exhaustively over these; a name outside the set is
// ErrUnknownTool.
type ToolKind string

const (
	ToolAskOrg             ToolKind = "ask_org"
	ToolOnboard            ToolKind = "start_onboarding"
	ToolMakeDonation       ToolKind = "make_donation"
	ToolChangeDonation     ToolKind = "change_donation"
	ToolSignSubscription   ToolKind = "sign_subscription"
	ToolChangeSubscription ToolKind = "change_subscription"
)

// ToolKinds lists every supported tool kind, in catalog order.
func ToolKinds() []ToolKind {
	return []ToolKind{
		ToolAskOrg,
		ToolOnboard,
		ToolMakeDonation,
		ToolChangeDonation,
		ToolSignSubscription,
		ToolChangeSubscription,
	}
}

// ParseToolKind resolves a model-emitted tool name to its kind.
func ParseToolKind(name string) (ToolKind, error) {
	switch k := ToolKind(name); k {
	case ToolAskOrg, ToolOnboard, ToolMakeDonation, ToolChangeDonation,
		ToolSignSubscription, ToolChangeSubscription:
		return k, nil
	}
	return "", ErrUnknownTool
}

// BillingType is the provider's payment method enum.
type BillingType string

const (
	BillingUndefined  BillingType = "UNDEFINED"
	BillingBoleto     BillingType = "BOLETO"
	BillingCreditCard BillingType = "CREDIT_CARD"
	BillingPix        BillingType = "PIX"
)
