package session

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opnlabs/donorbot/domain"
	"github.com/opnlabs/donorbot/llm"
	"github.com/opnlabs/donorbot/store"
	"github.com/opnlabs/donorbot/tests/helpers"
)

func newTestEngine(t *testing.T, model ChatModel, provider *fakeProvider, gate PolicyGate) (*Engine, store.Store) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	handlers := NewHandlers(provider, &fakeKB{answer: "A ONG foi fundada em 1996."}, db, zerolog.Nop())
	return NewEngine(Options{
		Model:         model,
		ModelName:     "gpt-4o-mini",
		Handlers:      handlers,
		Gate:          gate,
		Store:         db,
		OrgName:       "O Pequeno Nazareno",
		HistoryLimit:  20,
		SummaryWindow: 10,
		DonationCap:   100000,
		Logger:        zerolog.Nop(),
	}), db
}

func TestHandlePlainTextSkipsSecondRoundTrip(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatCompletionResponse{
		textResponse("Olá! Como posso ajudar?"),
	}}
	engine, db := newTestEngine(t, model, &fakeProvider{}, allowGate{})

	reply, err := engine.Handle(context.Background(), "u1", "oi")
	require.NoError(t, err)
	assert.Equal(t, "Olá! Como posso ajudar?", reply)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Len(t, req.Tools, 6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "O Pequeno Nazareno")
	assert.Equal(t, "oi", req.Messages[1].Content)

	turns, err := db.ListTurns(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)

	// First contact creates a skeleton profile, not yet onboarded.
	profile, err := db.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.False(t, profile.Onboarded())
}

func TestHandleToolCallRoundTrips(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatCompletionResponse{
		toolCallResponse(llm.ToolCall{
			ID:   "call_1",
			Type: "function",
			Function: llm.ToolCallFunction{
				Name:      "make_donation",
				Arguments: `{"amount":50}`,
			},
		}),
		textResponse("Sua doação de R$ 50 foi registrada! Link: https://pay.example/pay_1"),
	}}
	provider := &fakeProvider{}
	engine, db := newTestEngine(t, model, provider, allowGate{})
	ctx := context.Background()

	require.NoError(t, db.PutProfile(ctx, &domain.UserProfile{WhatsAppID: "u1", CustomerID: "cus_1"}))

	reply, err := engine.Handle(ctx, "u1", "quero doar 50 reais")
	require.NoError(t, err)
	assert.Contains(t, reply, "R$ 50")
	assert.Equal(t, 1, provider.paymentsCreated)

	require.Len(t, model.requests, 2)

	// First round-trip carries the tool catalog; the second does not.
	assert.NotEmpty(t, model.requests[0].Tools)
	assert.Empty(t, model.requests[1].Tools)

	// The second request must contain the assistant tool call immediately
	// followed by its correlated result.
	msgs := model.requests[1].Messages
	var callIdx int
	for i, m := range msgs {
		if len(m.ToolCalls) > 0 {
			callIdx = i
			break
		}
	}
	require.NotZero(t, callIdx)
	assert.Equal(t, "call_1", msgs[callIdx].ToolCalls[0].ID)
	result := msgs[callIdx+1]
	assert.Equal(t, "tool", result.Role)
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Contains(t, result.Content, "pay_1")
}

func TestHandleMultipleToolCallsKeepOrder(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatCompletionResponse{
		toolCallResponse(
			llm.ToolCall{ID: "call_1", Type: "function", Function: llm.ToolCallFunction{Name: "ask_org", Arguments: `{"query":"quando foi fundada?"}`}},
			llm.ToolCall{ID: "call_2", Type: "function", Function: llm.ToolCallFunction{Name: "ask_org", Arguments: `{"query":"quem fundou?"}`}},
		),
		textResponse("A ONG foi fundada em 1996."),
	}}
	engine, _ := newTestEngine(t, model, &fakeProvider{}, allowGate{})

	_, err := engine.Handle(context.Background(), "u1", "me conte sobre a ONG")
	require.NoError(t, err)

	msgs := model.requests[1].Messages
	var toolIDs []string
	for _, m := range msgs {
		if m.Role == "tool" {
			toolIDs = append(toolIDs, m.ToolCallID)
		}
	}
	assert.Equal(t, []string{"call_1", "call_2"}, toolIDs)
}

func TestHandleUnknownToolBecomesErrorResult(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatCompletionResponse{
		toolCallResponse(llm.ToolCall{
			ID:       "call_1",
			Type:     "function",
			Function: llm.ToolCallFunction{Name: "transfer_funds", Arguments: `{}`},
		}),
		textResponse("Desculpe, não consigo fazer isso."),
	}}
	engine, _ := newTestEngine(t, model, &fakeProvider{}, allowGate{})

	reply, err := engine.Handle(context.Background(), "u1", "transfira meu dinheiro")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	msgs := model.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Contains(t, last.Content, domain.ErrUnknownTool.Error())
}

func TestHandleBlockedToolCallDoesNotReachProvider(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatCompletionResponse{
		toolCallResponse(llm.ToolCall{
			ID:       "call_1",
			Type:     "function",
			Function: llm.ToolCallFunction{Name: "make_donation", Arguments: `{"amount":999999}`},
		}),
		textResponse("Esse valor está acima do permitido."),
	}}
	provider := &fakeProvider{}
	engine, db := newTestEngine(t, model, provider, blockGate{})
	ctx := context.Background()

	require.NoError(t, db.PutProfile(ctx, &domain.UserProfile{WhatsAppID: "u1", CustomerID: "cus_1"}))

	_, err := engine.Handle(ctx, "u1", "quero doar 999999")
	require.NoError(t, err)
	assert.Equal(t, 0, provider.paymentsCreated)

	msgs := model.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Contains(t, last.Content, ErrPolicyBlocked.Error())
}

func TestHandleTrimsHistoryAcrossMessages(t *testing.T) {
	responses := make([]*llm.ChatCompletionResponse, 0, 30)
	for i := 0; i < 30; i++ {
		responses = append(responses, textResponse("certo"))
	}
	model := &scriptedModel{responses: responses}
	engine, _ := newTestEngine(t, model, &fakeProvider{}, allowGate{})
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		_, err := engine.Handle(ctx, "u1", "oi")
		require.NoError(t, err)
	}

	// system prompt + at most HistoryLimit buffered turns
	last := model.requests[len(model.requests)-1]
	assert.LessOrEqual(t, len(last.Messages), 21)
}
