package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/opnlabs/donorbot/domain"
	"github.com/opnlabs/donorbot/llm"
	"github.com/opnlabs/donorbot/store"
	"github.com/opnlabs/donorbot/tools"
)

// ChatModel is the slice of the llm client the engine needs.
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)
}

// PolicyGate decides whether a tool call may run.
type PolicyGate interface {
	Evaluate(ctx context.Context, input interface{}) (string, error)
}

// ErrPolicyBlocked is reported to the model when the donation policy
// rejects a tool call.
var ErrPolicyBlocked = errors.New("operation not allowed by donation policy")

// Options wires an Engine.
type Options struct {
	Model         ChatModel
	ModelName     string
	Handlers      *Handlers
	Gate          PolicyGate
	Store         store.Store
	OrgName       string
	HistoryLimit  int
	SummaryWindow int
	DonationCap   int
	Logger        zerolog.Logger
}

// Engine runs the two round-trip conversation loop: one model call with the
// tool catalog attached, tool execution, then a second call without tools to
// phrase the reply.
type Engine struct {
	model         ChatModel
	modelName     string
	handlers      *Handlers
	gate          PolicyGate
	db            store.Store
	sessions      *Sessions
	prompt        string
	summaryWindow int
	donationCap   int
	log           zerolog.Logger
}

// NewEngine creates the conversation engine.
func NewEngine(opts Options) *Engine {
	return &Engine{
		model:         opts.Model,
		modelName:     opts.ModelName,
		handlers:      opts.Handlers,
		gate:          opts.Gate,
		db:            opts.Store,
		sessions:      NewSessions(opts.HistoryLimit),
		prompt:        systemPrompt(opts.OrgName),
		summaryWindow: opts.SummaryWindow,
		donationCap:   opts.DonationCap,
		log:           opts.Logger,
	}
}

// Handle processes one inbound user message and returns the reply text.
// Handling is serialized per user.
func (e *Engine) Handle(ctx context.Context, userID, text string) (string, error) {
	sess := e.sessions.Get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	e.ensureProfile(ctx, userID)
	e.push(ctx, userID, sess, domain.Turn{Role: domain.RoleUser, Content: text})

	resp, err := e.model.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    e.modelName,
		Messages: e.messages(sess.buffer.Turns()),
		Tools:    tools.Catalog(),
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	msg, err := firstMessage(resp)
	if err != nil {
		return "", err
	}

	if len(msg.ToolCalls) == 0 {
		e.push(ctx, userID, sess, domain.Turn{Role: domain.RoleAssistant, Content: msg.Content})
		return msg.Content, nil
	}

	calls := make([]domain.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	e.push(ctx, userID, sess, domain.Turn{Role: domain.RoleAssistant, Content: msg.Content, ToolCalls: calls})

	// Every call gets exactly one result turn, in call order, before the
	// next model round-trip.
	for _, call := range calls {
		result := e.execute(ctx, userID, call)
		e.push(ctx, userID, sess, domain.Turn{
			Role:       domain.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
	}

	final, err := e.model.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    e.modelName,
		Messages: e.messages(sess.buffer.Tail(e.summaryWindow)),
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	finalMsg, err := firstMessage(final)
	if err != nil {
		return "", err
	}

	e.push(ctx, userID, sess, domain.Turn{Role: domain.RoleAssistant, Content: finalMsg.Content})
	return finalMsg.Content, nil
}

// execute gates and dispatches one tool call, returning the result string
// handed back to the model.
func (e *Engine) execute(ctx context.Context, userID string, call domain.ToolCall) string {
	kind, err := domain.ParseToolKind(call.Name)
	if err != nil {
		e.log.Warn().Str("user_id", userID).Str("tool", call.Name).Msg("model invoked unknown tool")
		return errorResult(err)
	}

	var args map[string]interface{}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return errorResult(fmt.Errorf("malformed arguments: %w", err))
	}

	decision, err := e.gate.Evaluate(ctx, map[string]interface{}{
		"tool":    call.Name,
		"args":    args,
		"user_id": userID,
		"cap":     e.donationCap,
	})
	if err != nil {
		// A broken policy should not take the bot down; log and let the
		// handler's own validation run.
		e.log.Error().Err(err).Str("tool", call.Name).Msg("policy evaluation failed")
	} else if decision == "block" {
		e.log.Info().Str("user_id", userID).Str("tool", call.Name).Msg("tool call blocked by policy")
		return errorResult(ErrPolicyBlocked)
	}

	return e.handlers.Dispatch(ctx, userID, kind, call.Arguments)
}

// messages renders the system prompt plus the given turns as a model
// payload.
func (e *Engine) messages(turns []domain.Turn) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(turns)+1)
	out = append(out, llm.ChatMessage{Role: string(domain.RoleSystem), Content: e.prompt})

	for _, turn := range turns {
		msg := llm.ChatMessage{
			Role:       string(turn.Role),
			Content:    turn.Content,
			ToolCallID: turn.ToolCallID,
		}
		if turn.Role == domain.RoleTool {
			msg.Name = turn.ToolName
		}
		for _, call := range turn.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:   call.ID,
				Type: "function",
				Function: llm.ToolCallFunction{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// ensureProfile creates a skeleton profile on first contact so the user is
// known before onboarding fills in the rest.
func (e *Engine) ensureProfile(ctx context.Context, userID string) {
	profile, err := e.db.GetProfile(ctx, userID)
	if err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("failed to load profile")
		return
	}
	if profile != nil {
		return
	}
	if err := e.db.PutProfile(ctx, &domain.UserProfile{WhatsAppID: userID}); err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("failed to create profile")
	}
}

// push appends a turn to the live buffer and archives it. Archive failures
// are logged, not fatal: losing history must not lose the conversation.
func (e *Engine) push(ctx context.Context, userID string, sess *Session, turn domain.Turn) {
	sess.buffer.Append(turn)

	if err := e.db.AppendTurn(ctx, &domain.ArchivedTurn{
		WhatsAppID: userID,
		Role:       turn.Role,
		Content:    turn.Content,
		ToolName:   turn.ToolName,
	}); err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("failed to archive turn")
	}
}

func firstMessage(resp *llm.ChatCompletionResponse) (*llm.ChatMessage, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, errors.New("model returned no choices")
	}
	return resp.Choices[0].Message, nil
}
