package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agenthive/agenthive/internal/config"
	"github.com/agenthive/agenthive/internal/session"
	"github.com/openai/openai-go"
)

// ErrMaxTurns indicates a generation that kept requesting tools past the
// configured turn limit.
var ErrMaxTurns = errors.New("max generation turns exceeded")

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// so complete calls can be reconstructed once the turn finishes.
type aggCall struct{ id, name, args string }

// OpenAIRuntime implements Runtime over the OpenAI Chat Completions API with
// streaming and function calling.
type OpenAIRuntime struct {
	client   *openai.Client
	model    string
	maxTurns int
	logger   *slog.Logger
}

// NewOpenAI creates the runtime from chat configuration. The client reads
// OPENAI_API_KEY from the environment.
func NewOpenAI(cfg *config.ChatConfig, logger *slog.Logger) *OpenAIRuntime {
	client := openai.NewClient()
	return NewOpenAIFromClient(&client, cfg, logger)
}

// NewOpenAIFromClient creates the runtime from an existing client.
func NewOpenAIFromClient(client *openai.Client, cfg *config.ChatConfig, logger *slog.Logger) *OpenAIRuntime {
	return &OpenAIRuntime{
		client:   client,
		model:    cfg.Model,
		maxTurns: cfg.MaxTurns,
		logger:   logger.With("system", "runtime"),
	}
}

type openaiStream struct {
	events chan Event
	done   chan struct{}
	final  string
	err    error
}

func (s *openaiStream) Events() <-chan Event { return s.events }

func (s *openaiStream) Wait() (string, error) {
	<-s.done
	return s.final, s.err
}

func (r *OpenAIRuntime) Run(ctx context.Context, spec AgentSpec, history []session.Record, input string) (Stream, error) {
	s := &openaiStream{
		events: make(chan Event, 32),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.events)
		s.final, s.err = r.generate(ctx, spec, history, input, s.events)
	}()
	return s, nil
}

func (r *OpenAIRuntime) generate(ctx context.Context, spec AgentSpec, history []session.Record, input string, out chan<- Event) (string, error) {
	messages := buildMessages(spec, history, input)
	toolParams, toolIndex := buildTools(spec.Tools)

	if err := emit(ctx, out, Event{Kind: KindTurnUpdate, AgentName: spec.Name}); err != nil {
		return "", err
	}

	for turn := 0; turn < r.maxTurns; turn++ {
		params := openai.ChatCompletionNewParams{
			Messages: messages,
			Model:    r.model,
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}

		stream := r.client.Chat.Completions.NewStreaming(ctx, params)
		var text strings.Builder
		agg := map[int64]*aggCall{}

		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					text.WriteString(choice.Delta.Content)
					err := emit(ctx, out, Event{Kind: KindTextDelta, Text: choice.Delta.Content})
					if err != nil {
						return "", err
					}
				}
				for _, tc := range choice.Delta.ToolCalls {
					ac, ok := agg[tc.Index]
					if !ok {
						ac = &aggCall{}
						agg[tc.Index] = ac
					}
					if tc.ID != "" {
						ac.id = tc.ID
					}
					if tc.Function.Name != "" {
						ac.name = tc.Function.Name
					}
					if tc.Function.Arguments != "" {
						ac.args += tc.Function.Arguments
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return "", fmt.Errorf("openai streaming: %w", err)
		}

		if len(agg) == 0 {
			return text.String(), nil
		}

		calls := orderedCalls(agg)
		toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
		for i, ac := range calls {
			toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
				ID:   ac.id,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      ac.name,
					Arguments: ac.args,
				},
			}
		}
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCalls,
			},
		})

		for _, ac := range calls {
			event := Event{Kind: KindToolCall, ToolName: ac.name, ToolArguments: ac.args}
			if err := emit(ctx, out, event); err != nil {
				return "", err
			}
			result := r.invoke(ctx, toolIndex, ac)
			messages = append(messages, openai.ToolMessage(result, ac.id))
		}
	}

	return "", ErrMaxTurns
}

// invoke runs one requested tool. Model-side mistakes (unknown tool, bad
// arguments) and tool failures are fed back to the model as text rather than
// aborting the run.
func (r *OpenAIRuntime) invoke(ctx context.Context, index map[string]Tool, ac *aggCall) string {
	tool, ok := index[ac.name]
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", ac.name)
		return fmt.Sprintf("error: unknown tool %q", ac.name)
	}

	args := map[string]any{}
	if strings.TrimSpace(ac.args) != "" {
		if err := json.Unmarshal([]byte(ac.args), &args); err != nil {
			return fmt.Sprintf("error: invalid arguments: %v", err)
		}
	}

	result, err := tool.Call(ctx, args)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", ac.name, "error", err)
		return fmt.Sprintf("error: %v", err)
	}
	return result
}

func buildMessages(spec AgentSpec, history []session.Record, input string) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if spec.Instruction != "" {
		messages = append(messages, openai.SystemMessage(spec.Instruction))
	}
	for _, rec := range history {
		switch rec.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(rec.Content))
		default:
			messages = append(messages, openai.UserMessage(rec.Content))
		}
	}
	return append(messages, openai.UserMessage(input))
}

func buildTools(tools []Tool) ([]openai.ChatCompletionToolParam, map[string]Tool) {
	if len(tools) == 0 {
		return nil, map[string]Tool{}
	}
	params := make([]openai.ChatCompletionToolParam, len(tools))
	index := make(map[string]Tool, len(tools))
	for i, tool := range tools {
		params[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name(),
				Description: openai.String(tool.Description()),
				Parameters:  tool.Parameters(),
			},
		}
		index[tool.Name()] = tool
	}
	return params, index
}

func orderedCalls(agg map[int64]*aggCall) []*aggCall {
	indices := make([]int64, 0, len(agg))
	for i := range agg {
		indices = append(indices, i)
	}
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	calls := make([]*aggCall, len(indices))
	for i, idx := range indices {
		calls[i] = agg[idx]
	}
	return calls
}

func emit(ctx context.Context, out chan<- Event, event Event) error {
	select {
	case out <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
