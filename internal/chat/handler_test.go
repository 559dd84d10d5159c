package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agenthive/agenthive/internal/agents"
	"github.com/agenthive/agenthive/internal/messages"
	rt "github.com/agenthive/agenthive/internal/runtime"
	"github.com/agenthive/agenthive/internal/session"
	"github.com/agenthive/agenthive/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingRuntime records the run it was asked for and replays a scripted
// stream.
type capturingRuntime struct {
	spec    rt.AgentSpec
	history []session.Record
	input   string
	final   string
	events  []rt.Event
}

func (c *capturingRuntime) Run(ctx context.Context, spec rt.AgentSpec, history []session.Record, input string) (rt.Stream, error) {
	c.spec = spec
	c.history = history
	c.input = input

	ch := make(chan rt.Event, len(c.events))
	for _, event := range c.events {
		ch <- event
	}
	close(ch)
	return &scriptedStream{events: ch, final: c.final}, nil
}

type chatFixture struct {
	agents   agents.System
	messages messages.System
	runtime  *capturingRuntime
	sessions session.Store
	mux      http.Handler
}

// stubTool satisfies the runtime tool surface with only a name. Handler tests
// assert on tool lineups, not tool behavior.
type stubTool struct{ name string }

func (s stubTool) Name() string               { return s.name }
func (s stubTool) Description() string        { return "" }
func (s stubTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (s stubTool) Call(ctx context.Context, args map[string]any) (string, error) {
	return "", nil
}

func newChatFixture(t *testing.T, resolver ToolResolver, owner OwnerToolBuilder) *chatFixture {
	t.Helper()

	f := &chatFixture{
		agents:   agents.NewMemoryRepository(),
		messages: messages.NewMemoryRepository(),
		sessions: session.NewMemory(),
		runtime: &capturingRuntime{
			final:  "assistant says hi",
			events: []rt.Event{{Kind: rt.KindTextDelta, Text: "assistant says hi"}},
		},
	}

	if resolver == nil {
		resolver = func(name string, queue *Queue) (rt.Tool, error) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
		}
	}
	if owner == nil {
		owner = func(queue *Queue) []rt.Tool { return nil }
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(
		f.agents, f.runtime, f.sessions, NewMultiplexer(f.messages, logger),
		resolver, owner, logger, 1<<20,
	)

	mux := http.NewServeMux()
	group := handler.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}
	f.mux = mux
	return f
}

func postChat(t *testing.T, mux http.Handler, agentID string, req Request) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	httpReq := httptest.NewRequest("POST", "/agents/generated_agents/"+agentID+"/chat", bytes.NewReader(body))
	mux.ServeHTTP(rec, httpReq)
	return rec
}

func decodeFrames(t *testing.T, body string) []Event {
	t.Helper()

	var events []Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func TestChat_KnownAgentRunsWithItsDefinition(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	created, err := f.agents.Create(t.Context(), agents.CreateCommand{
		OwnerID: "o1", Name: "researcher", Instruction: "research things",
	})
	require.NoError(t, err)

	rec := postChat(t, f.mux, created.ID, Request{SessionID: "s1", UserInput: "what is up"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	assert.Equal(t, "researcher", f.runtime.spec.Name)
	assert.Equal(t, "research things", f.runtime.spec.Instruction)
	assert.Equal(t, "what is up", f.runtime.input, "known agent input is not owner-framed")

	frames := decodeFrames(t, rec.Body.String())
	require.NotEmpty(t, frames)
	assert.Equal(t, TypeText, frames[0].Type)
	assert.Equal(t, "assistant says hi", frames[0].Data["delta"])

	transcript, err := f.messages.ListByAgent(t.Context(), created.ID, messages.Filters{}, pagination.LimitOffset{Limit: 10})
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, messages.RoleUser, transcript[0].Role)
	assert.Equal(t, messages.RoleAssistant, transcript[1].Role)
}

func TestChat_KnownAgentGetsOwnerToolSet(t *testing.T) {
	resolver := func(name string, queue *Queue) (rt.Tool, error) {
		return stubTool{name: name}, nil
	}
	owner := func(queue *Queue) []rt.Tool {
		return []rt.Tool{stubTool{name: "spawn_agent"}, stubTool{name: "split_task"}}
	}
	f := newChatFixture(t, resolver, owner)

	tool := "search"
	created, err := f.agents.Create(t.Context(), agents.CreateCommand{
		OwnerID: "o1", Name: "worker", Instruction: "work", Tool: &tool,
	})
	require.NoError(t, err)

	rec := postChat(t, f.mux, created.ID, Request{SessionID: "s1", UserInput: "go"})
	require.Equal(t, http.StatusOK, rec.Code)

	names := make([]string, 0, len(f.runtime.spec.Tools))
	for _, tl := range f.runtime.spec.Tools {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"search", "spawn_agent", "split_task"}, names,
		"own tool first, then the delegation tools")
}

func TestChat_KnownAgentWithoutToolStillDelegates(t *testing.T) {
	owner := func(queue *Queue) []rt.Tool {
		return []rt.Tool{stubTool{name: "spawn_agent"}, stubTool{name: "split_task"}}
	}
	f := newChatFixture(t, nil, owner)

	created, err := f.agents.Create(t.Context(), agents.CreateCommand{
		OwnerID: "o1", Name: "worker", Instruction: "work",
	})
	require.NoError(t, err)

	rec := postChat(t, f.mux, created.ID, Request{SessionID: "s1", UserInput: "go"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.runtime.spec.Tools, 2)
	assert.Equal(t, "spawn_agent", f.runtime.spec.Tools[0].Name())
}

func TestChat_UnknownAgentFallsBackToOwner(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	rec := postChat(t, f.mux, "nonexistent", Request{
		OwnerID:      "o1",
		OwnerAgentID: "oa1",
		SessionID:    "s1",
		UserInput:    "build me a team",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner", f.runtime.spec.Name)
	assert.Equal(t, "Owner ID: o1, Owner Agent ID: oa1, User Input: build me a team", f.runtime.input)
}

func TestChat_UnknownToolOnAgentIs400(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	tool := "teleport"
	created, err := f.agents.Create(t.Context(), agents.CreateCommand{
		OwnerID: "o1", Name: "worker", Instruction: "work", Tool: &tool,
	})
	require.NoError(t, err)

	rec := postChat(t, f.mux, created.ID, Request{SessionID: "s1", UserInput: "go"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_SessionHistorySeedsAndAppends(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	created, err := f.agents.Create(t.Context(), agents.CreateCommand{
		OwnerID: "o1", Name: "worker", Instruction: "work",
	})
	require.NoError(t, err)

	require.NoError(t, f.sessions.Append(t.Context(), "s1",
		session.Record{Role: "user", Content: "earlier"},
		session.Record{Role: "assistant", Content: "noted"},
	))

	rec := postChat(t, f.mux, created.ID, Request{SessionID: "s1", UserInput: "continue"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.runtime.history, 2, "prior history seeds the run")
	assert.Equal(t, "earlier", f.runtime.history[0].Content)

	history, err := f.sessions.History(t.Context(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 4, "turn appended to session history")
	assert.Equal(t, session.Record{Role: "user", Content: "continue"}, history[2])
	assert.Equal(t, session.Record{Role: "assistant", Content: "assistant says hi"}, history[3])
}

func TestChat_MalformedBodyIs400(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/agents/generated_agents/a1/chat", strings.NewReader("{not json"))
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
