package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/agenthive/agenthive/internal/messages"
	rt "github.com/agenthive/agenthive/internal/runtime"
	"github.com/agenthive/agenthive/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStream replays a fixed primary event sequence.
type scriptedStream struct {
	events chan rt.Event
	final  string
	err    error
}

func newScriptedStream(final string, events ...rt.Event) *scriptedStream {
	ch := make(chan rt.Event, len(events))
	for _, event := range events {
		ch <- event
	}
	close(ch)
	return &scriptedStream{events: ch, final: final}
}

func (s *scriptedStream) Events() <-chan rt.Event { return s.events }
func (s *scriptedStream) Wait() (string, error)   { return s.final, s.err }

// recordingMessages captures persisted messages, optionally failing.
type recordingMessages struct {
	mu      sync.Mutex
	created []messages.CreateCommand
	err     error
}

func (m *recordingMessages) Create(ctx context.Context, cmd messages.CreateCommand) (*messages.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, cmd)
	return &messages.Message{AgentID: cmd.AgentID, Role: cmd.Role, Content: cmd.Content}, nil
}

func (m *recordingMessages) ListByAgent(ctx context.Context, agentID string, filters messages.Filters, page pagination.LimitOffset) ([]messages.Message, error) {
	return nil, nil
}

func testMultiplexer(msgs messages.System) *Multiplexer {
	return NewMultiplexer(msgs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sideEvent(message string) Event {
	return Event{Type: TypeAgentCreating, Data: map[string]any{"message": message}}
}

func TestMultiplexer_SideEventsDeliveredBeforeNextPrimary(t *testing.T) {
	stream := newScriptedStream("hello world",
		rt.Event{Kind: rt.KindTextDelta, Text: "hello "},
		rt.Event{Kind: rt.KindTextDelta, Text: "world"},
	)

	queue := NewQueue()
	queue.Put(sideEvent("before run"))

	var emitted []Event
	mux := testMultiplexer(&recordingMessages{})
	turn := Turn{AgentID: "a1", SessionID: "s1", UserInput: "hi"}

	err := mux.Run(context.Background(), turn, queue, stream, func(event Event) error {
		emitted = append(emitted, event)
		if len(emitted) == 2 {
			// Enqueued mid-turn: must surface before the following primary event.
			queue.Put(sideEvent("mid run"))
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, emitted, 4)
	assert.Equal(t, TypeAgentCreating, emitted[0].Type)
	assert.Equal(t, "before run", emitted[0].Data["message"])
	assert.Equal(t, TypeText, emitted[1].Type)
	assert.Equal(t, TypeAgentCreating, emitted[2].Type)
	assert.Equal(t, "mid run", emitted[2].Data["message"])
	assert.Equal(t, TypeText, emitted[3].Type)
}

func TestMultiplexer_FlushesRemainingSideEventsAfterPrimaryEnds(t *testing.T) {
	stream := newScriptedStream("done")

	queue := NewQueue()
	queue.Put(sideEvent("straggler one"))
	queue.Put(sideEvent("straggler two"))

	var emitted []Event
	mux := testMultiplexer(&recordingMessages{})

	err := mux.Run(context.Background(), Turn{AgentID: "a1"}, queue, stream, func(event Event) error {
		emitted = append(emitted, event)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, emitted, 2)
	assert.Equal(t, "straggler one", emitted[0].Data["message"])
	assert.Equal(t, "straggler two", emitted[1].Data["message"])
	assert.Zero(t, queue.Len())
}

func TestMultiplexer_ClassifiesPrimaryEvents(t *testing.T) {
	stream := newScriptedStream("result",
		rt.Event{Kind: rt.KindTurnUpdate, AgentName: "researcher"},
		rt.Event{Kind: rt.KindToolCall, ToolName: "spawn_agent"},
		rt.Event{Kind: rt.KindTextDelta, Text: "result"},
	)

	var emitted []Event
	mux := testMultiplexer(&recordingMessages{})

	err := mux.Run(context.Background(), Turn{AgentID: "a1"}, NewQueue(), stream, func(event Event) error {
		emitted = append(emitted, event)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, emitted, 3)
	assert.Equal(t, TypeAgentUpdated, emitted[0].Type)
	assert.Contains(t, emitted[0].Data["message"], "researcher")
	assert.Equal(t, TypeToolCalled, emitted[1].Type)
	assert.Contains(t, emitted[1].Data["message"], "spawn_agent")
	assert.Equal(t, TypeText, emitted[2].Type)
	assert.Equal(t, "result", emitted[2].Data["delta"])
	assert.NotContains(t, emitted[2].Data, "message")
}

func TestMultiplexer_PersistsUserAndAssistantMessages(t *testing.T) {
	stream := newScriptedStream("the answer",
		rt.Event{Kind: rt.KindTextDelta, Text: "the answer"},
	)

	msgs := &recordingMessages{}
	mux := testMultiplexer(msgs)
	turn := Turn{AgentID: "a1", SessionID: "s1", UserInput: "the question"}

	err := mux.Run(context.Background(), turn, NewQueue(), stream, func(Event) error { return nil })
	require.NoError(t, err)

	require.Len(t, msgs.created, 2)
	assert.Equal(t, messages.RoleUser, msgs.created[0].Role)
	assert.Equal(t, "the question", msgs.created[0].Content)
	assert.Equal(t, messages.RoleAssistant, msgs.created[1].Role)
	assert.Equal(t, "the answer", msgs.created[1].Content)
	assert.Equal(t, "s1", msgs.created[0].SessionID)
}

func TestMultiplexer_PersistenceFailureIsSwallowed(t *testing.T) {
	stream := newScriptedStream("fine",
		rt.Event{Kind: rt.KindTextDelta, Text: "fine"},
	)

	msgs := &recordingMessages{err: errors.New("backend down")}
	mux := testMultiplexer(msgs)

	var emitted []Event
	err := mux.Run(context.Background(), Turn{AgentID: "a1", UserInput: "q"}, NewQueue(), stream, func(event Event) error {
		emitted = append(emitted, event)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, emitted, 1)
}

func TestMultiplexer_EmitFailureStopsTheTurn(t *testing.T) {
	stream := newScriptedStream("x",
		rt.Event{Kind: rt.KindTextDelta, Text: "x"},
	)

	msgs := &recordingMessages{}
	mux := testMultiplexer(msgs)

	wantErr := errors.New("client went away")
	err := mux.Run(context.Background(), Turn{AgentID: "a1"}, NewQueue(), stream, func(Event) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Empty(t, msgs.created, "no persistence after a failed turn")
}

func TestQueue_DrainReturnsInEnqueueOrderAndEmpties(t *testing.T) {
	queue := NewQueue()
	queue.Put(sideEvent("one"))
	queue.Put(sideEvent("two"))
	queue.Put(sideEvent("three"))

	drained := queue.Drain()
	require.Len(t, drained, 3)
	assert.Equal(t, "one", drained[0].Data["message"])
	assert.Equal(t, "three", drained[2].Data["message"])
	assert.Zero(t, queue.Len())
	assert.Empty(t, queue.Drain())
}
