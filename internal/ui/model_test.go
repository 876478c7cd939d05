package ui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/finchley/flowdeck/internal/api"
	"github.com/finchley/flowdeck/internal/config"
	"github.com/finchley/flowdeck/internal/conn"
	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/pubsub"
	"github.com/finchley/flowdeck/internal/state"
	"github.com/finchley/flowdeck/internal/wire"
)

func newTestModel(t *testing.T) (*Model, *state.WorkflowStore) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := state.NewWorkflowStore()
	t.Cleanup(store.Close)

	// The manager never dials in these tests; Connect is not called.
	mgr := conn.NewManager(conn.Config{URL: "ws://localhost:1/ws"}, func([]byte) {})
	t.Cleanup(mgr.Teardown)

	// notty keeps glamour output free of ANSI sequences so substring
	// assertions on View() are deterministic.
	uiCfg := config.Defaults().UI
	uiCfg.MarkdownStyle = "notty"

	m := New(ctx, Options{
		Store:   store,
		Manager: mgr,
		Chat:    api.NewClient("http://localhost:1"),
		UI:      uiCfg,
	})

	// Size the model so View renders.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(*Model), store
}

func TestModel_ViewBeforeSize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := state.NewWorkflowStore()
	defer store.Close()
	mgr := conn.NewManager(conn.Config{URL: "ws://localhost:1/ws"}, func([]byte) {})
	defer mgr.Teardown()

	m := New(ctx, Options{Store: store, Manager: mgr, Chat: api.NewClient("http://localhost:1"), UI: config.Defaults().UI})
	require.Equal(t, "loading...", m.View())
}

func TestModel_EmptyWorkflow(t *testing.T) {
	m, _ := newTestModel(t)

	view := m.View()
	require.Contains(t, view, "flowdeck")
	require.Contains(t, view, "no workflow yet")
	require.Contains(t, view, "0 nodes / 0 edges")
}

func TestModel_RendersNodesAndExecutingMarker(t *testing.T) {
	m, store := newTestModel(t)

	store.SetNodes([]wire.Node{{ID: "fetch"}, {ID: "transform", Type: "llm"}})
	store.SetEdges([]wire.Edge{{Source: "fetch", Target: "transform"}})
	store.SetExecutingNodeID("transform")

	// Change events arrive through the broker in the real program; here we
	// feed one directly to trigger the refresh.
	updated, _ := m.Update(pubsub.Event[state.Change]{Payload: state.Change{Kind: state.ChangeGraph}})
	m = updated.(*Model)

	view := m.View()
	require.Contains(t, view, "fetch")
	require.Contains(t, view, "transform")
	require.Contains(t, view, "▶")
	require.Contains(t, view, "2 nodes / 1 edges")
}

func TestModel_ExecutionLogStatuses(t *testing.T) {
	m, store := newTestModel(t)

	store.AddExecutionLog(state.ExecutionLogEntry{NodeID: "a", Status: state.StatusSuccess, Duration: 42})
	store.AddExecutionLog(state.ExecutionLogEntry{NodeID: "b", Status: state.StatusError, Error: "boom"})

	updated, _ := m.Update(pubsub.Event[state.Change]{Payload: state.Change{Kind: state.ChangeLog}})
	m = updated.(*Model)

	view := m.View()
	require.Contains(t, view, "OK")
	require.Contains(t, view, "42ms")
	require.Contains(t, view, "ERR")
	require.Contains(t, view, "boom")
}

func TestModel_ConnectionIndicator(t *testing.T) {
	m, _ := newTestModel(t)

	require.Contains(t, m.View(), "disconnected")

	updated, _ := m.Update(pubsub.Event[conn.State]{Payload: conn.StateOpen})
	m = updated.(*Model)
	require.Contains(t, m.View(), "connected")

	updated, _ = m.Update(pubsub.Event[conn.State]{Payload: conn.StateConnecting})
	m = updated.(*Model)
	require.Contains(t, m.View(), "connecting")
}

func TestModel_EnterSendsChatAndShowsTranscript(t *testing.T) {
	m, _ := newTestModel(t)

	m.input.SetValue("run the pipeline")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)

	require.NotNil(t, cmd, "enter should fire the chat request")
	require.True(t, m.waiting)
	require.Contains(t, m.View(), "run the pipeline")
	require.Contains(t, m.View(), "waiting for reply")
	require.Empty(t, m.input.Value())

	// Enter while waiting is ignored.
	m.input.SetValue("again")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
}

func TestModel_ChatReply(t *testing.T) {
	m, _ := newTestModel(t)
	m.waiting = true

	updated, _ := m.Update(chatReplyMsg{reply: "workflow started"})
	m = updated.(*Model)

	require.False(t, m.waiting)
	require.Contains(t, m.View(), "workflow started")
}

func TestModel_ChatError(t *testing.T) {
	m, _ := newTestModel(t)
	m.waiting = true

	updated, _ := m.Update(chatReplyMsg{err: context.DeadlineExceeded})
	m = updated.(*Model)

	require.False(t, m.waiting)
	require.Contains(t, m.View(), "error")
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.False(t, m.waiting)
}

func TestModel_DebugPaneShowsSnapshot(t *testing.T) {
	m, store := newTestModel(t)

	store.SetExecutingNodeID("fetch")
	store.SetNodeDebugData("fetch", state.DebugSnapshot{
		NodeID: "fetch",
		Status: state.StatusRunning,
		Inputs: map[string]any{"url": "https://example.com"},
	})

	updated, _ := m.Update(pubsub.Event[state.Change]{Payload: state.Change{Kind: state.ChangeDebug, NodeID: "fetch"}})
	m = updated.(*Model)

	view := m.View()
	require.Contains(t, view, "fetch [running]")
}

func TestModel_LogTailToggle(t *testing.T) {
	m, _ := newTestModel(t)

	updated, _ := m.Update(log.Line{Payload: "[INFO] [conn] connection open\n"})
	m = updated.(*Model)
	require.NotContains(t, m.View(), "connection open", "tail hidden until toggled")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = updated.(*Model)
	require.Contains(t, m.View(), "connection open")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = updated.(*Model)
	require.NotContains(t, m.View(), "connection open")
}

func TestModel_LogTailKeepsRecentLines(t *testing.T) {
	m, _ := newTestModel(t)

	for i := 0; i < tailKeepLines+20; i++ {
		updated, _ := m.Update(log.Line{Payload: fmt.Sprintf("line %d", i)})
		m = updated.(*Model)
	}

	require.Len(t, m.tailLines, tailKeepLines)
	require.Equal(t, fmt.Sprintf("line %d", tailKeepLines+19), m.tailLines[len(m.tailLines)-1])
}

func TestModel_QuitKeys(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}
