package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finchley/flowdeck/internal/state"
)

func TestNewMemoryDB_RunsMigrations(t *testing.T) {
	db, err := NewMemoryDB()
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='executions'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "executions", name)
}

func TestRecorder_AppendAndRecent(t *testing.T) {
	db, err := NewMemoryDB()
	require.NoError(t, err)
	defer db.Close()

	store := state.NewWorkflowStore()
	defer store.Close()
	r := NewRecorder(db, store)

	require.NoError(t, r.Append(state.ExecutionLogEntry{
		NodeID:    "n1",
		NodeType:  "llm",
		Status:    state.StatusSuccess,
		Output:    map[string]any{"answer": 42},
		Duration:  120,
		StartedAt: time.Now(),
	}))
	require.NoError(t, r.Append(state.ExecutionLogEntry{
		NodeID:    "n2",
		Status:    state.StatusError,
		Error:     "boom",
		StartedAt: time.Now(),
	}))

	got, err := Recent(db, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	require.Equal(t, "n2", got[0].NodeID)
	require.Equal(t, "error", got[0].Status)
	require.Equal(t, "boom", got[0].Error)
	require.Equal(t, "n1", got[1].NodeID)
	require.Contains(t, got[1].Output, "42")
	require.EqualValues(t, 120, got[1].DurationMS)
}

func TestRecorder_SkipsRunningEntries(t *testing.T) {
	db, err := NewMemoryDB()
	require.NoError(t, err)
	defer db.Close()

	store := state.NewWorkflowStore()
	defer store.Close()
	r := NewRecorder(db, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)
	time.Sleep(20 * time.Millisecond) // let the subscription attach

	store.AddExecutionLog(state.ExecutionLogEntry{NodeID: "n1", Status: state.StatusRunning, StartedAt: time.Now()})
	time.Sleep(50 * time.Millisecond)

	got, err := Recent(db, 10)
	require.NoError(t, err)
	require.Empty(t, got, "running entries are not archived")

	status := state.StatusSuccess
	dur := int64(5)
	store.UpdateExecutionLog("n1", state.LogPatch{Status: &status, Duration: &dur})

	require.Eventually(t, func() bool {
		got, err := Recent(db, 10)
		return err == nil && len(got) == 1
	}, time.Second, 10*time.Millisecond)

	got, err = Recent(db, 10)
	require.NoError(t, err)
	require.Equal(t, "success", got[0].Status)
}

func TestRecent_Limit(t *testing.T) {
	db, err := NewMemoryDB()
	require.NoError(t, err)
	defer db.Close()

	store := state.NewWorkflowStore()
	defer store.Close()
	r := NewRecorder(db, store)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Append(state.ExecutionLogEntry{
			NodeID: "n", Status: state.StatusSuccess, StartedAt: time.Now(),
		}))
	}

	got, err := Recent(db, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
}
