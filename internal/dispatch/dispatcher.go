// Package dispatch applies validated, non-duplicate backend events to the
// shared workflow state with type-specific semantics.
package dispatch

import (
	"fmt"
	"time"

	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/state"
	"github.com/finchley/flowdeck/internal/wire"
)

// Dispatcher maps each event type to a mutation of the workflow state.
// It assumes the producer emits NODE_EXECUTING before the matching
// NODE_RESULT; when that ordering is violated it falls back to creating a
// fresh log entry rather than dropping the result.
type Dispatcher struct {
	store state.Store
}

// New creates a dispatcher mutating the given store.
func New(store state.Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Dispatch applies one envelope. Errors cover undecodable payloads only;
// unknown event types are ignored without error.
func (d *Dispatcher) Dispatch(env wire.Envelope) error {
	switch env.Type {
	case wire.EventWorkflowUpdate:
		return d.workflowUpdate(env)
	case wire.EventNodeExecuting:
		return d.nodeExecuting(env)
	case wire.EventNodeResult:
		return d.nodeResult(env)
	case wire.EventExecutionResult:
		d.executionResult()
		return nil
	case wire.EventAdaptationTriggered:
		return d.adaptationTriggered(env)
	default:
		log.Debug(log.CatDispatch, "ignoring unknown event type", "type", env.Type)
		return nil
	}
}

// workflowUpdate replaces the full node and edge sets. Never a merge.
func (d *Dispatcher) workflowUpdate(env wire.Envelope) error {
	p, err := env.UnmarshalWorkflow()
	if err != nil {
		return fmt.Errorf("workflow update payload: %w", err)
	}
	d.store.SetNodes(p.Nodes)
	d.store.SetEdges(p.Edges)
	log.Info(log.CatDispatch, "workflow replaced", "nodes", len(p.Nodes), "edges", len(p.Edges))
	return nil
}

func (d *Dispatcher) nodeExecuting(env wire.Envelope) error {
	p, err := env.UnmarshalNodeExecuting()
	if err != nil {
		return fmt.Errorf("node executing payload: %w", err)
	}

	d.store.SetExecutingNodeID(p.NodeID)
	d.store.SetIsExecuting(true)
	d.store.AddExecutionLog(state.ExecutionLogEntry{
		NodeID:    p.NodeID,
		NodeType:  p.NodeType,
		Status:    state.StatusRunning,
		StartedAt: time.Now(),
	})
	d.store.SetNodeDebugData(p.NodeID, state.DebugSnapshot{
		NodeID:   p.NodeID,
		NodeType: p.NodeType,
		Status:   state.StatusRunning,
		Inputs:   p.Inputs,
	})
	log.Debug(log.CatDispatch, "node executing", "nodeId", p.NodeID, "nodeType", p.NodeType)
	return nil
}

func (d *Dispatcher) nodeResult(env wire.Envelope) error {
	p, err := env.UnmarshalNodeResult()
	if err != nil {
		return fmt.Errorf("node result payload: %w", err)
	}

	status := state.StatusSuccess
	if p.Result.Status == "error" {
		status = state.StatusError
	}

	patch := state.LogPatch{
		Status:   &status,
		Output:   p.Result.Data,
		Error:    &p.Result.Error,
		Duration: &p.Result.Duration,
	}
	if !d.store.UpdateExecutionLog(p.NodeID, patch) {
		// Producer ordering violated: no NODE_EXECUTING was seen for this
		// node. A fresh entry keeps the result visible instead of losing it.
		log.Warn(log.CatDispatch, "node result without prior executing event", "nodeId", p.NodeID)
		d.store.AddExecutionLog(state.ExecutionLogEntry{
			NodeID:    p.NodeID,
			NodeType:  p.NodeType,
			Status:    status,
			Output:    p.Result.Data,
			Error:     p.Result.Error,
			Duration:  p.Result.Duration,
			StartedAt: time.Now(),
		})
	}

	snapPatch := state.SnapshotPatch{
		Status:   &status,
		Output:   p.Result.Data,
		Error:    &p.Result.Error,
		Duration: &p.Result.Duration,
	}
	if !d.store.UpdateNodeDebugData(p.NodeID, snapPatch) {
		// Same fallback for the snapshot; inputs come from this event since
		// the NODE_EXECUTING snapshot never existed.
		d.store.SetNodeDebugData(p.NodeID, state.DebugSnapshot{
			NodeID:   p.NodeID,
			NodeType: p.NodeType,
			Status:   status,
			Inputs:   p.Inputs,
			Output:   p.Result.Data,
			Error:    p.Result.Error,
			Duration: p.Result.Duration,
		})
	}

	log.Debug(log.CatDispatch, "node result", "nodeId", p.NodeID, "status", status, "duration", p.Result.Duration)
	return nil
}

// executionResult clears the executing indicator; the payload is unused.
func (d *Dispatcher) executionResult() {
	d.store.SetExecutingNodeID("")
	d.store.SetIsExecuting(false)
	log.Info(log.CatDispatch, "execution finished")
}

// adaptationTriggered replaces the graph only when the payload carries a
// replacement workflow; otherwise the event is informational.
func (d *Dispatcher) adaptationTriggered(env wire.Envelope) error {
	p, err := env.UnmarshalAdaptation()
	if err != nil {
		return fmt.Errorf("adaptation payload: %w", err)
	}
	if p.NewWorkflow == nil || len(p.NewWorkflow.Nodes) == 0 {
		log.Info(log.CatDispatch, "adaptation triggered (informational)", "reasoning", p.Reasoning)
		return nil
	}
	d.store.SetNodes(p.NewWorkflow.Nodes)
	d.store.SetEdges(p.NewWorkflow.Edges)
	log.Info(log.CatDispatch, "adaptation replaced workflow",
		"nodes", len(p.NewWorkflow.Nodes), "edges", len(p.NewWorkflow.Edges), "changes", len(p.Changes))
	return nil
}
