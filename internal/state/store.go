package state

import (
	"sync"

	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/pubsub"
	"github.com/finchley/flowdeck/internal/wire"
)

// ChangeKind tells subscribers which slice of state moved.
type ChangeKind string

const (
	ChangeGraph     ChangeKind = "graph"
	ChangeLog       ChangeKind = "log"
	ChangeExecution ChangeKind = "execution"
	ChangeDebug     ChangeKind = "debug"
)

// Change is the notification payload published after each mutation.
type Change struct {
	Kind   ChangeKind
	NodeID string // set for log/debug changes
}

// WorkflowStore is the in-memory implementation of Store.
// Mutations are serialized by a mutex; reads return copies so callers never
// hold references into guarded state.
type WorkflowStore struct {
	mu sync.RWMutex

	nodes           []wire.Node
	edges           []wire.Edge
	executionLog    []ExecutionLogEntry
	debugData       map[string]DebugSnapshot
	executingNodeID string
	isExecuting     bool

	broker *pubsub.Broker[Change]
}

// NewWorkflowStore creates an empty store.
func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{
		debugData: make(map[string]DebugSnapshot),
		broker:    pubsub.NewBroker[Change](),
	}
}

var _ Store = (*WorkflowStore)(nil)

// Broker exposes the change notification broker for subscribers (UI, archive).
func (s *WorkflowStore) Broker() *pubsub.Broker[Change] {
	return s.broker
}

// Close shuts down the change broker.
func (s *WorkflowStore) Close() {
	s.broker.Close()
}

// SetNodes replaces the full node set.
func (s *WorkflowStore) SetNodes(nodes []wire.Node) {
	s.mu.Lock()
	s.nodes = append([]wire.Node(nil), nodes...)
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeGraph})
}

// SetEdges replaces the full edge set.
func (s *WorkflowStore) SetEdges(edges []wire.Edge) {
	s.mu.Lock()
	s.edges = append([]wire.Edge(nil), edges...)
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeGraph})
}

// AddExecutionLog appends a new entry to the execution log.
func (s *WorkflowStore) AddExecutionLog(entry ExecutionLogEntry) {
	s.mu.Lock()
	s.executionLog = append(s.executionLog, entry)
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeLog, NodeID: entry.NodeID})
}

// UpdateExecutionLog patches the most recent log entry for nodeID.
// Returns false if the node has no log entry.
func (s *WorkflowStore) UpdateExecutionLog(nodeID string, patch LogPatch) bool {
	s.mu.Lock()
	idx := -1
	for i := len(s.executionLog) - 1; i >= 0; i-- {
		if s.executionLog[i].NodeID == nodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		log.Warn(log.CatState, "no execution log entry to update", "nodeId", nodeID)
		return false
	}

	entry := &s.executionLog[idx]
	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	if patch.Output != nil {
		entry.Output = patch.Output
	}
	if patch.Error != nil {
		entry.Error = *patch.Error
	}
	if patch.Duration != nil {
		entry.Duration = *patch.Duration
	}
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeLog, NodeID: nodeID})
	return true
}

// SetIsExecuting marks whether an execution is in flight.
func (s *WorkflowStore) SetIsExecuting(running bool) {
	s.mu.Lock()
	s.isExecuting = running
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeExecution})
}

// SetExecutingNodeID marks the node currently executing ("" clears it).
func (s *WorkflowStore) SetExecutingNodeID(nodeID string) {
	s.mu.Lock()
	s.executingNodeID = nodeID
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeExecution, NodeID: nodeID})
}

// SetNodeDebugData records a full debug snapshot for a node.
func (s *WorkflowStore) SetNodeDebugData(nodeID string, snapshot DebugSnapshot) {
	s.mu.Lock()
	s.debugData[nodeID] = snapshot
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeDebug, NodeID: nodeID})
}

// UpdateNodeDebugData merge-patches the existing snapshot for a node,
// preserving fields absent from the patch. Returns false if no snapshot
// exists yet.
func (s *WorkflowStore) UpdateNodeDebugData(nodeID string, patch SnapshotPatch) bool {
	s.mu.Lock()
	snap, ok := s.debugData[nodeID]
	if !ok {
		s.mu.Unlock()
		log.Warn(log.CatState, "no debug snapshot to update", "nodeId", nodeID)
		return false
	}
	if patch.Status != nil {
		snap.Status = *patch.Status
	}
	if patch.Output != nil {
		snap.Output = patch.Output
	}
	if patch.Error != nil {
		snap.Error = *patch.Error
	}
	if patch.Duration != nil {
		snap.Duration = *patch.Duration
	}
	s.debugData[nodeID] = snap
	s.mu.Unlock()
	s.broker.Publish(Change{Kind: ChangeDebug, NodeID: nodeID})
	return true
}

// Nodes returns a copy of the current node set.
func (s *WorkflowStore) Nodes() []wire.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]wire.Node(nil), s.nodes...)
}

// Edges returns a copy of the current edge set.
func (s *WorkflowStore) Edges() []wire.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]wire.Edge(nil), s.edges...)
}

// ExecutionLog returns a copy of the execution log in arrival order.
func (s *WorkflowStore) ExecutionLog() []ExecutionLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ExecutionLogEntry(nil), s.executionLog...)
}

// NodeDebugData returns the debug snapshot for a node, if any.
func (s *WorkflowStore) NodeDebugData(nodeID string) (DebugSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.debugData[nodeID]
	return snap, ok
}

// ExecutingNodeID returns the id of the node currently executing, or "".
func (s *WorkflowStore) ExecutingNodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executingNodeID
}

// IsExecuting reports whether an execution is in flight.
func (s *WorkflowStore) IsExecuting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isExecuting
}
