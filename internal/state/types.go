// Package state holds the shared workflow state the client renders from:
// the node/edge graph, the execution log, per-node debug snapshots, and the
// executing-node indicator. The event dispatcher is the only writer during a
// connection's lifetime; the UI and the archive observe changes through the
// store's broker.
package state

import (
	"time"

	"github.com/finchley/flowdeck/internal/wire"
)

// LogStatus is the status of an execution-log entry.
type LogStatus string

const (
	StatusRunning LogStatus = "running"
	StatusSuccess LogStatus = "success"
	StatusError   LogStatus = "error"
)

// ExecutionLogEntry records one node execution in arrival order.
type ExecutionLogEntry struct {
	NodeID    string
	NodeType  string
	Status    LogStatus
	Output    map[string]any
	Error     string
	Duration  int64 // milliseconds
	StartedAt time.Time
}

// LogPatch is a partial update applied to the most recent log entry for a
// node. Nil fields are left untouched.
type LogPatch struct {
	Status   *LogStatus
	Output   map[string]any
	Error    *string
	Duration *int64
}

// DebugSnapshot captures what a node saw and produced during execution.
type DebugSnapshot struct {
	NodeID   string
	NodeType string
	Status   LogStatus
	Inputs   map[string]any
	Output   map[string]any
	Error    string
	Duration int64
}

// SnapshotPatch is a partial update merged into an existing debug snapshot.
// Fields absent from the patch (notably the original inputs) are preserved.
type SnapshotPatch struct {
	Status   *LogStatus
	Output   map[string]any
	Error    *string
	Duration *int64
}

// Store is the mutation contract the event dispatcher drives.
// The dispatcher consumes this interface; it does not own the storage.
type Store interface {
	SetNodes(nodes []wire.Node)
	SetEdges(edges []wire.Edge)
	AddExecutionLog(entry ExecutionLogEntry)
	UpdateExecutionLog(nodeID string, patch LogPatch) bool
	SetIsExecuting(running bool)
	SetExecutingNodeID(nodeID string)
	SetNodeDebugData(nodeID string, snapshot DebugSnapshot)
	UpdateNodeDebugData(nodeID string, patch SnapshotPatch) bool
}
