package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/state"
)

// Execution is one archived node execution row.
type Execution struct {
	ID         int64     `json:"id"`
	NodeID     string    `json:"node_id"`
	NodeType   string    `json:"node_type"`
	Status     string    `json:"status"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Recorder appends finished executions from the workflow store to the
// archive database. It listens on the store's change broker; running
// entries are skipped and picked up once their terminal result lands.
type Recorder struct {
	db    *sql.DB
	store *state.WorkflowStore
}

// NewRecorder creates a recorder over an open archive database.
func NewRecorder(db *sql.DB, store *state.WorkflowStore) *Recorder {
	return &Recorder{db: db, store: store}
}

// Run consumes change notifications until ctx is cancelled.
// Call it from a goroutine.
func (r *Recorder) Run(ctx context.Context) {
	ch := r.store.Broker().Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Payload.Kind != state.ChangeLog || event.Payload.NodeID == "" {
				continue
			}
			r.record(event.Payload.NodeID)
		}
	}
}

// record archives the latest log entry for nodeID if it reached a terminal
// status.
func (r *Recorder) record(nodeID string) {
	entries := r.store.ExecutionLog()
	var latest *state.ExecutionLogEntry
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].NodeID == nodeID {
			latest = &entries[i]
			break
		}
	}
	if latest == nil || latest.Status == state.StatusRunning {
		return
	}
	if err := r.Append(*latest); err != nil {
		log.ErrorErr(log.CatArchive, "archiving execution failed", err, "nodeId", nodeID)
	}
}

// Append inserts one finished execution.
func (r *Recorder) Append(entry state.ExecutionLogEntry) error {
	output := ""
	if entry.Output != nil {
		raw, err := json.Marshal(entry.Output)
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		output = string(raw)
	}

	_, err := r.db.Exec(
		`INSERT INTO executions (node_id, node_type, status, output, error, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.NodeID, entry.NodeType, string(entry.Status), output, entry.Error, entry.Duration, entry.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	log.Debug(log.CatArchive, "execution archived", "nodeId", entry.NodeID, "status", entry.Status)
	return nil
}

// Recent returns the most recently recorded executions, newest first.
func Recent(db *sql.DB, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT id, node_id, node_type, status, output, error, duration_ms, started_at, recorded_at
		 FROM executions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.NodeID, &e.NodeType, &e.Status, &e.Output,
			&e.Error, &e.DurationMS, &e.StartedAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
