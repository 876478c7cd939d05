// Package wire defines the event envelope exchanged with the workflow
// backend and the codec that turns raw frames into typed envelopes.
package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the kind of backend event.
type EventType string

const (
	// EventWorkflowUpdate replaces the full node/edge graph.
	EventWorkflowUpdate EventType = "WORKFLOW_UPDATE"
	// EventExecutionResult signals that the overall execution finished.
	EventExecutionResult EventType = "EXECUTION_RESULT"
	// EventNodeExecuting signals that a node started executing.
	EventNodeExecuting EventType = "NODE_EXECUTING"
	// EventNodeResult carries the outcome of a node execution.
	EventNodeResult EventType = "NODE_RESULT"
	// EventAdaptationTriggered signals that the backend adapted the workflow,
	// optionally carrying a replacement graph.
	EventAdaptationTriggered EventType = "ADAPTATION_TRIGGERED"
)

// Known reports whether t is part of the closed event enumeration.
// Unknown types are not an error on the wire; the dispatcher ignores them.
func (t EventType) Known() bool {
	switch t {
	case EventWorkflowUpdate, EventExecutionResult, EventNodeExecuting,
		EventNodeResult, EventAdaptationTriggered:
		return true
	default:
		return false
	}
}

// Envelope is a single typed event record received over the socket.
// Payload is kept raw; per-type decoding is the dispatcher's concern.
type Envelope struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Decode parses a raw text frame into an Envelope.
// It performs a structural parse only; payload shapes are trusted per event
// type downstream. A missing timestamp is filled with the receipt time so
// fingerprinting and logging always have one.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decoding frame: missing event type")
	}
	if env.Timestamp == "" {
		env.Timestamp = time.Now().Format(time.RFC3339)
	}
	return env, nil
}
