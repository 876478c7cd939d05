package wire

import "encoding/json"

// Node is a single workflow graph node as sent by the backend.
type Node struct {
	ID   string         `json:"id"`
	Type string         `json:"type,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Edge connects two workflow nodes.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// WorkflowPayload is the payload of WORKFLOW_UPDATE events and of the
// newWorkflow field on ADAPTATION_TRIGGERED events.
type WorkflowPayload struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeExecutingPayload is the payload of NODE_EXECUTING events.
type NodeExecutingPayload struct {
	NodeID   string         `json:"nodeId"`
	NodeType string         `json:"nodeType,omitempty"`
	Inputs   map[string]any `json:"inputs,omitempty"`
}

// NodeResult is the result block of a NODE_RESULT payload.
type NodeResult struct {
	Status   string         `json:"status,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration int64          `json:"duration,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// NodeResultPayload is the payload of NODE_RESULT events.
type NodeResultPayload struct {
	NodeID   string         `json:"nodeId"`
	NodeType string         `json:"nodeType,omitempty"`
	Result   NodeResult     `json:"result"`
	Inputs   map[string]any `json:"inputs,omitempty"`
}

// AdaptationPayload is the payload of ADAPTATION_TRIGGERED events.
// NewWorkflow is optional; without it the event is informational only.
type AdaptationPayload struct {
	Reasoning   string           `json:"reasoning,omitempty"`
	Changes     []string         `json:"changes,omitempty"`
	NewWorkflow *WorkflowPayload `json:"newWorkflow,omitempty"`
}

// UnmarshalWorkflow decodes the envelope payload as a WorkflowPayload.
func (e Envelope) UnmarshalWorkflow() (WorkflowPayload, error) {
	var p WorkflowPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// UnmarshalNodeExecuting decodes the envelope payload as a NodeExecutingPayload.
func (e Envelope) UnmarshalNodeExecuting() (NodeExecutingPayload, error) {
	var p NodeExecutingPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// UnmarshalNodeResult decodes the envelope payload as a NodeResultPayload.
func (e Envelope) UnmarshalNodeResult() (NodeResultPayload, error) {
	var p NodeResultPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// UnmarshalAdaptation decodes the envelope payload as an AdaptationPayload.
func (e Envelope) UnmarshalAdaptation() (AdaptationPayload, error) {
	var p AdaptationPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}
