package api

import "encoding/json"

// ChatRequest is the payload for a single chat turn.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the analytics backend's answer to a chat turn.
type ChatResponse struct {
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	Chart     json.RawMessage `json:"chart,omitempty"`
	Insights  []string        `json:"insights"`
	FollowUps []string        `json:"follow_ups"`
}

// HasChart reports whether the reply carries a chart payload. A JSON null
// chart counts as none.
func (r *ChatResponse) HasChart() bool {
	return r != nil && len(r.Chart) > 0 && string(r.Chart) != "null"
}

// HealthResponse is returned by the backend health probe.
type HealthResponse struct {
	Status          string `json:"status"`
	CubeJSConnected bool   `json:"cubejs_connected"`
	Version         string `json:"version,omitempty"`
}

// Healthy reports whether the backend declared itself healthy.
func (h *HealthResponse) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

// AgentInfo describes one agent registered with the backend.
type AgentInfo struct {
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Description   string   `json:"description"`
	Provider      *string  `json:"provider"`
	Tools         []string `json:"tools"`
	MemoryEnabled bool     `json:"memory_enabled"`
}

// AgentListResponse is the collection returned by GET /agents.
type AgentListResponse struct {
	Agents     []AgentInfo `json:"agents"`
	TotalCount int         `json:"total_count"`
}
