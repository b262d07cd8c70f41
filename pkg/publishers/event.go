package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/analytics-console/pkg/api"
)

// Event is a chat transcript entry published downstream.
type Event struct {
	ID        string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	Backend   string    `json:"backend"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Insights  []string  `json:"insights,omitempty"`
	FollowUps []string  `json:"follow_ups,omitempty"`
	HasChart  bool      `json:"has_chart"`
	AskedAt   time.Time `json:"asked_at"`
}

// NewEvent constructs an Event for one completed chat turn.
func NewEvent(backend string, req *api.ChatRequest, resp *api.ChatResponse) Event {
	evt := Event{
		ID:      uuid.NewString(),
		Backend: backend,
		AskedAt: time.Now().UTC(),
	}
	if req != nil {
		evt.Question = req.Message
		evt.SessionID = req.SessionID
	}
	if resp != nil {
		if resp.SessionID != "" {
			evt.SessionID = resp.SessionID
		}
		evt.Answer = resp.Message
		evt.Insights = resp.Insights
		evt.FollowUps = resp.FollowUps
		evt.HasChart = resp.HasChart()
	}
	return evt
}
