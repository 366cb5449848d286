package domain

import "time"

// Snapshot is a point-in-time copy of the published state.
// JSON uses snake_case field names so the status file is stable for consumers.
type Snapshot struct {
	// Condition is the last accepted value, or DefaultCondition.
	Condition Condition `json:"condition"`

	// Available is true once an update has been accepted while the server is serving.
	Available bool `json:"available"`

	// Serving is true while the accept loop is running.
	Serving bool `json:"serving"`

	// Accepted counts lines that updated the condition.
	Accepted uint64 `json:"accepted"`

	// Rejected counts lines that failed validation.
	Rejected uint64 `json:"rejected"`

	// Connections counts clients accepted since start.
	Connections uint64 `json:"connections"`

	// UpdatedAt is the time of the last accepted value; zero if none.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
