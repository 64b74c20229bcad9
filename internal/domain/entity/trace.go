package entity

// Trace is the recording of a discovery run: every operation the agent
// performed, in order, with the element map it was looking at.
type Trace struct {
	Objective   string      `json:"objective"`
	StartingURL string      `json:"starting_url,omitempty"`
	PlanName    string      `json:"plan_name,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Success     bool        `json:"success"`
	Error       string      `json:"error_message,omitempty"`
	Steps       []TraceStep `json:"steps"`
}

type TraceStep struct {
	Action   string         `json:"action"`
	Params   map[string]any `json:"params,omitempty"`
	Snapshot ElementMap     `json:"snapshot,omitempty"`
}

// DiscoveryRecord is everything a finished discovery session hands to the
// planner.
type DiscoveryRecord struct {
	SessionID      string               `json:"session_id,omitempty"`
	Trace          Trace                `json:"trace"`
	Parameters     []CollectedParameter `json:"parameters,omitempty"`
	ResultLocation *ResultLocation      `json:"result_location,omitempty"`
}
