package entity

import "time"

type SessionStatus string

const (
	SessionInitialized     SessionStatus = "initialized"
	SessionRunning         SessionStatus = "running"
	SessionWaitingForInput SessionStatus = "waiting_for_input"
	SessionCompleted       SessionStatus = "completed"
	SessionFailed          SessionStatus = "failed"
	SessionCancelled       SessionStatus = "cancelled"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// CollectedParameter is a value a human supplied during discovery.
type CollectedParameter struct {
	ID              string `json:"param_id"`
	Name            string `json:"name"`
	Label           string `json:"label"`
	Value           string `json:"value"`
	XPath           string `json:"xpath,omitempty"`
	Description     string `json:"description"`
	Required        bool   `json:"required"`
	Example         string `json:"example,omitempty"`
	CollectedAtStep *int   `json:"collected_at_step,omitempty"`
}

type InputRequest struct {
	ID          string `json:"request_id"`
	FieldName   string `json:"field_name"`
	FieldLabel  string `json:"field_label"`
	Prompt      string `json:"prompt"`
	XPath       string `json:"xpath,omitempty"`
	Example     string `json:"placeholder,omitempty"`
	CurrentStep int    `json:"current_step"`
	Required    bool   `json:"required"`
}

// ResultLocation marks the element holding the objective's final answer.
// Only Index and Description are known at mark time; the rest is filled by
// the planner from trace snapshots.
type ResultLocation struct {
	Index        int    `json:"index"`
	Description  string `json:"description"`
	XPath        string `json:"xpath,omitempty"`
	Text         string `json:"text_content,omitempty"`
	ElementID    string `json:"element_id,omitempty"`
	ElementClass string `json:"element_class,omitempty"`
	ElementName  string `json:"element_name,omitempty"`
	TagName      string `json:"tag_name,omitempty"`
}

func (r ResultLocation) Locator() LocatorBundle {
	return LocatorBundle{
		Index:     IndexPtr(r.Index),
		ElementID: r.ElementID,
		XPath:     r.XPath,
		Text:      r.Text,
		TagName:   r.TagName,
		Class:     r.ElementClass,
		Name:      r.ElementName,
	}
}

// SessionState is the serializable view of a discovery session.
type SessionState struct {
	ID                  string               `json:"session_id"`
	Objective           string               `json:"objective"`
	Status              SessionStatus        `json:"status"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
	StepsCompleted      int                  `json:"steps_completed"`
	CollectedParameters []CollectedParameter `json:"collected_parameters"`
	CurrentInput        *InputRequest        `json:"current_input_request,omitempty"`
	ResultLocation      *ResultLocation      `json:"result_location,omitempty"`
	ErrorMessage        string               `json:"error_message,omitempty"`
}

type SessionEvent struct {
	SessionID string        `json:"session_id"`
	From      SessionStatus `json:"from"`
	To        SessionStatus `json:"to"`
	At        time.Time     `json:"at"`
}
