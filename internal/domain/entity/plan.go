package entity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

type ActionType string

const (
	ActionNavigate   ActionType = "navigate"
	ActionClick      ActionType = "click"
	ActionInput      ActionType = "input"
	ActionSelect     ActionType = "select"
	ActionScroll     ActionType = "scroll"
	ActionWait       ActionType = "wait"
	ActionExtract    ActionType = "extract"
	ActionScreenshot ActionType = "screenshot"
	ActionDownload   ActionType = "download"
	ActionUpload     ActionType = "upload"
)

func (a ActionType) String() string {
	return string(a)
}

var placeholderRe = regexp.MustCompile(`\{param:([^{}]+)\}`)

// Placeholder renders the marker substituted at replay time.
func Placeholder(name string) string {
	return "{param:" + name + "}"
}

// PlaceholderNames lists the parameter names referenced in s, in order of
// appearance, without duplicates.
func PlaceholderNames(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// ReplacePlaceholders substitutes every placeholder whose name lookup
// resolves. Unresolved placeholders stay as literal text.
func ReplacePlaceholders(s string, lookup func(name string) (string, bool)) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		return m
	})
}

// StepParams is the closed set of per-action parameter records.
type StepParams interface {
	Kind() ActionType
	// MapText returns a copy with fn applied to every free-text field.
	MapText(fn func(string) string) StepParams
}

type NavigateParams struct {
	URL string `json:"url"`
}

type ClickParams struct {
	Locator LocatorBundle `json:"locator"`
}

type InputParams struct {
	Locator         LocatorBundle `json:"locator"`
	Text            string        `json:"text"`
	IsParameterized bool          `json:"is_parameterized"`
}

type SelectParams struct {
	Locator LocatorBundle `json:"locator"`
	Value   string        `json:"value,omitempty"`
}

type ScrollParams struct {
	Direction string `json:"direction"`
	Amount    int    `json:"amount"`
}

type WaitParams struct {
	DurationMs int `json:"duration_ms"`
}

type ExtractParams struct {
	Query         string         `json:"query,omitempty"`
	IsFinalResult bool           `json:"is_final_result"`
	Target        *LocatorBundle `json:"target,omitempty"`
}

type ScreenshotParams struct {
	FullPage bool `json:"full_page"`
}

type DownloadParams struct {
	Locator LocatorBundle `json:"locator"`
	URL     string        `json:"url,omitempty"`
}

type UploadParams struct {
	Locator  LocatorBundle `json:"locator"`
	FilePath string        `json:"file_path"`
}

func (NavigateParams) Kind() ActionType   { return ActionNavigate }
func (ClickParams) Kind() ActionType      { return ActionClick }
func (InputParams) Kind() ActionType      { return ActionInput }
func (SelectParams) Kind() ActionType     { return ActionSelect }
func (ScrollParams) Kind() ActionType     { return ActionScroll }
func (WaitParams) Kind() ActionType       { return ActionWait }
func (ExtractParams) Kind() ActionType    { return ActionExtract }
func (ScreenshotParams) Kind() ActionType { return ActionScreenshot }
func (DownloadParams) Kind() ActionType   { return ActionDownload }
func (UploadParams) Kind() ActionType     { return ActionUpload }

func (p NavigateParams) MapText(fn func(string) string) StepParams {
	p.URL = fn(p.URL)
	return p
}

func (p ClickParams) MapText(func(string) string) StepParams { return p }

func (p InputParams) MapText(fn func(string) string) StepParams {
	p.Text = fn(p.Text)
	return p
}

func (p SelectParams) MapText(fn func(string) string) StepParams {
	p.Value = fn(p.Value)
	return p
}

func (p ScrollParams) MapText(func(string) string) StepParams { return p }
func (p WaitParams) MapText(func(string) string) StepParams   { return p }

func (p ExtractParams) MapText(fn func(string) string) StepParams {
	p.Query = fn(p.Query)
	return p
}

func (p ScreenshotParams) MapText(func(string) string) StepParams { return p }

func (p DownloadParams) MapText(fn func(string) string) StepParams {
	p.URL = fn(p.URL)
	return p
}

func (p UploadParams) MapText(fn func(string) string) StepParams {
	p.FilePath = fn(p.FilePath)
	return p
}

// ReferencedParams lists placeholder names used by the params' text fields.
func ReferencedParams(p StepParams) []string {
	var names []string
	p.MapText(func(s string) string {
		names = append(names, PlaceholderNames(s)...)
		return s
	})
	return names
}

type PlanStep struct {
	SequenceID     int            `json:"sequence_id"`
	Action         ActionType     `json:"action"`
	Params         StepParams     `json:"params"`
	Description    string         `json:"description"`
	OriginalAction string         `json:"original_action,omitempty"`
	OriginalParams map[string]any `json:"original_params,omitempty"`
}

type planStepJSON struct {
	SequenceID     int             `json:"sequence_id"`
	Action         ActionType      `json:"action"`
	Params         json.RawMessage `json:"params"`
	Description    string          `json:"description"`
	OriginalAction string          `json:"original_action,omitempty"`
	OriginalParams map[string]any  `json:"original_params,omitempty"`
}

func (s PlanStep) MarshalJSON() ([]byte, error) {
	params := []byte("{}")
	if s.Params != nil {
		raw, err := json.Marshal(s.Params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", s.Action, err)
		}
		params = raw
	}
	return json.Marshal(planStepJSON{
		SequenceID:     s.SequenceID,
		Action:         s.Action,
		Params:         params,
		Description:    s.Description,
		OriginalAction: s.OriginalAction,
		OriginalParams: s.OriginalParams,
	})
}

func (s *PlanStep) UnmarshalJSON(data []byte) error {
	var aux planStepJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	params, err := decodeParams(aux.Action, aux.Params)
	if err != nil {
		return err
	}
	*s = PlanStep{
		SequenceID:     aux.SequenceID,
		Action:         aux.Action,
		Params:         params,
		Description:    aux.Description,
		OriginalAction: aux.OriginalAction,
		OriginalParams: aux.OriginalParams,
	}
	return nil
}

func decodeParams(action ActionType, raw json.RawMessage) (StepParams, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	var (
		out StepParams
		err error
	)
	switch action {
	case ActionNavigate:
		var p NavigateParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionClick:
		var p ClickParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionInput:
		var p InputParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionSelect:
		var p SelectParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionScroll:
		var p ScrollParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionWait:
		var p WaitParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionExtract:
		var p ExtractParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionScreenshot:
		var p ScreenshotParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionDownload:
		var p DownloadParams
		err = json.Unmarshal(raw, &p)
		out = p
	case ActionUpload:
		var p UploadParams
		err = json.Unmarshal(raw, &p)
		out = p
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidPlan, action)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s params: %w", action, err)
	}
	return out, nil
}

type PlanMetadata struct {
	ID             string    `json:"plan_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	URL            string    `json:"url,omitempty"`
	RequiredParams []string  `json:"required_params"`
	Tags           []string  `json:"tags"`
	ExpectedOutput string    `json:"expected_output,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Plan struct {
	Metadata PlanMetadata `json:"metadata"`
	Steps    []PlanStep   `json:"steps"`
}

// ReferencedParams returns the sorted distinct placeholder names across all
// steps.
func (p *Plan) ReferencedParams() []string {
	seen := make(map[string]bool)
	var names []string
	for _, step := range p.Steps {
		if step.Params == nil {
			continue
		}
		for _, name := range ReferencedParams(step.Params) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks the structural invariants a compiled plan must hold.
func (p *Plan) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: plan is nil", ErrInvalidPlan)
	}
	if p.Metadata.ID == "" {
		return fmt.Errorf("%w: plan has no id", ErrInvalidPlan)
	}
	for i, step := range p.Steps {
		if step.SequenceID != i {
			return fmt.Errorf("%w: step %d has sequence id %d", ErrInvalidPlan, i, step.SequenceID)
		}
		if step.Params == nil {
			return fmt.Errorf("%w: step %d has no params", ErrInvalidPlan, i)
		}
		if step.Params.Kind() != step.Action {
			return fmt.Errorf("%w: step %d is %s but carries %s params", ErrInvalidPlan, i, step.Action, step.Params.Kind())
		}
	}
	required := make(map[string]bool, len(p.Metadata.RequiredParams))
	for _, name := range p.Metadata.RequiredParams {
		required[name] = true
	}
	for _, name := range p.ReferencedParams() {
		if !required[name] {
			return fmt.Errorf("%w: placeholder %q is not a required param", ErrInvalidPlan, name)
		}
	}
	return nil
}

// MissingParams lists required params absent from values.
func (p *Plan) MissingParams(values map[string]string) []string {
	var missing []string
	for _, name := range p.Metadata.RequiredParams {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
