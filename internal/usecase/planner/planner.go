// Package planner compiles a discovery trace into a replayable plan.
package planner

import (
	"fmt"
	"sort"
	"time"

	"browser-replay/internal/application/port/input"
	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"

	"github.com/google/uuid"
)

const (
	markResultLocation = "mark_result_location"

	defaultScrollDirection = "down"
	defaultScrollAmount    = 500
	defaultWaitMs          = 1000
	inputPreviewLen        = 30
)

// actionTable maps trace operation names to plan actions.
var actionTable = map[string]entity.ActionType{
	"navigate":   entity.ActionNavigate,
	"click":      entity.ActionClick,
	"input":      entity.ActionInput,
	"select":     entity.ActionSelect,
	"scroll":     entity.ActionScroll,
	"wait":       entity.ActionWait,
	"extract":    entity.ActionExtract,
	"screenshot": entity.ActionScreenshot,
}

var _ input.PlanCompiler = (*Planner)(nil)

type Option func(*Planner)

func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(p *Planner) { p.newID = newID }
}

type Planner struct {
	logger output.LoggerPort
	now    func() time.Time
	newID  func() string
}

func New(logger output.LoggerPort, opts ...Option) *Planner {
	p := &Planner{
		logger: logger.Named("planner"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  newID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Planner) CompileRecord(record *entity.DiscoveryRecord) (*entity.Plan, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: discovery record is nil", entity.ErrInvalidTrace)
	}
	return p.Compile(&record.Trace, record.Parameters, record.ResultLocation)
}

// Compile turns trace into a plan. Only the plan id and timestamps depend on
// anything other than the arguments.
func (p *Planner) Compile(trace *entity.Trace, params []entity.CollectedParameter, loc *entity.ResultLocation) (*entity.Plan, error) {
	if trace == nil || len(trace.Steps) == 0 {
		return nil, fmt.Errorf("%w: trace is empty", entity.ErrInvalidTrace)
	}
	if !trace.Success {
		msg := trace.Error
		if msg == "" {
			msg = "discovery did not succeed"
		}
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidTrace, msg)
	}

	if loc == nil {
		loc = markedLocation(trace)
	}
	if loc != nil {
		loc = enrichResultLocation(*loc, trace)
	}

	c := &compilation{params: params, location: loc, synthesized: make(map[string]bool)}
	for i, ts := range trace.Steps {
		action, ok := actionTable[ts.Action]
		if !ok {
			if ts.Action != markResultLocation {
				p.logger.Debug("Skipping unknown trace action", "action", ts.Action, "trace_step", i)
			}
			continue
		}
		c.add(action, ts)
	}

	for _, name := range c.literalPlaceholders() {
		if !c.synthesized[name] && !c.collected(name) {
			p.logger.Warn("Trace text already contains a placeholder, requiring it", "param", name)
			c.synthesized[name] = true
		}
	}
	required := requiredParams(c.synthesized, params)
	meta := entity.PlanMetadata{
		ID:             p.newID(),
		Name:           trace.PlanName,
		Description:    trace.Objective,
		URL:            trace.StartingURL,
		RequiredParams: required,
		Tags:           append([]string{}, trace.Tags...),
	}
	if meta.Name == "" {
		meta.Name = planName(trace.Objective)
	}
	if meta.URL == "" {
		meta.URL = firstURL(c.steps)
	}
	if loc != nil {
		meta.ExpectedOutput = loc.Description
	}
	now := p.now()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	plan := &entity.Plan{Metadata: meta, Steps: c.steps}
	if plan.Steps == nil {
		plan.Steps = []entity.PlanStep{}
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("compiled plan: %w", err)
	}

	p.logger.Info("Plan compiled",
		"plan_id", meta.ID,
		"name", meta.Name,
		"steps", len(plan.Steps),
		"required_params", len(required),
	)
	return plan, nil
}

type compilation struct {
	params      []entity.CollectedParameter
	location    *entity.ResultLocation
	synthesized map[string]bool
	steps       []entity.PlanStep
}

func (c *compilation) add(action entity.ActionType, ts entity.TraceStep) {
	var params entity.StepParams
	switch action {
	case entity.ActionNavigate:
		params = entity.NavigateParams{URL: stringParam(ts.Params, "url")}
	case entity.ActionClick:
		params = entity.ClickParams{Locator: stepLocator(ts)}
	case entity.ActionInput:
		params = c.inputParams(ts)
	case entity.ActionSelect:
		params = entity.SelectParams{Locator: stepLocator(ts), Value: stringParam(ts.Params, "value")}
	case entity.ActionScroll:
		dir := stringParam(ts.Params, "direction")
		if dir == "" {
			dir = defaultScrollDirection
		}
		params = entity.ScrollParams{Direction: dir, Amount: intParamOr(ts.Params, defaultScrollAmount, "amount")}
	case entity.ActionWait:
		params = entity.WaitParams{DurationMs: intParamOr(ts.Params, defaultWaitMs, "duration_ms", "duration")}
	case entity.ActionExtract:
		params = c.extractParams()
	case entity.ActionScreenshot:
		params = entity.ScreenshotParams{FullPage: boolParam(ts.Params, "full_page")}
	}

	c.steps = append(c.steps, entity.PlanStep{
		SequenceID:     len(c.steps),
		Action:         action,
		Params:         params,
		Description:    describe(params),
		OriginalAction: ts.Action,
		OriginalParams: copyParams(ts.Params),
	})
}

// literalPlaceholders lists placeholder names present in the converted
// steps, including ones the trace carried verbatim.
func (c *compilation) literalPlaceholders() []string {
	var names []string
	for _, step := range c.steps {
		if step.Params != nil {
			names = append(names, entity.ReferencedParams(step.Params)...)
		}
	}
	return names
}

func (c *compilation) collected(name string) bool {
	for _, p := range c.params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (c *compilation) inputParams(ts entity.TraceStep) entity.InputParams {
	loc := stepLocator(ts)
	text := stringParam(ts.Params, "text")

	if name, ok := findParamByValue(text, c.params); ok {
		return entity.InputParams{Locator: loc, Text: entity.Placeholder(name), IsParameterized: true}
	}
	if looksPersonal(text) {
		name := paramNameFor(loc)
		c.synthesized[name] = true
		return entity.InputParams{Locator: loc, Text: entity.Placeholder(name), IsParameterized: true}
	}
	return entity.InputParams{Locator: loc, Text: text}
}

func (c *compilation) extractParams() entity.ExtractParams {
	if c.location == nil {
		return entity.ExtractParams{}
	}
	target := c.location.Locator()
	return entity.ExtractParams{
		Query:         c.location.Description,
		IsFinalResult: true,
		Target:        &target,
	}
}

// stepLocator builds the locator recorded for an element action, filling
// gaps from the element the step's own snapshot had at that index.
func stepLocator(ts entity.TraceStep) entity.LocatorBundle {
	loc := entity.LocatorBundle{XPath: stringParam(ts.Params, "xpath")}
	idx, ok := intParam(ts.Params, "index")
	if !ok {
		return loc
	}
	loc.Index = entity.IndexPtr(idx)
	if el, found := ts.Snapshot[idx]; found {
		loc = loc.Merge(el.Locator())
	}
	return loc
}

// markedLocation recovers a result location recorded inline in the trace.
func markedLocation(trace *entity.Trace) *entity.ResultLocation {
	for _, ts := range trace.Steps {
		if ts.Action != markResultLocation {
			continue
		}
		idx, ok := intParam(ts.Params, "index")
		if !ok {
			continue
		}
		return &entity.ResultLocation{Index: idx, Description: stringParam(ts.Params, "description")}
	}
	return nil
}

// enrichResultLocation copies element details from the earliest snapshot
// containing the marked index. A location that already has an xpath is
// returned as is.
func enrichResultLocation(loc entity.ResultLocation, trace *entity.Trace) *entity.ResultLocation {
	if loc.XPath != "" {
		return &loc
	}
	for _, ts := range trace.Steps {
		el, ok := ts.Snapshot[loc.Index]
		if !ok {
			continue
		}
		loc.XPath = el.XPath
		if loc.Text == "" {
			loc.Text = el.Text
		}
		if loc.ElementID == "" {
			loc.ElementID = el.Attr("id")
		}
		if loc.ElementClass == "" {
			loc.ElementClass = el.Attr("class")
		}
		if loc.ElementName == "" {
			loc.ElementName = el.Attr("name")
		}
		if loc.TagName == "" {
			loc.TagName = el.TagName
		}
		break
	}
	return &loc
}

func requiredParams(synthesized map[string]bool, collected []entity.CollectedParameter) []string {
	seen := make(map[string]bool, len(synthesized)+len(collected))
	names := make([]string, 0, len(synthesized)+len(collected))
	for name := range synthesized {
		seen[name] = true
		names = append(names, name)
	}
	for _, p := range collected {
		if p.Name != "" && !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

func firstURL(steps []entity.PlanStep) string {
	for _, s := range steps {
		if nav, ok := s.Params.(entity.NavigateParams); ok {
			return nav.URL
		}
	}
	return ""
}

func describe(params entity.StepParams) string {
	switch p := params.(type) {
	case entity.NavigateParams:
		return "Navigate to " + p.URL
	case entity.ClickParams:
		return "Click " + p.Locator.String()
	case entity.InputParams:
		preview := []rune(p.Text)
		if len(preview) > inputPreviewLen {
			preview = preview[:inputPreviewLen]
		}
		return fmt.Sprintf("Input text into %s: '%s...'", p.Locator.String(), string(preview))
	case entity.SelectParams:
		return "Select option in " + p.Locator.String()
	case entity.ScrollParams:
		return "Scroll " + p.Direction
	case entity.WaitParams:
		return fmt.Sprintf("Wait %dms", p.DurationMs)
	case entity.ExtractParams:
		return "Extract content from page"
	case entity.ScreenshotParams:
		return "Take screenshot"
	default:
		return "Execute " + params.Kind().String()
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
