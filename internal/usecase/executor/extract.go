package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
)

const (
	methodFullPage = "full_page"
	methodRegex    = "regex_extraction"
	methodElement  = "target_element"
	methodSemantic = "semantic"

	typeMonetary = "monetary"
	typeNumeric  = "numeric"
	currencyBRL  = "BRL"
)

var (
	indexMarkerRe = regexp.MustCompile(`\*?\[\d+\]<[^>]+>`)
	rejectValueRe = regexp.MustCompile(`^\d{1,2}$|^\d{4}$`)
	monetaryRe    = regexp.MustCompile(`^[\d.]+,\d{2}`)
	numericRe     = regexp.MustCompile(`^[\d.,]+`)
)

// valuePatterns follow the query text, most specific first: R$ amounts,
// thousands-dotted amounts, any decimal-comma amount, any 3+ char number.
var valuePatterns = []string{
	`[^\d]*?R?\$?\s*([\d.]+,\d{2})`,
	`[^\d]*?(\d{1,3}\.\d{3},\d{2})`,
	`[^\d]*?([\d.]+,\d{2})`,
	`[^\d]*?([\d.,]{3,})`,
}

type extractedValue struct {
	Query            string `json:"query"`
	Value            string `json:"value"`
	ExtractionMethod string `json:"extraction_method"`
	Type             string `json:"type,omitempty"`
	Currency         string `json:"currency,omitempty"`
}

func cleanText(text string) string {
	return indexMarkerRe.ReplaceAllString(text, "")
}

// matchValue finds the first acceptable value following query in text. An
// empty query matches values anywhere.
func matchValue(text, query string) (string, bool) {
	prefix := regexp.QuoteMeta(query)
	for _, p := range valuePatterns {
		re, err := regexp.Compile(`(?i)` + prefix + p)
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if rejectValueRe.MatchString(candidate) {
			continue
		}
		return candidate, true
	}
	return "", false
}

func detectType(value string) (valueType, currency string) {
	switch {
	case monetaryRe.MatchString(value):
		return typeMonetary, currencyBRL
	case numericRe.MatchString(value):
		return typeNumeric, ""
	default:
		return "", ""
	}
}

// extract runs an Extract step. Only a failure to read the page at all is an
// error; interpretation failures degrade to a whole-page artifact.
func (e *Executor) extract(ctx context.Context, page output.PagePort, step entity.PlanStep, p entity.ExtractParams) (entity.Artifact, error) {
	if p.Query == "" {
		return e.wholePage(ctx, page, step, p, nil)
	}

	semantic, hasSemantic := page.(output.SemanticExtractor)
	var failures []string

	if hasSemantic && e.config.PreferSemantic {
		art, err := e.extractSemantic(ctx, semantic, step, p)
		if err == nil {
			return art, nil
		}
		failures = append(failures, err.Error())
	}

	text, err := page.Text(ctx)
	if err != nil {
		return entity.Artifact{}, fmt.Errorf("read page text: %w", err)
	}
	if value, ok := matchValue(cleanText(text), p.Query); ok {
		return structuredArtifact(step, p, value, methodRegex, "", "")
	}

	if p.Target != nil && !p.Target.IsZero() {
		if value, ok := e.matchTarget(ctx, page, *p.Target); ok {
			return structuredArtifact(step, p, value, methodElement, "", "")
		}
	}
	failures = append(failures, fmt.Sprintf("no value found for %q", p.Query))

	if hasSemantic && !e.config.PreferSemantic {
		art, err := e.extractSemantic(ctx, semantic, step, p)
		if err == nil {
			return art, nil
		}
		failures = append(failures, err.Error())
	}

	e.logger.Warn("Falling back to full page extraction", "step", step.SequenceID, "query", p.Query)
	return e.wholePage(ctx, page, step, p, failures)
}

// matchTarget looks for a value in the text of the element the plan marked as
// holding the result.
func (e *Executor) matchTarget(ctx context.Context, page output.PagePort, target entity.LocatorBundle) (string, bool) {
	el, err := resolve(ctx, page, target)
	if err != nil {
		e.logger.Debug("Result element not resolved", "error", err)
		return "", false
	}
	text, err := page.ElementText(ctx, el)
	if err != nil {
		e.logger.Debug("Result element text unavailable", "error", err)
		return "", false
	}
	return matchValue(cleanText(text), "")
}

func (e *Executor) extractSemantic(ctx context.Context, semantic output.SemanticExtractor, step entity.PlanStep, p entity.ExtractParams) (entity.Artifact, error) {
	res, err := semantic.ExtractSemantic(ctx, p.Query)
	if err != nil {
		return entity.Artifact{}, fmt.Errorf("semantic extraction: %w", err)
	}
	if res == nil || strings.TrimSpace(res.Value) == "" {
		return entity.Artifact{}, fmt.Errorf("semantic extraction: empty value for %q", p.Query)
	}
	return structuredArtifact(step, p, strings.TrimSpace(res.Value), methodSemantic, res.ValueType, res.Currency)
}

func structuredArtifact(step entity.PlanStep, p entity.ExtractParams, value, method, valueType, currency string) (entity.Artifact, error) {
	if valueType == "" {
		valueType, currency = detectType(value)
	}
	data := extractedValue{
		Query:            p.Query,
		Value:            value,
		ExtractionMethod: method,
		Type:             valueType,
		Currency:         currency,
	}
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return entity.Artifact{}, fmt.Errorf("encode extracted value: %w", err)
	}

	meta := map[string]any{
		entity.MetaIsFinalResult:    p.IsFinalResult,
		entity.MetaDescription:      p.Query,
		entity.MetaExtractionMethod: method,
		entity.MetaValue:            value,
		entity.MetaStructured:       true,
		entity.MetaStep:             stepLabel(step),
	}
	if valueType != "" {
		meta[entity.MetaValueType] = valueType
	}
	return entity.Artifact{
		ID:       newID(),
		Type:     entity.ArtifactJSON,
		Name:     fmt.Sprintf("step_%02d_result.json", step.SequenceID),
		Content:  string(content),
		Metadata: meta,
	}, nil
}

func (e *Executor) wholePage(ctx context.Context, page output.PagePort, step entity.PlanStep, p entity.ExtractParams, failures []string) (entity.Artifact, error) {
	text, err := page.Text(ctx)
	if err != nil {
		return entity.Artifact{}, fmt.Errorf("read page text: %w", err)
	}
	meta := map[string]any{
		entity.MetaIsFinalResult:    p.IsFinalResult,
		entity.MetaExtractionMethod: methodFullPage,
		entity.MetaStep:             stepLabel(step),
	}
	if p.Query != "" {
		meta[entity.MetaDescription] = p.Query
	}
	if len(failures) > 0 {
		meta[entity.MetaError] = strings.Join(failures, "; ")
	}
	return entity.Artifact{
		ID:       newID(),
		Type:     entity.ArtifactText,
		Name:     fmt.Sprintf("step_%02d_extracted_content.txt", step.SequenceID),
		Content:  text,
		Metadata: meta,
	}, nil
}
