package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
)

const minTextScore = 0.3

// resolve finds the live element described by loc. The element map is
// queried fresh on every call; strategies are tried from the most to the
// least specific.
func resolve(ctx context.Context, page output.PagePort, loc entity.LocatorBundle) (entity.ElementDescriptor, error) {
	if loc.IsZero() {
		return entity.ElementDescriptor{}, &entity.ResolutionError{}
	}
	elements, err := page.Elements(ctx)
	if err != nil {
		return entity.ElementDescriptor{}, fmt.Errorf("query elements: %w", err)
	}
	indices := elements.Indices()

	var attempts []entity.ResolutionAttempt

	if loc.Index != nil {
		attempts = append(attempts, entity.ResolutionAttempt{Strategy: "index", Query: strconv.Itoa(*loc.Index)})
		if el, ok := elements[*loc.Index]; ok {
			return el, nil
		}
	}

	if loc.ElementID != "" {
		attempts = append(attempts, entity.ResolutionAttempt{Strategy: "element_id", Query: loc.ElementID})
		for _, i := range indices {
			if elements[i].Attr("id") == loc.ElementID {
				return elements[i], nil
			}
		}
	}

	if loc.XPath != "" {
		attempts = append(attempts, entity.ResolutionAttempt{Strategy: "xpath", Query: loc.XPath})
		for _, i := range indices {
			if elements[i].XPath == loc.XPath {
				return elements[i], nil
			}
		}
	}

	if expected := strings.TrimSpace(loc.Text); expected != "" {
		attempts = append(attempts, entity.ResolutionAttempt{Strategy: "text", Query: expected})
		if el, ok := bestTextMatch(elements, indices, expected); ok {
			return el, nil
		}
	}

	if loc.TagName != "" && loc.Class != "" {
		attempts = append(attempts, entity.ResolutionAttempt{Strategy: "tag_class", Query: loc.TagName + "." + loc.Class})
		for _, i := range indices {
			el := elements[i]
			if strings.EqualFold(el.TagName, loc.TagName) && el.Attr("class") == loc.Class {
				return el, nil
			}
		}
	}

	return entity.ElementDescriptor{}, &entity.ResolutionError{Attempts: attempts}
}

// bestTextMatch scores containment either way as the ratio of expected to
// candidate character counts and keeps the first best candidate above minTextScore.
func bestTextMatch(elements entity.ElementMap, indices []int, expected string) (entity.ElementDescriptor, bool) {
	var (
		best      entity.ElementDescriptor
		bestScore float64
	)
	for _, i := range indices {
		candidate := strings.TrimSpace(elements[i].Text)
		if candidate == "" {
			continue
		}
		if !strings.Contains(candidate, expected) && !strings.Contains(expected, candidate) {
			continue
		}
		score := float64(utf8.RuneCountInString(expected)) / float64(max(utf8.RuneCountInString(candidate), 1))
		if score > bestScore {
			best, bestScore = elements[i], score
		}
	}
	return best, bestScore > minTextScore
}
