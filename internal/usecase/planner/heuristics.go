package planner

import (
	"regexp"
	"strings"

	"browser-replay/internal/domain/entity"
)

const fallbackParamName = "user_input"

// Input text matching any of these looks like user-specific data and is
// turned into a parameter.
var personalDataPatterns = []*regexp.Regexp{
	// phone
	regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
	// email
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
	// CPF
	regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`),
	// CEP
	regexp.MustCompile(`\b\d{5}-?\d{3}\b`),
}

var (
	xpathIDRe   = regexp.MustCompile(`id='([^']+)'`)
	xpathNameRe = regexp.MustCompile(`name='([^']+)'`)
)

func looksPersonal(text string) bool {
	for _, re := range personalDataPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// paramNameFor derives a parameter name from the element's xpath, then its
// id and name attributes.
func paramNameFor(loc entity.LocatorBundle) string {
	if strings.Contains(loc.XPath, "id=") {
		if m := xpathIDRe.FindStringSubmatch(loc.XPath); m != nil {
			return m[1]
		}
	}
	if strings.Contains(loc.XPath, "name=") {
		if m := xpathNameRe.FindStringSubmatch(loc.XPath); m != nil {
			return m[1]
		}
	}
	if loc.ElementID != "" {
		return loc.ElementID
	}
	if loc.Name != "" {
		return loc.Name
	}
	return fallbackParamName
}

func findParamByValue(value string, params []entity.CollectedParameter) (string, bool) {
	if value == "" {
		return "", false
	}
	for _, p := range params {
		if p.Value == value {
			return p.Name, true
		}
	}
	return "", false
}

var (
	slugStripRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
)

func planName(objective string) string {
	runes := []rune(objective)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	name := strings.ToLower(string(runes))
	name = slugStripRe.ReplaceAllString(name, "")
	name = slugSpaceRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "plan"
	}
	return name
}
