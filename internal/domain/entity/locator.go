package entity

import (
	"fmt"
	"strings"
)

// LocatorBundle holds the alternative descriptors used to find an element
// again at replay time. Empty strings and a nil Index mean "not known".
type LocatorBundle struct {
	Index     *int   `json:"index,omitempty"`
	ElementID string `json:"element_id,omitempty"`
	XPath     string `json:"xpath,omitempty"`
	Text      string `json:"text,omitempty"`
	TagName   string `json:"tag_name,omitempty"`
	Class     string `json:"class,omitempty"`
	Name      string `json:"name,omitempty"`
}

func IndexPtr(i int) *int {
	return &i
}

func (l LocatorBundle) IsZero() bool {
	return l.Index == nil && l.ElementID == "" && l.XPath == "" &&
		l.Text == "" && l.TagName == "" && l.Class == "" && l.Name == ""
}

// Merge fills the empty fields of l from other. Fields already set win.
func (l LocatorBundle) Merge(other LocatorBundle) LocatorBundle {
	if l.Index == nil && other.Index != nil {
		l.Index = IndexPtr(*other.Index)
	}
	if l.ElementID == "" {
		l.ElementID = other.ElementID
	}
	if l.XPath == "" {
		l.XPath = other.XPath
	}
	if l.Text == "" {
		l.Text = other.Text
	}
	if l.TagName == "" {
		l.TagName = other.TagName
	}
	if l.Class == "" {
		l.Class = other.Class
	}
	if l.Name == "" {
		l.Name = other.Name
	}
	return l
}

// String renders the most specific selector available, for descriptions.
func (l LocatorBundle) String() string {
	switch {
	case l.XPath != "":
		return l.XPath
	case l.ElementID != "":
		return "#" + l.ElementID
	case l.Index != nil:
		return fmt.Sprintf("element #%d", *l.Index)
	case l.TagName != "":
		if l.Class != "" {
			return l.TagName + "." + strings.ReplaceAll(strings.TrimSpace(l.Class), " ", ".")
		}
		return l.TagName
	default:
		return "element"
	}
}
