package entity

import "sort"

// ElementDescriptor is one entry of the addressable element map as reported
// by the page model at query time.
type ElementDescriptor struct {
	Index      int               `json:"index"`
	XPath      string            `json:"xpath,omitempty"`
	TagName    string            `json:"tag_name,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Text       string            `json:"text,omitempty"`
}

func (d ElementDescriptor) Attr(name string) string {
	if d.Attributes == nil {
		return ""
	}
	return d.Attributes[name]
}

// Locator snapshots the descriptor into a bundle that can be embedded into
// plan steps and parameters.
func (d ElementDescriptor) Locator() LocatorBundle {
	idx := d.Index
	return LocatorBundle{
		Index:     &idx,
		ElementID: d.Attr("id"),
		XPath:     d.XPath,
		Text:      d.Text,
		TagName:   d.TagName,
		Class:     d.Attr("class"),
		Name:      d.Attr("name"),
	}
}

// ElementMap maps the volatile ordinal index to the element descriptor.
type ElementMap map[int]ElementDescriptor

// Indices returns the map keys in ascending order so scans over the map are
// deterministic.
func (m ElementMap) Indices() []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
