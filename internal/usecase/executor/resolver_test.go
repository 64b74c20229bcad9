package executor

import (
	"context"
	"errors"
	"testing"

	"browser-replay/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_IndexBeatsElementID(t *testing.T) {
	page := newFakePage(entity.ElementMap{
		1: {Index: 1, Attributes: map[string]string{"id": "other"}},
		2: {Index: 2, Attributes: map[string]string{"id": "target"}},
	})
	el, err := resolve(context.Background(), page, entity.LocatorBundle{Index: entity.IndexPtr(1), ElementID: "target"})
	require.NoError(t, err)
	assert.Equal(t, 1, el.Index)
}

func TestResolve_FallsThroughStrategies(t *testing.T) {
	elements := entity.ElementMap{
		1: {Index: 1, TagName: "div", Text: "Valor total do IPTU 2024 e taxas", Attributes: map[string]string{"class": "box"}},
		2: {Index: 2, XPath: "/html/body/form/input", Attributes: map[string]string{"id": "insc"}},
		3: {Index: 3, TagName: "SPAN", Attributes: map[string]string{"class": "price"}},
		4: {Index: 4, Text: "Valor total"},
	}
	page := newFakePage(elements)

	tests := []struct {
		name string
		loc  entity.LocatorBundle
		want int
	}{
		{"stale index then id", entity.LocatorBundle{Index: entity.IndexPtr(40), ElementID: "insc"}, 2},
		{"xpath", entity.LocatorBundle{XPath: "/html/body/form/input"}, 2},
		{"text picks best score", entity.LocatorBundle{Text: "Valor total"}, 4},
		{"text contained in longer candidate", entity.LocatorBundle{Text: "IPTU 2024 e taxas"}, 1},
		{"tag and class", entity.LocatorBundle{TagName: "span", Class: "price"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := resolve(context.Background(), page, tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, el.Index)
		})
	}
}

func TestResolve_TextBelowThreshold(t *testing.T) {
	page := newFakePage(entity.ElementMap{
		1: {Index: 1, Text: "This is a long paragraph that mentions IPTU only in passing among many words"},
	})
	_, err := resolve(context.Background(), page, entity.LocatorBundle{Text: "IPTU"})
	require.Error(t, err)

	var resErr *entity.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []entity.ResolutionAttempt{{Strategy: "text", Query: "IPTU"}}, resErr.Attempts)
	assert.ErrorIs(t, err, entity.ErrElementNotFound)
}

func TestBestTextMatch_CountsCharacters(t *testing.T) {
	elements := entity.ElementMap{
		1: {Index: 1, Text: "ção abcdef"},
		2: {Index: 2, Text: "Situação"},
	}

	_, ok := bestTextMatch(elements, []int{1}, "ção")
	assert.False(t, ok, "3 of 10 characters is not above the threshold")

	el, ok := bestTextMatch(elements, []int{1, 2}, "ção")
	require.True(t, ok)
	assert.Equal(t, 2, el.Index)
}

func TestResolve_EmptyLocator(t *testing.T) {
	_, err := resolve(context.Background(), newFakePage(nil), entity.LocatorBundle{})
	assert.ErrorIs(t, err, entity.ErrElementNotFound)
}

func TestResolve_ElementsError(t *testing.T) {
	page := newFakePage(nil)
	page.failures["elements"] = 1
	_, err := resolve(context.Background(), page, entity.LocatorBundle{Index: entity.IndexPtr(0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query elements")
}
