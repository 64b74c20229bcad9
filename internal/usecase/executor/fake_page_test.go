package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
)

type call struct {
	op    string
	index int
	text  string
}

type fakePage struct {
	mu       sync.Mutex
	elements entity.ElementMap
	text     string
	calls    []call
	closes   int
	// failures maps an op name to how many times it fails before working.
	failures map[string]int
	panicOn  string
	shotErr  error
}

func newFakePage(elements entity.ElementMap) *fakePage {
	return &fakePage{elements: elements, failures: map[string]int{}}
}

func (f *fakePage) record(op string, index int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, index: index, text: text})
	if op == f.panicOn {
		panic("boom in " + op)
	}
	if f.failures[op] > 0 {
		f.failures[op]--
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (f *fakePage) callsOf(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	return f.record("navigate", -1, url)
}

func (f *fakePage) Elements(context.Context) (entity.ElementMap, error) {
	if err := f.record("elements", -1, ""); err != nil {
		return nil, err
	}
	return f.elements, nil
}

func (f *fakePage) Click(_ context.Context, el entity.ElementDescriptor) error {
	return f.record("click", el.Index, "")
}

func (f *fakePage) Type(_ context.Context, el entity.ElementDescriptor, text string) error {
	return f.record("type", el.Index, text)
}

func (f *fakePage) Select(_ context.Context, el entity.ElementDescriptor, value string) error {
	return f.record("select", el.Index, value)
}

func (f *fakePage) Scroll(_ context.Context, direction string, _ int) error {
	return f.record("scroll", -1, direction)
}

func (f *fakePage) Screenshot(context.Context, bool) (*entity.Screenshot, error) {
	if err := f.record("screenshot", -1, ""); err != nil {
		return nil, err
	}
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	return &entity.Screenshot{Data: []byte("png-bytes"), Format: "png"}, nil
}

func (f *fakePage) Text(context.Context) (string, error) {
	if err := f.record("text", -1, ""); err != nil {
		return "", err
	}
	return f.text, nil
}

func (f *fakePage) ElementText(_ context.Context, el entity.ElementDescriptor) (string, error) {
	if err := f.record("element_text", el.Index, ""); err != nil {
		return "", err
	}
	return f.elements[el.Index].Text, nil
}

func (f *fakePage) CurrentURL() string {
	return "https://example.test"
}

func (f *fakePage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

type semanticPage struct {
	*fakePage
	result *output.SemanticResult
	err    error
	asked  []string
}

func (s *semanticPage) ExtractSemantic(_ context.Context, query string) (*output.SemanticResult, error) {
	s.asked = append(s.asked, query)
	return s.result, s.err
}

type fakeFactory struct {
	page   output.PagePort
	err    error
	opened int
}

func (f *fakeFactory) Open(context.Context) (output.PagePort, error) {
	f.opened++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

var errNoBrowser = errors.New("browser not installed")
