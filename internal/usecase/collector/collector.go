// Package collector records the values a human supplies during discovery.
package collector

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"

	"github.com/google/uuid"
)

type CollectOptions struct {
	Label       string
	XPath       string
	Description string
	Example     string
	Step        *int
	// Optional marks the parameter as not required. Parameters are required
	// unless stated otherwise.
	Optional bool
}

// Collector is an ordered name→parameter store. Re-collecting a name
// overwrites the value in place and logs a warning.
type Collector struct {
	mu     sync.RWMutex
	order  []string
	params map[string]entity.CollectedParameter
	count  int
	logger output.LoggerPort
}

func New(logger output.LoggerPort) *Collector {
	return &Collector{
		params: make(map[string]entity.CollectedParameter),
		logger: logger,
	}
}

func (c *Collector) Collect(name, value string, opts CollectOptions) entity.CollectedParameter {
	label := opts.Label
	if label == "" {
		label = titleize(name)
	}
	example := opts.Example
	if example == "" {
		example = value
	}

	param := entity.CollectedParameter{
		ID:          newID(),
		Name:        name,
		Label:       label,
		Value:       value,
		XPath:       opts.XPath,
		Description: opts.Description,
		Required:    !opts.Optional,
		Example:     example,
	}
	if opts.Step != nil {
		step := *opts.Step
		param.CollectedAtStep = &step
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.params[name]; ok {
		c.logger.Warn("Parameter already collected, overwriting",
			"name", name, "previous_step", prev.CollectedAtStep, "step", param.CollectedAtStep)
	} else {
		c.order = append(c.order, name)
	}
	c.params[name] = param
	c.count++

	c.logger.Info("Collected parameter", "name", name, "step", param.CollectedAtStep)
	return param
}

func (c *Collector) Get(name string) (entity.CollectedParameter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.params[name]
	return p, ok
}

func (c *Collector) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// List returns the parameters in first-collection order.
func (c *Collector) List() []entity.CollectedParameter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entity.CollectedParameter, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.params[name])
	}
	return out
}

func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Collections counts every Collect call, overwrites included.
func (c *Collector) Collections() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.params = make(map[string]entity.CollectedParameter)
	c.count = 0
}

func titleize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
