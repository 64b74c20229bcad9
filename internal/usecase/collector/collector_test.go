package collector

import (
	"sync"
	"testing"

	"browser-replay/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCollect_Defaults(t *testing.T) {
	c := New(logger.NewNop())
	step := 4

	p := c.Collect("inscricao_imobiliaria", "0.000.001-8", CollectOptions{Step: &step, XPath: "//*[@id='insc']"})

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Inscricao Imobiliaria", p.Label)
	assert.Equal(t, "0.000.001-8", p.Example)
	assert.True(t, p.Required)
	require.NotNil(t, p.CollectedAtStep)
	assert.Equal(t, 4, *p.CollectedAtStep)

	step = 9
	assert.Equal(t, 4, *p.CollectedAtStep, "step is copied, not aliased")
}

func TestCollect_KeepsInsertionOrder(t *testing.T) {
	c := New(logger.NewNop())
	c.Collect("b", "1", CollectOptions{})
	c.Collect("a", "2", CollectOptions{})
	c.Collect("c", "3", CollectOptions{})

	assert.Equal(t, []string{"b", "a", "c"}, c.Names())
	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].Name)
	assert.Equal(t, "c", list[2].Name)
}

func TestCollect_OverwriteWarnsAndKeepsPosition(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(logger.FromZap(zap.New(core)))

	c.Collect("cpf", "111", CollectOptions{})
	c.Collect("email", "a@b.co", CollectOptions{})
	c.Collect("cpf", "222", CollectOptions{Label: "CPF"})

	got, ok := c.Get("cpf")
	require.True(t, ok)
	assert.Equal(t, "222", got.Value)
	assert.Equal(t, "CPF", got.Label)
	assert.Equal(t, []string{"cpf", "email"}, c.Names())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, c.Collections())

	warnings := logs.FilterMessage("Parameter already collected, overwriting").All()
	assert.Len(t, warnings, 1)
}

func TestGet_Absent(t *testing.T) {
	c := New(logger.NewNop())
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.False(t, c.Has("missing"))
}

func TestClear(t *testing.T) {
	c := New(logger.NewNop())
	c.Collect("x", "1", CollectOptions{Optional: true})
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.List())
}

func TestCollect_Concurrent(t *testing.T) {
	c := New(logger.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Collect("same", "v", CollectOptions{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 50, c.Collections())
}

func TestCollect_DefaultLabelIsUnicodeAware(t *testing.T) {
	c := New(logger.NewNop())

	assert.Equal(t, "Área Total", c.Collect("área_total", "120", CollectOptions{}).Label)
	assert.Equal(t, "Órgão Emissor", c.Collect("órgão__emissor", "SSP", CollectOptions{}).Label)
}
