package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
	"browser-replay/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchValue(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  string
		found bool
	}{
		{"currency prefix", "Valor Total Emitido na Guia: R$ 3.692,00", "valor total emitido na guia", "3.692,00", true},
		{"bare decimal comma", "Total 15,90 pago", "Total", "15,90", true},
		{"thousands without currency", "Saldo devedor 12.345,67", "Saldo devedor", "12.345,67", true},
		{"plain number", "Protocolo nº 123456", "Protocolo", "123456", true},
		{"year is rejected", "Exercicio 2024", "Exercicio", "", false},
		{"small number is rejected", "Parcela 12", "Parcela", "", false},
		{"query absent", "nothing here 1.000,00", "Valor", "", false},
		{"regex metacharacters in query", "Valor (R$) 10,00", "Valor (R$)", "10,00", true},
		{"empty query", "R$ 99,90", "", "99,90", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchValue(tt.text, tt.query)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Total R$ 1,00", cleanText("*[5]<span>Total R$ [12]<b>1,00"))
}

func TestDetectType(t *testing.T) {
	vt, cur := detectType("3.692,00")
	assert.Equal(t, "monetary", vt)
	assert.Equal(t, "BRL", cur)

	vt, cur = detectType("123456")
	assert.Equal(t, "numeric", vt)
	assert.Empty(t, cur)

	vt, _ = detectType("n/a")
	assert.Empty(t, vt)
}

func extractOnly(t *testing.T, page output.PagePort, cfg Config, p entity.ExtractParams) entity.Artifact {
	t.Helper()
	e := New(&fakeFactory{page: page}, cfg, logger.NewNop())
	art, err := e.extract(context.Background(), page, entity.PlanStep{SequenceID: 3, Action: entity.ActionExtract, Params: p}, p)
	require.NoError(t, err)
	return art
}

func TestExtract_WholePage(t *testing.T) {
	page := newFakePage(nil)
	page.text = "the whole page"

	art := extractOnly(t, page, testConfig(), entity.ExtractParams{})
	assert.Equal(t, entity.ArtifactText, art.Type)
	assert.Equal(t, "the whole page", art.Content)
	assert.Equal(t, "full_page", art.Metadata[entity.MetaExtractionMethod])
	assert.Equal(t, false, art.Metadata[entity.MetaIsFinalResult])
	assert.NotContains(t, art.Metadata, entity.MetaError)
}

func TestExtract_Regex(t *testing.T) {
	page := newFakePage(nil)
	page.text = "Valor do IPTU R$ 1.234,56"

	art := extractOnly(t, page, testConfig(), entity.ExtractParams{Query: "valor do IPTU", IsFinalResult: true})
	assert.Equal(t, entity.ArtifactJSON, art.Type)
	assert.Equal(t, "step_03_result.json", art.Name)
	assert.Equal(t, "1.234,56", art.Metadata[entity.MetaValue])
	assert.Equal(t, true, art.Metadata[entity.MetaIsFinalResult])
	assert.Equal(t, true, art.Metadata[entity.MetaStructured])
	assert.Equal(t, "monetary", art.Metadata[entity.MetaValueType])

	var got extractedValue
	require.NoError(t, json.Unmarshal([]byte(art.Content), &got))
	assert.Equal(t, extractedValue{
		Query:            "valor do IPTU",
		Value:            "1.234,56",
		ExtractionMethod: "regex_extraction",
		Type:             "monetary",
		Currency:         "BRL",
	}, got)
}

func TestExtract_TargetElement(t *testing.T) {
	page := newFakePage(entity.ElementMap{
		8: {Index: 8, XPath: "/html/body/span", Text: "R$ 980,10"},
	})
	page.text = "Resumo\nR$ 980,10"

	art := extractOnly(t, page, testConfig(), entity.ExtractParams{
		Query:         "valor do IPTU",
		IsFinalResult: true,
		Target:        &entity.LocatorBundle{XPath: "/html/body/span"},
	})
	assert.Equal(t, "target_element", art.Metadata[entity.MetaExtractionMethod])
	assert.Equal(t, "980,10", art.Metadata[entity.MetaValue])
}

func TestExtract_SemanticAfterRegexMiss(t *testing.T) {
	base := newFakePage(nil)
	base.text = "no numbers"
	page := &semanticPage{fakePage: base, result: &output.SemanticResult{Value: " 42.000 "}}

	art := extractOnly(t, page, testConfig(), entity.ExtractParams{Query: "population", IsFinalResult: true})
	assert.Equal(t, []string{"population"}, page.asked)
	assert.Equal(t, "semantic", art.Metadata[entity.MetaExtractionMethod])
	assert.Equal(t, "42.000", art.Metadata[entity.MetaValue])
	assert.Equal(t, "numeric", art.Metadata[entity.MetaValueType])
}

func TestExtract_PreferSemantic(t *testing.T) {
	base := newFakePage(nil)
	base.text = "Valor R$ 10,00"
	page := &semanticPage{fakePage: base, result: &output.SemanticResult{Value: "10,00", ValueType: "monetary", Currency: "BRL"}}
	cfg := testConfig()
	cfg.PreferSemantic = true

	art := extractOnly(t, page, cfg, entity.ExtractParams{Query: "Valor"})
	assert.Equal(t, "semantic", art.Metadata[entity.MetaExtractionMethod])
	assert.Empty(t, base.callsOf("text"))
}

func TestExtract_FallbackAnnotatesError(t *testing.T) {
	base := newFakePage(nil)
	base.text = "nothing useful"
	page := &semanticPage{fakePage: base, err: errors.New("model unavailable")}

	art := extractOnly(t, page, testConfig(), entity.ExtractParams{Query: "valor", IsFinalResult: true})
	assert.Equal(t, entity.ArtifactText, art.Type)
	assert.Equal(t, "nothing useful", art.Content)
	assert.Equal(t, "full_page", art.Metadata[entity.MetaExtractionMethod])
	assert.Equal(t, true, art.Metadata[entity.MetaIsFinalResult])
	require.Contains(t, art.Metadata, entity.MetaError)
	assert.Contains(t, art.Metadata[entity.MetaError], "model unavailable")
	assert.Contains(t, art.Metadata[entity.MetaError], `no value found for "valor"`)
}

func TestExtract_PageTextFailureIsAnError(t *testing.T) {
	page := newFakePage(nil)
	page.failures["text"] = 1
	e := New(&fakeFactory{page: page}, testConfig(), logger.NewNop())
	p := entity.ExtractParams{Query: "x"}
	_, err := e.extract(context.Background(), page, entity.PlanStep{Action: entity.ActionExtract, Params: p}, p)
	assert.Error(t, err)
}
