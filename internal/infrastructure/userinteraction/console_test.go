package userinteraction

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"browser-replay/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(t *testing.T, input string) (*ConsoleUserInteraction, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out bytes.Buffer
	return NewConsole(strings.NewReader(input), &out), &out
}

func TestAskQuestion(t *testing.T) {
	c, out := newTestConsole(t, "  42  \n")

	answer, err := c.AskQuestion(context.Background(), "How many?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Contains(t, out.String(), "How many?")
}

func TestAskQuestion_LastLineWithoutNewline(t *testing.T) {
	c, _ := newTestConsole(t, "yes")

	answer, err := c.AskQuestion(context.Background(), "Continue?")
	require.NoError(t, err)
	assert.Equal(t, "yes", answer)
}

func TestAskQuestion_EOF(t *testing.T) {
	c, _ := newTestConsole(t, "")

	_, err := c.AskQuestion(context.Background(), "Anything?")
	assert.ErrorIs(t, err, io.EOF)
}

func TestAskQuestion_CancelledContext(t *testing.T) {
	c, _ := newTestConsole(t, "ignored\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AskQuestion(ctx, "?")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnswerInput_RepromptsRequired(t *testing.T) {
	c, out := newTestConsole(t, "\n0.000.001-8\n")
	req := entity.InputRequest{
		FieldName:  "inscricao",
		FieldLabel: "Inscrição",
		Prompt:     "Informe a inscrição imobiliária",
		Example:    "0.000.000-0",
		Required:   true,
	}

	answer, err := c.AnswerInput(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "0.000.001-8", answer)

	printed := out.String()
	assert.Contains(t, printed, "Inscrição")
	assert.Contains(t, printed, "e.g. 0.000.000-0")
	assert.Contains(t, printed, "a value is required")
}

func TestAnswerInput_GivesUpOnRequired(t *testing.T) {
	c, _ := newTestConsole(t, "\n\n\n")

	_, err := c.AnswerInput(context.Background(), entity.InputRequest{FieldName: "cpf", Required: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"cpf"`)
}

func TestAnswerInput_OptionalMayBeBlank(t *testing.T) {
	c, out := newTestConsole(t, "\n")

	answer, err := c.AnswerInput(context.Background(), entity.InputRequest{FieldName: "complemento"})
	require.NoError(t, err)
	assert.Empty(t, answer)
	assert.Contains(t, out.String(), "complemento (optional)")
}

func TestShowPlan(t *testing.T) {
	c, out := newTestConsole(t, "")
	plan := &entity.Plan{
		Metadata: entity.PlanMetadata{
			ID:             "p1",
			Name:           "consulta_iptu",
			URL:            "https://example.org",
			RequiredParams: []string{"inscricao"},
			Tags:           []string{"iptu"},
		},
		Steps: []entity.PlanStep{
			{SequenceID: 0, Action: entity.ActionNavigate, Params: entity.NavigateParams{URL: "https://example.org"}, Description: "Navigate to https://example.org"},
		},
	}

	c.ShowPlan(context.Background(), plan)
	printed := out.String()
	assert.Contains(t, printed, "consulta_iptu")
	assert.Contains(t, printed, "Parameters: inscricao")
	assert.Contains(t, printed, "Navigate to https://example.org")

	c.ShowPlan(context.Background(), nil)
}

func TestShowResult(t *testing.T) {
	c, out := newTestConsole(t, "")
	result := &entity.ExecutionResult{
		Status:         entity.ExecutionSuccess,
		StepsCompleted: 3,
		TotalSteps:     3,
		Artifacts: []entity.Artifact{
			{Name: "step_02_result.json", Type: entity.ArtifactJSON, Metadata: map[string]any{
				entity.MetaIsFinalResult: true,
				entity.MetaValue:         "R$ 1.234,56",
			}},
		},
	}

	c.ShowResult(context.Background(), result)
	printed := out.String()
	assert.Contains(t, printed, "success")
	assert.Contains(t, printed, "steps 3/3")
	assert.Contains(t, printed, "Result: R$ 1.234,56")
	assert.Contains(t, printed, "step_02_result.json (json)")
}

func TestShowResult_Failure(t *testing.T) {
	c, out := newTestConsole(t, "")

	c.ShowResult(context.Background(), &entity.ExecutionResult{
		Status:       entity.ExecutionFailure,
		ErrorMessage: "step 1 (click) failed: element not found",
	})
	assert.Contains(t, out.String(), "Error: step 1 (click) failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ãé...", truncate("ãéí", 2))
}
