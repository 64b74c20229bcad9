package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"browser-replay/internal/domain/entity"
	"browser-replay/internal/infrastructure/browser/rod"
	"browser-replay/internal/infrastructure/logger"
	"browser-replay/internal/usecase/executor"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetingHTML = `<!DOCTYPE html>
<html>
<body>
	<input id="username" type="text" name="username" />
	<button id="submit" type="button"
		onclick="document.getElementById('out').textContent = 'Saldo devedor: R$ ' + (document.getElementById('username').value.length * 100) + ',00'">Consultar</button>
	<p id="out"></p>
</body>
</html>`

func TestExecutor_ReplaysPlanInBrowser(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a browser")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no browser binary available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(greetingHTML))
	}))
	defer srv.Close()

	plan := &entity.Plan{
		Metadata: entity.PlanMetadata{ID: "p1", Name: "saldo", RequiredParams: []string{"user"}, Tags: []string{}},
		Steps: []entity.PlanStep{
			{SequenceID: 0, Action: entity.ActionNavigate, Params: entity.NavigateParams{URL: srv.URL}},
			{SequenceID: 1, Action: entity.ActionInput, Params: entity.InputParams{
				Locator:         entity.LocatorBundle{ElementID: "username"},
				Text:            "{param:user}",
				IsParameterized: true,
			}},
			{SequenceID: 2, Action: entity.ActionClick, Params: entity.ClickParams{
				Locator: entity.LocatorBundle{Text: "Consultar", TagName: "button"},
			}},
			{SequenceID: 3, Action: entity.ActionExtract, Params: entity.ExtractParams{Query: "Saldo devedor", IsFinalResult: true}},
		},
	}

	browserCfg := rod.DefaultConfig()
	browserCfg.NoSandbox = true
	execCfg := executor.DefaultConfig()
	execCfg.SaveScreenshots = false
	execCfg.Settle = executor.Settle{Navigate: 200 * time.Millisecond, Click: 200 * time.Millisecond}

	log := logger.NewNop()
	exec := executor.New(rod.NewLauncher(browserCfg, log), execCfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := exec.Execute(ctx, plan, map[string]string{"user": "abc"})
	require.NoError(t, err)
	require.Equal(t, entity.ExecutionSuccess, result.Status, result.ErrorMessage)
	assert.Equal(t, 4, result.StepsCompleted)

	final, ok := result.FinalResult()
	require.True(t, ok)
	assert.Contains(t, final.Content, "300,00")
}
