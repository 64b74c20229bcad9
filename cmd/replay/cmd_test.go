package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/di"
	"browser-replay/internal/domain/entity"
	"browser-replay/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type noPages struct{}

func (noPages) Open(ctx context.Context) (output.PagePort, error) {
	return nil, errors.New("browser unavailable")
}

type cli struct {
	t       *testing.T
	cfgFile string
	envDir  string
	dir     string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	for _, k := range []string{"OPENROUTER_API_KEY", "OPENROUTER_MODEL_NAME", "REPLAY_LLM_API_KEY", "REPLAY_STORAGE_DIR"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "storage:\n  dir: " + filepath.Join(dir, "data") + "\nexecutor:\n  retry_on_error: false\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o600))
	return &cli{t: t, cfgFile: cfgFile, envDir: dir, dir: dir}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root, a := newRootCmd(di.WithLogger(logger.NewNop()), di.WithPageFactory(noPages{}))
	defer a.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.cfgFile, "--env-dir", c.envDir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) writeRecord() string {
	c.t.Helper()
	record := entity.DiscoveryRecord{
		Trace: entity.Trace{
			Objective: "Consultar IPTU",
			Success:   true,
			Steps: []entity.TraceStep{
				{Action: "navigate", Params: map[string]any{"url": "https://x"}},
				{Action: "input", Params: map[string]any{"index": 3, "text": "0.000.001-8"}},
			},
		},
		Parameters: []entity.CollectedParameter{{Name: "inscricao", Value: "0.000.001-8"}},
	}
	data, err := json.Marshal(record)
	require.NoError(c.t, err)
	path := filepath.Join(c.dir, "record.json")
	require.NoError(c.t, os.WriteFile(path, data, 0o600))
	return path
}

func planIDFrom(t *testing.T, out string) string {
	t.Helper()
	const marker = "plan saved: "
	i := strings.Index(out, marker)
	require.GreaterOrEqual(t, i, 0, out)
	return strings.TrimSpace(out[i+len(marker):])
}

func TestCompileAndManagePlans(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "compile", c.writeRecord(), "--tags", "iptu", "--name", "consulta_iptu")
	require.NoError(t, err)
	id := planIDFrom(t, out)
	assert.Contains(t, out, "consulta_iptu")

	out, err = c.run("", "plans", "list", "--tags", "iptu")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "inscricao")

	out, err = c.run("", "plans", "search", "CONSULTA")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = c.run("", "plans", "show", id, "--format", "json")
	require.NoError(t, err)
	var plan entity.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, []string{"inscricao"}, plan.Metadata.RequiredParams)

	out, err = c.run("", "plans", "show", id, "-f", "yaml")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "steps")
	assert.Contains(t, out, "{param:inscricao}")

	_, err = c.run("", "plans", "show", id, "-f", "xml")
	assert.ErrorContains(t, err, "unknown format")

	out, err = c.run("", "plans", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "plan deleted")

	_, err = c.run("", "plans", "show", id)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	out, err = c.run("", "plans", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no plans")
}

func TestRun_StoresFailedResult(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "compile", c.writeRecord())
	require.NoError(t, err)
	id := planIDFrom(t, out)

	out, err = c.run("1.111.111-1\n", "run", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status error")
	assert.Contains(t, out, "inscricao")
	assert.Contains(t, out, "browser unavailable")

	out, err = c.run("", "results", "list", "--plan", id)
	require.NoError(t, err)
	assert.Contains(t, out, "error")
	assert.NotContains(t, out, "no results")
}

func TestRun_NoPromptWithParams(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "compile", c.writeRecord())
	require.NoError(t, err)
	id := planIDFrom(t, out)

	_, err = c.run("", "run", id, "--no-prompt", "-p", "inscricao=2.222.222-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status error")

	_, err = c.run("", "run", id, "-p", "broken")
	assert.ErrorContains(t, err, "want name=value")
}

func TestCompile_MissingFile(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "compile", filepath.Join(c.dir, "absent.json"))
	assert.ErrorContains(t, err, "read record")
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"a=1", " b =x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": ""}, params)

	_, err = parseParams([]string{"=1"})
	assert.Error(t, err)
}
