package format

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/Andrei-Barwood/secretgate/internal/model"
)

func secretsOutcome() model.Outcome {
	return model.Outcome{
		Status:   model.StatusSecretsFound,
		ExitCode: model.ExitSecretsFound,
		Required: []string{"go.sum"},
		Flagged: []model.Entry{
			{
				Path: "config/prod.env",
				Findings: json.RawMessage(`[
					{"type": "Secret Keyword", "filename": "config/prod.env", "line_number": 4, "hashed_secret": "abc"}
				]`),
			},
		},
		Whitelisted: []string{"go.sum"},
	}
}

func TestTextClean(t *testing.T) {
	b, err := Text(model.Outcome{Status: model.StatusClean, Required: []string{"go.sum"}, Whitelisted: []string{"go.sum"}})
	require.NoError(t, err)
	assert.Equal(t, "successful\n", string(b))
}

func TestTextSecretsFound(t *testing.T) {
	b, err := Text(secretsOutcome())
	require.NoError(t, err)
	assert.Equal(t,
		`config/prod.env [{"type":"Secret Keyword","filename":"config/prod.env","line_number":4,"hashed_secret":"abc"}]`+"\n"+
			"Error: above secret detected\n",
		string(b))
}

func TestTextMissingRequiredStillPrintsSecrets(t *testing.T) {
	o := secretsOutcome()
	o.Status = model.StatusMissingRequired
	o.ExitCode = model.ExitMissingRequired
	o.Missing = []string{"go.sum"}

	b, err := Text(o)
	require.NoError(t, err)
	assert.Contains(t, string(b), "config/prod.env ")
	assert.Contains(t, string(b), "Error: fail to process expected go.sum\n")
	assert.NotContains(t, string(b), "above secret detected")
}

func TestJSONIncludesSummary(t *testing.T) {
	b, err := JSON(secretsOutcome())
	require.NoError(t, err)

	var got struct {
		Status   string `json:"status"`
		ExitCode int    `json:"exit_code"`
		Missing  []string
		Flagged  []struct {
			Path string `json:"path"`
		} `json:"flagged"`
		Summary []struct {
			Type  string `json:"type"`
			Count int    `json:"count"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "secrets_found", got.Status)
	assert.Equal(t, 3, got.ExitCode)
	assert.NotNil(t, got.Missing)
	require.Len(t, got.Flagged, 1)
	assert.Equal(t, "config/prod.env", got.Flagged[0].Path)
	require.Len(t, got.Summary, 1)
	assert.Equal(t, "Secret Keyword", got.Summary[0].Type)
}

func TestYAMLDecodesFindings(t *testing.T) {
	b, err := YAML(secretsOutcome())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(b, &got))
	assert.Equal(t, "secrets_found", got["status"])
	assert.Contains(t, string(b), "line_number: 4")
}

func TestMarkdownIncludesFinding(t *testing.T) {
	b, err := Markdown(secretsOutcome())
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, "### `config/prod.env`")
	assert.Contains(t, text, "| Secret Keyword | 1 | config/prod.env |")
}

func TestMarkdownClean(t *testing.T) {
	b, err := Markdown(model.Outcome{Status: model.StatusClean})
	require.NoError(t, err)
	assert.Contains(t, string(b), "No secrets outside the whitelist.")
}

func TestSARIFContainsRuleAndLine(t *testing.T) {
	b, err := SARIF(secretsOutcome())
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, "secretgate.secret.secret_keyword")
	assert.Contains(t, text, `"startLine": 4`)
	assert.Contains(t, text, `"uri": "config/prod.env"`)
}

func TestRenderKeepsTextDefault(t *testing.T) {
	f, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = Parse("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = Parse("html")
	assert.Error(t, err)

	b, err := Render(FormatText, model.Outcome{Status: model.StatusClean})
	require.NoError(t, err)
	assert.Equal(t, "successful\n", string(b))
}
