package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/Andrei-Barwood/secretgate/internal/model"
	"github.com/Andrei-Barwood/secretgate/internal/report"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatSARIF    Format = "sarif"
)

func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "sarif":
		return FormatSARIF, nil
	default:
		return "", fmt.Errorf("invalid format: %s", s)
	}
}

func Render(f Format, o model.Outcome) ([]byte, error) {
	switch f {
	case FormatText:
		return Text(o)
	case FormatJSON:
		return JSON(o)
	case FormatYAML:
		return YAML(o)
	case FormatMarkdown:
		return Markdown(o)
	case FormatSARIF:
		return SARIF(o)
	default:
		return nil, fmt.Errorf("invalid format: %s", f)
	}
}

// Text prints one "<path> <findings>" line per flagged entry followed by the
// verdict line CI logs are grepped for.
func Text(o model.Outcome) ([]byte, error) {
	var b strings.Builder
	for _, e := range o.Flagged {
		fmt.Fprintf(&b, "%s %s\n", e.Path, compact(e.Findings))
	}

	switch {
	case len(o.Missing) > 0:
		for _, m := range o.Missing {
			fmt.Fprintf(&b, "Error: fail to process expected %s\n", m)
		}
	case o.SecretsFound():
		b.WriteString("Error: above secret detected\n")
	default:
		b.WriteString("successful\n")
	}
	return []byte(b.String()), nil
}

type flaggedView struct {
	Path     string `json:"path" yaml:"path"`
	Findings any    `json:"findings" yaml:"findings"`
}

type outcomeView struct {
	Status      model.Status         `json:"status" yaml:"status"`
	ExitCode    int                  `json:"exit_code" yaml:"exit_code"`
	Required    []string             `json:"required" yaml:"required"`
	Missing     []string             `json:"missing" yaml:"missing"`
	Whitelisted []string             `json:"whitelisted" yaml:"whitelisted"`
	Flagged     []flaggedView        `json:"flagged" yaml:"flagged"`
	Summary     []report.TypeSummary `json:"summary" yaml:"summary"`
}

func newView(o model.Outcome) (outcomeView, error) {
	v := outcomeView{
		Status:      o.Status,
		ExitCode:    o.ExitCode,
		Required:    nonNil(o.Required),
		Missing:     nonNil(o.Missing),
		Whitelisted: nonNil(o.Whitelisted),
		Flagged:     make([]flaggedView, 0, len(o.Flagged)),
		Summary:     report.Summarize(o.Flagged),
	}
	for _, e := range o.Flagged {
		var findings any
		if len(e.Findings) > 0 {
			if err := json.Unmarshal(e.Findings, &findings); err != nil {
				return outcomeView{}, fmt.Errorf("decode findings for %s: %w", e.Path, err)
			}
		}
		v.Flagged = append(v.Flagged, flaggedView{Path: e.Path, Findings: findings})
	}
	return v, nil
}

func JSON(o model.Outcome) ([]byte, error) {
	v, err := newView(o)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func YAML(o model.Outcome) ([]byte, error) {
	v, err := newView(o)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Markdown(o model.Outcome) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# secretgate report\n\n")
	fmt.Fprintf(&b, "- Status: `%s`\n", o.Status)
	fmt.Fprintf(&b, "- Exit code: `%d`\n", o.ExitCode)
	fmt.Fprintf(&b, "- Flagged paths: `%d`\n", len(o.Flagged))
	fmt.Fprintf(&b, "- Whitelisted paths: `%d`\n\n", len(o.Whitelisted))

	if len(o.Missing) > 0 {
		b.WriteString("## Missing required entries\n\n")
		for _, m := range o.Missing {
			fmt.Fprintf(&b, "- `%s`\n", m)
		}
		b.WriteString("\n")
	}

	if len(o.Flagged) == 0 {
		b.WriteString("No secrets outside the whitelist.\n")
		return []byte(b.String()), nil
	}

	b.WriteString("## Secrets by type\n\n")
	b.WriteString("| Type | Count | Paths |\n")
	b.WriteString("|---|---|---|\n")
	for _, s := range report.Summarize(o.Flagged) {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", s.Type, s.Count, strings.Join(s.Paths, ", "))
	}
	b.WriteString("\n## Findings\n\n")
	for _, e := range o.Flagged {
		fmt.Fprintf(&b, "### `%s`\n\n", e.Path)
		fmt.Fprintf(&b, "```json\n%s\n```\n\n", compact(e.Findings))
	}

	return []byte(b.String()), nil
}

// detect-secrets record fields used to enrich SARIF results when present.
type sarifFinding struct {
	Type       string `json:"type"`
	LineNumber int    `json:"line_number"`
}

func SARIF(o model.Outcome) ([]byte, error) {
	type region struct {
		StartLine int `json:"startLine"`
	}
	type artifactLocation struct {
		URI string `json:"uri"`
	}
	type location struct {
		PhysicalLocation struct {
			ArtifactLocation artifactLocation `json:"artifactLocation"`
			Region           *region          `json:"region,omitempty"`
		} `json:"physicalLocation"`
	}
	type resultItem struct {
		RuleID    string     `json:"ruleId"`
		Level     string     `json:"level"`
		Message   any        `json:"message"`
		Locations []location `json:"locations"`
	}

	results := make([]resultItem, 0, len(o.Flagged))
	for _, e := range o.Flagged {
		var records []sarifFinding
		if err := json.Unmarshal(e.Findings, &records); err != nil || len(records) == 0 {
			records = []sarifFinding{{}}
		}
		for _, r := range records {
			item := resultItem{
				RuleID:  ruleID(r.Type),
				Level:   "error",
				Message: map[string]string{"text": fmt.Sprintf("Potential secret outside the whitelist in %s.", e.Path)},
			}
			loc := location{}
			loc.PhysicalLocation.ArtifactLocation.URI = filepath.ToSlash(e.Path)
			if r.LineNumber > 0 {
				loc.PhysicalLocation.Region = &region{StartLine: r.LineNumber}
			}
			item.Locations = []location{loc}
			results = append(results, item)
		}
	}

	payload := map[string]any{
		"$schema": "https://json.schemastore.org/sarif-2.1.0.json",
		"version": "2.1.0",
		"runs": []any{
			map[string]any{
				"tool": map[string]any{
					"driver": map[string]any{
						"name":            "secretgate",
						"informationUri":  "https://github.com/Andrei-Barwood/secretgate",
						"semanticVersion": "0.1.0",
					},
				},
				"results": results,
			},
		},
	}

	return json.MarshalIndent(payload, "", "  ")
}

func ruleID(secretType string) string {
	if secretType == "" {
		return "secretgate.secret"
	}
	return "secretgate.secret." + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(secretType)), " ", "_")
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
