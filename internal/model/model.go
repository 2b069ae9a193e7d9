package model

import (
	"encoding/json"
	"fmt"
)

// Exit codes reported by the gate.
const (
	ExitClean           = 0
	ExitFailure         = 1
	ExitMissingRequired = 2
	ExitSecretsFound    = 3
	ExitUsage           = 64
)

// Entry is one file path from the scanner's results object with its findings
// kept as raw JSON. The payload is scanner-defined and only ever passed through.
type Entry struct {
	Path     string          `json:"path"`
	Findings json.RawMessage `json:"findings"`
}

// Report is a parsed scanner report. Entries keep the order of the input document.
type Report struct {
	Entries []Entry
}

type Status string

const (
	StatusClean           Status = "clean"
	StatusMissingRequired Status = "missing_required"
	StatusSecretsFound    Status = "secrets_found"
)

type Outcome struct {
	Status      Status   `json:"status"`
	ExitCode    int      `json:"exit_code"`
	Required    []string `json:"required"`
	Missing     []string `json:"missing,omitempty"`
	Flagged     []Entry  `json:"flagged"`
	Whitelisted []string `json:"whitelisted,omitempty"`
}

// SecretsFound reports whether any entry fell outside the whitelist.
func (o Outcome) SecretsFound() bool {
	return len(o.Flagged) > 0
}

// ParseError is returned when the input is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse scan report: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError is returned when valid JSON does not have the report shape.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "invalid scan report: " + e.Reason
	}
	return fmt.Sprintf("invalid scan report: field %q %s", e.Field, e.Reason)
}
