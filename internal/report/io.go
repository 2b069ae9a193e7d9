package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Andrei-Barwood/secretgate/internal/model"
)

const resultsField = "results"

func Save(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a scan report from a file with the same framing rules as Read.
func Load(path string) (model.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Report{}, err
	}
	defer f.Close()
	return Read(f)
}

// Read consumes a scanner's output and parses the report it carries.
func Read(r io.Reader) (model.Report, error) {
	payload, err := ReadPayload(r)
	if err != nil {
		return model.Report{}, err
	}
	return Parse(payload)
}

// ReadPayload returns the text before the first blank line that directly
// follows another blank line. Scanners print progress text after the JSON
// body separated that way; everything from the second blank line on is dropped.
func ReadPayload(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	var buf bytes.Buffer
	prevBlank := false
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			blank := strings.TrimRight(line, "\r\n") == ""
			if blank && prevBlank {
				return buf.Bytes(), nil
			}
			prevBlank = blank
			buf.WriteString(line)
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("read scan report: %w", err)
		}
	}
}

// Parse decodes a report document. The results object is walked token by
// token so entries come out in document order.
func Parse(data []byte) (model.Report, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		if !json.Valid(data) {
			return model.Report{}, &model.ParseError{Err: err}
		}
		return model.Report{}, &model.SchemaError{Reason: "report must be a JSON object"}
	}

	raw, ok := doc[resultsField]
	if !ok {
		return model.Report{}, &model.SchemaError{Field: resultsField, Reason: "is missing"}
	}

	entries, err := decodeEntries(raw)
	if err != nil {
		return model.Report{}, err
	}
	return model.Report{Entries: entries}, nil
}

func decodeEntries(raw json.RawMessage) ([]model.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, &model.ParseError{Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &model.SchemaError{Field: resultsField, Reason: "must be an object"}
	}

	var entries []model.Entry
	index := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &model.ParseError{Err: err}
		}
		path, _ := keyTok.(string)

		var findings json.RawMessage
		if err := dec.Decode(&findings); err != nil {
			return nil, &model.ParseError{Err: err}
		}

		// A repeated key keeps its first position and its last value.
		if i, seen := index[path]; seen {
			entries[i].Findings = findings
			continue
		}
		index[path] = len(entries)
		entries = append(entries, model.Entry{Path: path, Findings: findings})
	}
	return entries, nil
}
