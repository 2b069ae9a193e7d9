package report

import (
	"encoding/json"
	"sort"

	"github.com/Andrei-Barwood/secretgate/internal/model"
)

const unknownType = "unknown"

// TypeSummary groups flagged findings by the secret type the scanner reported.
type TypeSummary struct {
	Type  string   `json:"type" yaml:"type"`
	Count int      `json:"count" yaml:"count"`
	Paths []string `json:"paths" yaml:"paths"`
}

type findingRecord struct {
	Type string `json:"type"`
}

// Summarize counts findings per secret type. Payloads that are not a list of
// records with a "type" field count once as unknown.
func Summarize(entries []model.Entry) []TypeSummary {
	type bucket struct {
		count int
		paths map[string]struct{}
	}

	buckets := map[string]*bucket{}
	add := func(typ, path string) {
		entry, ok := buckets[typ]
		if !ok {
			entry = &bucket{paths: map[string]struct{}{}}
			buckets[typ] = entry
		}
		entry.count++
		entry.paths[path] = struct{}{}
	}

	for _, e := range entries {
		var records []findingRecord
		if err := json.Unmarshal(e.Findings, &records); err != nil || len(records) == 0 {
			add(unknownType, e.Path)
			continue
		}
		for _, r := range records {
			typ := r.Type
			if typ == "" {
				typ = unknownType
			}
			add(typ, e.Path)
		}
	}

	out := make([]TypeSummary, 0, len(buckets))
	for typ, b := range buckets {
		paths := make([]string, 0, len(b.paths))
		for p := range b.paths {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		out = append(out, TypeSummary{Type: typ, Count: b.count, Paths: paths})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Type < out[j].Type
		}
		return out[i].Count > out[j].Count
	})

	return out
}
