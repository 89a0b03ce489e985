// Package params implements the JSON parameter pipeline: loading the task
// configuration, algorithm parameters, and override documents, validating
// them against embedded schemas, and merging overrides into a resolved
// parameter set.
package params

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ResolvedFileName is the advisory merge output written into an
// experiment's log directory for reproducibility. The runner itself still
// receives the original file paths.
const ResolvedFileName = "resolved_params.json"

// Document is a decoded JSON object.
type Document map[string]any

// LoadJSON reads and decodes a JSON object from disk.
func LoadJSON(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", path, err)
	}
	return doc, nil
}

// Merge deep-merges override into base and returns a new document. Values
// from override supersede base key-by-key: nested objects merge
// recursively, while arrays and scalars replace wholesale. Neither input is
// mutated. An empty override merges to an identical copy of base.
func Merge(base, override Document) Document {
	out := make(Document, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		baseObj, baseOk := out[k].(map[string]any)
		overObj, overOk := v.(map[string]any)
		if baseOk && overOk {
			out[k] = map[string]any(Merge(baseObj, overObj))
			continue
		}
		out[k] = v
	}
	return out
}

// Resolve loads the algorithm parameters and override documents and merges
// them. The returned document is what the training engine will effectively
// see once it applies the override itself.
func Resolve(algoParamsPath, overridePath string) (Document, error) {
	algo, err := LoadJSON(algoParamsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load algorithm params: %w", err)
	}
	override, err := LoadJSON(overridePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load override: %w", err)
	}
	return Merge(algo, override), nil
}

// WriteResolved writes the merged parameter document into the given log
// directory as ResolvedFileName.
func WriteResolved(logDir string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode resolved params: %w", err)
	}
	path := filepath.Join(logDir, ResolvedFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
