package runner

import (
	"bytes"
	"encoding/json"
)

// ParseMetricLine decides whether a runner stdout line is a training metric.
// The training engine emits metrics as single-line JSON objects carrying a
// "step" key; everything else is ordinary log output.
func ParseMetricLine(line []byte) (map[string]any, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var m map[string]any
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, false
	}
	if _, ok := m["step"]; !ok {
		return nil, false
	}
	return m, true
}
