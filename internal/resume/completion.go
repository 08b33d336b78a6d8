package resume

import (
	"encoding/json"

	"launchpadResume/internal/database"
)

// Filled reports whether a stored section value counts toward completion:
// a non-empty array or an object with at least one key. Anything else,
// including null and malformed JSON, is unfilled.
func Filled(raw []byte) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}

// Completion returns round(100 * filled / total), rounding halves up.
// No sections means 0.
func Completion(sections [][]byte) int {
	total := len(sections)
	if total == 0 {
		return 0
	}
	filled := 0
	for _, raw := range sections {
		if Filled(raw) {
			filled++
		}
	}
	return (200*filled + total) / (2 * total)
}

// ScoreResume scores every section of r.
func ScoreResume(r *database.Resume) int {
	values := make([][]byte, 0, len(Sections))
	for _, s := range Sections {
		values = append(values, *s.Value(r))
	}
	return Completion(values)
}
