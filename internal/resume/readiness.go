package resume

import (
	"encoding/json"
	"strings"

	"launchpadResume/internal/database"
)

const minSkills = 3

// Check is one required group of the submit readiness report.
type Check struct {
	Section string   `json:"section"`
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
}

// Readiness tells the client whether a resume is complete enough to submit for review.
type Readiness struct {
	Ready      bool     `json:"ready"`
	Completed  int      `json:"completed"`
	Total      int      `json:"total"`
	Percentage int      `json:"percentage"`
	Missing    []string `json:"missing"`
	Checks     []Check  `json:"checks"`
}

// CheckReadiness evaluates the required groups: basic contact details, at
// least one education entry, experience (optional) and at least three skills.
func CheckReadiness(r *database.Resume) Readiness {
	checks := []Check{
		checkBasic(r.PersonalInfo),
		checkMinEntries("education", r.Education, 1, "at least one education entry"),
		{Section: "experience", Valid: true},
		checkMinEntries("skills", r.Skills, minSkills, "at least 3 skills"),
	}

	out := Readiness{Total: len(checks), Missing: []string{}, Checks: checks}
	for _, c := range checks {
		if c.Valid {
			out.Completed++
			continue
		}
		out.Missing = append(out.Missing, c.Missing...)
	}
	out.Ready = out.Completed == out.Total
	out.Percentage = (200*out.Completed + out.Total) / (2 * out.Total)
	return out
}

func checkBasic(raw []byte) Check {
	var info PersonalInfo
	_ = json.Unmarshal(raw, &info)

	c := Check{Section: "basic"}
	required := []struct {
		name  string
		value string
	}{
		{"firstName", info.FirstName},
		{"lastName", info.LastName},
		{"email", info.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			c.Missing = append(c.Missing, f.name)
		}
	}
	c.Valid = len(c.Missing) == 0
	return c
}

func checkMinEntries(section string, raw []byte, min int, message string) Check {
	var entries []json.RawMessage
	_ = json.Unmarshal(raw, &entries)
	if len(entries) >= min {
		return Check{Section: section, Valid: true}
	}
	return Check{Section: section, Missing: []string{message}}
}
