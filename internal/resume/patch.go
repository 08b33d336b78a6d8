package resume

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"launchpadResume/internal/apperr"
)

const (
	// DefaultTitle is used when a resume is created without one.
	DefaultTitle = "My Resume"
	// DefaultTemplateID is the template assigned to new resumes.
	DefaultTemplateID = "modern"

	maxTitleLength    = 255
	maxTemplateLength = 50
)

// Patch is a partial update. Nil fields and absent sections keep their stored value.
type Patch struct {
	Title      *string
	TemplateID *string
	IsActive   *bool
	// Sections holds replacement values keyed by Section.Key.
	Sections map[string]json.RawMessage
}

// Empty reports whether the patch would change nothing but the timestamp.
func (p Patch) Empty() bool {
	return p.Title == nil && p.TemplateID == nil && p.IsActive == nil && len(p.Sections) == 0
}

// ParsePatch builds a Patch from a decoded request body. Explicit nulls are
// treated like absent keys; unknown keys are ignored.
func ParsePatch(body map[string]json.RawMessage) (Patch, error) {
	p := Patch{Sections: map[string]json.RawMessage{}}

	if raw, ok := present(body, "title"); ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			return Patch{}, apperr.Invalid("title", "must be a string")
		}
		p.Title = &title
	}
	if raw, ok := present(body, "templateId"); ok {
		var templateID string
		if err := json.Unmarshal(raw, &templateID); err != nil {
			return Patch{}, apperr.Invalid("templateId", "must be a string")
		}
		p.TemplateID = &templateID
	}
	if raw, ok := present(body, "isActive"); ok {
		var active bool
		if err := json.Unmarshal(raw, &active); err != nil {
			return Patch{}, apperr.Invalid("isActive", "must be a boolean")
		}
		p.IsActive = &active
	}

	for _, s := range Sections {
		raw, ok := present(body, s.Key)
		if !ok {
			continue
		}
		p.Sections[s.Key] = raw
	}

	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Validate checks field limits and every section value against its schema.
func (p Patch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return apperr.Invalid("title", "must not be empty")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return apperr.Invalid("title", "must be at most %d characters", maxTitleLength)
		}
	}
	if p.TemplateID != nil {
		templateID := strings.TrimSpace(*p.TemplateID)
		if templateID == "" {
			return apperr.Invalid("templateId", "must not be empty")
		}
		if utf8.RuneCountInString(templateID) > maxTemplateLength {
			return apperr.Invalid("templateId", "must be at most %d characters", maxTemplateLength)
		}
	}
	for key, raw := range p.Sections {
		s, ok := SectionByKey(key)
		if !ok {
			return apperr.Invalid(key, "unknown section")
		}
		if err := ValidateSection(s, raw); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeTitle trims a create-time title, falling back to DefaultTitle.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle, nil
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", apperr.Invalid("title", "must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func present(body map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := body[key]
	if !ok {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	return trimmed, true
}
