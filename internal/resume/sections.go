package resume

import (
	"reflect"

	"gorm.io/datatypes"

	"launchpadResume/internal/database"
)

// Kind distinguishes the single object section from the list sections.
type Kind int

const (
	KindList Kind = iota
	KindObject
)

// Section describes one independently stored resume section.
type Section struct {
	// Key is the request body field (camelCase).
	Key string
	// Column is the storage column and the response field (snake_case).
	Column string
	Kind   Kind
	item   reflect.Type
	field  func(r *database.Resume) *datatypes.JSON
}

// Empty returns the stored value of a section nobody has filled in yet.
func (s Section) Empty() datatypes.JSON {
	if s.Kind == KindObject {
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(`[]`)
}

// Value returns a pointer to the section's column on r.
func (s Section) Value(r *database.Resume) *datatypes.JSON {
	return s.field(r)
}

func section[T any](key, column string, kind Kind, field func(r *database.Resume) *datatypes.JSON) Section {
	return Section{
		Key:    key,
		Column: column,
		Kind:   kind,
		item:   reflect.TypeOf((*T)(nil)).Elem(),
		field:  field,
	}
}

// Sections lists every content section in display order. Completion is scored over all of them.
var Sections = []Section{
	section[PersonalInfo]("personalInfo", "personal_info", KindObject, func(r *database.Resume) *datatypes.JSON { return &r.PersonalInfo }),
	section[Education]("education", "education", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Education }),
	section[Experience]("experience", "experience", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Experience }),
	section[Project]("projects", "projects", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Projects }),
	section[Skill]("skills", "skills", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Skills }),
	section[Position]("positions", "positions", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Positions }),
	section[Award]("awards", "awards", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Awards }),
	section[Certification]("certifications", "certifications", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Certifications }),
	section[Volunteering]("volunteering", "volunteering", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Volunteering }),
	section[Conference]("conferences", "conferences", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Conferences }),
	section[Publication]("publications", "publications", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Publications }),
	section[Patent]("patents", "patents", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Patents }),
	section[TestScore]("testScores", "test_scores", KindList, func(r *database.Resume) *datatypes.JSON { return &r.TestScores }),
	section[Scholarship]("scholarships", "scholarships", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Scholarships }),
	section[Guardian]("guardians", "guardians", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Guardians }),
	section[Language]("languages", "languages", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Languages }),
	section[Subject]("subjects", "subjects", KindList, func(r *database.Resume) *datatypes.JSON { return &r.Subjects }),
}

// SectionByKey looks a section up by its request key.
func SectionByKey(key string) (Section, bool) {
	for _, s := range Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// ApplyDefaults replaces every unset section on r with its empty value.
func ApplyDefaults(r *database.Resume) {
	for _, s := range Sections {
		v := s.Value(r)
		if len(*v) == 0 {
			*v = s.Empty()
		}
	}
}
