package resume

import (
	"encoding/json"

	"launchpadResume/internal/database"
)

// Document renders the full resume using storage column names for every key.
func Document(r *database.Resume) map[string]any {
	doc := map[string]any{
		"id":                    r.ID,
		"user_id":               r.UserID,
		"title":                 r.Title,
		"template_id":           r.TemplateID,
		"is_active":             r.IsActive,
		"completion_percentage": r.CompletionPercentage,
		"profile_photo":         r.ProfilePhoto,
		"created_at":            r.CreatedAt,
		"updated_at":            r.UpdatedAt,
	}
	for _, s := range Sections {
		raw := *s.Value(r)
		if len(raw) == 0 {
			raw = s.Empty()
		}
		doc[s.Column] = json.RawMessage(raw)
	}
	return doc
}
