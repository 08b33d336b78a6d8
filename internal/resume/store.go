package resume

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"launchpadResume/internal/apperr"
	"launchpadResume/internal/database"
)

// Summary is the list view of a resume.
type Summary struct {
	ID                   uint      `json:"id"`
	Title                string    `json:"title"`
	TemplateID           string    `json:"template_id"`
	IsActive             bool      `json:"is_active"`
	CompletionPercentage int       `json:"completion_percentage"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func summarize(r *database.Resume) Summary {
	return Summary{
		ID:                   r.ID,
		Title:                r.Title,
		TemplateID:           r.TemplateID,
		IsActive:             r.IsActive,
		CompletionPercentage: r.CompletionPercentage,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// Store persists resumes. Every method is scoped to the owning user; a resume
// owned by someone else is reported as not found.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts an empty resume for userID.
func (s *Store) Create(ctx context.Context, userID uint, title string) (*database.Resume, error) {
	title, err := NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	r := database.Resume{
		UserID:     userID,
		Title:      title,
		TemplateID: DefaultTemplateID,
		IsActive:   true,
	}
	ApplyDefaults(&r)
	r.CompletionPercentage = ScoreResume(&r)

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	return &r, nil
}

// Count returns how many resumes userID owns.
func (s *Store) Count(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&database.Resume{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count resumes: %w", err)
	}
	return n, nil
}

// Get loads the full resume.
func (s *Store) Get(ctx context.Context, id, userID uint) (*database.Resume, error) {
	return findOwned(s.db.WithContext(ctx), id, userID)
}

// List returns the user's resumes, most recently updated first.
func (s *Store) List(ctx context.Context, userID uint) ([]Summary, error) {
	var rows []database.Resume
	err := s.db.WithContext(ctx).
		Select("id", "title", "template_id", "is_active", "completion_percentage", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}

	out := make([]Summary, 0, len(rows))
	for i := range rows {
		out = append(out, summarize(&rows[i]))
	}
	return out, nil
}

// Update merges p into the stored resume and recomputes completion from the
// merged row inside the same transaction. Sections the patch leaves out are
// not written.
func (s *Store) Update(ctx context.Context, id, userID uint, p Patch) (*Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var out Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := findOwned(tx, id, userID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if p.Title != nil {
			r.Title = strings.TrimSpace(*p.Title)
			updates["title"] = r.Title
		}
		if p.TemplateID != nil {
			r.TemplateID = strings.TrimSpace(*p.TemplateID)
			updates["template_id"] = r.TemplateID
		}
		if p.IsActive != nil {
			r.IsActive = *p.IsActive
			updates["is_active"] = r.IsActive
		}
		for _, sec := range Sections {
			raw, ok := p.Sections[sec.Key]
			if !ok {
				continue
			}
			value := datatypes.JSON(raw)
			*sec.Value(r) = value
			updates[sec.Column] = value
		}

		r.CompletionPercentage = ScoreResume(r)
		r.UpdatedAt = time.Now()
		updates["completion_percentage"] = r.CompletionPercentage
		updates["updated_at"] = r.UpdatedAt

		if err := tx.Model(&database.Resume{}).Where("id = ? AND user_id = ?", id, userID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update resume: %w", err)
		}
		out = summarize(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetPhoto records the storage key of the resume's profile photo.
func (s *Store) SetPhoto(ctx context.Context, id, userID uint, key string) error {
	res := s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"profile_photo": key, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("set resume photo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("resume")
	}
	return nil
}

// Delete removes the resume together with its submissions and returns the
// deleted row so callers can clean up stored objects.
func (s *Store) Delete(ctx context.Context, id, userID uint) (*database.Resume, error) {
	var deleted *database.Resume
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := findOwned(tx.Select("id", "user_id", "profile_photo"), id, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("resume_id = ?", r.ID).Delete(&database.ResumeSubmission{}).Error; err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		if err := tx.Delete(&database.Resume{}, r.ID).Error; err != nil {
			return fmt.Errorf("delete resume: %w", err)
		}
		deleted = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func findOwned(db *gorm.DB, id, userID uint) (*database.Resume, error) {
	var r database.Resume
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("resume")
	}
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}
	return &r, nil
}
