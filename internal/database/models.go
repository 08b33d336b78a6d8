package database

import (
	"time"

	"gorm.io/datatypes"
)

// User 表示系统中的账号信息。
type User struct {
	ID                 uint      `gorm:"primaryKey"`
	Email              string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash       string    `gorm:"size:255;not null"`
	FirstName          string    `gorm:"size:100"`
	LastName           string    `gorm:"size:100"`
	Phone              string    `gorm:"size:20"`
	IsAdmin            bool      `gorm:"default:false"`
	MustChangePassword bool      `gorm:"default:false"`
	Resumes            []Resume  `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Resume holds one resume with every section stored as its own JSONB column.
// Rows are hard-deleted so the submission cascade applies.
type Resume struct {
	ID                   uint   `gorm:"primaryKey"`
	UserID               uint   `gorm:"index;not null"`
	Title                string `gorm:"size:255;not null"`
	TemplateID           string `gorm:"size:50"`
	IsActive             bool
	CompletionPercentage int
	ProfilePhoto         string `gorm:"size:512"`

	PersonalInfo   datatypes.JSON `gorm:"type:jsonb"`
	Education      datatypes.JSON `gorm:"type:jsonb"`
	Experience     datatypes.JSON `gorm:"type:jsonb"`
	Projects       datatypes.JSON `gorm:"type:jsonb"`
	Skills         datatypes.JSON `gorm:"type:jsonb"`
	Positions      datatypes.JSON `gorm:"type:jsonb"`
	Awards         datatypes.JSON `gorm:"type:jsonb"`
	Certifications datatypes.JSON `gorm:"type:jsonb"`
	Volunteering   datatypes.JSON `gorm:"type:jsonb"`
	Conferences    datatypes.JSON `gorm:"type:jsonb"`
	Publications   datatypes.JSON `gorm:"type:jsonb"`
	Patents        datatypes.JSON `gorm:"type:jsonb"`
	TestScores     datatypes.JSON `gorm:"type:jsonb"`
	Scholarships   datatypes.JSON `gorm:"type:jsonb"`
	Guardians      datatypes.JSON `gorm:"type:jsonb"`
	Languages      datatypes.JSON `gorm:"type:jsonb"`
	Subjects       datatypes.JSON `gorm:"type:jsonb"`

	Submissions []ResumeSubmission `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResumeSubmission is one paid expert review request for a resume.
type ResumeSubmission struct {
	ID              uint    `gorm:"primaryKey"`
	ResumeID        uint    `gorm:"index;not null"`
	Status          string  `gorm:"size:50;index;not null"`
	PaymentStatus   string  `gorm:"size:50;index"`
	PaymentAmount   float64 `gorm:"type:decimal(10,2)"`
	PaymentMethod   string  `gorm:"size:50"`
	TransactionID   string  `gorm:"size:255;index"`
	ContactEmail    string  `gorm:"size:255"`
	ContactPhone    string  `gorm:"size:50"`
	SpecialRequests string  `gorm:"type:text"`
	ReviewerNotes   string  `gorm:"type:text"`
	ReviewScore     *int
	ExpertID        *uint `gorm:"index"`
	AssignedAt      *time.Time
	SnapshotKey     string `gorm:"size:512"`
	SubmittedAt     time.Time
	ReviewedAt      *time.Time
}

// TableName keeps the table name used by existing deployments.
func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// Expert 是只读的专家名录。
type Expert struct {
	ID              uint           `gorm:"primaryKey"`
	Name            string         `gorm:"size:255;not null"`
	Email           string         `gorm:"uniqueIndex;size:255;not null"`
	Specialization  string         `gorm:"size:255;index"`
	ExperienceYears int
	Rating          float64        `gorm:"type:decimal(3,2)"`
	TotalReviews    int
	Background      string         `gorm:"type:text"`
	Expertise       datatypes.JSON `gorm:"type:jsonb"`
	IsActive        bool           `gorm:"default:true"`
	CreatedAt       time.Time
}
