package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"launchpadResume/internal/config"
)

// InitDatabase 使用配置初始化 PostgreSQL 连接，并返回 GORM 数据库实例。
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Resume{}, &ResumeSubmission{}, &Expert{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

var defaultExperts = []Expert{
	{
		Name:            "Dr. Rajesh Kumar",
		Email:           "rajesh@launchpadindia.in",
		Specialization:  "Engineering & Tech",
		ExperienceYears: 8,
		Rating:          4.9,
		TotalReviews:    450,
		Background:      "Ex-COEP Professor, Google India",
		Expertise:       datatypes.JSON(`["Software Engineering","Data Science","Product Management"]`),
		IsActive:        true,
	},
	{
		Name:            "Priya Sharma",
		Email:           "priya@launchpadindia.in",
		Specialization:  "Business & Finance",
		ExperienceYears: 6,
		Rating:          4.8,
		TotalReviews:    320,
		Background:      "IIM Pune, Ex-McKinsey",
		Expertise:       datatypes.JSON(`["Business Analysis","Consulting","Finance","Marketing"]`),
		IsActive:        true,
	},
	{
		Name:            "Amit Patel",
		Email:           "amit@launchpadindia.in",
		Specialization:  "Design & Creative",
		ExperienceYears: 5,
		Rating:          4.9,
		TotalReviews:    280,
		Background:      "NID Graduate, Ex-Flipkart",
		Expertise:       datatypes.JSON(`["UI/UX Design","Product Design","Creative Direction"]`),
		IsActive:        true,
	},
}

// SeedExperts inserts the default reviewer roster once, keyed by email.
// It returns how many experts were inserted.
func SeedExperts(ctx context.Context, db *gorm.DB) (int, error) {
	inserted := 0
	for _, expert := range defaultExperts {
		var existing Expert
		err := db.WithContext(ctx).Where("email = ?", expert.Email).First(&existing).Error
		switch {
		case err == nil:
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return inserted, fmt.Errorf("query expert %q: %w", expert.Email, err)
		}

		record := expert
		if err := db.WithContext(ctx).Create(&record).Error; err != nil {
			return inserted, fmt.Errorf("create expert %q: %w", expert.Email, err)
		}
		inserted++
	}
	return inserted, nil
}
