package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"interviewprep/ai/internal/models"
)

var (
	openSQLite    = func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard}) }
	migrateSchema = func(db *gorm.DB) error { return db.AutoMigrate(models.AllModels()...) }
)

// SetupTestDB creates an isolated in-memory SQLite database for tests. The pool is limited to
// one connection so background goroutines and the test share the same database without
// table lock errors.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { sqlDB.Close() })
	}
	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	return db
}

// SeedInterview stores a job, a candidate and a PENDING_QUESTIONS interview linking them.
func SeedInterview(t *testing.T, db *gorm.DB, description, resume string) *models.Interview {
	t.Helper()

	job := &models.Job{Title: "Backend Engineer", Description: description}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
	candidate := &models.Candidate{
		Name:       "Test Candidate",
		Email:      fmt.Sprintf("candidate-%d@example.com", job.ID),
		ResumeText: resume,
	}
	if err := db.Create(candidate).Error; err != nil {
		t.Fatalf("failed to seed candidate: %v", err)
	}
	interview := &models.Interview{
		JobID:       job.ID,
		CandidateID: candidate.ID,
		Status:      models.StatusPendingQuestions,
	}
	if err := db.Create(interview).Error; err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}
	return interview
}

// SeedLog appends a dialogue turn with the next order number.
func SeedLog(t *testing.T, db *gorm.DB, interviewID uint, role models.SpeakerRole, text string) *models.InterviewLog {
	t.Helper()

	var count int64
	db.Model(&models.InterviewLog{}).Where("interview_id = ?", interviewID).Count(&count)

	log := &models.InterviewLog{
		InterviewID:      interviewID,
		SpeakerRole:      role,
		FullDialogueText: text,
		OrderNum:         int(count) + 1,
	}
	if err := db.Create(log).Error; err != nil {
		t.Fatalf("failed to seed log: %v", err)
	}
	return log
}
