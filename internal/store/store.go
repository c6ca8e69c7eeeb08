// Package store is the persistence boundary for interviews and their generated artifacts.
// Every write that changes an interview's status also writes the rows that justify it, in
// the same transaction.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"interviewprep/ai/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrNoLogs   = errors.New("interview has no dialogue logs")

	// ErrQuestionMismatch means a log points at a question the interview does not own.
	ErrQuestionMismatch = errors.New("question does not belong to interview")

	// ErrStatusMismatch means the status does not follow from the rows being committed.
	ErrStatusMismatch = errors.New("status does not match committed result")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetInterview loads an interview with its job, candidate, ordered questions, ordered logs and
// report.
func (s *Store) GetInterview(ctx context.Context, id uint) (*models.Interview, error) {
	var interview models.Interview
	err := s.db.WithContext(ctx).
		Preload("Job").
		Preload("Candidate").
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("order_num ASC") }).
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("order_num ASC, id ASC") }).
		Preload("Report").
		First(&interview, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

// GetLog loads one log of an interview together with the question it answers, if any.
func (s *Store) GetLog(ctx context.Context, interviewID, logID uint) (*models.InterviewLog, error) {
	var log models.InterviewLog
	err := s.db.WithContext(ctx).
		Preload("Question").
		Where("interview_id = ?", interviewID).
		First(&log, logID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ListQuestions returns the questions of an interview ordered by position.
func (s *Store) ListQuestions(ctx context.Context, interviewID uint) ([]models.Question, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, interviewID); err != nil {
		return nil, err
	}

	questions := []models.Question{}
	if err := db.Where("interview_id = ?", interviewID).Order("order_num ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// AppendLog stores one dialogue turn. A zero OrderNum is replaced by the next free position.
// A non-nil QuestionID must name one of the interview's own questions.
func (s *Store) AppendLog(ctx context.Context, interviewID uint, log *models.InterviewLog) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, interviewID); err != nil {
			return err
		}
		if log.QuestionID != nil {
			var owned int64
			if err := tx.Model(&models.Question{}).
				Where("id = ? AND interview_id = ?", *log.QuestionID, interviewID).
				Count(&owned).Error; err != nil {
				return err
			}
			if owned == 0 {
				return fmt.Errorf("%w: question %d", ErrQuestionMismatch, *log.QuestionID)
			}
		}

		log.InterviewID = interviewID
		if log.OrderNum == 0 {
			var last int
			if err := tx.Model(&models.InterviewLog{}).
				Where("interview_id = ?", interviewID).
				Select("COALESCE(MAX(order_num), 0)").
				Scan(&last).Error; err != nil {
				return err
			}
			log.OrderNum = last + 1
		}
		return tx.Create(log).Error
	})
}

// CompleteLogging marks dialogue recording as finished. It requires at least one log and a
// status from which the state machine allows the move.
func (s *Store) CompleteLogging(ctx context.Context, interviewID uint) (models.InterviewStatus, error) {
	var next models.InterviewStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var interview models.Interview
		if err := tx.Select("id", "status").First(&interview, interviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var logs int64
		if err := tx.Model(&models.InterviewLog{}).Where("interview_id = ?", interviewID).Count(&logs).Error; err != nil {
			return err
		}
		if logs == 0 {
			return ErrNoLogs
		}

		status, err := models.NextStatus(interview.Status, models.OutcomeLoggingCompleted)
		if err != nil {
			return err
		}
		next = status
		return tx.Model(&models.Interview{}).Where("id = ?", interviewID).Update("status", status).Error
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// CommitGenerationResult replaces the interview's questions with items (order = position + 1)
// and sets newStatus, all or nothing. newStatus must be QUESTIONS_GENERATED when items is
// non-empty and QUESTIONS_FAILED when it is empty.
func (s *Store) CommitGenerationResult(ctx context.Context, interviewID uint, items []string, newStatus models.InterviewStatus) error {
	if expected := expectedQuestionStatus(len(items)); newStatus != expected {
		return fmt.Errorf("%w: %d questions cannot produce %s", ErrStatusMismatch, len(items), newStatus)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, interviewID); err != nil {
			return err
		}

		// logs keep their question text snapshot when the question row goes away
		if err := tx.Model(&models.InterviewLog{}).
			Where("interview_id = ? AND question_id IS NOT NULL", interviewID).
			Update("question_id", nil).Error; err != nil {
			return fmt.Errorf("detach logs: %w", err)
		}
		if err := tx.Where("interview_id = ?", interviewID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}

		if len(items) > 0 {
			questions := make([]models.Question, len(items))
			for i, text := range items {
				questions[i] = models.Question{InterviewID: interviewID, QuestionText: text, OrderNum: i + 1}
			}
			if err := tx.Create(&questions).Error; err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}

		if err := tx.Model(&models.Interview{}).Where("id = ?", interviewID).Update("status", newStatus).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
}

func expectedQuestionStatus(count int) models.InterviewStatus {
	status, _ := models.NextStatus(models.StatusPendingQuestions, models.QuestionOutcome(count))
	return status
}

// ReportResult is what the report pipeline produced. Scores is nil when none were found.
type ReportResult struct {
	Text           string
	SourceDialogue string
	Scores         models.CapabilityScores
}

// CommitReport inserts or overwrites the interview's report, stores the scores (clearing them
// when result.Scores is nil) and sets newStatus, all or nothing.
func (s *Store) CommitReport(ctx context.Context, interviewID uint, result ReportResult, newStatus models.InterviewStatus) (*models.Report, error) {
	if newStatus != models.StatusReportGenerated {
		return nil, fmt.Errorf("%w: a report cannot produce %s", ErrStatusMismatch, newStatus)
	}

	var report models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, interviewID); err != nil {
			return err
		}

		var source *string
		if result.SourceDialogue != "" {
			source = &result.SourceDialogue
		}

		err := tx.Where("interview_id = ?", interviewID).First(&report).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			report = models.Report{InterviewID: interviewID, GeneratedText: result.Text, SourceDialogue: source}
			if err := tx.Create(&report).Error; err != nil {
				return fmt.Errorf("insert report: %w", err)
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&report).Updates(map[string]interface{}{
				"generated_text":  result.Text,
				"source_dialogue": source,
			}).Error; err != nil {
				return fmt.Errorf("update report: %w", err)
			}
			report.GeneratedText = result.Text
			report.SourceDialogue = source
		}

		var scores models.CapabilityScores
		if len(result.Scores) > 0 {
			scores = result.Scores
		}
		if err := tx.Model(&models.Interview{ID: interviewID}).
			Select("status", "radar_data").
			Updates(models.Interview{Status: newStatus, RadarData: scores}).Error; err != nil {
			return fmt.Errorf("update interview: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteInterview removes an interview with its questions, logs and report.
func (s *Store) DeleteInterview(ctx context.Context, interviewID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, interviewID); err != nil {
			return err
		}
		for _, child := range []interface{}{&models.InterviewLog{}, &models.Question{}, &models.Report{}} {
			if err := tx.Where("interview_id = ?", interviewID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Interview{}, interviewID).Error
	})
}

// ListInterviewsAwaitingReport returns up to limit interviews with an ID above afterID whose
// logging is complete but that have no report yet, in ID order.
func (s *Store) ListInterviewsAwaitingReport(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("id > ?", afterID).
		Where("status = ?", models.StatusLoggingCompleted).
		Where("NOT EXISTS (SELECT 1 FROM reports WHERE reports.interview_id = interviews.id)").
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func exists(db *gorm.DB, interviewID uint) error {
	var count int64
	if err := db.Model(&models.Interview{}).Where("id = ?", interviewID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
