package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"karvia/models"
)

// AssessmentRepository stores the append-only scoring history. There is no update or delete.
type AssessmentRepository interface {
	CreateAssessment(ctx context.Context, assessment *models.ReadinessAssessment) error
	GetLatestAssessment(ctx context.Context, userID string) (*models.ReadinessAssessment, error)
	ListAssessments(ctx context.Context, userID string) ([]models.ReadinessAssessment, error)
}

type assessmentRepository struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewAssessmentRepository creates a new instance of AssessmentRepository.
func NewAssessmentRepository(db *gorm.DB, log *zap.SugaredLogger) AssessmentRepository {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &assessmentRepository{db: db, log: log}
}

func (r *assessmentRepository) CreateAssessment(ctx context.Context, assessment *models.ReadinessAssessment) error {
	if assessment == nil || assessment.UserID == "" {
		r.log.Errorf("CreateAssessment: UserID cannot be empty.")
		return errors.New("user ID cannot be empty")
	}
	if assessment.ID != 0 {
		return fmt.Errorf("assessment %d already stored; history is append-only", assessment.ID)
	}
	if err := r.db.WithContext(ctx).Create(assessment).Error; err != nil {
		r.log.Errorf("Failed to create assessment for userID %s: %v", assessment.UserID, err)
		return fmt.Errorf("failed to create assessment for userID %s: %w", assessment.UserID, err)
	}
	r.log.Infof("Created assessment ID=%d, UserID=%s, Overall=%d, Risk=%s", assessment.ID, assessment.UserID, assessment.Overall, assessment.RiskLevel)
	return nil
}

// GetLatestAssessment returns (nil, nil) when the user was never scored.
func (r *assessmentRepository) GetLatestAssessment(ctx context.Context, userID string) (*models.ReadinessAssessment, error) {
	var a models.ReadinessAssessment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc").First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("Failed to retrieve latest assessment for userID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to retrieve latest assessment for userID %s: %w", userID, err)
	}
	return &a, nil
}

func (r *assessmentRepository) ListAssessments(ctx context.Context, userID string) ([]models.ReadinessAssessment, error) {
	var list []models.ReadinessAssessment
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc, id asc").Find(&list).Error; err != nil {
		r.log.Errorf("Failed to list assessments for userID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to list assessments for userID %s: %w", userID, err)
	}
	return list, nil
}
