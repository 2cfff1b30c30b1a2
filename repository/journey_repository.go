package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"karvia/models"
)

// ErrConcurrencyConflict is returned when the stored journey version no longer matches the one read.
var ErrConcurrencyConflict = errors.New("journey was modified concurrently")

// JourneyRepository persists the per-user journey aggregate together with its stage content.
type JourneyRepository interface {
	GetJourney(ctx context.Context, userID string) (*models.UserJourneyState, error)
	CreateJourney(ctx context.Context, state *models.UserJourneyState, goals []models.Goal) error
	// SaveJourney writes state and goals in one transaction if the stored version still equals
	// state.Version, and increments state.Version on success.
	SaveJourney(ctx context.Context, state *models.UserJourneyState, goals []models.Goal) error
}

type journeyRepository struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewJourneyRepository creates a new instance of JourneyRepository.
func NewJourneyRepository(db *gorm.DB, log *zap.SugaredLogger) JourneyRepository {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &journeyRepository{db: db, log: log}
}

// GetJourney returns (nil, nil) when the user has no journey.
func (r *journeyRepository) GetJourney(ctx context.Context, userID string) (*models.UserJourneyState, error) {
	var state models.UserJourneyState
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Infof("Journey for userID %s not found.", userID)
			return nil, nil
		}
		r.log.Errorf("Failed to retrieve journey for userID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to retrieve journey for userID %s: %w", userID, err)
	}
	return &state, nil
}

func (r *journeyRepository) CreateJourney(ctx context.Context, state *models.UserJourneyState, goals []models.Goal) error {
	if state == nil || state.UserID == "" {
		r.log.Errorf("CreateJourney: state with a userID is required")
		return errors.New("journey state with a userID is required")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(state).Error; err != nil {
			return err
		}
		return writeGoals(tx, goals)
	})
	if err != nil {
		r.log.Errorf("Failed to create journey for userID %s: %v", state.UserID, err)
		return fmt.Errorf("failed to create journey for userID %s: %w", state.UserID, err)
	}
	r.log.Infof("Successfully created journey for userID %s with %d goals.", state.UserID, len(goals))
	return nil
}

func (r *journeyRepository) SaveJourney(ctx context.Context, state *models.UserJourneyState, goals []models.Goal) error {
	if state == nil || state.UserID == "" {
		r.log.Errorf("SaveJourney: state with a userID is required")
		return errors.New("journey state with a userID is required")
	}
	readVersion := state.Version
	next := *state
	next.Version = readVersion + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserJourneyState{}).
			Where("user_id = ? AND version = ?", state.UserID, readVersion).
			Select("*").Omit("created_at", "user_id").
			Updates(&next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrencyConflict
		}
		return writeGoals(tx, goals)
	})
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			r.log.Warnf("Version conflict saving journey for userID %s at version %d.", state.UserID, readVersion)
			return err
		}
		r.log.Errorf("Failed to save journey for userID %s: %v", state.UserID, err)
		return fmt.Errorf("failed to save journey for userID %s: %w", state.UserID, err)
	}
	state.Version = next.Version
	r.log.Infof("Saved journey for userID %s at version %d (stage %d).", state.UserID, state.Version, state.CurrentStage)
	return nil
}

// writeGoals upserts goals and their tasks.
func writeGoals(tx *gorm.DB, goals []models.Goal) error {
	for i := range goals {
		g := goals[i]
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit("Tasks").Create(&g).Error; err != nil {
			return fmt.Errorf("failed to write goal %s: %w", g.ID, err)
		}
		if len(g.Tasks) == 0 {
			continue
		}
		tasks := g.Tasks
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&tasks).Error; err != nil {
			return fmt.Errorf("failed to write tasks of goal %s: %w", g.ID, err)
		}
	}
	return nil
}
