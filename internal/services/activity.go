package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/models"
)

const defaultActivityLimit = 20

// ActivityService is the append-only domain event log. Rows are never
// updated or deleted.
type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService { return &ActivityService{db: db} }

// Record appends one activity row and returns it enriched with the related
// user and book. Pass the caller's transaction as tx so the entry commits or
// rolls back together with the domain write; tx nil falls back to the
// service's own handle.
func (s *ActivityService) Record(tx *gorm.DB, typ string, userID uint, bookID *uint, bookTitle, details string) (*models.Activity, error) {
	if tx == nil {
		tx = s.db
	}
	activity := models.Activity{
		Type:      typ,
		UserID:    userID,
		BookID:    bookID,
		BookTitle: bookTitle,
		Details:   details,
	}
	if err := tx.Create(&activity).Error; err != nil {
		return nil, err
	}
	if err := s.enrich(tx).First(&activity, activity.ID).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

// Recent returns the newest n activities across all users.
func (s *ActivityService) Recent(ctx context.Context, n int) ([]models.Activity, error) {
	if n <= 0 {
		n = defaultActivityLimit
	}
	var activities []models.Activity
	err := s.enrich(s.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&activities).Error
	return activities, err
}

// ByUser returns the newest n activities for one user.
func (s *ActivityService) ByUser(ctx context.Context, userID uint, n int) ([]models.Activity, error) {
	if n <= 0 {
		n = defaultActivityLimit
	}
	var activities []models.Activity
	err := s.enrich(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&activities).Error
	return activities, err
}

// enrich preloads the related user and book. The book preload is unscoped:
// soft-deleted books must stay addressable from the history.
func (s *ActivityService) enrich(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("User").
		Preload("Book", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}
