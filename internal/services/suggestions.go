package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/models"
)

var (
	ErrSuggestionNotFound  = errors.New("Suggestion not found")
	ErrDuplicateSuggestion = errors.New("This book has already been suggested")
	ErrInvalidStatus       = errors.New("Invalid status")
)

// SuggestionService handles acquisition suggestions, their toggle votes, and
// admin moderation.
type SuggestionService struct {
	db         *gorm.DB
	activities *ActivityService
}

func NewSuggestionService(db *gorm.DB, activities *ActivityService) *SuggestionService {
	return &SuggestionService{db: db, activities: activities}
}

// SuggestionWithVotes is the list/read shape: a suggestion plus its live
// vote count and the suggester's display fields. The count is always the
// row count of votes, never a cached counter.
type SuggestionWithVotes struct {
	models.Suggestion
	VoteCount int64  `json:"voteCount"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

var suggestionSortColumns = map[string]string{
	"createdAt": "suggestions.created_at",
	"title":     "suggestions.title",
	"author":    "suggestions.author",
	"votes":     "vote_count",
}

// List returns non-deleted suggestions, optionally filtered by status and
// sorted by createdAt, title, author, or vote count.
func (s *SuggestionService) List(ctx context.Context, status, sortBy, order string) ([]SuggestionWithVotes, error) {
	column, ok := suggestionSortColumns[sortBy]
	if !ok {
		column = suggestionSortColumns["createdAt"]
	}
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}

	q := s.db.WithContext(ctx).Model(&models.Suggestion{}).
		Select("suggestions.*, " +
			"(SELECT COUNT(*) FROM votes WHERE votes.suggestion_id = suggestions.id) AS vote_count, " +
			"users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON users.id = suggestions.user_id")
	if status != "" {
		if !models.ValidSuggestionStatus(status) {
			return nil, ErrInvalidStatus
		}
		q = q.Where("suggestions.status = ?", status)
	}

	var rows []SuggestionWithVotes
	err := q.Order(column + " " + direction).Scan(&rows).Error
	return rows, err
}

// Create records a new suggestion. A case-insensitive title+author match
// against any non-rejected, non-deleted suggestion is a duplicate; the
// existing row is returned alongside ErrDuplicateSuggestion so the caller
// can surface it.
func (s *SuggestionService) Create(ctx context.Context, userID uint, title, author, reason string) (*SuggestionWithVotes, *models.Suggestion, error) {
	var created models.Suggestion
	var duplicate models.Suggestion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("LOWER(title) = LOWER(?) AND LOWER(author) = LOWER(?) AND status <> ?",
			title, author, models.SuggestionRejected).
			First(&duplicate).Error
		if err == nil {
			return ErrDuplicateSuggestion
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		created = models.Suggestion{
			Title:  title,
			Author: author,
			Reason: reason,
			UserID: userID,
			Status: models.SuggestionPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		_, err = s.activities.Record(tx, models.ActivitySuggestion, userID, nil, title,
			fmt.Sprintf("New book suggestion: %q by %s", title, author))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSuggestion) {
			return nil, &duplicate, err
		}
		return nil, nil, err
	}
	out, err := s.find(ctx, created.ID)
	return out, nil, err
}

// ToggleVote flips the (user, suggestion) vote: an existing vote is removed,
// a missing one is created. Returns the resulting voted state.
func (s *SuggestionService) ToggleVote(ctx context.Context, userID, suggestionID uint) (bool, error) {
	voted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var suggestion models.Suggestion
		if err := tx.First(&suggestion, suggestionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSuggestionNotFound
			}
			return err
		}
		var existing models.Vote
		err := tx.Where("suggestion_id = ? AND user_id = ?", suggestionID, userID).
			First(&existing).Error
		if err == nil {
			return tx.Delete(&models.Vote{}, existing.ID).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		voted = true
		return tx.Create(&models.Vote{SuggestionID: suggestionID, UserID: userID}).Error
	})
	if err != nil {
		return false, err
	}
	return voted, nil
}

// UpdateStatus moves a suggestion to one of the four moderation states.
// Admin only; the handler enforces the role.
func (s *SuggestionService) UpdateStatus(ctx context.Context, adminID, suggestionID uint, status string) (*SuggestionWithVotes, error) {
	if !models.ValidSuggestionStatus(status) {
		return nil, ErrInvalidStatus
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var suggestion models.Suggestion
		if err := tx.First(&suggestion, suggestionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSuggestionNotFound
			}
			return err
		}
		if err := tx.Model(&models.Suggestion{}).Where("id = ?", suggestionID).
			Update("status", status).Error; err != nil {
			return err
		}
		_, err := s.activities.Record(tx, models.ActivitySuggestion, adminID, nil, suggestion.Title,
			fmt.Sprintf("Suggestion marked as %s: %q by %s", status, suggestion.Title, suggestion.Author))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.find(ctx, suggestionID)
}

// Delete soft-deletes a suggestion; it disappears from default reads but
// keeps its row for history. Admin only.
func (s *SuggestionService) Delete(ctx context.Context, adminID, suggestionID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var suggestion models.Suggestion
		if err := tx.First(&suggestion, suggestionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSuggestionNotFound
			}
			return err
		}
		if err := tx.Delete(&models.Suggestion{}, suggestionID).Error; err != nil {
			return err
		}
		_, err := s.activities.Record(tx, models.ActivitySuggestion, adminID, nil, suggestion.Title,
			fmt.Sprintf("Suggestion deleted (was %s): %q by %s", suggestion.Status, suggestion.Title, suggestion.Author))
		return err
	})
}

func (s *SuggestionService) find(ctx context.Context, id uint) (*SuggestionWithVotes, error) {
	var row SuggestionWithVotes
	res := s.db.WithContext(ctx).Model(&models.Suggestion{}).
		Select("suggestions.*, "+
			"(SELECT COUNT(*) FROM votes WHERE votes.suggestion_id = suggestions.id) AS vote_count, "+
			"users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON users.id = suggestions.user_id").
		Where("suggestions.id = ?", id).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSuggestionNotFound
	}
	return &row, nil
}
