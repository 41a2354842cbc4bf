package models

import (
	"time"

	"gorm.io/gorm"
)

// Suggestion statuses set by moderators.
const (
	SuggestionPending   = "PENDING"
	SuggestionApproved  = "APPROVED"
	SuggestionRejected  = "REJECTED"
	SuggestionPurchased = "PURCHASED"
)

// ValidSuggestionStatus reports whether s is one of the four moderation states.
func ValidSuggestionStatus(s string) bool {
	switch s {
	case SuggestionPending, SuggestionApproved, SuggestionRejected, SuggestionPurchased:
		return true
	}
	return false
}

// Suggestion is a member-submitted acquisition request.
type Suggestion struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Author    string         `gorm:"size:255;not null" json:"author"`
	Reason    string         `gorm:"size:1024" json:"reason,omitempty"`
	UserID    uint           `gorm:"not null;index" json:"userId"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status    string         `gorm:"size:16;not null;default:'PENDING'" json:"status"`
	Votes     []Vote         `gorm:"foreignKey:SuggestionID" json:"votes,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

// Vote marks that a user backs a suggestion. Existence is the whole state:
// voting again removes the row. Unique per (suggestion, user).
type Vote struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	SuggestionID uint `gorm:"not null;uniqueIndex:idx_vote_suggestion_user" json:"suggestionId"`
	UserID       uint `gorm:"not null;uniqueIndex:idx_vote_suggestion_user" json:"userId"`
}
