package models

import "time"

// Activity types. CHECKOUT covers both direct borrows and automatic
// promotions from the reservation queue.
const (
	ActivityCheckout    = "CHECKOUT"
	ActivityReturn      = "RETURN"
	ActivityReservation = "RESERVATION"
	ActivitySuggestion  = "SUGGESTION"
	ActivitySystem      = "SYSTEM"
	ActivityBook        = "BOOK"
)

// Activity is one row of the append-only domain event log. BookTitle is a
// denormalized snapshot so the entry stays readable even after the book is
// soft-deleted. Rows are never updated or deleted.
type Activity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"size:16;not null;index" json:"type"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID    *uint     `gorm:"index" json:"bookId"`
	Book      *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	BookTitle string    `gorm:"size:255" json:"bookTitle,omitempty"`
	Details   string    `gorm:"size:1024" json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
