package models

import (
	"time"

	"gorm.io/gorm"
)

// Book statuses. A book is "borrowed" exactly while an open borrowing exists
// for it; "unavailable" is an administrative flag (lost, repair, ...).
const (
	BookStatusAvailable   = "available"
	BookStatusBorrowed    = "borrowed"
	BookStatusUnavailable = "unavailable"
)

// Book is a single-copy catalog entry. Deleting a book is a soft delete so
// borrowing history and the activity log keep valid references.
type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:255;not null;index" json:"title"`
	Author    string         `gorm:"size:255;not null" json:"author"`
	Status    string         `gorm:"size:16;not null;default:'available'" json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

// Borrowing records a loan of a book to a user. ReturnedAt nil means the
// loan is still open. Rows are never deleted.
type Borrowing struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"userId"`
	User       User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID     uint       `gorm:"not null;index" json:"bookId"`
	Book       Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	BorrowedAt time.Time  `gorm:"not null" json:"borrowedAt"`
	DueDate    time.Time  `gorm:"not null" json:"dueDate"`
	ReturnedAt *time.Time `gorm:"index" json:"returnedAt"`
}

// Open reports whether the loan has not been returned yet.
func (b *Borrowing) Open() bool { return b.ReturnedAt == nil }

// Overdue reports whether an open loan is past its due date. Computed at
// read time; there is no background process flagging overdue loans.
func (b *Borrowing) Overdue(now time.Time) bool {
	return b.ReturnedAt == nil && b.DueDate.Before(now)
}

// Reservation is one entry in a book's FIFO queue, ordered by CreatedAt
// (ID breaks ties). Rows are hard-deleted on cancellation or promotion.
type Reservation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID    uint      `gorm:"not null;index" json:"bookId"`
	Book      Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
