package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/models"
)

var (
	ErrBookBorrowed = errors.New("Cannot delete a book with an open borrowing.")
	ErrBookReserved = errors.New("Cannot delete a book with open reservations.")
)

// CatalogService manages the book catalog. Deletes are soft so borrowings
// and activity entries keep valid references.
type CatalogService struct {
	db         *gorm.DB
	activities *ActivityService
}

func NewCatalogService(db *gorm.DB, activities *ActivityService) *CatalogService {
	return &CatalogService{db: db, activities: activities}
}

// BookWithCounts is the catalog list shape: a book plus how many times it
// was ever borrowed and how long its current queue is.
type BookWithCounts struct {
	models.Book
	BorrowCount      int64 `json:"borrowCount"`
	ReservationCount int64 `json:"reservationCount"`
}

// List returns the non-deleted catalog ordered by title, with aggregates.
func (s *CatalogService) List(ctx context.Context) ([]BookWithCounts, error) {
	var rows []BookWithCounts
	err := s.db.WithContext(ctx).Model(&models.Book{}).
		Select("books.*, " +
			"(SELECT COUNT(*) FROM borrowings WHERE borrowings.book_id = books.id) AS borrow_count, " +
			"(SELECT COUNT(*) FROM reservations WHERE reservations.book_id = books.id) AS reservation_count").
		Order("books.title ASC").
		Scan(&rows).Error
	return rows, err
}

// Create adds a book to the catalog, available by default.
func (s *CatalogService) Create(ctx context.Context, adminID uint, title, author string) (*models.Book, error) {
	book := models.Book{Title: title, Author: author, Status: models.BookStatusAvailable}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&book).Error; err != nil {
			return err
		}
		_, err := s.activities.Record(tx, models.ActivityBook, adminID, &book.ID, book.Title,
			fmt.Sprintf("Book added to catalog: %q by %s", title, author))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Update edits title/author and optionally flips status between available
// and unavailable. "borrowed" is owned by the circulation engine and cannot
// be set by hand; a book with an open loan cannot change status at all.
func (s *CatalogService) Update(ctx context.Context, id uint, title, author, status string) (*models.Book, error) {
	var book models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		updates := map[string]any{}
		if title != "" {
			updates["title"] = title
		}
		if author != "" {
			updates["author"] = author
		}
		if status != "" && status != book.Status {
			if status != models.BookStatusAvailable && status != models.BookStatusUnavailable {
				return ErrInvalidStatus
			}
			var open int64
			if err := tx.Model(&models.Borrowing{}).
				Where("book_id = ? AND returned_at IS NULL", id).
				Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				return ErrBookNotAvailable
			}
			updates["status"] = status
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Book{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&book, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete soft-deletes a book. Refused while the book has an open borrowing
// or any queued reservation, so no reader loses a loan or a queue spot to a
// catalog edit.
func (s *CatalogService) Delete(ctx context.Context, adminID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		var open int64
		if err := tx.Model(&models.Borrowing{}).
			Where("book_id = ? AND returned_at IS NULL", id).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrBookBorrowed
		}
		var queued int64
		if err := tx.Model(&models.Reservation{}).
			Where("book_id = ?", id).
			Count(&queued).Error; err != nil {
			return err
		}
		if queued > 0 {
			return ErrBookReserved
		}
		if err := tx.Delete(&models.Book{}, id).Error; err != nil {
			return err
		}
		_, err := s.activities.Record(tx, models.ActivityBook, adminID, &id, book.Title,
			fmt.Sprintf("Book removed from catalog: %q by %s", book.Title, book.Author))
		return err
	})
}
