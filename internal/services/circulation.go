package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf/internal/metrics"
	"github.com/openshelf/openshelf/internal/models"
)

// LoanPeriod is how long a borrowing lasts before it is overdue.
const LoanPeriod = 7 * 24 * time.Hour

// Business-rule violations surfaced by the circulation engine. Handlers map
// these to 400/404 responses; anything else is a persistence failure.
var (
	ErrAlreadyBorrowing    = errors.New("You already have a borrowed book.")
	ErrBookNotFound        = errors.New("Book not found.")
	ErrBookNotAvailable    = errors.New("Book is not available.")
	ErrNoActiveBorrowing   = errors.New("No active borrowing found for this book.")
	ErrAlreadyReserved     = errors.New("You have already reserved this book.")
	ErrBookAvailable       = errors.New("Book is currently available. You can borrow it instead.")
	ErrReservationNotFound = errors.New("Reservation not found or you don't have permission to cancel it.")
)

// CirculationService owns the borrowing/reservation lifecycle: the
// one-active-loan-per-user rule, book status transitions, and the automatic
// hand-off of a returned book to the head of its reservation queue. Every
// operation runs in a single transaction so the invariants hold even when
// requests for the same book or user interleave.
type CirculationService struct {
	db         *gorm.DB
	activities *ActivityService
}

func NewCirculationService(db *gorm.DB, activities *ActivityService) *CirculationService {
	return &CirculationService{db: db, activities: activities}
}

// ReturnResult reports what happened to the book after a return.
type ReturnResult struct {
	Borrowing      *models.Borrowing
	PromotedUserID *uint // set when the book went straight to a queued reservation
}

// Borrow checks out a book to a user. Precondition order matters: the
// caller's own state first, then the book.
func (s *CirculationService) Borrow(ctx context.Context, userID, bookID uint) (*models.Borrowing, error) {
	var borrowing models.Borrowing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the user row so two concurrent borrows by the same user
		// serialize on the one-active-loan check.
		var user models.User
		if err := s.forUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}
		var open int64
		if err := tx.Model(&models.Borrowing{}).
			Where("user_id = ? AND returned_at IS NULL", userID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrAlreadyBorrowing
		}

		var book models.Book
		if err := s.forUpdate(tx).First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.Status != models.BookStatusAvailable {
			return ErrBookNotAvailable
		}

		now := time.Now()
		borrowing = models.Borrowing{
			UserID:     userID,
			BookID:     bookID,
			BorrowedAt: now,
			DueDate:    now.Add(LoanPeriod),
		}
		if err := tx.Create(&borrowing).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Book{}).Where("id = ?", bookID).
			Update("status", models.BookStatusBorrowed).Error; err != nil {
			return err
		}
		_, err := s.activities.Record(tx, models.ActivityCheckout, userID, &bookID, book.Title,
			fmt.Sprintf("Borrowed %q by %s", book.Title, book.Author))
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.BorrowsTotal.Inc()
	return &borrowing, nil
}

// Return closes the open borrowing for this (user, book) pair and then
// either promotes the oldest reservation or frees the book. The whole
// sequence is one transaction: the book is never left both available and
// queued, or lost mid-promotion.
func (s *CirculationService) Return(ctx context.Context, userID, bookID uint) (*ReturnResult, error) {
	result := &ReturnResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// No book row means no open borrowing either; report the latter.
		var book models.Book
		if err := s.forUpdate(tx).First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveBorrowing
			}
			return err
		}

		var borrowing models.Borrowing
		if err := tx.Where("user_id = ? AND book_id = ? AND returned_at IS NULL", userID, bookID).
			First(&borrowing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveBorrowing
			}
			return err
		}

		now := time.Now()
		borrowing.ReturnedAt = &now
		if err := tx.Model(&models.Borrowing{}).Where("id = ?", borrowing.ID).
			Update("returned_at", now).Error; err != nil {
			return err
		}
		result.Borrowing = &borrowing
		if _, err := s.activities.Record(tx, models.ActivityReturn, userID, &bookID, book.Title,
			fmt.Sprintf("Returned %q by %s", book.Title, book.Author)); err != nil {
			return err
		}

		// Head of queue: strictly FIFO by creation time, id breaks clock ties.
		var next models.Reservation
		err := tx.Where("book_id = ?", bookID).
			Order("created_at ASC, id ASC").
			First(&next).Error
		switch {
		case err == nil:
			promoted := models.Borrowing{
				UserID:     next.UserID,
				BookID:     bookID,
				BorrowedAt: now,
				DueDate:    now.Add(LoanPeriod),
			}
			if err := tx.Create(&promoted).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Reservation{}, next.ID).Error; err != nil {
				return err
			}
			// book stays borrowed; it re-enters circulation immediately
			if _, err := s.activities.Record(tx, models.ActivityCheckout, next.UserID, &bookID, book.Title,
				fmt.Sprintf("Automatically borrowed %q from the reservation queue", book.Title)); err != nil {
				return err
			}
			result.PromotedUserID = &next.UserID
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Model(&models.Book{}).Where("id = ?", bookID).
				Update("status", models.BookStatusAvailable).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	metrics.ReturnsTotal.Inc()
	if result.PromotedUserID != nil {
		metrics.PromotionsTotal.Inc()
	}
	return result, nil
}

// Reserve appends the user to a book's queue. Reserving an available book is
// rejected: the caller should borrow it instead.
func (s *CirculationService) Reserve(ctx context.Context, userID, bookID uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := s.forUpdate(tx).First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		var existing int64
		if err := tx.Model(&models.Reservation{}).
			Where("book_id = ? AND user_id = ?", bookID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyReserved
		}
		if book.Status == models.BookStatusAvailable {
			return ErrBookAvailable
		}
		reservation = models.Reservation{UserID: userID, BookID: bookID}
		if err := tx.Create(&reservation).Error; err != nil {
			return err
		}
		_, err := s.activities.Record(tx, models.ActivityReservation, userID, &bookID, book.Title,
			fmt.Sprintf("Reserved %q by %s", book.Title, book.Author))
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ReservationsTotal.Inc()
	return &reservation, nil
}

// CancelReservation removes the user's own reservation.
func (s *CirculationService) CancelReservation(ctx context.Context, userID, reservationID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.Preload("Book", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Where("id = ? AND user_id = ?", reservationID, userID).
			First(&reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if err := tx.Delete(&models.Reservation{}, reservation.ID).Error; err != nil {
			return err
		}
		_, err := s.activities.Record(tx, models.ActivitySystem, userID, &reservation.BookID, reservation.Book.Title,
			fmt.Sprintf("Reservation cancelled for %q", reservation.Book.Title))
		return err
	})
}

// ReservationWithPosition decorates a reservation with its 1-based rank in
// the book's queue. The rank is recomputed on read and matches the order
// Return promotes from.
type ReservationWithPosition struct {
	models.Reservation
	QueuePosition int64 `json:"queuePosition"`
}

// Reservations lists the user's reservations, oldest first, with queue
// positions.
func (s *CirculationService) Reservations(ctx context.Context, userID uint) ([]ReservationWithPosition, error) {
	var reservations []models.Reservation
	if err := s.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	out := make([]ReservationWithPosition, 0, len(reservations))
	for _, r := range reservations {
		pos, err := s.QueuePosition(ctx, &r)
		if err != nil {
			return nil, err
		}
		out = append(out, ReservationWithPosition{Reservation: r, QueuePosition: pos})
	}
	return out, nil
}

// QueuePosition is the self-inclusive rank: the count of same-book
// reservations created at or before this one.
func (s *CirculationService) QueuePosition(ctx context.Context, r *models.Reservation) (int64, error) {
	var pos int64
	err := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("book_id = ? AND created_at <= ?", r.BookID, r.CreatedAt).
		Count(&pos).Error
	return pos, err
}

// Borrowings lists the user's loan history, newest first. Books are
// preloaded unscoped so history survives catalog soft deletes. Overdue is
// computed lazily from DueDate.
func (s *CirculationService) Borrowings(ctx context.Context, userID uint) ([]models.Borrowing, error) {
	var borrowings []models.Borrowing
	err := s.db.WithContext(ctx).
		Preload("Book", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ?", userID).
		Order("borrowed_at DESC, id DESC").
		Find(&borrowings).Error
	return borrowings, err
}

// forUpdate takes a row lock on postgres; sqlite has no FOR UPDATE syntax
// and serializes writers on its own.
func (s *CirculationService) forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
