package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/models"
)

func TestCatalogListCounts(t *testing.T) {
	conn := setupTestDB(t)
	activities := NewActivityService(conn)
	catalog := NewCatalogService(conn, activities)
	circulation := NewCirculationService(conn, activities)
	alice := createUser(t, conn, "alice")
	bob := createUser(t, conn, "bob")
	admin := createUser(t, conn, "admin")

	book, err := catalog.Create(context.Background(), admin.ID, "Dune", "Frank Herbert")
	require.NoError(t, err)
	other, err := catalog.Create(context.Background(), admin.ID, "Hyperion", "Dan Simmons")
	require.NoError(t, err)

	_, err = circulation.Borrow(context.Background(), alice.ID, book.ID)
	require.NoError(t, err)
	_, err = circulation.Reserve(context.Background(), bob.ID, book.ID)
	require.NoError(t, err)

	rows, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// ordered by title
	assert.Equal(t, "Dune", rows[0].Title)
	assert.EqualValues(t, 1, rows[0].BorrowCount)
	assert.EqualValues(t, 1, rows[0].ReservationCount)
	assert.Equal(t, models.BookStatusBorrowed, rows[0].Status)
	assert.EqualValues(t, 0, rows[1].BorrowCount)

	require.NoError(t, catalog.Delete(context.Background(), admin.ID, other.ID))
	rows, err = catalog.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCatalogDeleteGuards(t *testing.T) {
	conn := setupTestDB(t)
	activities := NewActivityService(conn)
	catalog := NewCatalogService(conn, activities)
	circulation := NewCirculationService(conn, activities)
	alice := createUser(t, conn, "alice")
	bob := createUser(t, conn, "bob")
	admin := createUser(t, conn, "admin")

	book, err := catalog.Create(context.Background(), admin.ID, "Dune", "Frank Herbert")
	require.NoError(t, err)

	err = catalog.Delete(context.Background(), admin.ID, 9999)
	require.ErrorIs(t, err, ErrBookNotFound)

	_, err = circulation.Borrow(context.Background(), alice.ID, book.ID)
	require.NoError(t, err)
	err = catalog.Delete(context.Background(), admin.ID, book.ID)
	require.ErrorIs(t, err, ErrBookBorrowed)

	_, err = circulation.Reserve(context.Background(), bob.ID, book.ID)
	require.NoError(t, err)
	_, err = circulation.Return(context.Background(), alice.ID, book.ID)
	require.NoError(t, err)
	// bob was promoted, so the book is out again with an empty queue;
	// return it to reach a deletable state
	_, err = circulation.Return(context.Background(), bob.ID, book.ID)
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(context.Background(), admin.ID, book.ID))

	var logged models.Activity
	require.NoError(t, conn.Where("type = ?", models.ActivityBook).
		Order("id DESC").First(&logged).Error)
	assert.Contains(t, logged.Details, "removed from catalog")
}

func TestCatalogDeleteRefusedWhileReserved(t *testing.T) {
	conn := setupTestDB(t)
	activities := NewActivityService(conn)
	catalog := NewCatalogService(conn, activities)
	circulation := NewCirculationService(conn, activities)
	bob := createUser(t, conn, "bob")
	admin := createUser(t, conn, "admin")

	book, err := catalog.Create(context.Background(), admin.ID, "Dune", "Frank Herbert")
	require.NoError(t, err)
	_, err = catalog.Update(context.Background(), book.ID, "", "", models.BookStatusUnavailable)
	require.NoError(t, err)
	_, err = circulation.Reserve(context.Background(), bob.ID, book.ID)
	require.NoError(t, err)

	err = catalog.Delete(context.Background(), admin.ID, book.ID)
	require.ErrorIs(t, err, ErrBookReserved)
}

func TestCatalogUpdateStatusRules(t *testing.T) {
	conn := setupTestDB(t)
	activities := NewActivityService(conn)
	catalog := NewCatalogService(conn, activities)
	circulation := NewCirculationService(conn, activities)
	alice := createUser(t, conn, "alice")
	admin := createUser(t, conn, "admin")

	book, err := catalog.Create(context.Background(), admin.ID, "Dune", "Frank Herbert")
	require.NoError(t, err)

	updated, err := catalog.Update(context.Background(), book.ID, "", "", models.BookStatusUnavailable)
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusUnavailable, updated.Status)

	// "borrowed" belongs to the circulation engine
	_, err = catalog.Update(context.Background(), book.ID, "", "", models.BookStatusBorrowed)
	require.ErrorIs(t, err, ErrInvalidStatus)

	updated, err = catalog.Update(context.Background(), book.ID, "Dune (1965)", "", models.BookStatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, "Dune (1965)", updated.Title)
	assert.Equal(t, models.BookStatusAvailable, updated.Status)

	// no hand-editing status while the book is out
	_, err = circulation.Borrow(context.Background(), alice.ID, book.ID)
	require.NoError(t, err)
	_, err = catalog.Update(context.Background(), book.ID, "", "", models.BookStatusAvailable)
	require.ErrorIs(t, err, ErrBookNotAvailable)
}
