package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/models"
)

func TestRecordEnrichesUserAndBook(t *testing.T) {
	conn := setupTestDB(t)
	activities := NewActivityService(conn)
	alice := createUser(t, conn, "alice")
	book := createBook(t, conn, "Dune", models.BookStatusAvailable)

	entry, err := activities.Record(nil, models.ActivityCheckout, alice.ID, &book.ID,
		book.Title, "Borrowed \"Dune\" by alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Email, entry.User.Email)
	assert.Equal(t, "alice", entry.User.Name)
	require.NotNil(t, entry.Book)
	assert.Equal(t, "Dune", entry.Book.Title)
	assert.Equal(t, "Dune", entry.BookTitle)
}

func TestRecordSurvivesBookDeletion(t *testing.T) {
	conn := setupTestDB(t)
	activities := NewActivityService(conn)
	alice := createUser(t, conn, "alice")
	book := createBook(t, conn, "Dune", models.BookStatusAvailable)

	_, err := activities.Record(nil, models.ActivityBook, alice.ID, &book.ID,
		book.Title, "Book added to catalog")
	require.NoError(t, err)
	require.NoError(t, conn.Delete(&models.Book{}, book.ID).Error)

	recent, err := activities.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].Book)
	assert.Equal(t, "Dune", recent[0].Book.Title)
	assert.True(t, recent[0].Book.DeletedAt.Valid)
	assert.Equal(t, "Dune", recent[0].BookTitle)
}

func TestRecentOrderingAndLimits(t *testing.T) {
	conn := setupTestDB(t)
	activities := NewActivityService(conn)
	alice := createUser(t, conn, "alice")
	bob := createUser(t, conn, "bob")

	for i := 0; i < 25; i++ {
		who := alice.ID
		if i%2 == 1 {
			who = bob.ID
		}
		_, err := activities.Record(nil, models.ActivitySystem, who, nil, "",
			fmt.Sprintf("event %d", i))
		require.NoError(t, err)
	}

	recent, err := activities.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, defaultActivityLimit)
	assert.Equal(t, "event 24", recent[0].Details)
	assert.Equal(t, "event 23", recent[1].Details)

	recent, err = activities.Recent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	mine, err := activities.ByUser(context.Background(), bob.ID, 50)
	require.NoError(t, err)
	require.Len(t, mine, 12)
	for _, entry := range mine {
		assert.Equal(t, bob.ID, entry.UserID)
	}
	assert.Equal(t, "event 23", mine[0].Details)
}
