package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Contact{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, clientID uint, email string) model.Contact {
	t.Helper()
	c := model.Contact{ClientID: clientID, Email: email}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func TestFindOwned(t *testing.T) {
	db := newTestDB(t)
	mine := seed(t, db, 1, "mine@x.com")
	theirs := seed(t, db, 2, "theirs@x.com")

	var got model.Contact
	require.NoError(t, FindOwned(db, &got, mine.ID, 1))
	assert.Equal(t, mine.Email, got.Email)

	// A row owned by another tenant must look exactly like a missing row.
	err := FindOwned(db, &model.Contact{}, theirs.ID, 1)
	assert.True(t, IsNotFound(err))

	err = FindOwned(db, &model.Contact{}, 9999, 1)
	assert.True(t, IsNotFound(err))
}

func TestVerifyOwned(t *testing.T) {
	db := newTestDB(t)
	mine := seed(t, db, 1, "mine@x.com")
	theirs := seed(t, db, 2, "theirs@x.com")

	assert.NoError(t, VerifyOwned(db, &model.Contact{}, mine.ID, 1))
	assert.True(t, IsNotFound(VerifyOwned(db, &model.Contact{}, theirs.ID, 1)))
	assert.True(t, IsNotFound(VerifyOwned(db, &model.Contact{}, 9999, 1)))
}

func TestListOwned(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, 1, "a@x.com")
	seed(t, db, 1, "b@x.com")
	seed(t, db, 2, "c@x.com")

	var contacts []model.Contact
	require.NoError(t, ListOwned(db, &contacts, 1, nil))
	assert.Len(t, contacts, 2)

	contacts = nil
	require.NoError(t, ListOwned(db, &contacts, 1, func(q *gorm.DB) *gorm.DB {
		return q.Where("email = ?", "a@x.com")
	}))
	assert.Len(t, contacts, 1)
}

func TestDeleteOwned(t *testing.T) {
	db := newTestDB(t)
	mine := seed(t, db, 1, "mine@x.com")
	theirs := seed(t, db, 2, "theirs@x.com")

	assert.True(t, IsNotFound(DeleteOwned(db, &model.Contact{}, theirs.ID, 1)))
	require.NoError(t, DeleteOwned(db, &model.Contact{}, mine.ID, 1))

	assert.True(t, IsNotFound(FindOwned(db, &model.Contact{}, mine.ID, 1)))
	// The other tenant's row is untouched.
	assert.NoError(t, FindOwned(db, &model.Contact{}, theirs.ID, 2))
}
