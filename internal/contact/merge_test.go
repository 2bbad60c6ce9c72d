package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/store"
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
	require.NoError(t, db.AutoMigrate(
		&model.Contact{}, &model.ContactHistory{},
		&model.Deal{}, &model.Appointment{}, &model.CallLog{},
		&model.SMSMessage{}, &model.Review{}, &model.Order{},
		&model.FormSubmission{}, &model.Conversation{},
	))
	return db
}

func seedContact(t *testing.T, db *gorm.DB, clientID uint, email string, tags []string, fields map[string]interface{}) model.Contact {
	t.Helper()
	c := model.Contact{
		ClientID:     clientID,
		Email:        email,
		Tags:         tags,
		CustomFields: fields,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func TestMergeUnionsTagsWithoutDuplicates(t *testing.T) {
	db := newTestDB(t)
	primary := seedContact(t, db, 1, "p@x.com", []string{"vip"}, nil)
	secondary := seedContact(t, db, 1, "s@x.com", []string{"vip", "newsletter"}, nil)

	merged, err := Merge(db, 1, primary.ID, []uint{secondary.ID}, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"vip", "newsletter"}, merged.Tags)
}

func TestMergeCustomFieldsSecondaryWins(t *testing.T) {
	db := newTestDB(t)
	primary := seedContact(t, db, 1, "p@x.com", nil, map[string]interface{}{
		"plan": "basic", "city": "Lisbon",
	})
	secondary := seedContact(t, db, 1, "s@x.com", nil, map[string]interface{}{
		"plan": "pro", "industry": "retail",
	})

	merged, err := Merge(db, 1, primary.ID, []uint{secondary.ID}, 10)
	require.NoError(t, err)

	assert.Equal(t, "pro", merged.CustomFields["plan"])
	assert.Equal(t, "Lisbon", merged.CustomFields["city"])
	assert.Equal(t, "retail", merged.CustomFields["industry"])
}

func TestMergeRepointsReferences(t *testing.T) {
	db := newTestDB(t)
	primary := seedContact(t, db, 1, "p@x.com", nil, nil)
	secondary := seedContact(t, db, 1, "s@x.com", nil, nil)

	deal := model.Deal{ClientID: 1, Title: "deal", PipelineID: 1, StageID: 1, ContactID: &secondary.ID}
	require.NoError(t, db.Create(&deal).Error)
	sms := model.SMSMessage{ClientID: 1, Direction: "outbound", Body: "hi", ContactID: &secondary.ID}
	require.NoError(t, db.Create(&sms).Error)

	_, err := Merge(db, 1, primary.ID, []uint{secondary.ID}, 10)
	require.NoError(t, err)

	var movedDeal model.Deal
	require.NoError(t, db.First(&movedDeal, deal.ID).Error)
	require.NotNil(t, movedDeal.ContactID)
	assert.Equal(t, primary.ID, *movedDeal.ContactID)

	var movedSMS model.SMSMessage
	require.NoError(t, db.First(&movedSMS, sms.ID).Error)
	require.NotNil(t, movedSMS.ContactID)
	assert.Equal(t, primary.ID, *movedSMS.ContactID)
}

func TestMergeDeletesSecondariesAndWritesHistory(t *testing.T) {
	db := newTestDB(t)
	primary := seedContact(t, db, 1, "p@x.com", nil, nil)
	secondary := seedContact(t, db, 1, "s@x.com", nil, nil)

	_, err := Merge(db, 1, primary.ID, []uint{secondary.ID}, 10)
	require.NoError(t, err)

	var gone model.Contact
	assert.ErrorIs(t, db.First(&gone, secondary.ID).Error, gorm.ErrRecordNotFound)

	var history []model.ContactHistory
	require.NoError(t, db.Where("contact_id = ?", primary.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, "merge", history[0].Action)
	assert.Equal(t, uint(10), history[0].ActorID)
}

func TestMergeRollsBackFullyOnFailure(t *testing.T) {
	db := newTestDB(t)
	primary := seedContact(t, db, 1, "p@x.com", []string{"vip"}, map[string]interface{}{"plan": "basic"})
	second := seedContact(t, db, 1, "a@x.com", []string{"newsletter"}, nil)
	third := seedContact(t, db, 1, "b@x.com", nil, nil)

	// The fourth secondary does not exist, so the transaction fails after
	// two secondaries were already processed.
	_, err := Merge(db, 1, primary.ID, []uint{second.ID, third.ID, 9999}, 10)
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))

	// Primary must reflect the pre-merge state.
	var reloaded model.Contact
	require.NoError(t, db.First(&reloaded, primary.ID).Error)
	assert.Equal(t, []string{"vip"}, reloaded.Tags)
	assert.Equal(t, map[string]interface{}{"plan": "basic"}, reloaded.CustomFields)

	// No secondary may have been deleted.
	var count int64
	require.NoError(t, db.Model(&model.Contact{}).Where("client_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	// No merge history may be visible.
	var histories int64
	require.NoError(t, db.Model(&model.ContactHistory{}).Count(&histories).Error)
	assert.Equal(t, int64(0), histories)
}

func TestMergeRejectsCrossTenantSecondary(t *testing.T) {
	db := newTestDB(t)
	primary := seedContact(t, db, 1, "p@x.com", nil, nil)
	foreign := seedContact(t, db, 2, "other@x.com", nil, nil)

	_, err := Merge(db, 1, primary.ID, []uint{foreign.ID}, 10)
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))

	// The foreign tenant's contact is untouched.
	var still model.Contact
	assert.NoError(t, db.First(&still, foreign.ID).Error)
}

func TestMergeRejectsSelfMerge(t *testing.T) {
	db := newTestDB(t)
	primary := seedContact(t, db, 1, "p@x.com", nil, nil)

	_, err := Merge(db, 1, primary.ID, []uint{primary.ID}, 10)
	assert.Error(t, err)
}
