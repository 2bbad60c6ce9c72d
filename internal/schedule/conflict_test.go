package schedule

import (
	"testing"
	"time"

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
	require.NoError(t, db.AutoMigrate(&model.Appointment{}, &model.TimeOff{}))
	return db
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s, e, start, end time.Time
		want           bool
	}{
		{"existing starts within candidate", at(10, 30), at(11, 30), at(10, 0), at(11, 0), true},
		{"existing ends within candidate", at(9, 30), at(10, 30), at(10, 0), at(11, 0), true},
		{"existing contains candidate", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"candidate contains existing", at(10, 15), at(10, 45), at(10, 0), at(11, 0), true},
		{"identical intervals", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"existing ends at candidate start", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"existing starts at candidate end", at(11, 0), at(12, 0), at(10, 0), at(11, 0), false},
		{"disjoint before", at(8, 0), at(9, 0), at(10, 0), at(11, 0), false},
		{"disjoint after", at(12, 0), at(13, 0), at(10, 0), at(11, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(tt.s, tt.e, tt.start, tt.end)
			assert.Equal(t, tt.want, got)
			// Overlap is symmetric.
			assert.Equal(t, tt.want, Overlaps(tt.start, tt.end, tt.s, tt.e))
		})
	}
}

func TestCheckAvailabilityRejectsOverlap(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.Appointment{
		ClientID: 1, ContactID: 1, StaffID: 2, ServiceID: 1,
		StartTime: at(10, 0), EndTime: at(11, 0),
		Status: model.AppointmentStatusScheduled,
	}).Error)

	err := CheckAvailability(db, 1, 2, at(10, 30), at(11, 30), 0)
	require.Error(t, err)

	var conflict *ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Error(), "not available")
}

func TestCheckAvailabilityAllowsAdjacentIntervals(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.Appointment{
		ClientID: 1, ContactID: 1, StaffID: 2, ServiceID: 1,
		StartTime: at(10, 0), EndTime: at(11, 0),
		Status: model.AppointmentStatusConfirmed,
	}).Error)

	assert.NoError(t, CheckAvailability(db, 1, 2, at(11, 0), at(12, 0), 0))
	assert.NoError(t, CheckAvailability(db, 1, 2, at(9, 0), at(10, 0), 0))
}

func TestCheckAvailabilityIgnoresCancelledAndNoShow(t *testing.T) {
	db := newTestDB(t)
	for _, status := range []string{model.AppointmentStatusCancelled, model.AppointmentStatusNoShow} {
		require.NoError(t, db.Create(&model.Appointment{
			ClientID: 1, ContactID: 1, StaffID: 2, ServiceID: 1,
			StartTime: at(10, 0), EndTime: at(11, 0),
			Status: status,
		}).Error)
	}

	assert.NoError(t, CheckAvailability(db, 1, 2, at(10, 0), at(11, 0), 0))
}

func TestCheckAvailabilityScopedToStaffAndClient(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.Appointment{
		ClientID: 1, ContactID: 1, StaffID: 2, ServiceID: 1,
		StartTime: at(10, 0), EndTime: at(11, 0),
		Status: model.AppointmentStatusScheduled,
	}).Error)

	// Different staff member, same time: fine.
	assert.NoError(t, CheckAvailability(db, 1, 3, at(10, 0), at(11, 0), 0))
	// Same staff id under another client: fine.
	assert.NoError(t, CheckAvailability(db, 2, 2, at(10, 0), at(11, 0), 0))
}

func TestCheckAvailabilityExcludesSelfOnReschedule(t *testing.T) {
	db := newTestDB(t)
	appt := model.Appointment{
		ClientID: 1, ContactID: 1, StaffID: 2, ServiceID: 1,
		StartTime: at(10, 0), EndTime: at(11, 0),
		Status: model.AppointmentStatusScheduled,
	}
	require.NoError(t, db.Create(&appt).Error)

	// Extending the same appointment must not conflict with itself.
	assert.NoError(t, CheckAvailability(db, 1, 2, at(10, 0), at(11, 30), appt.ID))
}

func TestCheckAvailabilityRejectsTimeOff(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.TimeOff{
		ClientID: 1, StaffID: 2,
		StartTime: at(13, 0), EndTime: at(17, 0),
		Reason: "afternoon off",
	}).Error)

	err := CheckAvailability(db, 1, 2, at(14, 0), at(15, 0), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time off")

	// Adjacent to the block is fine.
	assert.NoError(t, CheckAvailability(db, 1, 2, at(12, 0), at(13, 0), 0))
}

func TestCheckAvailabilityRejectsInvertedInterval(t *testing.T) {
	db := newTestDB(t)

	assert.Error(t, CheckAvailability(db, 1, 2, at(11, 0), at(10, 0), 0))
	assert.Error(t, CheckAvailability(db, 1, 2, at(10, 0), at(10, 0), 0))
}

func TestCheckTimeOffOverlap(t *testing.T) {
	db := newTestDB(t)
	existing := model.TimeOff{
		ClientID: 1, StaffID: 2,
		StartTime: at(9, 0), EndTime: at(12, 0),
	}
	require.NoError(t, db.Create(&existing).Error)

	assert.Error(t, CheckTimeOffOverlap(db, 1, 2, at(11, 0), at(13, 0), 0))
	assert.NoError(t, CheckTimeOffOverlap(db, 1, 2, at(12, 0), at(13, 0), 0))
	// Editing the existing block skips itself.
	assert.NoError(t, CheckTimeOffOverlap(db, 1, 2, at(9, 0), at(13, 0), existing.ID))
}
