// Package schedule implements interval-overlap validation for staff
// calendars: appointments and time-off blocks.
package schedule

import (
	"fmt"
	"time"

	"github.com/upzento/upzento-crm-sub000/internal/model"
	"gorm.io/gorm"
)

// ErrConflict is a validation failure naming the unavailable resource.
type ErrConflict struct {
	StaffID uint
	Start   time.Time
	End     time.Time
	Reason  string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("staff %d is not available from %s to %s: %s",
		e.StaffID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Reason)
}

// Overlaps reports whether [s, e) overlaps [start, end). Intervals are
// half-open, so sharing an endpoint does not conflict.
func Overlaps(s, e, start, end time.Time) bool {
	return s.Before(end) && e.After(start)
}

// blockingStatuses are the appointment statuses that occupy the calendar.
// Cancelled and no-show appointments are excluded from conflict checks.
var blockingStatuses = []string{
	model.AppointmentStatusScheduled,
	model.AppointmentStatusConfirmed,
	model.AppointmentStatusCompleted,
}

// CheckAvailability verifies the staff member is free over
// [start, end). excludeAppointmentID skips the appointment being
// rescheduled. The check must run on the same transaction as the insert
// that follows it so the transaction isolation level can enforce the
// non-overlap invariant.
func CheckAvailability(tx *gorm.DB, clientID, staffID uint, start, end time.Time, excludeAppointmentID uint) error {
	if !end.After(start) {
		return &ErrConflict{StaffID: staffID, Start: start, End: end, Reason: "end time must be after start time"}
	}

	var count int64
	query := tx.Model(&model.Appointment{}).
		Where("client_id = ? AND staff_id = ?", clientID, staffID).
		Where("status IN ?", blockingStatuses).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeAppointmentID != 0 {
		query = query.Where("id != ?", excludeAppointmentID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ErrConflict{StaffID: staffID, Start: start, End: end, Reason: "staff member is not available at this time"}
	}

	if err := tx.Model(&model.TimeOff{}).
		Where("client_id = ? AND staff_id = ?", clientID, staffID).
		Where("start_time < ? AND end_time > ?", end, start).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ErrConflict{StaffID: staffID, Start: start, End: end, Reason: "staff member has time off at this time"}
	}

	return nil
}

// CheckTimeOffOverlap verifies a new time-off block does not overlap an
// existing one for the same staff member.
func CheckTimeOffOverlap(tx *gorm.DB, clientID, staffID uint, start, end time.Time, excludeTimeOffID uint) error {
	if !end.After(start) {
		return &ErrConflict{StaffID: staffID, Start: start, End: end, Reason: "end time must be after start time"}
	}

	var count int64
	query := tx.Model(&model.TimeOff{}).
		Where("client_id = ? AND staff_id = ?", clientID, staffID).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeTimeOffID != 0 {
		query = query.Where("id != ?", excludeTimeOffID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ErrConflict{StaffID: staffID, Start: start, End: end, Reason: "overlapping time off already exists"}
	}

	return nil
}
