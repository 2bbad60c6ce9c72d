package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/schedule"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StaffRequest defines the structure for staff create/update requests
type StaffRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// CreateStaff adds a bookable staff member.
func CreateStaff(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("staff", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req StaffRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	staff := model.Staff{
		ClientID: clientID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Active:   true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&staff); result.Error != nil {
		log.Error("Failed to create staff", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create staff"})
	}
	return c.JSON(http.StatusCreated, staff)
}

// ListStaff lists the tenant's staff members.
func ListStaff(c echo.Context) error {
	prometheus.RecordOperation("staff", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var staff []model.Staff
	err := store.ListOwned(database.GetDB(), &staff, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Order("name asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve staff"})
	}
	return c.JSON(http.StatusOK, staff)
}

// DeleteStaff removes a staff member from the roster.
func DeleteStaff(c echo.Context) error {
	prometheus.RecordOperation("staff", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Staff{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "staff")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "staff deleted"})
}

// ServiceRequest defines the structure for service create/update requests
type ServiceRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	DurationMin int     `json:"duration_min" validate:"gt=0"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// CreateService adds a bookable service.
func CreateService(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("services", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ServiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	service := model.Service{
		ClientID:    clientID,
		Name:        req.Name,
		Description: req.Description,
		DurationMin: req.DurationMin,
		Price:       req.Price,
		Active:      true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&service); result.Error != nil {
		log.Error("Failed to create service", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create service"})
	}
	return c.JSON(http.StatusCreated, service)
}

// ListServices lists the tenant's bookable services.
func ListServices(c echo.Context) error {
	prometheus.RecordOperation("services", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var services []model.Service
	err := store.ListOwned(database.GetDB(), &services, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Order("name asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve services"})
	}
	return c.JSON(http.StatusOK, services)
}

// AppointmentRequest defines the structure for appointment booking requests
type AppointmentRequest struct {
	ContactID uint      `json:"contact_id" validate:"required"`
	StaffID   uint      `json:"staff_id" validate:"required"`
	ServiceID uint      `json:"service_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Notes     string    `json:"notes"`
}

// CreateAppointment books a staff member over a half-open interval. The
// availability check and the insert run in the same transaction so two
// concurrent bookings cannot both pass the check.
func CreateAppointment(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("appointments", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	db := database.GetDB()
	if err := store.VerifyOwned(db, &model.Contact{}, req.ContactID, clientID); err != nil {
		return scopedError(c, err, "contact")
	}
	if err := store.VerifyOwned(db, &model.Staff{}, req.StaffID, clientID); err != nil {
		return scopedError(c, err, "staff")
	}
	if err := store.VerifyOwned(db, &model.Service{}, req.ServiceID, clientID); err != nil {
		return scopedError(c, err, "service")
	}

	userID, _ := middleware.UserIDFromEcho(c)
	appointment := model.Appointment{
		ClientID:  clientID,
		ContactID: req.ContactID,
		StaffID:   req.StaffID,
		ServiceID: req.ServiceID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    model.AppointmentStatusScheduled,
		Notes:     req.Notes,
		CreatedBy: userID,
		UpdatedBy: userID,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := schedule.CheckAvailability(tx, clientID, req.StaffID, req.StartTime, req.EndTime, 0); err != nil {
			return err
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		var conflict *schedule.ErrConflict
		if errors.As(err, &conflict) {
			prometheus.ScheduleConflictCounter.Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"error": conflict.Error()})
		}
		log.Error("Failed to create appointment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create appointment"})
	}

	dispatcher.Dispatch(db, clientID, "appointment.created", appointment)

	log.Info("Appointment created",
		zap.Uint("id", appointment.ID),
		zap.Uint("staff_id", req.StaffID),
		zap.Time("start", req.StartTime))
	return c.JSON(http.StatusCreated, appointment)
}

// ListAppointments lists the tenant's appointments, optionally filtered by
// staff member and time window.
func ListAppointments(c echo.Context) error {
	prometheus.RecordOperation("appointments", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var appointments []model.Appointment
	err := store.ListOwned(database.GetDB(), &appointments, clientID, func(q *gorm.DB) *gorm.DB {
		if s := c.QueryParam("staff_id"); s != "" {
			q = q.Where("staff_id = ?", s)
		}
		if from := c.QueryParam("from"); from != "" {
			if t, err := time.Parse(time.RFC3339, from); err == nil {
				q = q.Where("end_time > ?", t)
			}
		}
		if to := c.QueryParam("to"); to != "" {
			if t, err := time.Parse(time.RFC3339, to); err == nil {
				q = q.Where("start_time < ?", t)
			}
		}
		return q.Order("start_time asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve appointments"})
	}
	return c.JSON(http.StatusOK, appointments)
}

// RescheduleAppointmentRequest carries the new interval.
type RescheduleAppointmentRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// RescheduleAppointment moves an appointment to a new interval. The
// appointment being moved is excluded from its own conflict check.
func RescheduleAppointment(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("appointments", "reschedule")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment ID"})
	}

	var req RescheduleAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	userID, _ := middleware.UserIDFromEcho(c)
	var appointment model.Appointment

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := store.FindOwned(tx, &appointment, uint(id), clientID); err != nil {
			return err
		}
		if err := schedule.CheckAvailability(tx, clientID, appointment.StaffID, req.StartTime, req.EndTime, appointment.ID); err != nil {
			return err
		}
		appointment.StartTime = req.StartTime
		appointment.EndTime = req.EndTime
		appointment.UpdatedBy = userID
		return tx.Save(&appointment).Error
	})
	if err != nil {
		var conflict *schedule.ErrConflict
		if errors.As(err, &conflict) {
			prometheus.ScheduleConflictCounter.Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"error": conflict.Error()})
		}
		if store.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "appointment not found"})
		}
		log.Error("Failed to reschedule appointment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reschedule appointment"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "appointment.rescheduled", appointment)
	return c.JSON(http.StatusOK, appointment)
}

// UpdateAppointmentStatusRequest carries the new status.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled confirmed completed cancelled no_show"`
}

// UpdateAppointmentStatus transitions an appointment's status. Cancelling
// or marking no-show frees the slot for new bookings.
func UpdateAppointmentStatus(c echo.Context) error {
	prometheus.RecordOperation("appointments", "status")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment ID"})
	}

	var req UpdateAppointmentStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var appointment model.Appointment
	if err := store.FindOwned(database.GetDB(), &appointment, uint(id), clientID); err != nil {
		return scopedError(c, err, "appointment")
	}

	userID, _ := middleware.UserIDFromEcho(c)
	appointment.Status = req.Status
	appointment.UpdatedBy = userID

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&appointment); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update appointment"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "appointment."+req.Status, appointment)
	return c.JSON(http.StatusOK, appointment)
}

// TimeOffRequest defines the structure for time-off creation requests
type TimeOffRequest struct {
	StaffID   uint      `json:"staff_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Reason    string    `json:"reason"`
}

// CreateTimeOff blocks a staff member's calendar.
func CreateTimeOff(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("timeoff", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req TimeOffRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := store.VerifyOwned(database.GetDB(), &model.Staff{}, req.StaffID, clientID); err != nil {
		return scopedError(c, err, "staff")
	}

	timeOff := model.TimeOff{
		ClientID:  clientID,
		StaffID:   req.StaffID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := schedule.CheckTimeOffOverlap(tx, clientID, req.StaffID, req.StartTime, req.EndTime, 0); err != nil {
			return err
		}
		return tx.Create(&timeOff).Error
	})
	if err != nil {
		var conflict *schedule.ErrConflict
		if errors.As(err, &conflict) {
			prometheus.ScheduleConflictCounter.Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"error": conflict.Error()})
		}
		log.Error("Failed to create time off", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create time off"})
	}
	return c.JSON(http.StatusCreated, timeOff)
}

// ListTimeOff lists the tenant's time-off blocks.
func ListTimeOff(c echo.Context) error {
	prometheus.RecordOperation("timeoff", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var blocks []model.TimeOff
	err := store.ListOwned(database.GetDB(), &blocks, clientID, func(q *gorm.DB) *gorm.DB {
		if s := c.QueryParam("staff_id"); s != "" {
			q = q.Where("staff_id = ?", s)
		}
		return q.Order("start_time asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve time off"})
	}
	return c.JSON(http.StatusOK, blocks)
}

// DeleteTimeOff removes a time-off block.
func DeleteTimeOff(c echo.Context) error {
	prometheus.RecordOperation("timeoff", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time off ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.TimeOff{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "time off")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "time off deleted"})
}
