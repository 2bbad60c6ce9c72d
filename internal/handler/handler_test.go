package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/internal/chat"
	"github.com/upzento/upzento-crm-sub000/internal/integration"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/payment"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/internal/webhook"
	"github.com/upzento/upzento-crm-sub000/pkg/config"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/jwtutil"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var metricsOnce sync.Once

// setupTest wires the handler package against an in-memory database and
// returns an Echo instance with the request validator installed.
func setupTest(t *testing.T) *echo.Echo {
	t.Helper()

	metricsOnce.Do(func() {
		prometheus.InitMetrics(&config.Config{
			Metrics: config.MetricsConfig{Prefix: "handlertest"},
		})
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.RefreshToken{},
		&model.Agency{}, &model.Client{},
		&model.Contact{}, &model.ContactHistory{},
		&model.Pipeline{}, &model.Stage{}, &model.Deal{},
		&model.Staff{}, &model.Service{}, &model.Appointment{}, &model.TimeOff{},
		&model.Campaign{}, &model.Segment{},
		&model.Conversation{}, &model.Message{},
		&model.CallLog{}, &model.SMSMessage{},
		&model.Review{}, &model.ReviewWidget{},
		&model.Product{}, &model.Order{}, &model.OrderItem{},
		&model.Form{}, &model.FormSubmission{},
		&model.PaymentTransaction{}, &model.Integration{},
		&model.Webhook{}, &model.ClientSettings{},
	))
	database.DB = db

	jwtUtil = jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      "testsigningkey",
		ExpirationHours: 1,
	})
	refreshTTL = time.Hour
	dispatcher = webhook.NewDispatcher(time.Second, zap.NewNop())
	hub := chat.NewHub(zap.NewNop())
	go hub.Run()
	chatHub = hub
	integrations = integration.NewRegistry()
	cipher, err := integration.NewCipher(strings.Repeat("k", 32))
	require.NoError(t, err)
	credCipher = cipher
	paymentGateway = payment.NewTestGateway()

	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// clientRequest builds an authenticated echo context scoped to a client
// tenant.
func clientRequest(e *echo.Echo, method, target string, body string, clientID uint) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	cid := clientID
	c.Set(middleware.ContextKeyUserID, uint(1))
	c.Set(middleware.ContextKeyTenantContext, tenant.Context{
		ClientID:     &cid,
		IsClientUser: true,
	})
	return c, rec
}

func TestGetContactCrossTenantReportsNotFound(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	owned := model.Contact{ClientID: 2, Email: "other@x.com"}
	require.NoError(t, db.Create(&owned).Error)

	c, rec := clientRequest(e, http.MethodGet, "/api/contacts/1", "", 1)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, GetContact(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestCreateContactDuplicateEmailConflicts(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()
	require.NoError(t, db.Create(&model.Contact{ClientID: 1, Email: "dup@x.com"}).Error)

	c, rec := clientRequest(e, http.MethodPost, "/api/contacts",
		`{"email":"dup@x.com","first_name":"Dup"}`, 1)

	require.NoError(t, CreateContact(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The same email under another tenant is fine.
	c2, rec2 := clientRequest(e, http.MethodPost, "/api/contacts",
		`{"email":"dup@x.com","first_name":"Dup"}`, 2)
	require.NoError(t, CreateContact(c2))
	assert.Equal(t, http.StatusCreated, rec2.Code)
}

func TestCreateOrderComputesTotalAndDecrementsStock(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	product := model.Product{ClientID: 1, Name: "Widget", SKU: "W-1", Price: 19.99, Stock: 5, Active: true}
	require.NoError(t, db.Create(&product).Error)

	c, rec := clientRequest(e, http.MethodPost, "/api/orders",
		`{"items":[{"product_id":1,"quantity":3}]}`, 1)

	require.NoError(t, CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order model.Order
	require.NoError(t, db.Preload("Items").First(&order).Error)
	assert.InDelta(t, 59.97, order.Total, 0.001)
	require.Len(t, order.Items, 1)
	assert.InDelta(t, 19.99, order.Items[0].UnitPrice, 0.001)

	var reloaded model.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 2, reloaded.Stock)
}

func TestCreateOrderInsufficientStockConflicts(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()
	require.NoError(t, db.Create(&model.Product{
		ClientID: 1, Name: "Rare", SKU: "R-1", Price: 10, Stock: 1, Active: true,
	}).Error)

	c, rec := clientRequest(e, http.MethodPost, "/api/orders",
		`{"items":[{"product_id":1,"quantity":2}]}`, 1)

	require.NoError(t, CreateOrder(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The failed order must not leave partial rows behind.
	var orders int64
	db.Model(&model.Order{}).Count(&orders)
	assert.Zero(t, orders)
	var reloaded model.Product
	require.NoError(t, db.First(&reloaded, 1).Error)
	assert.Equal(t, 1, reloaded.Stock)
}

func TestCreateAppointmentRejectsOverlap(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	require.NoError(t, db.Create(&model.Contact{ClientID: 1, Email: "a@x.com"}).Error)
	require.NoError(t, db.Create(&model.Staff{ClientID: 1, Name: "Dana", Active: true}).Error)
	require.NoError(t, db.Create(&model.Service{ClientID: 1, Name: "Consult", DurationMin: 60, Active: true}).Error)

	body := `{"contact_id":1,"staff_id":1,"service_id":1,` +
		`"start_time":"2026-09-01T10:00:00Z","end_time":"2026-09-01T11:00:00Z"}`
	c, rec := clientRequest(e, http.MethodPost, "/api/appointments", body, 1)
	require.NoError(t, CreateAppointment(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	overlapping := `{"contact_id":1,"staff_id":1,"service_id":1,` +
		`"start_time":"2026-09-01T10:30:00Z","end_time":"2026-09-01T11:30:00Z"}`
	c2, rec2 := clientRequest(e, http.MethodPost, "/api/appointments", overlapping, 1)
	require.NoError(t, CreateAppointment(c2))
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
	assert.Contains(t, rec2.Body.String(), "not available")

	// An adjacent booking sharing only the endpoint is accepted.
	adjacent := `{"contact_id":1,"staff_id":1,"service_id":1,` +
		`"start_time":"2026-09-01T11:00:00Z","end_time":"2026-09-01T12:00:00Z"}`
	c3, rec3 := clientRequest(e, http.MethodPost, "/api/appointments", adjacent, 1)
	require.NoError(t, CreateAppointment(c3))
	assert.Equal(t, http.StatusCreated, rec3.Code)
}

func TestConnectIntegrationBadCredentialsPersistsError(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	body := `{"type":"GOOGLE_ANALYTICS","credentials":{"propertyId":"invalid-123","accessToken":"tok"}}`
	c, rec := clientRequest(e, http.MethodPost, "/api/integrations", body, 1)

	require.NoError(t, ConnectIntegration(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid property ID")

	var intg model.Integration
	require.NoError(t, db.First(&intg).Error)
	assert.Equal(t, model.IntegrationStatusError, intg.Status)
	assert.NotEmpty(t, intg.ErrorMessage)
	// Credentials are stored encrypted even for failed connections.
	assert.NotContains(t, intg.Credentials, "invalid-123")
}

func TestConnectIntegrationValidCredentials(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	body := `{"type":"GOOGLE_ANALYTICS","credentials":{"propertyId":"123456","accessToken":"tok"}}`
	c, rec := clientRequest(e, http.MethodPost, "/api/integrations", body, 1)

	require.NoError(t, ConnectIntegration(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var intg model.Integration
	require.NoError(t, db.First(&intg).Error)
	assert.Equal(t, model.IntegrationStatusConnected, intg.Status)

	creds, err := credCipher.DecryptCredentials(intg.Credentials)
	require.NoError(t, err)
	assert.Equal(t, "123456", creds["propertyId"])
}

func TestGetSettingsCreatesDefaultsOnFirstRead(t *testing.T) {
	e := setupTest(t)

	c, rec := clientRequest(e, http.MethodGet, "/api/settings", "", 1)
	require.NoError(t, GetSettings(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var settings model.ClientSettings
	require.NoError(t, database.GetDB().Where("client_id = ?", 1).First(&settings).Error)
	assert.Equal(t, "UTC", settings.Timezone)
	assert.True(t, settings.NotifyByEmail)
	assert.True(t, strings.HasPrefix(settings.EmbedKey, "em_"))
}

func TestChargeDeclinedIsRecordedAsFailure(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	body := `{"amount":25.00,"source":"declined-card"}`
	c, rec := clientRequest(e, http.MethodPost, "/api/payments/charge", body, 1)

	require.NoError(t, Charge(c))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var txn model.PaymentTransaction
	require.NoError(t, db.First(&txn).Error)
	assert.Equal(t, model.PaymentStatusFailed, txn.Status)
	assert.NotEmpty(t, txn.FailureReason)
	assert.True(t, strings.HasPrefix(txn.ID, "pay_"))
}

func TestMergeContactsEndpointMovesReferences(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	primary := model.Contact{ClientID: 1, Email: "keep@x.com", Tags: []string{"vip"}}
	secondary := model.Contact{ClientID: 1, Email: "dup@x.com", Tags: []string{"newsletter"}}
	require.NoError(t, db.Create(&primary).Error)
	require.NoError(t, db.Create(&secondary).Error)
	review := model.Review{ClientID: 1, ContactID: &secondary.ID, Rating: 5}
	require.NoError(t, db.Create(&review).Error)

	body := `{"primary_id":1,"secondary_ids":[2]}`
	c, rec := clientRequest(e, http.MethodPost, "/api/contacts/merge", body, 1)

	require.NoError(t, MergeContacts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var reloaded model.Review
	require.NoError(t, db.First(&reloaded, review.ID).Error)
	assert.Equal(t, primary.ID, *reloaded.ContactID)

	var gone model.Contact
	err := db.First(&gone, secondary.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
