package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
)

// embedRequest builds an unauthenticated embed request carrying an Origin
// header, routed to a :key parameter.
func embedRequest(e *echo.Echo, method, target, body, origin, key string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("key")
	c.SetParamValues(key)
	return c, rec
}

func TestEmbedReviewsServesPublishedOnly(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	widget := model.ReviewWidget{ClientID: 1, Name: "Storefront", AllowedDomains: []string{"example.com"}, Active: true}
	require.NoError(t, db.Create(&widget).Error)
	require.NoError(t, db.Create(&model.Review{ClientID: 1, Rating: 5, Body: "great", Published: true}).Error)
	require.NoError(t, db.Create(&model.Review{ClientID: 1, Rating: 1, Body: "hidden", Published: false}).Error)

	c, rec := embedRequest(e, http.MethodGet, "/embed/reviews/"+widget.Key, "", "https://example.com", widget.Key)
	require.NoError(t, EmbedReviews(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "great")
	assert.NotContains(t, rec.Body.String(), "hidden")
}

func TestEmbedReviewsRejectsUnlistedOrigin(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	widget := model.ReviewWidget{ClientID: 1, Name: "Storefront", AllowedDomains: []string{"example.com"}, Active: true}
	require.NoError(t, db.Create(&widget).Error)

	c, rec := embedRequest(e, http.MethodGet, "/embed/reviews/"+widget.Key, "", "https://evil.com", widget.Key)
	require.NoError(t, EmbedReviews(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No origin header at all is rejected too.
	c2, rec2 := embedRequest(e, http.MethodGet, "/embed/reviews/"+widget.Key, "", "", widget.Key)
	require.NoError(t, EmbedReviews(c2))
	assert.Equal(t, http.StatusForbidden, rec2.Code)
}

func TestEmbedReviewsUnknownKeyNotFound(t *testing.T) {
	e := setupTest(t)

	c, rec := embedRequest(e, http.MethodGet, "/embed/reviews/rw_missing", "", "https://example.com", "rw_missing")
	require.NoError(t, EmbedReviews(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmbedSubmitFormCreatesAndDeduplicatesContact(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	form := model.Form{ClientID: 1, Name: "Leads", AllowedDomains: []string{"*.example.com"}, Active: true}
	require.NoError(t, db.Create(&form).Error)

	body := `{"email":"lead@x.com","first_name":"Lea","message":"hi"}`
	c, rec := embedRequest(e, http.MethodPost, "/embed/forms/"+form.Key, body, "https://shop.example.com", form.Key)
	require.NoError(t, EmbedSubmitForm(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var contact model.Contact
	require.NoError(t, db.Where("client_id = ? AND email = ?", 1, "lead@x.com").First(&contact).Error)
	assert.Equal(t, "Lea", contact.FirstName)
	assert.Equal(t, "form", contact.Source)

	// A second submission with the same email reuses the contact.
	c2, rec2 := embedRequest(e, http.MethodPost, "/embed/forms/"+form.Key, body, "https://shop.example.com", form.Key)
	require.NoError(t, EmbedSubmitForm(c2))
	require.Equal(t, http.StatusCreated, rec2.Code)

	var contacts int64
	db.Model(&model.Contact{}).Where("client_id = ?", 1).Count(&contacts)
	assert.EqualValues(t, 1, contacts)

	var submissions []model.FormSubmission
	require.NoError(t, db.Where("form_id = ?", form.ID).Find(&submissions).Error)
	require.Len(t, submissions, 2)
	for _, s := range submissions {
		require.NotNil(t, s.ContactID)
		assert.Equal(t, contact.ID, *s.ContactID)
	}
}

func TestEmbedSubmitFormBareWildcardSuffixRejected(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	form := model.Form{ClientID: 1, Name: "Leads", AllowedDomains: []string{"*.example.com"}, Active: true}
	require.NoError(t, db.Create(&form).Error)

	// The wildcard covers subdomains only, never the bare suffix.
	c, rec := embedRequest(e, http.MethodPost, "/embed/forms/"+form.Key,
		`{"email":"x@x.com"}`, "https://example.com", form.Key)
	require.NoError(t, EmbedSubmitForm(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEmbedShopResolvesTenantThroughSettingsKey(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	settings := model.ClientSettings{ClientID: 1, ShopAllowedDomains: []string{"store.example.com"}}
	require.NoError(t, db.Create(&settings).Error)
	require.NoError(t, db.Create(&model.Product{ClientID: 1, Name: "Visible", SKU: "V-1", Price: 5, Stock: 3, Active: true}).Error)
	require.NoError(t, db.Create(&model.Product{ClientID: 1, Name: "Retired", SKU: "R-1", Price: 5, Active: false}).Error)
	require.NoError(t, db.Create(&model.Product{ClientID: 2, Name: "Foreign", SKU: "F-1", Price: 5, Active: true}).Error)

	c, rec := embedRequest(e, http.MethodGet, "/embed/shop/"+settings.EmbedKey, "", "https://store.example.com", settings.EmbedKey)
	require.NoError(t, EmbedShopProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, "Visible")
	assert.NotContains(t, out, "Retired")
	assert.NotContains(t, out, "Foreign")
}

func TestEmbedRefererFallbackWhenOriginMissing(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	widget := model.ReviewWidget{ClientID: 1, Name: "W", AllowedDomains: []string{"example.com"}, Active: true}
	require.NoError(t, db.Create(&widget).Error)

	req := httptest.NewRequest(http.MethodGet, "/embed/reviews/"+widget.Key, nil)
	req.Header.Set("Referer", "https://example.com/pricing")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("key")
	c.SetParamValues(widget.Key)

	require.NoError(t, EmbedReviews(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
