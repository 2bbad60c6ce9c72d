package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/internal/model"
)

func TestRegistryKnowsBundledProviders(t *testing.T) {
	r := NewRegistry()

	for _, typ := range []string{
		model.IntegrationTypeGoogleAnalytics,
		model.IntegrationTypeMetaAds,
		model.IntegrationTypeWhatsApp,
	} {
		c, err := r.Get(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, c.Type())
	}

	_, err := r.Get("MAILCHIMP")
	assert.Error(t, err)
}

func TestGoogleAnalyticsRejectsInvalidPropertyID(t *testing.T) {
	r := NewRegistry()
	c, err := r.Get(model.IntegrationTypeGoogleAnalytics)
	require.NoError(t, err)

	err = c.TestConnection(context.Background(), Credentials{
		"propertyId":  "invalid-123",
		"accessToken": "tok",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid property ID")
}

func TestGoogleAnalyticsAcceptsValidCredentials(t *testing.T) {
	r := NewRegistry()
	c, err := r.Get(model.IntegrationTypeGoogleAnalytics)
	require.NoError(t, err)

	creds := Credentials{"propertyId": "123456789", "accessToken": "tok"}
	require.NoError(t, c.TestConnection(context.Background(), creds))

	metrics, err := c.FetchMetrics(context.Background(), creds, "7d")
	require.NoError(t, err)
	assert.Equal(t, "7d", metrics["period"])
	assert.Equal(t, "123456789", metrics["propertyId"])
}

func TestGoogleAnalyticsRequiresAccessToken(t *testing.T) {
	r := NewRegistry()
	c, _ := r.Get(model.IntegrationTypeGoogleAnalytics)

	err := c.TestConnection(context.Background(), Credentials{"propertyId": "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token")
}

func TestMetaAdsCredentialShape(t *testing.T) {
	r := NewRegistry()
	c, _ := r.Get(model.IntegrationTypeMetaAds)

	assert.Error(t, c.TestConnection(context.Background(), Credentials{
		"adAccountId": "12345", "accessToken": "tok",
	}))
	assert.NoError(t, c.TestConnection(context.Background(), Credentials{
		"adAccountId": "act_12345", "accessToken": "tok",
	}))
}

func TestWhatsAppCredentialShape(t *testing.T) {
	r := NewRegistry()
	c, _ := r.Get(model.IntegrationTypeWhatsApp)

	assert.Error(t, c.TestConnection(context.Background(), Credentials{
		"phoneNumberId": "abc", "accessToken": "tok",
	}))
	assert.NoError(t, c.TestConnection(context.Background(), Credentials{
		"phoneNumberId": "15551234567", "accessToken": "tok",
	}))
}
