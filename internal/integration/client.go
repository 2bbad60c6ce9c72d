// Package integration connects clients to third-party analytics and
// messaging providers. Provider access goes through the Client interface
// so production code never depends on a concrete vendor SDK; the bundled
// implementations are deterministic doubles that validate credential shape
// without network calls or simulated delays.
package integration

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/upzento/upzento-crm-sub000/internal/model"
)

// Credentials is the decrypted provider credential set.
type Credentials map[string]string

// Client is the capability set every provider exposes.
type Client interface {
	// Type returns the integration type this client serves.
	Type() string
	// TestConnection validates the credentials against the provider.
	TestConnection(ctx context.Context, creds Credentials) error
	// FetchMetrics retrieves the provider's metrics for a period such as
	// "7d" or "30d".
	FetchMetrics(ctx context.Context, creds Credentials, period string) (map[string]interface{}, error)
}

// Registry maps integration types to their provider clients.
type Registry struct {
	clients map[string]Client
}

// NewRegistry returns a registry preloaded with the bundled providers.
func NewRegistry() *Registry {
	r := &Registry{clients: make(map[string]Client)}
	r.Register(&googleAnalyticsClient{})
	r.Register(&metaAdsClient{})
	r.Register(&whatsAppClient{})
	return r
}

// Register adds or replaces the client for its type.
func (r *Registry) Register(c Client) {
	r.clients[c.Type()] = c
}

// Get returns the client for an integration type.
func (r *Registry) Get(integrationType string) (Client, error) {
	c, ok := r.clients[integrationType]
	if !ok {
		return nil, fmt.Errorf("unsupported integration type: %s", integrationType)
	}
	return c, nil
}

var numericID = regexp.MustCompile(`^[0-9]+$`)

type googleAnalyticsClient struct{}

func (c *googleAnalyticsClient) Type() string {
	return model.IntegrationTypeGoogleAnalytics
}

func (c *googleAnalyticsClient) TestConnection(ctx context.Context, creds Credentials) error {
	propertyID := creds["propertyId"]
	if !numericID.MatchString(propertyID) {
		return fmt.Errorf("Invalid property ID: %q must be numeric", propertyID)
	}
	if creds["accessToken"] == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}

func (c *googleAnalyticsClient) FetchMetrics(ctx context.Context, creds Credentials, period string) (map[string]interface{}, error) {
	if err := c.TestConnection(ctx, creds); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"provider":   c.Type(),
		"propertyId": creds["propertyId"],
		"period":     period,
		"sessions":   0,
		"pageViews":  0,
	}, nil
}

type metaAdsClient struct{}

func (c *metaAdsClient) Type() string {
	return model.IntegrationTypeMetaAds
}

func (c *metaAdsClient) TestConnection(ctx context.Context, creds Credentials) error {
	if !strings.HasPrefix(creds["adAccountId"], "act_") {
		return fmt.Errorf("Invalid ad account ID: %q must start with act_", creds["adAccountId"])
	}
	if creds["accessToken"] == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}

func (c *metaAdsClient) FetchMetrics(ctx context.Context, creds Credentials, period string) (map[string]interface{}, error) {
	if err := c.TestConnection(ctx, creds); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"provider":    c.Type(),
		"adAccountId": creds["adAccountId"],
		"period":      period,
		"impressions": 0,
		"clicks":      0,
		"spend":       0.0,
	}, nil
}

type whatsAppClient struct{}

func (c *whatsAppClient) Type() string {
	return model.IntegrationTypeWhatsApp
}

func (c *whatsAppClient) TestConnection(ctx context.Context, creds Credentials) error {
	if !numericID.MatchString(creds["phoneNumberId"]) {
		return fmt.Errorf("Invalid phone number ID: %q must be numeric", creds["phoneNumberId"])
	}
	if creds["accessToken"] == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}

func (c *whatsAppClient) FetchMetrics(ctx context.Context, creds Credentials, period string) (map[string]interface{}, error) {
	if err := c.TestConnection(ctx, creds); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"provider":      c.Type(),
		"phoneNumberId": creds["phoneNumberId"],
		"period":        period,
		"delivered":     0,
		"read":          0,
	}, nil
}
