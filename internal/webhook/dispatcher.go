// Package webhook delivers event notifications to client-configured
// endpoints. Deliveries are asynchronous and best-effort: a failing
// endpoint is logged and never fails the triggering request.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event is the payload delivered to a webhook endpoint.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	ClientID  uint        `json:"client_id"`
	Data      interface{} `json:"data"`
	CreatedAt time.Time   `json:"created_at"`
}

// Dispatcher fans events out to matching webhook endpoints.
type Dispatcher struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher with the given delivery timeout.
func NewDispatcher(timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Dispatch loads the client's active webhooks subscribed to eventType and
// delivers the event to each in its own goroutine. Errors are recorded on
// metrics and logs only.
func (d *Dispatcher) Dispatch(db *gorm.DB, clientID uint, eventType string, data interface{}) {
	var hooks []model.Webhook
	result := db.Where("client_id = ? AND active = ?", clientID, true).Find(&hooks)
	if result.Error != nil {
		d.logger.Error("Failed to load webhooks for dispatch",
			zap.Uint("client_id", clientID),
			zap.String("event", eventType),
			zap.Error(result.Error))
		return
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		ClientID:  clientID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	for _, hook := range hooks {
		if !subscribed(hook.Events, eventType) {
			continue
		}
		go d.deliver(hook, event)
	}
}

// subscribed reports whether the endpoint listens for the event. An empty
// event list means all events.
func subscribed(events []string, eventType string) bool {
	if len(events) == 0 {
		return true
	}
	for _, e := range events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

func (d *Dispatcher) deliver(hook model.Webhook, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("Failed to marshal webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		prometheus.WebhookDeliveryCounter.WithLabelValues("error").Inc()
		return
	}

	req, err := http.NewRequest(http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("Failed to build webhook request",
			zap.String("url", hook.URL),
			zap.Error(err))
		prometheus.WebhookDeliveryCounter.WithLabelValues("error").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event.Type)
	req.Header.Set("X-Webhook-Signature", Sign(hook.Secret, body))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("Webhook delivery failed",
			zap.Uint("webhook_id", hook.ID),
			zap.String("event", event.Type),
			zap.Error(err))
		prometheus.WebhookDeliveryCounter.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("Webhook endpoint returned non-success status",
			zap.Uint("webhook_id", hook.ID),
			zap.String("event", event.Type),
			zap.Int("status", resp.StatusCode))
		prometheus.WebhookDeliveryCounter.WithLabelValues("rejected").Inc()
		return
	}

	d.logger.Debug("Webhook delivered",
		zap.Uint("webhook_id", hook.ID),
		zap.String("event", event.Type),
		zap.Int("status", resp.StatusCode))
	prometheus.WebhookDeliveryCounter.WithLabelValues("delivered").Inc()
}

// Sign computes the hex HMAC-SHA256 signature for a delivery body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
