package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/chat"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tenant isolation is enforced by the JWT, not the Origin header:
	// operators connect from their own dashboards.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ConversationRequest defines the structure for conversation creation
type ConversationRequest struct {
	ContactID uint   `json:"contact_id" validate:"required"`
	Channel   string `json:"channel" validate:"omitempty,oneof=web sms whatsapp"`
}

// CreateConversation opens a conversation with a contact.
func CreateConversation(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("conversations", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := store.VerifyOwned(database.GetDB(), &model.Contact{}, req.ContactID, clientID); err != nil {
		return scopedError(c, err, "contact")
	}

	channel := req.Channel
	if channel == "" {
		channel = "web"
	}
	conversation := model.Conversation{
		ClientID:  clientID,
		ContactID: req.ContactID,
		Channel:   channel,
		Status:    "open",
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&conversation); result.Error != nil {
		log.Error("Failed to create conversation", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create conversation"})
	}
	return c.JSON(http.StatusCreated, conversation)
}

// ListConversations lists the tenant's conversations, most recent first.
func ListConversations(c echo.Context) error {
	prometheus.RecordOperation("conversations", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var conversations []model.Conversation
	err := store.ListOwned(database.GetDB(), &conversations, clientID, func(q *gorm.DB) *gorm.DB {
		if s := c.QueryParam("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		return q.Order("last_message_at desc nulls last")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve conversations"})
	}
	return c.JSON(http.StatusOK, conversations)
}

// ListMessages lists the messages of one conversation, oldest first.
func ListMessages(c echo.Context) error {
	prometheus.RecordOperation("messages", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conversation ID"})
	}
	if err := store.VerifyOwned(database.GetDB(), &model.Conversation{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "conversation")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var messages []model.Message
	result := database.GetDB().
		Where("client_id = ? AND conversation_id = ?", clientID, uint(id)).
		Order("created_at asc").
		Find(&messages)
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve messages"})
	}
	return c.JSON(http.StatusOK, messages)
}

// MessageRequest defines the structure for sending a chat message
type MessageRequest struct {
	Body      string `json:"body" validate:"required"`
	Direction string `json:"direction" validate:"omitempty,oneof=inbound outbound"`
}

// SendMessage appends a message to a conversation, stamps the
// conversation's last activity, and pushes the message to every websocket
// subscriber of the tenant.
func SendMessage(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("messages", "send")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conversation ID"})
	}

	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	direction := req.Direction
	if direction == "" {
		direction = model.MessageDirectionOutbound
	}
	userID, _ := middleware.UserIDFromEcho(c)

	var message model.Message
	db := database.GetDB()

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err = db.Transaction(func(tx *gorm.DB) error {
		var conversation model.Conversation
		if err := store.FindOwned(tx, &conversation, uint(id), clientID); err != nil {
			return err
		}

		message = model.Message{
			ClientID:       clientID,
			ConversationID: conversation.ID,
			Direction:      direction,
			Body:           req.Body,
		}
		if direction == model.MessageDirectionOutbound {
			message.AuthorID = &userID
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		now := time.Now()
		conversation.LastMessageAt = &now
		return tx.Save(&conversation).Error
	})
	if err != nil {
		if store.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		}
		log.Error("Failed to send message", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	chatHub.Broadcast(clientID, message)
	if direction == model.MessageDirectionInbound {
		dispatcher.Dispatch(db, clientID, "chat.message_received", message)
	}

	return c.JSON(http.StatusCreated, message)
}

// ChatWebSocket upgrades the request and subscribes the caller to the
// tenant's live message stream.
func ChatWebSocket(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("chat", "connect")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	userID, _ := middleware.UserIDFromEcho(c)

	conn, err := chatUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error("Websocket upgrade failed", zap.Error(err))
		return err
	}

	sub := chat.NewSubscriber(chatHub, conn, clientID, userID, log)
	go sub.WritePump()
	go sub.ReadPump()
	return nil
}
