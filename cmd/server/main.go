package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/chat"
	"github.com/upzento/upzento-crm-sub000/internal/handler"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/pkg/config"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("upzento-crm")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting CRM service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.User{},
		&model.RefreshToken{},
		&model.Agency{},
		&model.Client{},
		&model.Contact{},
		&model.ContactHistory{},
		&model.Pipeline{},
		&model.Stage{},
		&model.Deal{},
		&model.Staff{},
		&model.Service{},
		&model.Appointment{},
		&model.TimeOff{},
		&model.Campaign{},
		&model.Segment{},
		&model.Conversation{},
		&model.Message{},
		&model.CallLog{},
		&model.SMSMessage{},
		&model.Review{},
		&model.ReviewWidget{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.Form{},
		&model.FormSubmission{},
		&model.PaymentTransaction{},
		&model.Integration{},
		&model.Webhook{},
		&model.ClientSettings{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Start the chat hub before any websocket can subscribe
	hub := chat.NewHub(log)
	go hub.Run()

	// Wire handler collaborators
	if err := handler.Init(cfg, hub); err != nil {
		log.Fatal("Failed to initialize handlers", zap.Error(err))
	}

	// Initialize Echo framework
	e := echo.New()
	e.Validator = handler.NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(middleware.MetricsMiddleware)

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/health/ready", handler.ReadinessCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/refresh", handler.Refresh)

	// Public embed routes - resolved by key, gated by origin allow-list
	embedGroup := e.Group("/embed")
	embedGroup.GET("/reviews/:key", handler.EmbedReviews)
	embedGroup.POST("/reviews/:key", handler.EmbedSubmitReview)
	embedGroup.GET("/forms/:key", handler.EmbedForm)
	embedGroup.POST("/forms/:key", handler.EmbedSubmitForm)
	embedGroup.GET("/shop/:key", handler.EmbedShopProducts)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.Auth(handler.JWTUtil()))

	// Platform administration
	admin := api.Group("/admin", middleware.RequireTenant(tenant.RequireAdmin))
	admin.POST("/agencies", handler.CreateAgency)
	admin.GET("/agencies", handler.ListAgencies)

	// User management - affiliation is verified per request inside the
	// handler, so any authenticated principal may reach these routes
	users := api.Group("/users")
	users.POST("", handler.CreateUser)
	users.GET("", handler.ListUsers)
	users.DELETE("/:id", handler.DeactivateUser)

	// Agency operations
	agency := api.Group("/agency", middleware.RequireTenant(tenant.RequireAgency))
	agency.GET("/clients", handler.ListAgencyClients)
	agency.GET("/clients/:id", handler.GetAgencyClient)

	agencyAdmin := api.Group("/agency", middleware.RequireTenant(tenant.RequireAgencyAdmin))
	agencyAdmin.POST("/clients", handler.CreateAgencyClient)

	// Client-scoped modules
	client := api.Group("", middleware.RequireTenant(tenant.RequireClient))

	contacts := client.Group("/contacts")
	contacts.POST("", handler.CreateContact)
	contacts.GET("", handler.ListContacts)
	contacts.GET("/:id", handler.GetContact)
	contacts.PUT("/:id", handler.UpdateContact)
	contacts.DELETE("/:id", handler.DeleteContact)
	contacts.POST("/merge", handler.MergeContacts)
	contacts.GET("/:id/history", handler.GetContactHistory)

	pipelines := client.Group("/pipelines")
	pipelines.POST("", handler.CreatePipeline)
	pipelines.GET("", handler.ListPipelines)
	pipelines.DELETE("/:id", handler.DeletePipeline)

	deals := client.Group("/deals")
	deals.POST("", handler.CreateDeal)
	deals.GET("", handler.ListDeals)
	deals.GET("/:id", handler.GetDeal)
	deals.PUT("/:id", handler.UpdateDeal)
	deals.POST("/:id/move", handler.MoveDeal)
	deals.DELETE("/:id", handler.DeleteDeal)

	staff := client.Group("/staff")
	staff.POST("", handler.CreateStaff)
	staff.GET("", handler.ListStaff)
	staff.DELETE("/:id", handler.DeleteStaff)

	services := client.Group("/services")
	services.POST("", handler.CreateService)
	services.GET("", handler.ListServices)

	appointments := client.Group("/appointments")
	appointments.POST("", handler.CreateAppointment)
	appointments.GET("", handler.ListAppointments)
	appointments.POST("/:id/reschedule", handler.RescheduleAppointment)
	appointments.PATCH("/:id/status", handler.UpdateAppointmentStatus)

	timeoff := client.Group("/timeoff")
	timeoff.POST("", handler.CreateTimeOff)
	timeoff.GET("", handler.ListTimeOff)
	timeoff.DELETE("/:id", handler.DeleteTimeOff)

	segments := client.Group("/segments")
	segments.POST("", handler.CreateSegment)
	segments.GET("", handler.ListSegments)

	campaigns := client.Group("/campaigns")
	campaigns.POST("", handler.CreateCampaign)
	campaigns.GET("", handler.ListCampaigns)
	campaigns.GET("/:id", handler.GetCampaign)
	campaigns.POST("/:id/send", handler.SendCampaign)
	campaigns.GET("/:id/stats", handler.GetCampaignStats)
	campaigns.DELETE("/:id", handler.DeleteCampaign)

	conversations := client.Group("/conversations")
	conversations.POST("", handler.CreateConversation)
	conversations.GET("", handler.ListConversations)
	conversations.GET("/:id/messages", handler.ListMessages)
	conversations.POST("/:id/messages", handler.SendMessage)
	client.GET("/chat/ws", handler.ChatWebSocket)

	calls := client.Group("/calls")
	calls.POST("", handler.CreateCallLog)
	calls.GET("", handler.ListCallLogs)

	sms := client.Group("/sms")
	sms.POST("", handler.SendSMS)
	sms.GET("", handler.ListSMS)

	reviews := client.Group("/reviews")
	reviews.POST("", handler.CreateReview)
	reviews.GET("", handler.ListReviews)
	reviews.POST("/:id/reply", handler.ReplyReview)
	reviews.PATCH("/:id/publish", handler.PublishReview)
	reviews.DELETE("/:id", handler.DeleteReview)

	widgets := client.Group("/review-widgets")
	widgets.POST("", handler.CreateReviewWidget)
	widgets.GET("", handler.ListReviewWidgets)
	widgets.PUT("/:id", handler.UpdateReviewWidget)
	widgets.DELETE("/:id", handler.DeleteReviewWidget)

	products := client.Group("/products")
	products.POST("", handler.CreateProduct)
	products.GET("", handler.ListProducts)
	products.PUT("/:id", handler.UpdateProduct)
	products.DELETE("/:id", handler.DeleteProduct)

	orders := client.Group("/orders")
	orders.POST("", handler.CreateOrder)
	orders.GET("", handler.ListOrders)
	orders.GET("/:id", handler.GetOrder)
	orders.PATCH("/:id/status", handler.UpdateOrderStatus)

	forms := client.Group("/forms")
	forms.POST("", handler.CreateForm)
	forms.GET("", handler.ListForms)
	forms.GET("/:id", handler.GetForm)
	forms.PUT("/:id", handler.UpdateForm)
	forms.DELETE("/:id", handler.DeleteForm)
	forms.GET("/:id/submissions", handler.ListFormSubmissions)

	payments := client.Group("/payments")
	payments.POST("/charge", handler.Charge)
	payments.GET("", handler.ListPayments)
	payments.GET("/:id", handler.GetPayment)

	integrations := client.Group("/integrations")
	integrations.POST("", handler.ConnectIntegration)
	integrations.GET("", handler.ListIntegrations)
	integrations.POST("/:id/sync", handler.SyncIntegration)
	integrations.GET("/:id/metrics", handler.GetIntegrationMetrics)
	integrations.DELETE("/:id", handler.DisconnectIntegration)

	webhooks := client.Group("/webhooks")
	webhooks.POST("", handler.CreateWebhook)
	webhooks.GET("", handler.ListWebhooks)
	webhooks.PUT("/:id", handler.UpdateWebhook)
	webhooks.DELETE("/:id", handler.DeleteWebhook)

	settings := client.Group("/settings")
	settings.GET("", handler.GetSettings)
	settings.PATCH("", handler.UpdateSettings)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
