package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"turnstile/internal/cache"
	"turnstile/internal/config"
	"turnstile/internal/database"
	"turnstile/internal/external"
	"turnstile/internal/handlers"
	"turnstile/internal/messaging"
	"turnstile/internal/metrics"
	"turnstile/internal/middleware"
	"turnstile/internal/notify"
	"turnstile/internal/queue"
	"turnstile/internal/repository"
	"turnstile/internal/search"
	"turnstile/internal/service"

	"github.com/gin-gonic/gin"
)

// Server wires the HTTP API together
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        *database.DB
	nats      *messaging.NATSClient
	valkey    *cache.ValkeyClient
	queueCtrl *queue.Controller
	services  *service.Services
	repos     *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// The cache and search index are accelerators, not dependencies; the
	// API serves from Postgres without them
	valkeyClient, err := cache.NewValkeyClient()
	if err != nil {
		log.Printf("Valkey unavailable, running without cache: %v", err)
		valkeyClient = nil
	}

	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		log.Printf("Elasticsearch unavailable, catalog search degraded: %v", err)
		esClient = nil
	}

	ticketingClient := external.NewTicketingClient(cfg.Ticketing)
	notificationClient := external.NewNotificationClient(cfg.Notification)

	queueCtrl := queue.NewController(cfg.Queue, notify.NewNATSChannel(natsClient), natsClient)

	repos := repository.NewRepositories(db)
	services := service.NewServices(
		repos,
		queueCtrl,
		natsClient,
		esClient,
		valkeyClient,
		ticketingClient,
		notificationClient,
		cfg.Reservation.TTL,
		cfg.RequestTimeout,
	)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:    router,
		config:    cfg,
		db:        db,
		nats:      natsClient,
		valkey:    valkeyClient,
		queueCtrl: queueCtrl,
		services:  services,
		repos:     repos,
	}

	server.setupRoutes()

	queueCtrl.Start(context.Background())

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.queueCtrl, s.valkey)

	api := s.router.Group("/api")
	{
		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id/categories", h.ListCategories)
		}

		queueRoutes := api.Group("/queue")
		{
			queueRoutes.POST("/join", h.JoinQueue)
			queueRoutes.GET("/status", h.QueueStatus)
			queueRoutes.PATCH("/leave", h.LeaveQueue)
		}

		api.POST("/purchase", h.Purchase)

		admin := api.Group("/admin")
		{
			admin.PATCH("/categories/adjust", h.AdjustCapacity)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "turnstile-api",
		"database": dbHealth,
	})
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for the HTTP server and tests
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes connections and stops the queue sweep
func (s *Server) Cleanup() error {
	if s.queueCtrl != nil {
		s.queueCtrl.Stop()
	}

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Printf("Error closing Valkey connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
