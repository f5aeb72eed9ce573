package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"madera-precisa/internal/config"
	"madera-precisa/internal/cutplan"
	"madera-precisa/internal/domain"
	"madera-precisa/internal/events"
	custommiddleware "madera-precisa/internal/middleware"
	"madera-precisa/internal/repository"
	"madera-precisa/internal/service"
	"madera-precisa/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	store   repository.Store
	redis   *redis.Client
	kafka   *events.KafkaPublisher
	hub     *events.Hub
	stopHub context.CancelFunc
}

// Option configures a Server
type Option func(*options)

type options struct {
	redis       *redis.Client
	kafka       *events.KafkaPublisher
	orderOpts   []service.OrderServiceOption
	redisCustom bool
}

// WithRedisClient replaces the client built from the Redis config; nil disables rate limiting
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) {
		o.redis = client
		o.redisCustom = true
	}
}

// WithKafkaPublisher replaces the publisher built from the Kafka config
func WithKafkaPublisher(publisher *events.KafkaPublisher) Option {
	return func(o *options) {
		o.kafka = publisher
	}
}

// WithOrderServiceOptions passes options through to the order service
func WithOrderServiceOptions(opts ...service.OrderServiceOption) Option {
	return func(o *options) {
		o.orderOpts = append(o.orderOpts, opts...)
	}
}

// NewServer wires the store, services and handlers into a router. The
// returned server owns the store, the tracking hub and the event publishers.
func NewServer(cfg *config.Config, logger *zap.Logger, store repository.Store, opts ...Option) (*Server, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	orderCfg, err := OrderConfig(cfg.Orders)
	if err != nil {
		return nil, err
	}

	redisClient := o.redis
	if !o.redisCustom {
		redisClient = newRedisClient(cfg.Redis)
	}

	kafka := o.kafka
	if kafka == nil && len(cfg.Kafka.Brokers) > 0 {
		kafka, err = events.NewKafkaPublisher(cfg.Kafka.Brokers, logger)
		if err != nil {
			if redisClient != nil {
				redisClient.Close()
			}
			return nil, err
		}
	}

	// Tracking hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := events.NewHub(cfg.Server.CORSOrigins, logger)
	go hub.Run(hubCtx)

	publisher := events.Fanout{hub}
	if kafka != nil {
		publisher = append(publisher, kafka)
	}

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.CORSOrigins, cfg.IsDevelopment()))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Error("Health check failed", zap.Error(err))
			custommiddleware.RespondWithError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":          "ok",
			"trackingClients": hub.ClientCount(),
		})
	})

	// Initialize services
	userService := service.NewUserService(store.Users(), logger)
	catalogService := service.NewCatalogService(store.Categories(), store.Products(), logger)
	orderService := service.NewOrderService(store.Orders(), publisher, orderCfg, logger, o.orderOpts...)
	contactService := service.NewContactService(store.ContactRequests(), logger)
	planner := cutplan.NewPlanner(cfg.CutPlan.SheetWidth, cfg.CutPlan.SheetLength, cfg.CutPlan.Kerf)

	// Create route middleware
	mw := transport.RouteMiddleware{
		Auth:  custommiddleware.AuthMiddleware(cfg.JWT.Secret, userService.SyncUser, logger),
		Admin: custommiddleware.RequireAdmin(logger),
		RateLimit: custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			KeyPrefix:         "ratelimit",
		}, logger),
	}

	// Register routes
	transport.NewUserHandler(userService, logger).RegisterRoutes(router, mw)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router, mw)
	transport.NewOrderHandler(orderService, hub, logger).RegisterRoutes(router, mw)
	transport.NewContactHandler(contactService, logger).RegisterRoutes(router, mw)
	transport.NewCutPlanHandler(planner, logger).RegisterRoutes(router, mw)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		store:   store,
		redis:   redisClient,
		kafka:   kafka,
		hub:     hub,
		stopHub: stopHub,
	}

	return server, nil
}

// OrderConfig parses the order settings; empty values keep the defaults
func OrderConfig(cfg config.OrdersConfig) (service.OrderConfig, error) {
	out := service.DefaultOrderConfig()

	if cfg.NumberPrefix != "" {
		out.NumberPrefix = cfg.NumberPrefix
	}
	if cfg.TaxRate != "" {
		rate, err := decimal.NewFromString(cfg.TaxRate)
		if err != nil || rate.IsNegative() {
			return out, fmt.Errorf("invalid TAX_RATE %q", cfg.TaxRate)
		}
		out.TaxRate = rate
	}
	if cfg.ShippingFlat != "" {
		flat, err := domain.NewMoney(cfg.ShippingFlat)
		if err != nil || flat.IsNegative() {
			return out, fmt.Errorf("invalid SHIPPING_FLAT %q", cfg.ShippingFlat)
		}
		out.ShippingFlat = flat
	}
	if cfg.FreeShippingThreshold != "" {
		threshold, err := domain.NewMoney(cfg.FreeShippingThreshold)
		if err != nil || threshold.IsNegative() {
			return out, fmt.Errorf("invalid FREE_SHIPPING_THRESHOLD %q", cfg.FreeShippingThreshold)
		}
		out.FreeShippingThreshold = threshold
	}

	switch repository.StockPolicy(cfg.StockPolicy) {
	case "":
	case repository.StockPolicyBackorder, repository.StockPolicyStrict:
		out.StockPolicy = repository.StockPolicy(cfg.StockPolicy)
	default:
		return out, fmt.Errorf("invalid STOCK_POLICY %q", cfg.StockPolicy)
	}

	switch service.StatusPolicy(cfg.StatusPolicy) {
	case "":
	case service.StatusPolicyFree, service.StatusPolicyForward:
		out.StatusPolicy = service.StatusPolicy(cfg.StatusPolicy)
	default:
		return out, fmt.Errorf("invalid ORDER_STATUS_POLICY %q", cfg.StatusPolicy)
	}

	return out, nil
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.stopHub()

	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			s.logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}

	// Close store connection
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Failed to close store", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
