package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/shuttleapi/internal/config"
	"anoa.com/shuttleapi/internal/middleware"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/logger"
	"anoa.com/shuttleapi/pkg/storage"

	engagementHttp "anoa.com/shuttleapi/internal/modules/engagement/delivery/http"
	engagementRepo "anoa.com/shuttleapi/internal/modules/engagement/repository"
	engagementService "anoa.com/shuttleapi/internal/modules/engagement/service"

	notiHttp "anoa.com/shuttleapi/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/shuttleapi/internal/modules/notification/repository"
	notifService "anoa.com/shuttleapi/internal/modules/notification/service"

	"anoa.com/shuttleapi/internal/modules/reactor"
	"anoa.com/shuttleapi/internal/modules/reconcile"

	searchHttp "anoa.com/shuttleapi/internal/modules/search/delivery/http"
	searchService "anoa.com/shuttleapi/internal/modules/search/service"

	shuttleHttp "anoa.com/shuttleapi/internal/modules/shuttle/delivery/http"
	shuttleRepo "anoa.com/shuttleapi/internal/modules/shuttle/repository"
	shuttleService "anoa.com/shuttleapi/internal/modules/shuttle/service"

	userHttp "anoa.com/shuttleapi/internal/modules/user/delivery/http"
	userRepo "anoa.com/shuttleapi/internal/modules/user/repository"
	userService "anoa.com/shuttleapi/internal/modules/user/service"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps are the external clients the server runs on. Only Store is required.
type Deps struct {
	Store        store.Store
	Redis        *redis.Client
	Meili        meilisearch.ServiceManager
	ImageStorage storage.ImageStorage
}

type Server struct {
	engine    *gin.Engine
	store     store.Store
	pubsub    *gochannel.GoChannel
	router    *reactor.Router
	scheduler *reconcile.Scheduler
	httpSrv   *http.Server
	cancel    context.CancelFunc
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}

	// Change feed: every committed write is published for the reactor.
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger.NewWatermillAdapter("pubsub"))
	db := store.WithChangeFeed(deps.Store, pubsub)

	router, err := reactor.NewRouter(reactor.DefaultConfig(), pubsub, logger.NewWatermillAdapter("reactor"))
	if err != nil {
		return nil, err
	}
	reactor.NewReactor(db).Register(router)

	// Repositories
	userRepository := userRepo.NewUserRepository(db)
	shuttleRepository := shuttleRepo.NewShuttleRepository(db)
	commentRepository := engagementRepo.NewCommentRepository(db)
	likeRepository := engagementRepo.NewLikeRepository(db)
	notificationRepository := notifRepo.NewNotificationRepository(db)

	// Services
	shuttleSvc := shuttleService.NewShuttleService(shuttleRepository, commentRepository, deps.Redis, cfg.RateLimitPost)
	engagementSvc := engagementService.NewEngagementService(shuttleRepository, commentRepository, likeRepository)
	notificationSvc := notifService.NewNotificationService(notificationRepository, deps.Redis)
	notificationSvc.Register(router)
	userSvc := userService.NewUserService(userRepository, shuttleRepository, likeRepository, notificationRepository, deps.ImageStorage)
	searchSvc := searchService.NewSearchService(deps.Meili, db)
	searchSvc.Register(router)

	// Handlers
	shuttleHandler := shuttleHttp.NewShuttleHandler(shuttleSvc)
	engagementHandler := engagementHttp.NewEngagementHandler(engagementSvc)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, deps.Redis)
	userHandler := userHttp.NewUserHandler(userSvc)
	searchHandler := searchHttp.NewSearchHandler(searchSvc)

	// Reconciler
	scheduler := reconcile.NewScheduler()
	if err := scheduler.Register(reconcile.NewReconciler(db, cfg.ReconcileSchedule)); err != nil {
		return nil, err
	}

	engine := gin.New()

	setupCORS(engine, cfg.AllowedOrigins)

	engine.Use(gin.Recovery())
	engine.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/metrics", "/notifications/ws"},
	}))
	engine.Use(middleware.Metrics())

	authMiddleware := middleware.NewAuthMiddleware(userRepository, cfg.JWTSecret)
	requireAuth := authMiddleware.RequireAuth()

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Shuttle routes
	engine.GET("/shuttle", shuttleHandler.ListShuttles)
	engine.POST("/shuttle", requireAuth, shuttleHandler.CreateShuttle)
	engine.GET("/shuttle/:id", shuttleHandler.GetShuttle)
	engine.DELETE("/shuttle/:id", requireAuth, shuttleHandler.DeleteShuttle)
	engine.GET("/shuttle/:id/like", requireAuth, engagementHandler.LikeShuttle)
	engine.GET("/shuttle/:id/unlike", requireAuth, engagementHandler.UnlikeShuttle)
	engine.POST("/shuttle/:id/comment", requireAuth, engagementHandler.AddComment)

	// Search routes
	engine.GET("/search/shuttle", searchHandler.SearchShuttles)

	// User routes
	engine.GET("/users/:handle", userHandler.GetUserDetails)
	users := engine.Group("/users")
	users.Use(requireAuth)
	{
		users.POST("", userHandler.AddUserDetails)
		users.GET("", userHandler.GetAuthenticatedUser)
		users.POST("/image", userHandler.UploadImage)
	}

	// Notification routes
	notifications := engine.Group("/notifications")
	notifications.Use(requireAuth)
	{
		notifications.POST("", notificationHandler.MarkNotificationsRead)
		notifications.GET("", notificationHandler.GetNotifications)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.GET("/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:    engine,
		store:     db,
		pubsub:    pubsub,
		router:    router,
		scheduler: scheduler,
	}, nil
}

// Handler exposes the gin engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the change-feed backed store the services write through.
func (s *Server) Store() store.Store {
	return s.store
}

// Start launches the reactor and the reconcile scheduler. It returns once every
// reactor handler is subscribed, so writes made afterwards are never missed.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.router.Run(ctx)
	}()

	select {
	case <-s.router.Running():
	case err := <-runErr:
		return fmt.Errorf("reactor stopped before start: %w", err)
	case <-time.After(30 * time.Second):
		return errors.New("reactor did not start in time")
	}

	s.scheduler.Start()
	logger.Info().Msg("reactor and reconciler started")
	return nil
}

// Run serves HTTP on addr until Shutdown is called.
func (s *Server) Run(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains in-flight reactor handlers, then
// stops the scheduler.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.router.Close(); err != nil {
		errs = append(errs, fmt.Errorf("reactor close: %w", err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop(ctx)
	if err := s.pubsub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("pubsub close: %w", err))
	}

	return errors.Join(errs...)
}

func setupCORS(engine *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		for _, origin := range strings.Split(allowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
