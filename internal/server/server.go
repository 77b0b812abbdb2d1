package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/hookflow/hookflow/internal/domain/credential"
	"github.com/hookflow/hookflow/internal/domain/execution"
	"github.com/hookflow/hookflow/internal/domain/user"
	"github.com/hookflow/hookflow/internal/domain/webhook"
	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/integrations/email"
	"github.com/hookflow/hookflow/internal/integrations/telegram"
	authhandlers "github.com/hookflow/hookflow/internal/services/auth/handlers"
	"github.com/hookflow/hookflow/internal/services/auth/jwt"
	authrepo "github.com/hookflow/hookflow/internal/services/auth/repository"
	authservice "github.com/hookflow/hookflow/internal/services/auth/service"
	credhandlers "github.com/hookflow/hookflow/internal/services/credential/handlers"
	credrepo "github.com/hookflow/hookflow/internal/services/credential/repository"
	credservice "github.com/hookflow/hookflow/internal/services/credential/service"
	"github.com/hookflow/hookflow/internal/services/credential/vault"
	exechandlers "github.com/hookflow/hookflow/internal/services/execution/handlers"
	execrepo "github.com/hookflow/hookflow/internal/services/execution/repository"
	execservice "github.com/hookflow/hookflow/internal/services/execution/service"
	"github.com/hookflow/hookflow/internal/services/executor/actions"
	"github.com/hookflow/hookflow/internal/services/executor/dispatcher"
	"github.com/hookflow/hookflow/internal/services/executor/engine"
	"github.com/hookflow/hookflow/internal/services/executor/worker"
	"github.com/hookflow/hookflow/internal/services/notification"
	whhandlers "github.com/hookflow/hookflow/internal/services/webhook/handlers"
	whrepo "github.com/hookflow/hookflow/internal/services/webhook/repository"
	whservice "github.com/hookflow/hookflow/internal/services/webhook/service"
	wfhandlers "github.com/hookflow/hookflow/internal/services/workflow/handlers"
	wfrepo "github.com/hookflow/hookflow/internal/services/workflow/repository"
	wfservice "github.com/hookflow/hookflow/internal/services/workflow/service"
	"github.com/hookflow/hookflow/pkg/cache"
	"github.com/hookflow/hookflow/pkg/config"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/events"
	"github.com/hookflow/hookflow/pkg/logger"
	"github.com/hookflow/hookflow/pkg/ratelimit"
)

// Server wires every service into one HTTP process: API, public webhook
// endpoint, executor pool and the retention cron.
type Server struct {
	cfg    *config.Config
	logger logger.Logger

	db    *database.DB
	redis *redis.Client
	bus   events.EventBus
	pool  *worker.Pool
	cron  *cron.Cron
	http  *http.Server
}

func New(cfg *config.Config, log logger.Logger) (*Server, error) {
	db, err := database.New(cfg.Database.ToDatabaseConfig())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.Migrate(
		&user.User{}, &user.OtpToken{},
		&workflow.Workflow{},
		&credential.Credential{},
		&webhook.Webhook{},
		&execution.Execution{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	var bus events.EventBus
	if cfg.Kafka.Enabled {
		kafkaBus, err := events.NewKafkaEventBus(cfg.Kafka.ToKafkaConfig(), log)
		if err != nil {
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		bus = kafkaBus
	}

	v, err := vault.New(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	emailClient := email.NewClient()
	telegramClient := telegram.NewClient()

	// Repositories and services.
	authRepo := authrepo.NewAuthRepository(db)
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.ExpiryHours, cfg.Auth.Issuer)
	authSvc := authservice.NewAuthService(authRepo, tokens, emailClient, cfg.Email.APIKey, cfg.Email.From, log)

	credRepo := credrepo.NewCredentialRepository(db)
	credSvc := credservice.NewCredentialService(credRepo, v, emailClient, telegramClient, log)

	execRepo := execrepo.NewExecutionRepository(db)
	execSvc := execservice.NewExecutionService(execRepo, log)

	workflowRepo := wfrepo.NewWorkflowRepository(db)

	// Executor: registry, engine, pool, dispatcher.
	registry := actions.NewDefaultRegistry(credSvc, emailClient, telegramClient, cfg.Email.From, log)
	eng := engine.New(registry, log)
	pool := worker.NewPool(cfg.Executor.Workers, cfg.Executor.QueueSize, log)
	notifier := notification.New(authSvc, emailClient, cfg.Email.APIKey, cfg.Email.From, log)
	disp := dispatcher.New(workflowRepo, execSvc, eng, pool, notifier, bus, log)

	workflowSvc := wfservice.NewWorkflowService(workflowRepo, disp, bus, log)
	webhookRepo := whrepo.NewWebhookRepository(db)
	hookCache := cache.NewRedisCache(redisClient, "hookflow")
	webhookSvc := whservice.NewWebhookService(webhookRepo, workflowRepo, disp, hookCache, cfg.Server.BaseURL, log)

	s := &Server{
		cfg:    cfg,
		logger: log,
		db:     db,
		redis:  redisClient,
		bus:    bus,
		pool:   pool,
		cron:   cron.New(),
	}

	// Daily retention cleanup for old terminal executions.
	if _, err := s.cron.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := execSvc.Cleanup(ctx, cfg.Retention.Days); err != nil {
			log.Error("retention cleanup failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule retention cleanup: %w", err)
	}

	router := s.buildRouter(
		authhandlers.NewAuthHandlers(authSvc, log),
		wfhandlers.NewWorkflowHandlers(workflowSvc, execSvc, log),
		credhandlers.NewCredentialHandlers(credSvc, log),
		whhandlers.NewWebhookHandlers(webhookSvc, log),
		exechandlers.NewExecutionHandlers(execSvc, log),
		tokens, authSvc,
	)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	return s, nil
}

func (s *Server) buildRouter(
	auth *authhandlers.AuthHandlers,
	workflows *wfhandlers.WorkflowHandlers,
	credentials *credhandlers.CredentialHandlers,
	webhooks *whhandlers.WebhookHandlers,
	executions *exechandlers.ExecutionHandlers,
	tokens *jwt.Manager,
	users *authservice.AuthService,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), cors(), requestLogger(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := s.db.Healthy(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public trigger endpoint, redis sliding window per hook+caller.
	hookLimiter := ratelimit.NewSlidingWindowLimiter(s.redis, 60, time.Minute)
	router.Any("/webhook/handler/:id",
		ratelimit.Middleware(hookLimiter, ratelimit.PathKeyFunc),
		webhooks.Handle,
	)

	api := router.Group("/api/v1")

	authLimiter := ratelimit.NewTokenBucketLimiter(5, 10)
	authGroup := api.Group("/auth", ratelimit.Middleware(authLimiter, ratelimit.IPKeyFunc))
	{
		authGroup.POST("/signup", auth.Signup)
		authGroup.POST("/signin", auth.Signin)
		authGroup.POST("/verify-otp", auth.VerifyOtp)
		authGroup.POST("/resend-otp", auth.ResendOtp)
	}

	authed := api.Group("", authRequired(tokens, users))
	{
		wf := authed.Group("/workflows")
		{
			wf.POST("", workflows.Create)
			wf.GET("", workflows.List)
			wf.GET("/:id", workflows.Get)
			wf.PUT("/:id", workflows.Update)
			wf.DELETE("/:id", workflows.Delete)
			wf.POST("/:id/execute", workflows.Execute)
		}

		cred := authed.Group("/credentials")
		{
			cred.POST("", credentials.Create)
			cred.GET("", credentials.List)
			cred.GET("/:id", credentials.Get)
			cred.PUT("/:id", credentials.Update)
			cred.DELETE("/:id", credentials.Delete)
			cred.POST("/:id/test", credentials.Test)
		}

		wh := authed.Group("/webhooks")
		{
			wh.POST("", webhooks.Create)
			wh.GET("", webhooks.List)
			wh.GET("/:id", webhooks.Get)
			wh.PUT("/:id", webhooks.Update)
			wh.DELETE("/:id", webhooks.Delete)
		}

		exec := authed.Group("/executions")
		{
			exec.GET("", executions.List)
			exec.GET("/:id", executions.Get)
			exec.POST("/:id/cancel", executions.Cancel)
			exec.GET("/:id/logs", executions.Logs)
			exec.DELETE("/:id", executions.Delete)
		}
	}

	return router
}

// Run starts the worker pool, the cron scheduler and the HTTP listener. It
// blocks until the listener stops.
func (s *Server) Run() error {
	s.pool.Start()
	s.cron.Start()

	s.logger.Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops intake first, then drains the executor so in-flight runs
// finalize their records.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := s.http.Shutdown(ctx); err != nil {
		firstErr = err
	}

	cronCtx := s.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	if err := s.pool.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	if s.bus != nil {
		if err := s.bus.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.redis.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
