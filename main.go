package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/clients"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/logger"
	"checkout-service/middleware"
	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var logSink io.Writer
	if awsErr == nil && cfg.LogGroup != "" {
		cwl, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.LogGroup, "checkout-service")
		if err != nil {
			log.Printf("CloudWatch Logs unavailable: %v", err)
		} else {
			logSink = cwl
		}
	}

	zl, err := logger.New(cfg.Env, logSink)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.UseSecrets {
		if awsErr != nil {
			zl.Warn("AWS config unavailable, skipping Secrets Manager", zap.Error(awsErr))
		} else {
			cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg, 10*time.Minute))
		}
	}
	if err := cfg.Validate(); err != nil {
		zl.Fatal("Invalid config", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zl.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	var db *gorm.DB
	if cfg.PostgresEnabled() {
		db, err = database.ConnectPostgres(cfg.Postgres, zl, &models.ProofUploadFailure{})
		if err != nil {
			zl.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close(db) //nolint:errcheck
	} else {
		zl.Warn("Postgres not configured, proof upload failures will only be logged")
	}

	// AWS clients
	var (
		snsClient aws_pkg.SNSPublisher
		s3Client  services.ObjectStore
		queue     aws_pkg.QueueSender
		metrics   *aws_pkg.MetricsClient
	)
	if awsErr != nil {
		zl.Warn("AWS config unavailable, SNS, S3, SQS and metrics disabled", zap.Error(awsErr))
	} else {
		snsClient = aws_pkg.NewSNSClient(awsCfg, "checkout-service")
		s3Client = aws_pkg.NewS3Client(awsCfg)
		metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled).
			WithDimensions(map[string]string{"Service": "checkout-service", "Environment": cfg.Env})
		if cfg.ProofRecoveryQueue != "" {
			queueURL, err := aws_pkg.ResolveQueueURL(ctx, awsCfg, cfg.ProofRecoveryQueue)
			if err != nil {
				zl.Warn("Proof recovery queue unavailable", zap.String("queue", cfg.ProofRecoveryQueue), zap.Error(err))
			} else {
				queue = aws_pkg.NewSQSProducer(awsCfg, queueURL, "checkout-service", cfg.ProofRecoveryDelay)
			}
		}
	}

	// DI chain
	orderClient := clients.NewOrderClient(cfg.OrderAPIURL, cfg.OrderAPITimeout)
	cartRepo := repository.NewCartRepository(redisClient, cfg.CartTTL)
	locationCache := repository.NewLocationCache(redisClient, cfg.LocationCacheTTL, zl)

	var failureRepo repository.ProofFailureRepository
	if db != nil {
		failureRepo = repository.NewGormProofFailureRepository(db)
	}

	sessionStore := services.NewSessionStore(cfg.SessionTTL)
	sessionStore.StartJanitor(ctx, cfg.SessionSweepInterval)

	locationService := services.NewLocationService(orderClient, locationCache, metrics, zl)
	cartService := services.NewCartService(cartRepo, zl)
	recovery := services.NewProofRecovery(
		s3Client,
		cfg.ProofBucket,
		cfg.ProofLinkTTL,
		failureRepo,
		queue,
		snsClient,
		cfg.SNSTopicARN,
		metrics,
		zl,
	)
	checkoutService := services.NewCheckoutService(
		sessionStore,
		locationService,
		orderClient,
		services.NewFormValidator(),
		cartRepo,
		recovery,
		snsClient,
		cfg.SNSTopicARN,
		metrics,
		cfg.SubmitLockTTL,
		zl,
	)

	handlers := routes.Controllers{
		Checkout:      controllers.NewCheckoutController(checkoutService, cartRepo, cfg.MaxProofSize, zl),
		Cart:          controllers.NewCartController(cartService),
		Locations:     controllers.NewLocationController(locationService),
		ProofFailures: controllers.NewProofFailureController(recovery),
	}

	submitLimiter := middleware.NewRateLimiter(rate.Every(time.Minute/time.Duration(max(cfg.SubmitRatePerMinute, 1))), 2, 10*time.Minute)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				submitLimiter.Cleanup(now)
			}
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zl))
	r.Use(middleware.Metrics(metrics, "checkout-service"))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.GuestIDHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.GuestIDHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 30-second request timeout. Steps after an order is created detach from it.
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		redisStatus := "up"
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			status = http.StatusServiceUnavailable
			redisStatus = "down"
		}
		c.JSON(status, gin.H{
			"status":   http.StatusText(status),
			"service":  "checkout-service",
			"redis":    redisStatus,
			"sessions": sessionStore.Len(),
		})
	})

	auth := middleware.Authenticate(middleware.NewTokenParser(cfg.JWTSecret))
	routes.RegisterRoutes(r, handlers, auth, submitLimiter)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	zl.Info("Checkout service started", zap.String("port", cfg.Port))
	<-ctx.Done()
	zl.Info("Shutting down checkout service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	// Let in-flight proof recovery reach S3/Postgres/SQS before exiting
	checkoutService.Wait()
	zl.Info("Server exited cleanly")
}
