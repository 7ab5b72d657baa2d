package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/common/logger"
	"github.com/yashrajoria/checkout-service/common/middleware"
	"github.com/yashrajoria/checkout-service/config"
	"github.com/yashrajoria/checkout-service/controllers"
	"github.com/yashrajoria/checkout-service/database"
	"github.com/yashrajoria/checkout-service/gateway"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"github.com/yashrajoria/checkout-service/repository"
	"github.com/yashrajoria/checkout-service/routes"
	"github.com/yashrajoria/checkout-service/services"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Environment, nil)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- AWS setup ---
	var awsCfg *sdkaws.Config
	if cfg.NeedsAWS() {
		loaded, err := aws_pkg.LoadAWSConfig(ctx, aws_pkg.ClientOptions{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.AWSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		awsCfg = &loaded

		if cfg.CloudWatchEnabled {
			cwLogs, err := aws_pkg.NewCloudWatchLogsClient(ctx, loaded, cfg.CloudWatchLogGroup, cfg.ServiceName)
			if err != nil {
				log.Warn("CloudWatch Logs sink unavailable (non-fatal)", zap.Error(err))
			} else if cwLog, err := logger.New(cfg.Environment, cwLogs); err == nil {
				log = cwLog
			}
		}

		if cfg.AWSUseSecrets {
			cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(loaded))
		}
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	// --- Stores ---
	orderRepo, userRepo, closeStore, err := openStores(ctx, cfg, awsCfg, log)
	if err != nil {
		log.Fatal("Store initialization failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	var metrics aws_pkg.MetricsRecorder
	var publisher aws_pkg.SNSPublisher
	if awsCfg != nil {
		metrics = aws_pkg.NewMetricsClient(*awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
		if cfg.PaymentSNSTopicARN != "" {
			publisher = aws_pkg.NewSNSClient(*awsCfg)
		}
	}

	// --- Dependency injection ---
	events := services.NewEventPublisher(publisher, cfg.PaymentSNSTopicARN, log)
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	orderService := services.NewOrderService(
		orderRepo,
		gateway.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		cfg.RazorpayKeySecret,
		cfg.DefaultCurrency,
		events,
		metrics,
		log,
	)
	authService := services.NewAuthService(userRepo, services.NewGoogleVerifier(cfg.GoogleClientID), tokens, metrics, log)

	// --- HTTP router ---
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.MetricsMiddleware(metrics, cfg.ServiceName))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimitMiddleware(ctx, cfg.RateLimitPerMinute))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(apperrors.ErrorMiddleware(log))

	routes.RegisterRoutes(r, routes.Controllers{
		Orders:      controllers.NewOrderController(orderService),
		Auth:        controllers.NewAuthController(authService, cfg.GoogleClientID),
		Users:       controllers.NewUserController(orderService),
		ServiceName: cfg.ServiceName,
	}, tokens)

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Checkout Service started",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver),
			zap.String("env", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	stop()
	closeStore()

	log.Info("Checkout Service stopped gracefully")
}

// openStores builds the order and user repositories for the configured driver.
// The returned func releases the underlying connection.
func openStores(ctx context.Context, cfg *config.Config, awsCfg *sdkaws.Config, log *zap.Logger) (repository.OrderRepository, repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		orders := repository.NewMongoOrderRepository(db)
		users := repository.NewMongoUserRepository(db)
		if err := orders.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to ensure order indexes", zap.Error(err))
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to ensure user indexes", zap.Error(err))
		}
		log.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))
		return orders, users, func() {
			if err := database.DisconnectMongo(client); err != nil {
				log.Error("MongoDB disconnect error", zap.Error(err))
			}
		}, nil

	case config.StorePostgres:
		db, err := database.OpenPostgres(cfg.PostgresDSN(), log)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewGormOrderRepository(db), repository.NewGormUserRepository(db), func() {
			if err := database.ClosePostgres(db); err != nil {
				log.Error("Database close error", zap.Error(err))
			}
		}, nil

	case config.StoreDynamoDB:
		if awsCfg == nil {
			return nil, nil, nil, errors.New("AWS config is required for the dynamodb store")
		}
		client := database.NewDynamoClient(*awsCfg, cfg.AWSEndpoint)
		return repository.NewDynamoOrderRepository(client, cfg.DynamoOrdersTable),
			repository.NewDynamoUserRepository(client, cfg.DynamoUsersTable),
			func() {}, nil

	default:
		log.Warn("Using in-memory store; data is lost on restart")
		return repository.NewMemoryOrderRepository(), repository.NewMemoryUserRepository(), func() {}, nil
	}
}
