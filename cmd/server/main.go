package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/givetrack/givetrack/internal/config"
	"github.com/givetrack/givetrack/internal/email"
	"github.com/givetrack/givetrack/internal/handlers"
	"github.com/givetrack/givetrack/internal/identity"
	"github.com/givetrack/givetrack/internal/images"
	"github.com/givetrack/givetrack/internal/middleware"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/givetrack/givetrack/internal/repository"
	"github.com/givetrack/givetrack/internal/service"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Repositories
	userRepo := repository.NewUserRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	otpRepo := repository.NewOTPRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	programRepo := repository.NewProgramRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	donationRepo := repository.NewDonationRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	// Collaborators
	sender := initSender(cfg, logger)
	provider := identity.NewDynamoProvider(dynamoClient, cfg.DynamoDB.TableName, sender, cfg.Server.AppBaseURL, logger)
	imageClient := images.NewClient(cfg.Images.UploadURL, cfg.Images.DeleteURL, cfg.Images.APIKey, logger)

	// Services
	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize JWT service")
	}

	limiter := service.NewRedisRateLimiter(redisClient, cfg.OTP.RateWindow, cfg.OTP.MaxRequests)
	otpService := service.NewOTPService(otpRepo, sender, limiter, &cfg.OTP, logger)
	registrationService := service.NewRegistrationService(provider, userRepo, otpService, logger)
	refreshTokenService := service.NewRefreshTokenService(redisClient, logger)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtService, logger)
	authHandlers := handlers.NewAuthHandlers(registrationService, provider, jwtService, refreshTokenService, userRepo, logger)
	sessionHandlers := handlers.NewSessionHandlers(authMiddleware, userRepo, logger)
	programHandlers := handlers.NewProgramHandlers(programRepo, donationRepo, logger)
	donationHandlers := handlers.NewDonationHandlers(donationRepo, programRepo, logger)
	uploadHandlers := handlers.NewUploadHandlers(imageClient, logger)

	router := setupRouter(authHandlers, sessionHandlers, programHandlers, donationHandlers, uploadHandlers, authMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func initSender(cfg *config.Config, logger *logrus.Logger) email.Sender {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP not configured, email sending disabled")
		return email.NewDisabledSender("smtp not configured")
	}

	sender, err := email.NewSMTPSender(&cfg.SMTP, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize SMTP sender")
	}
	return sender
}

func setupRouter(
	authHandlers *handlers.AuthHandlers,
	sessionHandlers *handlers.SessionHandlers,
	programHandlers *handlers.ProgramHandlers,
	donationHandlers *handlers.DonationHandlers,
	uploadHandlers *handlers.UploadHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/check-email", authHandlers.CheckEmail).Methods("POST", "OPTIONS")
	auth.HandleFunc("/verify-otp", authHandlers.VerifyOTP).Methods("POST", "OPTIONS")
	auth.HandleFunc("/register", authHandlers.Register).Methods("POST", "OPTIONS")
	auth.HandleFunc("/login", authHandlers.Login).Methods("POST", "OPTIONS")
	auth.HandleFunc("/refresh", authHandlers.RefreshToken).Methods("POST", "OPTIONS")
	auth.HandleFunc("/logout", authHandlers.Logout).Methods("POST", "OPTIONS")
	auth.HandleFunc("/forgot-password", authHandlers.ForgotPassword).Methods("POST", "OPTIONS")
	auth.HandleFunc("/session", sessionHandlers.Session).Methods("GET", "OPTIONS")
	auth.HandleFunc("/guard", sessionHandlers.Guard).Methods("GET", "OPTIONS")

	// Public catalogue
	api.HandleFunc("/programs/public", programHandlers.ListPublic).Methods("GET", "OPTIONS")

	protected := api.PathPrefix("/").Subrouter()
	protected.Use(authMiddleware.RequireAuth)

	protected.HandleFunc("/onboarding/complete", sessionHandlers.CompleteOnboarding).Methods("POST", "OPTIONS")
	protected.HandleFunc("/profile/avatar", sessionHandlers.UpdateAvatar).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/programs", programHandlers.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/programs/{id}", programHandlers.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/donations/mine", donationHandlers.ListMine).Methods("GET", "OPTIONS")

	adminOnly := authMiddleware.RequireRole(models.RoleAdmin)
	protected.Handle("/programs", adminOnly(http.HandlerFunc(programHandlers.Create))).Methods("POST", "OPTIONS")
	protected.Handle("/dashboard/summary", adminOnly(http.HandlerFunc(programHandlers.DashboardSummary))).Methods("GET", "OPTIONS")
	protected.Handle("/uploads/image", adminOnly(http.HandlerFunc(uploadHandlers.UploadImage))).Methods("POST", "OPTIONS")
	protected.Handle("/uploads/image", adminOnly(http.HandlerFunc(uploadHandlers.DeleteImage))).Methods("DELETE", "OPTIONS")

	donorOrAdmin := authMiddleware.RequireRole(models.RoleDonor, models.RoleAdmin)
	protected.Handle("/donations", donorOrAdmin(http.HandlerFunc(donationHandlers.Create))).Methods("POST", "OPTIONS")

	return router
}
