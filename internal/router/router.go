package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/circlehub/backend/internal/blobstore"
	"github.com/circlehub/backend/internal/handlers"
	"github.com/circlehub/backend/internal/mailer"
	"github.com/circlehub/backend/internal/middleware"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
	"github.com/circlehub/backend/internal/services"
	"github.com/circlehub/backend/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.Following{},
		&models.Followed{},
		&models.Notification{},
		&models.PasswordReset{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"message": "Hello, World!"})
	})

	mgdb := mgClient.Database("circlehub")
	blobs, err := blobstore.NewGridFSStore(mgdb)
	if err != nil {
		log.Fatalf("Failed to open GridFS bucket: %v", err)
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	groupRepo := repositories.NewPostgresGroupRepository(pgdb)
	relationshipStore := repositories.NewPostgresRelationshipStore(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	resetRepo := repositories.NewPostgresPasswordResetRepository(pgdb)
	postRepo := repositories.NewMongoPostRepository(mgdb)

	// --- Initialize Services ---
	mail := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
	notifier := services.NewNotifier()
	membershipService := services.NewMembershipService(relationshipStore, notifier)
	followService := services.NewFollowService(relationshipStore, notifier)
	authService := services.NewAuthService(userRepo, resetRepo, blobs, mail, firebaseAuthClient, cfg.JWTSecret, cfg.BaseURL)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(authService)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, authService.IsBlacklisted))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo, blobs)
	userHandler.RegisterUserRoutes(api)
	log.Println("User profile routes configured.")

	// Group lifecycle routes
	groupHandler := handlers.NewGroupHandler(groupRepo, postRepo, membershipService, blobs)
	groupHandler.RegisterGroupRoutes(api)
	log.Println("Group routes configured.")

	// Membership routes
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	membershipHandler.RegisterMembershipRoutes(api)
	log.Println("Membership routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followService)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, membershipService, blobs)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	log.Println("All routes configured.")
}
