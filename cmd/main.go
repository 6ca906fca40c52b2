package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"catalogd/internal/caching"
	"catalogd/internal/handlers"
	"catalogd/internal/jobs/background"
	"catalogd/internal/middleware"
	"catalogd/internal/repositories"
	"catalogd/internal/services"
)

const version = "1.0.0"

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret")
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")

	// MinIO configuration
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin" // Default for development
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin" // Default for development
	}
	minioBucket := os.Getenv("MINIO_BUCKET")
	if minioBucket == "" {
		minioBucket = "catalog-media"
	}
	minioPublicURL := os.Getenv("MINIO_PUBLIC_URL")
	if minioPublicURL == "" {
		minioPublicURL = "http://" + minioEndpoint
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	// Initialize media service
	mediaSvc, err := services.NewMinioMediaService(minioEndpoint, minioAccessKey, minioSecretKey, minioBucket, minioPublicURL, useSSL)
	if err != nil {
		log.Fatalf("Failed to initialize media service: %v", err)
	}
	if err := mediaSvc.EnsureBucketExists(context.Background()); err != nil {
		log.Fatalf("Failed to ensure media bucket: %v", err)
	}

	// Create repositories
	categoryRepo := repositories.NewCategoryRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, 0)

	// Create services
	categorySvc := services.NewCategoryService(categoryRepo, userRepo, mediaSvc, cacheSvc)
	subCategorySvc := services.NewSubCategoryService(categoryRepo, mediaSvc, cacheSvc)

	// Create handlers
	categoryHandlers := handlers.NewCategoryHandlers(categorySvc)
	subCategoryHandlers := handlers.NewSubCategoryHandlers(subCategorySvc)

	// Background jobs
	scheduler, err := background.NewJobScheduler(categorySvc, categoryRepo, mediaSvc)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoint (no auth required)
	e.GET("/health", handlers.HealthCheck(pool))

	// API routes
	v1 := e.Group("/v1")

	// Public reads
	v1.GET("/categories", categoryHandlers.ListCategories)
	v1.GET("/categories/:slug", categoryHandlers.GetCategory)
	v1.GET("/subcategories", subCategoryHandlers.ListSubCategories)

	// Writes require an authenticated actor for createdBy/updatedBy
	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(jwtSecret))

	protected.POST("/categories", categoryHandlers.CreateCategory)
	protected.PATCH("/categories/:id", categoryHandlers.UpdateCategory)
	protected.DELETE("/categories/:id", categoryHandlers.DeleteCategory)

	protected.POST("/categories/:categoryId/subcategories", subCategoryHandlers.CreateSubCategory)
	protected.PATCH("/subcategories/:id", subCategoryHandlers.UpdateSubCategory)
	protected.DELETE("/subcategories/:id", subCategoryHandlers.DeleteSubCategory)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Catalog service v%s starting on port %s", version, port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%s", port)))
}
