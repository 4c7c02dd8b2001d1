package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/partnerly/backend/internal/config"
	"github.com/partnerly/backend/internal/database"
	"github.com/partnerly/backend/internal/database/migrations"
	"github.com/partnerly/backend/internal/jobs"
	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/routes"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	jobQueue := queue.NewQueue(db)

	services := routes.RegisterRoutes(router, db, redisClient, jobQueue, cfg)

	jobs.RegisterAllJobHandlers(jobQueue, services.Ledger, services.Dispenser, services.Processor)
	jobQueue.Start(cfg.Engine.WorkerCount)
	defer jobQueue.Stop()

	scheduler, err := jobs.ScheduleRecurringJobs(jobQueue)
	if err != nil {
		log.Fatalf("Failed to schedule recurring jobs: %v", err)
	}
	defer scheduler.Stop()

	fmt.Printf("Partnerly ledger engine running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
