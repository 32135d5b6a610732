package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/mckzv/channelpilot/configs"
	"github.com/mckzv/channelpilot/internal/api/handlers"
	"github.com/mckzv/channelpilot/internal/api/middleware"
	job "github.com/mckzv/channelpilot/internal/jobs"
	"github.com/mckzv/channelpilot/internal/platform"
	"github.com/mckzv/channelpilot/internal/queue"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Api-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	channelRepo := repository.NewChannelRepository(db)
	contentItemRepo := repository.NewContentItemRepository(db)
	jobRepo := repository.NewJobRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	distributionRepo := repository.NewDistributionRepository(db)
	systemStateRepo := repository.NewSystemStateRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	storage, err := platform.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to set up media storage: %v", err)
	}
	discoverer := platform.NewFeedDiscoverer()
	acquirer := platform.NewHTTPAcquirer(storage)
	processor := platform.NewTranscodeProcessor(cfg)
	publisher := platform.NewYouTubePublisher(cfg, channelRepo)
	dispatcher := queue.NewDispatcher(client)

	state := service.NewOrchestrationState(systemStateRepo)
	queueService := service.NewJobQueueService(jobRepo, channelRepo, contentItemRepo,
		distributionRepo, state, discoverer, acquirer, processor, publisher,
		time.Duration(cfg.RetryBackoffBase)*time.Second, cfg.MaxJobAttempts)
	pipelineService := service.NewPipelineService(channelRepo, contentItemRepo, distributionRepo,
		discoverer, acquirer, processor, publisher)
	schedulerService := service.NewSchedulerService(db, scheduleRepo, channelRepo, contentItemRepo,
		distributionRepo, queueService, dispatcher)
	distributionService := service.NewDistributionService(distributionRepo, channelRepo,
		contentItemRepo, scheduleRepo, schedulerService)
	coordinatorService := service.NewCoordinatorService(state, channelRepo, scheduleRepo,
		schedulerService, pipelineService, distributionService, queueService, dispatcher)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(cfg, apiKeyService)

	auth := handlers.NewAuthHandler(cfg, apiKeyService, channelRepo, publisher)
	app.Post("/auth/session", auth.CreateSession)
	app.Get("/channels/:id/connect", auth.ConnectChannel)
	app.Get("/channels/connect/callback", auth.ConnectCallback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	channel := handlers.NewChannelHandler(channelRepo)
	api.Post("/channels/create", channel.CreateChannel)
	api.Get("/channels", channel.ListChannels)
	api.Post("/channels/:id/update", channel.UpdateChannel)
	api.Post("/channels/remove", channel.RemoveChannel)

	content := handlers.NewContentHandler(contentItemRepo)
	api.Get("/content", content.ListContent)

	jobs := handlers.NewJobHandler(queueService)
	api.Post("/jobs/enqueue", jobs.EnqueueJob)
	api.Get("/jobs", jobs.ListJobs)
	api.Post("/jobs/execute", jobs.ExecuteNext)
	api.Post("/jobs/batch", jobs.ProcessBatch)
	api.Post("/jobs/:id/retry", jobs.RetryJob)
	api.Post("/jobs/pause", jobs.PauseQueue)
	api.Post("/jobs/resume", jobs.ResumeQueue)
	api.Get("/jobs/statistics", jobs.QueueStatistics)

	schedule := handlers.NewScheduleHandler(schedulerService)
	api.Post("/schedules/create", schedule.CreateSchedule)
	api.Post("/schedules/:id/pause", schedule.PauseSchedule)
	api.Post("/schedules/:id/resume", schedule.ResumeSchedule)
	api.Post("/schedules/:id/cancel", schedule.CancelSchedule)
	api.Post("/schedules/execute", schedule.ExecuteDue)
	api.Get("/schedules/:id/validate", schedule.ValidateSchedule)

	distribution := handlers.NewDistributionHandler(distributionService)
	api.Post("/distributions/filters", distribution.DistributeByFilters)
	api.Post("/distributions/slots", distribution.DistributeBySchedule)
	api.Post("/distributions/manual", distribution.DistributeManually)
	api.Post("/distributions/:id/retry", distribution.RetryDistribution)
	api.Get("/distributions/statistics", distribution.DistributionStatistics)

	coordinator := handlers.NewCoordinatorHandler(coordinatorService)
	api.Post("/coordinator/start", coordinator.Start)
	api.Post("/coordinator/stop", coordinator.Stop)
	api.Post("/coordinator/pause", coordinator.Pause)
	api.Post("/coordinator/resume", coordinator.Resume)
	api.Get("/coordinator/status", coordinator.Status)
	api.Post("/coordinator/publish", coordinator.CoordinatePublication)
	api.Post("/coordinator/pipeline", coordinator.TriggerPipeline)
	api.Post("/coordinator/waves", coordinator.ScheduleWave)
	api.Get("/coordinator/channels", coordinator.MonitorChannels)
	api.Post("/coordinator/distribute", coordinator.DistributeVideos)
	api.Get("/coordinator/dashboard", coordinator.Dashboard)

	pipeline := handlers.NewPipelineHandler(pipelineService)
	api.Post("/pipeline/run", pipeline.RunPipeline)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(channelRepo, publisher)
	driver := job.NewDriver(cfg, queueService, schedulerService, coordinatorService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc(cfg.DriverCadence, driver.Tick)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		worker := queue.NewWorker(channelRepo, pipelineService)

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeCIDispatch, worker.HandleCIDispatchTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
