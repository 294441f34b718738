package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edustack/lms-api/internal/config"
	"github.com/edustack/lms-api/internal/database"
	"github.com/edustack/lms-api/internal/handler"
	"github.com/edustack/lms-api/internal/middleware"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
	"github.com/edustack/lms-api/internal/router"
	"github.com/edustack/lms-api/internal/service"
	cert "github.com/edustack/lms-api/pkg/certificate"
	cloud "github.com/edustack/lms-api/pkg/cloudinary"
	"github.com/edustack/lms-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseModule{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Quiz{},
		&models.QuizAttempt{},
		&models.Assignment{},
		&models.Submission{},
		&models.Certificate{},
		&models.NotificationOutbox{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	renderer, err := cert.NewRenderer(cfg.CertificateFontPath, logger)
	if err != nil {
		log.Fatalf("failed to create certificate renderer: %v", err)
	}

	var mailService service.Mailer
	if cfg.SendgridAPIKey != "" {
		sendgridMailer, err := mailer.New(mailer.Config{
			APIKey:      cfg.SendgridAPIKey,
			FromName:    cfg.EmailFromName,
			FromAddress: cfg.EmailFromAddress,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create mailer: %v", err)
		}
		mailService = sendgridMailer
	} else {
		logger.Warn().Msg("no sendgrid api key configured, outbox rows will be marked failed")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	notifier := service.NewOutboxNotifier(outboxRepo, logger)
	dispatcher := service.NewOutboxDispatcher(outboxRepo, mailService, natsConn, cfg.OutboxPollInterval, logger)

	authService := service.NewAuthService(userRepo, redisClient, notifier, validate, service.AuthConfig{
		JWTSecret:             cfg.JWTSecret,
		JWTRefreshSecret:      cfg.JWTRefreshSecret,
		AccessTokenTTL:        cfg.AccessTokenTTL,
		RefreshTokenTTL:       cfg.RefreshTokenTTL,
		ForgotPasswordEnabled: cfg.FeatureForgotPassword,
	}, logger)
	courseService := service.NewCourseService(courseRepo, validate, uploader, logger)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseRepo, progressRepo, userRepo, notifier, cfg.EnrollmentAutoApprove, logger)
	progressService := service.NewProgressService(progressRepo, enrollmentRepo, courseRepo, notifier, logger)
	quizService, err := service.NewQuizService(quizRepo, courseRepo, validate, logger)
	if err != nil {
		log.Fatalf("failed to create quiz service: %v", err)
	}
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, validate, uploader, notifier, logger)
	certificateService := service.NewCertificateService(certificateRepo, enrollmentRepo, renderer, uploader, notifier, logger)
	statsService := service.NewAdminStatsService(userRepo, courseRepo, enrollmentRepo, certificateRepo, redisClient, cfg.StatsCacheTTL, cfg.StatsAveragePrice, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	courseHandler := handler.NewCourseHandler(courseService, logger)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, progressService, logger)
	quizHandler := handler.NewQuizHandler(quizService, logger)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	certificateHandler := handler.NewCertificateHandler(certificateService, logger)
	adminStatsHandler := handler.NewAdminStatsHandler(statsService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        authHandler,
		CourseHandler:      courseHandler,
		EnrollmentHandler:  enrollmentHandler,
		QuizHandler:        quizHandler,
		AssignmentHandler:  assignmentHandler,
		CertificateHandler: certificateHandler,
		AdminStatsHandler:  adminStatsHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go dispatcher.Start(dispatchCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
