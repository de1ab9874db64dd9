package app

import (
	"database/sql"
	"fmt"
	"log"

	"carebridge/internal/config"
	"carebridge/internal/handlers"
	"carebridge/internal/middleware"
	"carebridge/internal/pdf"
	"carebridge/internal/repositories"
	"carebridge/internal/routes"
	"carebridge/internal/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "carebridge/docs"
)

func Run() {
	cfg := config.LoadConfig()

	middleware.SetJWTKey(cfg.JWT.Secret)

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	leadRepo := repositories.NewLeadRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)
	hospitalRepo := repositories.NewHospitalRepository(db)
	chatRepo := repositories.NewChatRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	caseStore := repositories.NewCaseStore(db)

	// === Services ===
	authService := services.NewAuthService()
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	// nil alerter disables Telegram delivery
	alerter, err := services.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.OpsChatID, cfg.Telegram.DryRun)
	if err != nil {
		log.Printf("telegram alerts disabled: %v", err)
	}

	userService := services.NewUserService(userRepo, emailService, authService)
	leadService := services.NewLeadService(leadRepo, historyRepo)
	hospitalService := services.NewHospitalService(hospitalRepo)
	chatService := services.NewChatService(chatRepo, leadRepo)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, emailService, alerter)
	caseService := services.NewCaseService(caseStore, chatService, notificationService)

	pdfGen := pdf.NewDocumentGenerator(cfg.Files.RootDir, cfg.Files.FontPath)
	documentService := services.NewDocumentService(leadRepo, cfg.Files.RootDir, pdfGen)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService, authService)
	userHandler := handlers.NewUserHandler(userService)
	leadHandler := handlers.NewLeadHandler(leadService)
	caseHandler := handlers.NewCaseHandler(caseService)
	chatHandler := handlers.NewChatHandler(chatService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	hospitalHandler := handlers.NewHospitalHandler(hospitalService)
	documentHandler := handlers.NewDocumentHandler(documentService)

	// === Gin ===
	router := gin.Default()
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authHandler,
		userHandler,
		leadHandler,
		caseHandler,
		chatHandler,
		notificationHandler,
		hospitalHandler,
		documentHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server stopped: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
