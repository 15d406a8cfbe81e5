package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"carlink/internal/adapter/api"
	"carlink/internal/adapter/api/handler"
	apimiddleware "carlink/internal/adapter/api/middleware"
	"carlink/internal/adapter/api/router"
	"carlink/internal/adapter/repository"
	"carlink/internal/infrastructure/assistant"
	"carlink/internal/infrastructure/localstore"
	"carlink/internal/infrastructure/websocket"
	"carlink/internal/usecase"
	"carlink/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	store, err := localstore.New(cfg.LocalStorePath)
	if err != nil {
		log.Fatalf("Failed to open local store at %s: %v", cfg.LocalStorePath, err)
	}
	defer store.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	vehicleRepo := repository.NewFirestoreVehicleRepository(firestoreClient)
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	responder := assistant.NewOpenAIResponder(cfg.OpenAIAPIKey, cfg.AssistantModel)
	idleTimeout := time.Duration(cfg.AssistantIdleMinutes) * time.Minute

	chatUseCase := usecase.NewChatUseCase(conversationRepo, userRepo, vehicleRepo, wsManager)
	assistantUseCase := usecase.NewAssistantUseCase(store, responder, vehicleRepo, idleTimeout)
	defer assistantUseCase.CloseAll()

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	chatHandler := handler.NewChatHandler(chatUseCase)
	assistantHandler := handler.NewAssistantHandler(assistantUseCase)
	vehicleHandler := handler.NewVehicleHandler(vehicleRepo)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware)

	e.GET("/health", handler.HealthCheck)

	router.SetupChatRouter(e, chatHandler, authMiddleware)
	router.SetupAssistantRouter(e, assistantHandler, authMiddleware)
	router.SetupVehicleRouter(e, vehicleHandler, authMiddleware)
	router.SetupWebSocketRouter(e, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
		e.Logger.Fatal(err)
	}
}
