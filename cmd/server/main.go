package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"manifestun/internal/db"
	"manifestun/internal/handlers"
	"manifestun/internal/mentor"
	mw "manifestun/internal/middleware"
	"manifestun/internal/services"
	"manifestun/internal/store"
	"manifestun/internal/whop"
)

func mustGetenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func requireGetenv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error(key + " is required")
		os.Exit(1)
	}
	return v
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to build zap logger", slog.Any("err", err))
		os.Exit(1)
	}
	defer zapLogger.Sync()

	databaseURL := requireGetenv("DATABASE_URL")

	baseURL := mustGetenv("BASE_URL", "http://localhost:8080")
	port := mustGetenv("PORT", "8080")

	whopCfg := whop.DefaultConfig()
	whopCfg.ClientID = requireGetenv("WHOP_CLIENT_ID")
	whopCfg.ClientSecret = requireGetenv("WHOP_CLIENT_SECRET")
	whopCfg.APIKey = requireGetenv("WHOP_API_KEY")
	whopCfg.RedirectURI = baseURL + "/api/auth/callback/whop"
	whopClient := whop.NewClient(whopCfg)

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set; mentor chat and journal analysis will fail")
	}
	mentorClient := mentor.NewClient(mentor.DefaultConfig(anthropicKey))

	encSvc, err := services.NewEncryptionService(requireGetenv("ENCRYPTION_KEY"))
	if err != nil {
		slog.Error("failed to init encryption", slog.Any("err", err))
		os.Exit(1)
	}

	stateSecret := []byte(requireGetenv("STATE_SECRET"))

	dbConn, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		slog.Error("failed to ping db", slog.Any("err", err))
		os.Exit(1)
	}
	if err := db.RunMigrations(dbConn); err != nil {
		slog.Error("failed migrations", slog.Any("err", err))
		os.Exit(1)
	}

	st := store.NewPostgres(dbConn)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(mw.ZapRequestLogger(zapLogger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	secureCookies := os.Getenv("ENV") == "production"
	authHandler := handlers.NewAuthHandler(st, whopClient, stateSecret, secureCookies)
	chatHandler := handlers.NewChatHandler(st, mentorClient)
	workbookHandler := handlers.NewWorkbookHandler(st)
	journalHandler := handlers.NewJournalHandler(st, mentorClient, encSvc)
	userHandler := handlers.NewUserHandler(st)
	dashboardHandler := handlers.NewDashboardHandler(st)
	authMW := mw.NewAuthMiddleware(whopClient)

	r.Route("/api", func(api chi.Router) {
		api.Get("/auth/login", authHandler.Login)
		api.Get("/auth/callback/whop", authHandler.Callback)
		api.Post("/auth/logout", authHandler.Logout)
		api.Get("/auth/logout", authHandler.Logout)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Post("/chat", chatHandler.Send)
			pr.Post("/journal", journalHandler.Create)
			pr.Get("/journal", journalHandler.List)
			pr.Post("/workbook/progress", workbookHandler.Save)
			pr.Get("/workbook/progress", workbookHandler.List)
			pr.Get("/users/me", userHandler.GetMe)
			pr.Put("/users/me", userHandler.UpdateMe)
			pr.Get("/dashboard", dashboardHandler.Get)
		})
	})

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		slog.Info("server starting", slog.String("addr", ":"+port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.Any("err", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	slog.Info("server stopped")
}
