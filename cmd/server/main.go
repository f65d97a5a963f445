package main

import (
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"quizly/internal/api"
	"quizly/internal/config"
	"quizly/internal/db"
	"quizly/internal/services"
)

func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	userService := services.NewUserService(conn)
	documentService := services.NewDocumentService(conn, cfg.UploadDir)
	flashcardService := services.NewFlashcardService(conn)
	quizService := services.NewQuizService(conn)
	aiService := services.NewAIService(cfg.GroqKey, cfg.GroqModel, cfg.GroqEndpoint)
	generationService := services.NewGenerationService(conn, documentService, aiService)
	dashboardService := services.NewDashboardService(conn)

	server := api.NewServer(
		userService,
		documentService,
		flashcardService,
		quizService,
		generationService,
		dashboardService,
		cfg.JWTSecret,
	)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(server.Handler())

	log.Printf("listening on :%s", cfg.Port)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation fans out several provider calls
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
