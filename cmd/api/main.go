package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"zhi-server/internal/admin"
	"zhi-server/internal/auth"
	"zhi-server/internal/chat"
	"zhi-server/internal/database"
	"zhi-server/internal/geminiservice"
	"zhi-server/internal/mood"
	"zhi-server/internal/psychologist"
	"zhi-server/internal/server"
	"zhi-server/internal/user"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight requests get 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	done <- true
}

func main() {
	// Database first: NewService populates the exported database.Dbpool.
	dbService := database.NewService()
	defer dbService.Close()

	if err := auth.InitAuth(database.Dbpool); err != nil {
		log.Fatalf("Fatal error: could not initialize authentication providers: %v", err)
	}

	// The completion client is constructed once here and injected into the
	// flows so handlers never reach for globals.
	gemini := geminiservice.NewClient(&zlog.Logger)
	flows := geminiservice.NewFlows(gemini, &zlog.Logger)

	chat.InitChatPackage(database.Dbpool, flows)
	user.InitUserPackage(database.Dbpool)
	user.InvalidateContext = chat.InvalidateUserContext
	mood.InitMoodPackage(database.Dbpool)
	psychologist.InitPsychologistPackage(database.Dbpool)
	admin.InitAdminPackage(database.Dbpool, dbService)

	apiServer := server.NewServer(dbService, flows)

	done := make(chan bool, 1)

	go gracefulShutdown(apiServer, done)

	err := apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	log.Println("Graceful shutdown complete.")
}
