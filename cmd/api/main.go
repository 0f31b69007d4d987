package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/linuxfriends/recoverysystem-golang/internal/database"
	"github.com/linuxfriends/recoverysystem-golang/internal/handlers"
	"github.com/linuxfriends/recoverysystem-golang/internal/routes"
)

func main() {
	// --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// --- Application Setup ---
	app := &handlers.Handlers{
		DB:            db,
		StaleOrderTTL: staleOrderTTL(),
	}

	// --- Background Worker ---
	// Sweeps hourly for product orders that never got paid, cancelling them
	// and putting their stock back.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Println("Background worker started: monitoring for stale unpaid orders...")

		for range ticker.C {
			app.ProcessStaleOrders()
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting recovery system API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// staleOrderTTL reads STALE_ORDER_TTL_HOURS, defaulting to 24 hours.
func staleOrderTTL() time.Duration {
	if raw := os.Getenv("STALE_ORDER_TTL_HOURS"); raw != "" {
		if hours, err := time.ParseDuration(raw + "h"); err == nil && hours > 0 {
			return hours
		}
		log.Printf("WARNING: invalid STALE_ORDER_TTL_HOURS %q, using default", raw)
	}
	return 24 * time.Hour
}
