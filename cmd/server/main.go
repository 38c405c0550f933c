package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ledger-reconciliation-backend/internal/app"
	"ledger-reconciliation-backend/internal/config"
	"ledger-reconciliation-backend/internal/routes"
)

func main() {
	cnf, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	a, err := app.New(cnf)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	if err := config.Migrate(a.DB); err != nil {
		a.Logger.WithError(err).Fatal("migration failed")
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cnf.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Performed-By"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, a.Service)

	a.Logger.WithField("port", cnf.Server.Port).Info("server listening")
	if err := r.Run(":" + cnf.Server.Port); err != nil {
		a.Logger.WithError(err).Fatal("server stopped")
	}
}
