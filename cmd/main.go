package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Anushre2005/swiftbid/internal/db"
	"github.com/Anushre2005/swiftbid/internal/handlers"
	"github.com/Anushre2005/swiftbid/internal/repository"
	"github.com/Anushre2005/swiftbid/internal/router"
	"github.com/Anushre2005/swiftbid/internal/router/config"
	"github.com/Anushre2005/swiftbid/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	runDBMigration(cfg.MigrationURL, cfg.PostgresConn)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := db.InitRedis(cfg)
	if err != nil {
		log.Fatalf("error initializing redis: %v", err)
	}
	defer redisClient.Close()

	logger := log.New(os.Stdout, "INFO: ", log.LstdFlags)

	rfpRepo := repository.NewPostgresRfpRepository(dbPool)
	snapshotStore := repository.NewRedisSnapshotStore(redisClient)
	workflowRepo := repository.NewMemoryWorkflowRepository(snapshotStore, logger)

	workflowService := services.NewWorkflowService(workflowRepo, rfpRepo, rfpRepo)
	scoringService := services.NewScoringService(rfpRepo)

	rfpHandler := handlers.NewRfpHandler(scoringService, rfpRepo, logger, 5*time.Second)
	workflowHandler := handlers.NewWorkflowHandler(workflowService, logger, 5*time.Second)

	routes := router.InitRoutes(rfpHandler, workflowHandler)

	log.Printf("server is listening on %s...", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, routes); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func runDBMigration(migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		log.Fatal("cannot create a new migrate instance", err)
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("failed to run migrate up:", err)
	}
	log.Println("db migrated successfully")
}
