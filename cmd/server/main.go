package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	webAdapter "stockdesk/internal/adapters/web"
	"stockdesk/internal/app"
	"stockdesk/internal/config"
	"stockdesk/internal/core"
	"stockdesk/internal/db"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	ledger := core.NewBalanceLedger(pool)
	stockService := core.NewStockService(pool, ledger, cfg.USDToSRD)
	batchService := core.NewBatchService(pool)
	companyService := core.NewCompanyService(pool)

	svc := app.NewAppService(stockService, batchService, companyService, ledger, cfg.USDToSRD)
	handler := webAdapter.NewHandler(svc, log, cfg.AllowedOrigins)

	log.WithField("port", cfg.ServerPort).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
