package main

import (
	"flag"
	"log"
	"os"

	"TradePull/internal/di"
	"TradePull/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// optional .env for local development; environment wins over file
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s symbol=%s interval=%s store=%s ledger=%s",
		cfg.Environment, cfg.Bybit.Symbol, cfg.Bybit.Interval,
		cfg.Store.Backend, cfg.Ledger.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
