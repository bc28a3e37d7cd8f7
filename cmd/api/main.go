package main

import (
	"log"

	"github.com/joho/godotenv"

	"datastory/internal/api"
	"datastory/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	app := api.NewApp(cfg)
	log.Fatal(app.Start(":" + cfg.Server.Port))
}
