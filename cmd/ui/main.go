package main

import (
	"log"

	"github.com/joho/godotenv"

	"datastory/adapters/echarts"
	"datastory/adapters/fileload"
	"datastory/adapters/postgres"
	"datastory/internal/chartspec"
	"datastory/internal/cleaning"
	"datastory/internal/config"
	"datastory/internal/filter"
	"datastory/internal/insight"
	"datastory/internal/qa"
	"datastory/internal/session"
	"datastory/ports"
	"datastory/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	var history ports.UploadRepository
	if cfg.HistoryEnabled() {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()
		history = postgres.NewUploadRepository(db)
	}

	server := ui.NewServer(cfg,
		fileload.NewLoader(),
		session.NewStore(cleaning.NewCleaner()),
		filter.NewEngine(),
		chartspec.NewResolver(),
		insight.NewGenerator(),
		qa.NewResponder(),
		echarts.NewRenderer(),
		history,
	)

	log.Printf("Starting datastory UI on http://localhost:%s", cfg.Server.Port)
	log.Fatal(server.Start(":" + cfg.Server.Port))
}
