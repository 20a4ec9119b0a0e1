package main

import (
	"net/http"

	"onethy/config"
	"onethy/internal/adapters/evolution"
	"onethy/internal/db"
	"onethy/internal/events"
	"onethy/internal/handlers"
	"onethy/internal/models"
	"onethy/internal/services"
	"onethy/pkg/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	logger.InitLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	err = db.Migrate(conn,
		&models.Tenant{}, &models.Agent{}, &models.Team{}, &models.TeamMember{},
		&models.Channel{}, &models.Contact{}, &models.Conversation{},
		&models.Message{}, &models.Macro{}, &models.Note{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	gateway, err := evolution.NewClient(cfg.EvolutionBaseURL, cfg.EvolutionAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Evolution API client")
	}

	publisher := events.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
	defer publisher.Close()

	contacts, err := services.NewContactResolver(conn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ContactResolver")
	}
	router, err := services.NewConversationRouter(conn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ConversationRouter")
	}
	ledger, err := services.NewMessageLedger(conn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MessageLedger")
	}
	channels, err := services.NewChannelManager(conn, gateway, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ChannelManager")
	}

	server := handlers.NewServer(conn, gateway, contacts, router, ledger, channels, publisher)

	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := http.ListenAndServe(":"+cfg.Port, server.Routes()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
