package handlers

import (
	"RedditSchedulerAPI/config"
	"RedditSchedulerAPI/database"
	"RedditSchedulerAPI/services"
)

type Handler struct {
	db          *database.Database
	dispatcher  *services.Dispatcher
	publisher   *services.PublisherService
	metrics     *services.MetricsService
	authService *services.AuthService
	cfg         *config.Config
}

func NewHandler(db *database.Database, dispatcher *services.Dispatcher, publisher *services.PublisherService, metrics *services.MetricsService, authService *services.AuthService, cfg *config.Config) *Handler {
	return &Handler{
		db:          db,
		dispatcher:  dispatcher,
		publisher:   publisher,
		metrics:     metrics,
		authService: authService,
		cfg:         cfg,
	}
}
