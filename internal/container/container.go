package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/pierosc/japan-itinerary/app/db"
	"github.com/pierosc/japan-itinerary/config"
	"github.com/pierosc/japan-itinerary/internal/api/geocoding"
	"github.com/pierosc/japan-itinerary/internal/api/routing"
	"github.com/pierosc/japan-itinerary/internal/api/trip"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	TripHandler *trip.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	// Collaborator clients
	directions := routing.NewClient(cfg.Collaborators.Routing.BaseURL, logger)
	geocoder := geocoding.NewClient(cfg.Collaborators.Geocoding.BaseURL, logger)

	// Trip stack
	tripRepo := trip.NewPostgresTripRepo(pool, logger)
	tripService := trip.NewServiceImpl(tripRepo, directions, geocoder, logger)
	tripHandler := trip.NewHandler(tripService, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		TripHandler: tripHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
