package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pierosc/japan-itinerary/internal/api/trip"
)

// Config contains dependencies needed for the router setup
type Config struct {
	TripHandler            *trip.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint, public.
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/places/search", cfg.TripHandler.SearchPlaces)

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", cfg.TripHandler.ListTrips)

				r.Route("/{tripID}", func(r chi.Router) {
					r.Delete("/", cfg.TripHandler.DeleteTrip)

					// Persistence & snapshots
					r.Post("/save", cfg.TripHandler.SaveTrip)
					r.Post("/load", cfg.TripHandler.LoadTrip)
					r.Get("/export", cfg.TripHandler.ExportTrip)
					r.Post("/import", cfg.TripHandler.ImportTrip)
					r.Post("/share", cfg.TripHandler.ShareTrip)
					r.Delete("/share/{userID}", cfg.TripHandler.UnshareTrip)

					// Days
					r.Post("/days", cfg.TripHandler.AddDay)
					r.Put("/days/selected", cfg.TripHandler.SelectDay)
					r.Delete("/days/{day}", cfg.TripHandler.RemoveDay)
					r.Get("/days/{day}/places", cfg.TripHandler.PlacesForDay)
					r.Put("/days/{day}/order", cfg.TripHandler.ReorderDay)
					r.Get("/days/{day}/legs", cfg.TripHandler.LegsForDay)

					// Places
					r.Post("/places", cfg.TripHandler.AddPlace)
					r.Get("/places/unassigned", cfg.TripHandler.UnassignedPlaces)
					r.Patch("/places/{placeID}", cfg.TripHandler.UpdatePlace)
					r.Delete("/places/{placeID}", cfg.TripHandler.RemovePlace)
					r.Put("/places/{placeID}/day", cfg.TripHandler.AssignPlaceToDay)
					r.Put("/selection", cfg.TripHandler.SelectPlace)

					// Legs
					r.Post("/legs", cfg.TripHandler.AddLeg)
					r.Patch("/legs/{legID}", cfg.TripHandler.UpdateLeg)
					r.Delete("/legs/{legID}", cfg.TripHandler.RemoveLeg)

					// Spend
					r.Get("/totals", cfg.TripHandler.Totals)
					r.Put("/currency", cfg.TripHandler.SetCurrency)

					// UI preferences & reset
					r.Get("/prefs", cfg.TripHandler.Prefs)
					r.Patch("/prefs", cfg.TripHandler.UpdatePrefs)
					r.Post("/clear", cfg.TripHandler.ClearTrip)
				})
			})
		})
	})

	return r
}
