// Package router wires handlers and middleware into the HTTP route table.
package router

import (
	"net/http"

	"pickmate-backend/internal/handlers"
	"pickmate-backend/internal/identity"
	"pickmate-backend/internal/middleware"
	"pickmate-backend/internal/services"
	"pickmate-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the services the routes are served by
type Deps struct {
	Users          *services.UserService
	Pairing        *services.PairingService
	Decisions      *services.DecisionService
	Ratings        *services.RatingService
	Results        *services.ResultsService
	Images         *services.ImageService
	Hub            *services.WSHub
	Resolver       *identity.Resolver
	HealthChecks   map[string]handlers.HealthCheck
	// AllowedOrigins are the web origins that may send the voter cookie
	AllowedOrigins []string
}

// New builds the router
func New(d Deps) http.Handler {
	v := validation.New()

	userHandler := handlers.NewUserHandler(d.Users, v)
	coupleHandler := handlers.NewCoupleHandler(d.Pairing, v)
	decisionHandler := handlers.NewDecisionHandler(d.Decisions, d.Ratings, d.Results, v)
	voteHandler := handlers.NewVoteHandler(d.Decisions, d.Ratings, d.Results, v)
	imageHandler := handlers.NewImageHandler(d.Images, v)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.Users, d.Pairing, d.Results)
	healthHandler := handlers.NewHealthHandler(d.HealthChecks)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsHandler(d.AllowedOrigins))

	r.Get("/healthz", healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.Users))

			r.Get("/users/me", userHandler.GetMe)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)

			r.Get("/couple", coupleHandler.GetCouple)
			r.Post("/couple", coupleHandler.CreateCouple)
			r.Delete("/couple", coupleHandler.LeaveCouple)
			r.Post("/couple/join", coupleHandler.JoinCouple)

			r.Get("/decisions", decisionHandler.List)
			r.Post("/decisions", decisionHandler.Create)
			r.Route("/decisions/{decision_id}", func(r chi.Router) {
				r.Get("/", decisionHandler.Get)
				r.Delete("/", decisionHandler.Delete)
				r.Patch("/status", decisionHandler.UpdateStatus)
				r.Get("/results", decisionHandler.Results)
				r.Post("/options", decisionHandler.AddOption)
				r.Post("/options/image-upload", imageHandler.UploadURL)
				r.Delete("/options/{option_id}", decisionHandler.RemoveOption)
				r.Put("/options/{option_id}/rating", decisionHandler.Rate)
			})
		})
	})

	// Public voting link
	r.Route("/vote/{decision_id}", func(r chi.Router) {
		r.Use(middleware.VoterIdentity(d.Resolver))
		r.Get("/", voteHandler.GetBallot)
		r.Get("/options/{option_id}", voteHandler.GetRating)
		r.Put("/options/{option_id}", voteHandler.Rate)
		r.Post("/done", voteHandler.MarkDone)
		r.Get("/done", voteHandler.GetDone)
	})

	// WebSocket routes
	r.Get("/ws", wsHandler.HandleWebSocket)
	r.Get("/ws/decisions/{decision_id}", wsHandler.HandleDecisionFeed)

	return r
}

// corsHandler lets the listed origins make credentialed requests, which the
// voter cookie needs. cors treats an empty list as "any origin", so that case
// is closed explicitly.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", identity.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}
