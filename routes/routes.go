package routes

import (
	"github.com/beachcup/tournament-system/handlers"
	"github.com/beachcup/tournament-system/middleware"
	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes собирает все маршруты API. Просмотр турниров, таблиц и
// расписаний публичный, изменения доступны организаторам и администраторам.
func SetupRoutes(
	router *chi.Mux,
	allowedOrigins []string,
	authService services.AuthService,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	categoryHandler *handlers.CategoryHandler,
	teamHandler *handlers.TeamHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(authService)
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.GetByID)
		r.Get("/{tournamentID}/overview", tournamentHandler.Overview)
		r.Get("/{tournamentID}/categories", categoryHandler.ListByTournament)
		r.Get("/{tournamentID}/ws", webSocketHandler.Subscribe)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", tournamentHandler.Create)
			r.Put("/{tournamentID}", tournamentHandler.Update)
			r.Patch("/{tournamentID}/status", tournamentHandler.UpdateStatus)
			r.Post("/{tournamentID}/banner", tournamentHandler.UploadBanner)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)
			r.Post("/{tournamentID}/categories", categoryHandler.Create)
		})
	})

	router.Route("/categories/{categoryID}", func(r chi.Router) {
		r.Get("/", categoryHandler.GetByID)
		r.Get("/teams", teamHandler.ListByCategory)
		r.Get("/matches", matchHandler.ListByCategory)
		r.Get("/standings", matchHandler.Standings)
		r.Get("/qualification", matchHandler.PreviewQualification)
		r.Post("/teams", teamHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Delete("/", categoryHandler.Delete)
			r.Post("/generate-matches", matchHandler.GenerateGroupSchedule)
			r.Post("/generate-bracket", matchHandler.GenerateBracket)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/by-code/{accessCode}", teamHandler.GetByAccessCode)
		r.Get("/{teamID}", teamHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Patch("/{teamID}/status", teamHandler.UpdateStatus)
			r.Delete("/{teamID}", teamHandler.Delete)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Patch("/{matchID}/result", matchHandler.RecordResult)
		})
	})
}
