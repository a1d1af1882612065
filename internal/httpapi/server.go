// Package httpapi exposes the services as a JSON API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskboard/internal/service"
)

// Server routes HTTP requests to the services.
type Server struct {
	auth       *service.AuthService
	tasks      *service.TaskService
	checklists *service.ChecklistService
}

func NewServer(auth *service.AuthService, tasks *service.TaskService, checklists *service.ChecklistService) *Server {
	return &Server{auth: auth, tasks: tasks, checklists: checklists}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", s.handleSignUp)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
			r.Put("/me/telegram", s.handleLinkTelegram)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleCreateTask)
				r.Get("/dates", s.handleListDates)
				r.Get("/date/{date}", s.handleListByDate)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTask)
					r.Put("/", s.handleUpdateTask)
					r.Delete("/", s.handleDeleteTask)
					r.Post("/completion-request", s.handleRequestCompletion)
					r.Get("/checklist", s.handleListChecklist)
					r.Post("/checklist", s.handleAddChecklistItem)
				})
			})

			r.Route("/checklist/{id}", func(r chi.Router) {
				r.Put("/", s.handleUpdateChecklistItem)
				r.Delete("/", s.handleDeleteChecklistItem)
			})

			r.Route("/completion-requests", func(r chi.Router) {
				r.Get("/", s.handleListCompletionRequests)
				r.Post("/{id}/approve", s.resolveCompletion(true))
				r.Post("/{id}/reject", s.resolveCompletion(false))
			})

			r.Route("/account-requests", func(r chi.Router) {
				r.Get("/", s.handleListAccountRequests)
				r.Post("/{id}/approve", s.resolveAccount(true))
				r.Post("/{id}/reject", s.resolveAccount(false))
			})
		})
	})

	return r
}
