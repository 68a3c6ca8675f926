// Package server exposes the storyboard pipeline over HTTP: one upload
// endpoint that runs a job synchronously and a health endpoint reporting
// stage readiness.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frameforge/frameforge/internal/jobs"
	"github.com/frameforge/frameforge/internal/pipeline"
)

// requestTimeout bounds a whole upload request. Long videos spend most of
// it in ffmpeg and whisper.
const requestTimeout = 30 * time.Minute

// App is the HTTP surface over a configured pipeline.
type App struct {
	router   *chi.Mux
	pipeline *pipeline.Pipeline
}

// NewApp wires the routes around the given pipeline.
func NewApp(p *pipeline.Pipeline) *App {
	app := &App{
		router:   chi.NewRouter(),
		pipeline: p,
	}
	app.registerRoutes()
	return app
}

// Router returns the handler to mount on an http.Server.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Timeout(requestTimeout))

	a.router.Post("/upload", a.upload)
	a.router.Get("/health", a.health)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	readiness := a.pipeline.Readiness()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"features": readiness,
	})
}

// errorBody is the JSON error envelope for fatal failures.
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind jobs.Kind, message string) {
	var body errorBody
	body.Error.Kind = string(kind)
	body.Error.Message = message
	writeJSON(w, status, body)
}
