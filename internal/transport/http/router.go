// Package http exposes the quiz service over REST and WebSocket.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/widget"
)

// RouterConfig carries the collaborators of the HTTP surface.
type RouterConfig struct {
	Service *app.QuizService
	Tracker Tracker
	// Analytics receives widget messages from WebSocket sessions. Optional.
	Analytics widget.Sink
	// BaseURL is the public origin used in embed URLs and snippets.
	BaseURL string
	Log     logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) http.Handler {
	quizzes := NewQuizHandler(cfg.Service, cfg.Log)
	widgets := NewWidgetHandler(cfg.Service, cfg.Tracker, cfg.BaseURL, cfg.Log)
	ws := NewWSHandler(cfg.Service, cfg.Analytics, cfg.Log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(cfg.Log), middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(withVisitor)

		r.Route("/api", func(r chi.Router) {
			r.Get("/quizzes", quizzes.Catalog)
			r.Route("/quizzes/{ref}", func(r chi.Router) {
				r.Get("/", quizzes.Quiz)
				r.Post("/session", quizzes.Begin)
				r.Post("/answers", quizzes.Answer)
				r.Post("/back", quizzes.Back)
				r.Post("/complete", quizzes.Complete)
				r.Get("/result", quizzes.Result)
				r.Delete("/result", quizzes.Retake)
			})
			r.Post("/quiz/email-results", quizzes.EmailResults)

			r.Get("/widget/quizzes", widgets.List)
			r.Get("/widget/quizzes/{slug}", widgets.Get)
			r.Post("/widget/track", widgets.Track)
			r.Post("/lead-tracking", widgets.Lead)
		})

		r.Get("/ws/widget", ws.ServeWS)
	})
	return r
}
