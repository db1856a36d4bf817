package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/events"
)

const defaultPrimaryColor = "1a73e8"

// Tracker records analytics hits sent by partner pages and lead actions.
type Tracker interface {
	Track(ctx context.Context, event events.TrackEvent) error
	Lead(ctx context.Context, event events.LeadEvent) error
}

// WidgetHandler serves the partner-facing embed API.
type WidgetHandler struct {
	service  *app.QuizService
	tracker  Tracker
	baseURL  string
	log      logrus.FieldLogger
	validate *validator.Validate
}

func NewWidgetHandler(service *app.QuizService, tracker Tracker, baseURL string, log logrus.FieldLogger) *WidgetHandler {
	return &WidgetHandler{
		service:  service,
		tracker:  tracker,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
		validate: validator.New(),
	}
}

type embedQuiz struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Duration      int    `json:"duration"`
	QuestionCount int    `json:"questionCount"`
	Featured      bool   `json:"featured"`
	EmbedURL      string `json:"embedUrl"`
	EmbedCode     string `json:"embedCode,omitempty"`
}

func (h *WidgetHandler) embed(s domain.QuizSummary) embedQuiz {
	return embedQuiz{
		ID:            s.ID,
		Slug:          s.Slug,
		Title:         s.Title,
		Description:   s.Description,
		Duration:      s.Duration,
		QuestionCount: s.QuestionCount,
		Featured:      s.Featured,
		EmbedURL:      h.baseURL + "/widget/quiz/" + s.Slug,
	}
}

// EmbedCode returns the snippet a partner pastes into their page.
func (h *WidgetHandler) EmbedCode(slug, partnerID, primaryColor string) string {
	if partnerID == "" {
		partnerID = "YOUR_PARTNER_ID"
	}
	if primaryColor == "" {
		primaryColor = defaultPrimaryColor
	}
	return fmt.Sprintf(`<!-- Windshield Advisor Quiz Widget -->
<div class="windshield-advisor-quiz"
     data-quiz="%s"
     data-primary-color="%s"
     data-partner-id="%s"></div>
<script src="%s/quiz-embed.js"></script>`, slug, strings.TrimPrefix(primaryColor, "#"), partnerID, h.baseURL)
}

func (h *WidgetHandler) List(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Catalog(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	quizzes := make([]embedQuiz, 0, len(catalog))
	for _, s := range catalog {
		quizzes = append(quizzes, h.embed(s))
	}

	var partnerID *string
	if p := r.URL.Query().Get("partnerId"); p != "" {
		partnerID = &p
	}
	render.JSON(w, r, map[string]any{
		"success":   true,
		"quizzes":   quizzes,
		"partnerId": partnerID,
	})
}

func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.Quiz(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, domain.ErrQuizNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: "Quiz not found"})
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	view := h.embed(quiz.Summary())
	view.EmbedCode = h.EmbedCode(quiz.Slug, q.Get("partnerId"), q.Get("primaryColor"))
	render.JSON(w, r, map[string]any{"success": true, "quiz": view})
}

func (h *WidgetHandler) Track(w http.ResponseWriter, r *http.Request) {
	var event events.TrackEvent
	if err := render.DecodeJSON(r.Body, &event); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(event); err != nil {
		badRequest(w, r, "Missing required fields")
		return
	}
	if err := h.tracker.Track(r.Context(), event); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, map[string]bool{"success": true, "tracked": true})
}

func (h *WidgetHandler) Lead(w http.ResponseWriter, r *http.Request) {
	var event events.LeadEvent
	if err := render.DecodeJSON(r.Body, &event); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if err := h.tracker.Lead(r.Context(), event); err != nil {
		// Failures are logged only; the visitor still gets success.
		h.log.WithError(err).WithField("quiz_id", event.QuizID).Warn("lead tracking failed")
	}
	render.JSON(w, r, map[string]bool{"success": true})
}
