package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/domain"
)

// QuizHandler serves the on-site quiz flow. Every request resumes the
// visitor's saved session, applies one operation and returns the new state.
type QuizHandler struct {
	service  *app.QuizService
	log      logrus.FieldLogger
	validate *validator.Validate
}

func NewQuizHandler(service *app.QuizService, log logrus.FieldLogger) *QuizHandler {
	return &QuizHandler{service: service, log: log, validate: validator.New()}
}

func (h *QuizHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.Catalog(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, map[string]any{"quizzes": quizzes})
}

func (h *QuizHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.Quiz(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, newQuizView(quiz))
}

func (h *QuizHandler) Begin(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Begin(r.Context(), VisitorID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, newSessionView(session))
}

type answerRequest struct {
	QuestionID string             `json:"questionId" validate:"required"`
	Answer     domain.AnswerValue `json:"answer"`
}

type answerResponse struct {
	Session   sessionView    `json:"session"`
	Completed bool           `json:"completed"`
	Result    *domain.Result `json:"result,omitempty"`
}

func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid answer payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.log, &domain.ValidationError{Field: "questionId", Reason: "questionId is required", Err: err})
		return
	}

	session, err := h.service.Begin(r.Context(), VisitorID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	step, err := h.service.Answer(r.Context(), session, req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, answerResponse{Session: newSessionView(session), Completed: step.Completed, Result: step.Result})
}

func (h *QuizHandler) Back(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Begin(r.Context(), VisitorID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.Back(r.Context(), session); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, newSessionView(session))
}

func (h *QuizHandler) Complete(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Begin(r.Context(), VisitorID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	result, err := h.service.Finish(r.Context(), session)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *QuizHandler) Result(w http.ResponseWriter, r *http.Request) {
	completed, err := h.service.Result(r.Context(), VisitorID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, completed)
}

func (h *QuizHandler) Retake(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Retake(r.Context(), VisitorID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, newSessionView(session))
}

type emailRequest struct {
	Email  string `json:"email"`
	QuizID string `json:"quizId" validate:"required"`
}

func (h *QuizHandler) EmailResults(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		badRequest(w, r, "missing required field: quizId")
		return
	}
	if err := h.service.EmailResult(r.Context(), VisitorID(r.Context()), req.QuizID, req.Email); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	render.JSON(w, r, map[string]bool{"success": true})
}
