package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/domain"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Retake  string `json:"retake,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		state      *domain.InvalidStateError
		definition *domain.DefinitionError
		delivery   *domain.DeliveryError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &state):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound
	case errors.As(err, &definition):
		return http.StatusInternalServerError
	case errors.As(err, &delivery):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// publicMessage hides internal failures from clients.
func publicMessage(err error, status int) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusBadGateway:
		return "delivery failed, please try again later"
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return validation.Reason
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	entry := log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	resp := errorResponse{Error: publicMessage(err, status)}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		resp.Field = validation.Field
	}
	if ref := chi.URLParam(r, "ref"); ref != "" && errors.Is(err, domain.ErrSessionComplete) {
		resp.Retake = "DELETE /api/quizzes/" + ref + "/result"
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: msg})
}
