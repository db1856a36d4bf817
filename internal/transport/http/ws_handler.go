package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/widget"
)

var errConnClosed = errors.New("connection closed")

// WSHandler runs an embedded quiz over a WebSocket. The server owns the
// session; the page receives the same quiz-widget-* messages a widget posts
// to its host frame, plus the question to render next.
type WSHandler struct {
	service   *app.QuizService
	analytics widget.Sink
	log       logrus.FieldLogger
	validate  *validator.Validate
	upgrader  websocket.Upgrader
}

// NewWSHandler builds the handler. analytics may be nil.
func NewWSHandler(service *app.QuizService, analytics widget.Sink, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service:   service,
		analytics: analytics,
		log:       log,
		validate:  validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Widgets are embedded on partner domains.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string             `json:"questionId"`
	Answer     domain.AnswerValue `json:"answer"`
}

type resizePayload struct {
	Height int `json:"height"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type questionPayload struct {
	Index    int          `json:"index"`
	Total    int          `json:"total"`
	Question questionView `json:"question"`
}

type errorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ServeWS expects ?quiz=<id or slug> and optionally partnerId, callbackUrl
// and visitorId. A visitor who already finished the quiz gets the cached
// result and must send retake to play again.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("quiz")
	if ref == "" {
		http.Error(w, "missing quiz", http.StatusBadRequest)
		return
	}
	owner := q.Get("visitorId")
	if owner == "" {
		owner = VisitorID(r.Context())
	}
	partner := app.Partner{ID: q.Get("partnerId"), CallbackURL: q.Get("callbackUrl")}
	if err := h.validate.Var(partner.CallbackURL, "omitempty,http_url"); err != nil {
		badRequest(w, r, "invalid callbackUrl")
		return
	}
	log := h.log.WithFields(logrus.Fields{"quiz": ref, "owner": owner, "partner_id": partner.ID})

	ctx := r.Context()

	session, err := h.service.Begin(ctx, owner, ref)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	session.AttachPartner(partner)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan any, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	push := func(msg any) error {
		select {
		case send <- msg:
			return nil
		case <-closeSignals:
			return errConnClosed
		case <-writerDone:
			return errConnClosed
		}
	}
	sinks := []widget.Sink{widget.SinkFunc(func(_ context.Context, m widget.Message) error { return push(m) })}
	if h.analytics != nil {
		sinks = append(sinks, h.analytics)
	}
	quiz := session.Quiz()
	emitter := widget.NewEmitter(quiz, partner.ID, log, sinks...)

	sendQuestion := func() {
		if question, ok := session.CurrentQuestion(); ok {
			_ = push(outboundMessage[questionPayload]{Type: "question", Payload: questionPayload{
				Index:    session.CurrentIndex(),
				Total:    len(quiz.Questions),
				Question: newQuestionView(question),
			}})
		}
	}
	sendError := func(err error) {
		payload := errorPayload{Message: publicMessage(err, statusFor(err))}
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			payload.Field = validation.Field
		}
		_ = push(outboundMessage[errorPayload]{Type: "error", Payload: payload})
	}
	completed := func() {
		if c, ok := session.Completed(); ok {
			emitter.Completed(ctx, c)
		}
	}
	start := func() {
		if result, ok := session.Result(); ok {
			_ = push(outboundMessage[domain.Result]{Type: "result", Payload: result})
			return
		}
		emitter.Started(ctx, quiz.Title, len(quiz.Questions))
		sendQuestion()
	}

	start()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError(&domain.ValidationError{Field: "payload", Reason: "invalid answer payload", Err: err})
				continue
			}
			number := session.CurrentIndex() + 1
			step, err := h.service.Answer(ctx, session, payload.QuestionID, payload.Answer)
			if err != nil {
				sendError(err)
				continue
			}
			emitter.Answered(ctx, payload.QuestionID, number, payload.Answer)
			if step.Completed {
				completed()
				continue
			}
			sendQuestion()
		case "back":
			before := session.CurrentIndex()
			if err := h.service.Back(ctx, session); err != nil {
				sendError(err)
				continue
			}
			if session.CurrentIndex() != before {
				emitter.Back(ctx, session.CurrentIndex()+1)
			}
			sendQuestion()
		case "complete":
			if _, err := h.service.Finish(ctx, session); err != nil {
				sendError(err)
				continue
			}
			completed()
		case "retake":
			fresh, err := h.service.Retake(ctx, owner, quiz.ID)
			if err != nil {
				sendError(err)
				continue
			}
			fresh.AttachPartner(partner)
			session = fresh
			start()
		case "resize":
			var payload resizePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Height <= 0 {
				sendError(&domain.ValidationError{Field: "height", Reason: "invalid resize payload"})
				continue
			}
			emitter.Resize(ctx, payload.Height)
		default:
			sendError(&domain.ValidationError{Field: "type", Reason: "unsupported message type"})
		}
	}

	close(closeSignals)
	close(send)
	<-writerDone
}
