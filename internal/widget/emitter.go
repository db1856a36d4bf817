// Package widget produces the notifications an embedded quiz sends to the
// page hosting it.
package widget

import (
	"context"

	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/domain"
)

// Kind is the suffix of a widget message type.
type Kind string

const (
	KindStarted   Kind = "started"
	KindAnswer    Kind = "answer"
	KindBack      Kind = "back"
	KindCompleted Kind = "completed"
	KindResize    Kind = "resize"
)

const typePrefix = "quiz-widget-"

// Message is the wire form of a widget notification. Type is
// "quiz-widget-" followed by the Kind.
type Message struct {
	Type      string `json:"type"`
	QuizID    string `json:"quizId"`
	QuizSlug  string `json:"quizSlug,omitempty"`
	PartnerID string `json:"partnerId,omitempty"`

	Title          string              `json:"title,omitempty"`
	TotalQuestions int                 `json:"totalQuestions,omitempty"`
	QuestionID     string              `json:"questionId,omitempty"`
	QuestionNumber int                 `json:"questionNumber,omitempty"`
	Answer         *domain.AnswerValue `json:"answer,omitempty"`
	Result         *domain.Result      `json:"result,omitempty"`
	Duration       int                 `json:"duration,omitempty"`
	AnswersCount   int                 `json:"answersCount,omitempty"`
	Height         int                 `json:"height,omitempty"`
}

// Kind returns the message kind, or "" when Type is not a widget type.
func (m Message) Kind() Kind {
	if len(m.Type) <= len(typePrefix) || m.Type[:len(typePrefix)] != typePrefix {
		return ""
	}
	return Kind(m.Type[len(typePrefix):])
}

// Sink receives widget messages.
type Sink interface {
	Deliver(ctx context.Context, m Message) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, m Message) error

func (f SinkFunc) Deliver(ctx context.Context, m Message) error { return f(ctx, m) }

// Emitter sends widget messages for one embedded quiz. Delivery is best
// effort: sink failures are logged and never returned.
type Emitter struct {
	quizID    string
	quizSlug  string
	partnerID string
	sinks     []Sink
	log       logrus.FieldLogger
}

func NewEmitter(quiz domain.Quiz, partnerID string, log logrus.FieldLogger, sinks ...Sink) *Emitter {
	return &Emitter{
		quizID:    quiz.ID,
		quizSlug:  quiz.Slug,
		partnerID: partnerID,
		sinks:     sinks,
		log:       log,
	}
}

func (e *Emitter) Started(ctx context.Context, title string, totalQuestions int) {
	e.emit(ctx, KindStarted, Message{Title: title, TotalQuestions: totalQuestions})
}

// Answered reports an answer; number is the 1-based position of the question.
func (e *Emitter) Answered(ctx context.Context, questionID string, number int, answer domain.AnswerValue) {
	e.emit(ctx, KindAnswer, Message{QuestionID: questionID, QuestionNumber: number, Answer: &answer})
}

// Back reports a step back; number is the 1-based position now shown.
func (e *Emitter) Back(ctx context.Context, number int) {
	e.emit(ctx, KindBack, Message{QuestionNumber: number})
}

func (e *Emitter) Completed(ctx context.Context, completed domain.CompletedQuiz) {
	result := completed.Result
	e.emit(ctx, KindCompleted, Message{
		Result:       &result,
		Duration:     completed.Duration,
		AnswersCount: len(completed.Answers),
	})
}

// Resize reports the rendered height of the widget in pixels.
func (e *Emitter) Resize(ctx context.Context, height int) {
	e.emit(ctx, KindResize, Message{Height: height})
}

func (e *Emitter) emit(ctx context.Context, kind Kind, m Message) {
	m.Type = typePrefix + string(kind)
	m.QuizID = e.quizID
	m.QuizSlug = e.quizSlug
	m.PartnerID = e.partnerID
	for _, sink := range e.sinks {
		if err := sink.Deliver(ctx, m); err != nil {
			e.log.WithFields(logrus.Fields{"quiz_id": e.quizID, "type": m.Type}).WithError(err).Warn("widget message not delivered")
		}
	}
}
