package app

import (
	"context"
	"time"

	"windshield-quiz-service/internal/domain"
)

// QuizRepository loads compiled quiz definitions by id or slug.
type QuizRepository interface {
	GetQuiz(ctx context.Context, ref string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// SessionStore persists in-progress sessions and completed results per visitor.
// Load reports false when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context, owner, quizID string) (domain.SavedSession, bool, error)
	Save(ctx context.Context, owner string, session domain.SavedSession) error
	Clear(ctx context.Context, owner, quizID string) error

	LoadResult(ctx context.Context, owner, quizID string) (domain.CompletedQuiz, bool, error)
	SaveResult(ctx context.Context, owner string, completed domain.CompletedQuiz) error
	ClearResult(ctx context.Context, owner, quizID string) error
}

// Mailer renders and sends a result summary to a visitor.
type Mailer interface {
	SendResult(ctx context.Context, to string, quiz domain.Quiz, completed domain.CompletedQuiz) error
}

// PartnerResult is the body posted to a partner's callback URL.
type PartnerResult struct {
	PartnerID  string               `json:"partnerId"`
	QuizResult domain.CompletedQuiz `json:"quizResult"`
}

// PartnerNotifier posts a completed result to a partner callback.
type PartnerNotifier interface {
	Notify(ctx context.Context, callbackURL string, payload PartnerResult) error
}

// EventKind names a lifecycle event published to analytics.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventAnswered  EventKind = "answer"
	EventBack      EventKind = "back"
	EventCompleted EventKind = "completed"
	EventRetake    EventKind = "retake"
)

// Event is a session lifecycle notification.
type Event struct {
	Kind           EventKind           `json:"kind"`
	Owner          string              `json:"owner"`
	QuizID         string              `json:"quizId"`
	QuizSlug       string              `json:"quizSlug"`
	PartnerID      string              `json:"partnerId,omitempty"`
	Title          string              `json:"title,omitempty"`
	TotalQuestions int                 `json:"totalQuestions,omitempty"`
	QuestionID     string              `json:"questionId,omitempty"`
	QuestionNumber int                 `json:"questionNumber,omitempty"`
	Answer         *domain.AnswerValue `json:"answer,omitempty"`
	Result         *domain.Result      `json:"result,omitempty"`
	Duration       int                 `json:"duration,omitempty"`
	AnswerCount    int                 `json:"answerCount,omitempty"`
	At             time.Time           `json:"at"`
}

// EventSink receives lifecycle events. Failures are logged and never affect
// the session.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
