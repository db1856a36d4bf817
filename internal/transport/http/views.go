package http

import (
	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/domain"
)

// optionView omits the scoring payload so clients never see which answers
// score or end the quiz.
type optionView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

type questionView struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	Description string       `json:"description,omitempty"`
	Kind        string       `json:"kind"`
	Required    bool         `json:"required"`
	Placeholder string       `json:"placeholder,omitempty"`
	Options     []optionView `json:"options,omitempty"`
}

func newQuestionView(q domain.Question) questionView {
	v := questionView{
		ID:          q.ID,
		Prompt:      q.Prompt,
		Description: q.Description,
		Kind:        string(q.Kind),
		Required:    q.Required,
		Placeholder: q.Placeholder,
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, optionView{ID: o.ID, Label: o.Label, Value: o.Value})
	}
	return v
}

type quizView struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Duration    int             `json:"duration"`
	Featured    bool            `json:"featured"`
	Questions   []questionView  `json:"questions"`
	Metadata    domain.Metadata `json:"metadata"`
}

func newQuizView(q domain.Quiz) quizView {
	v := quizView{
		ID:          q.ID,
		Slug:        q.Slug,
		Title:       q.Title,
		Description: q.Description,
		Icon:        q.Icon,
		Duration:    q.Duration,
		Featured:    q.Featured,
		Metadata:    q.Metadata,
		Questions:   make([]questionView, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		v.Questions = append(v.Questions, newQuestionView(question))
	}
	return v
}

type sessionView struct {
	QuizID               string          `json:"quizId"`
	QuizSlug             string          `json:"quizSlug"`
	State                app.State       `json:"state"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	TotalQuestions       int             `json:"totalQuestions"`
	Question             *questionView   `json:"question,omitempty"`
	Answers              []domain.Answer `json:"answers"`
	Result               *domain.Result  `json:"result,omitempty"`
}

func newSessionView(s *app.Session) sessionView {
	quiz := s.Quiz()
	v := sessionView{
		QuizID:               quiz.ID,
		QuizSlug:             quiz.Slug,
		State:                s.State(),
		CurrentQuestionIndex: s.CurrentIndex(),
		TotalQuestions:       len(quiz.Questions),
		Answers:              s.Answers(),
	}
	if q, ok := s.CurrentQuestion(); ok {
		qv := newQuestionView(q)
		v.Question = &qv
	}
	if r, ok := s.Result(); ok {
		v.Result = &r
	}
	return v
}
