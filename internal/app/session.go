package app

import (
	"fmt"
	"sync"
	"time"

	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/scoring"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

// Partner identifies the embedding partner of a widget session.
type Partner struct {
	ID          string
	CallbackURL string
}

// Session is one visitor's pass through a quiz. It is driven sequentially by
// a single visitor; the mutex only guards against a transport reading state
// while a mutation is in flight.
type Session struct {
	owner string
	quiz  domain.Quiz
	now   func() time.Time

	mu          sync.Mutex
	state       State
	answers     []domain.Answer
	index       int
	startedAt   time.Time
	updatedAt   time.Time
	completedAt time.Time
	result      *domain.Result
	partner     Partner
}

// NewSession starts a fresh, not_started session.
func NewSession(owner string, quiz domain.Quiz) *Session {
	return newSessionWithClock(owner, quiz, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(owner string, quiz domain.Quiz, now func() time.Time) *Session {
	return newSessionWithClock(owner, quiz, now)
}

func newSessionWithClock(owner string, quiz domain.Quiz, now func() time.Time) *Session {
	started := now()
	return &Session{
		owner:     owner,
		quiz:      quiz,
		now:       now,
		state:     StateNotStarted,
		startedAt: started,
		updatedAt: started,
	}
}

// ResumeSession rebuilds an in-progress session from persisted state. State
// that does not fit the quiz is rejected so the caller can start fresh.
func ResumeSession(owner string, quiz domain.Quiz, saved domain.SavedSession, now func() time.Time) (*Session, error) {
	if saved.QuizID != quiz.ID {
		return nil, fmt.Errorf("saved session belongs to quiz %q", saved.QuizID)
	}
	if saved.CurrentQuestionIndex < 0 || saved.CurrentQuestionIndex >= len(quiz.Questions) {
		return nil, fmt.Errorf("question index %d out of range", saved.CurrentQuestionIndex)
	}
	last := -1
	for _, a := range saved.Answers {
		i := quiz.QuestionIndex(a.QuestionID)
		switch {
		case i < 0:
			return nil, fmt.Errorf("answer for unknown question %q", a.QuestionID)
		case i <= last:
			return nil, fmt.Errorf("answer for question %q out of order", a.QuestionID)
		case i > saved.CurrentQuestionIndex:
			return nil, fmt.Errorf("answer for question %q ahead of current question", a.QuestionID)
		}
		last = i
	}

	s := newSessionWithClock(owner, quiz, now)
	s.answers = append([]domain.Answer(nil), saved.Answers...)
	s.index = saved.CurrentQuestionIndex
	if !saved.StartedAt.IsZero() {
		s.startedAt = saved.StartedAt
	}
	s.updatedAt = saved.UpdatedAt
	if len(s.answers) > 0 || s.index > 0 {
		s.state = StateInProgress
	}
	return s, nil
}

// RestoreCompleted rebuilds a finished session from its cached record. Every
// mutation on it fails until the result is discarded by a retake.
func RestoreCompleted(owner string, quiz domain.Quiz, completed domain.CompletedQuiz, now func() time.Time) *Session {
	s := newSessionWithClock(owner, quiz, now)
	result := completed.Result
	s.answers = append([]domain.Answer(nil), completed.Answers...)
	s.index = len(quiz.Questions) - 1
	s.result = &result
	s.state = StateComplete
	s.completedAt = completed.CompletedAt
	s.startedAt = completed.CompletedAt.Add(-time.Duration(completed.Duration) * time.Second)
	s.updatedAt = completed.CompletedAt
	return s
}

func (s *Session) Owner() string     { return s.owner }
func (s *Session) Quiz() domain.Quiz { return s.quiz }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentIndex returns the zero-based index of the question being presented.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// CurrentQuestion returns the question being presented, or false once complete.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return domain.Question{}, false
	}
	return s.quiz.Questions[s.index], true
}

// Answers returns a copy of the recorded answers in question order.
func (s *Session) Answers() []domain.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Answer(nil), s.answers...)
}

// Result returns the scored result once the session is complete.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

func (s *Session) Partner() Partner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partner
}

// AttachPartner marks the session as running inside a partner's widget.
func (s *Session) AttachPartner(p Partner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partner = p
}

// Record stores the answer for the current question, replacing any earlier
// answer to it. An empty value on an optional question records a skip.
func (s *Session) Record(questionID string, value domain.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete {
		return &domain.InvalidStateError{Op: "record", State: string(s.state), Err: domain.ErrSessionComplete}
	}
	q := s.quiz.Questions[s.index]
	if q.ID != questionID {
		return &domain.InvalidStateError{
			Op:    "record",
			State: string(s.state),
			Err:   fmt.Errorf("%w: %q is not the current question %q", domain.ErrQuestionNotFound, questionID, q.ID),
		}
	}

	if value.IsEmpty() {
		if q.Required {
			return &domain.ValidationError{Field: q.ID, Reason: domain.ErrAnswerRequired.Error(), Err: domain.ErrAnswerRequired}
		}
		s.removeLocked(q.ID)
		s.touchLocked()
		return nil
	}
	if q.Kind != domain.KindMultiChoice && len(value.Values()) > 1 {
		return &domain.ValidationError{Field: q.ID, Reason: "expects a single answer"}
	}

	answer := domain.Answer{QuestionID: q.ID, Value: value, AnsweredAt: s.now()}
	if i := s.answerIndexLocked(q.ID); i >= 0 {
		s.answers[i] = answer
	} else {
		s.answers = append(s.answers, answer)
	}
	s.touchLocked()
	return nil
}

// Advance moves past the current question. It reports true when the session
// completed instead, either on the last question or because the chosen
// option ends the quiz early.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete {
		return false, &domain.InvalidStateError{Op: "advance", State: string(s.state), Err: domain.ErrSessionComplete}
	}
	q := s.quiz.Questions[s.index]
	i := s.answerIndexLocked(q.ID)
	if q.Required && i < 0 {
		return false, &domain.ValidationError{Field: q.ID, Reason: domain.ErrAnswerRequired.Error(), Err: domain.ErrAnswerRequired}
	}

	if _, ok := s.quiz.Scoring.(domain.ConditionalScoring); ok && i >= 0 {
		for _, opt := range q.Match(s.answers[i].Value) {
			if p, ok := opt.Payload.(domain.ConditionalOption); ok && p.EndsQuiz {
				s.completeLocked(p.Result)
				return true, nil
			}
		}
	}
	if s.index == len(s.quiz.Questions)-1 {
		s.completeLocked("")
		return true, nil
	}
	s.index++
	s.touchLocked()
	return false, nil
}

// Submit records the answer and advances in one step.
func (s *Session) Submit(questionID string, value domain.AnswerValue) (bool, error) {
	if err := s.Record(questionID, value); err != nil {
		return false, err
	}
	return s.Advance()
}

// GoBack returns to the previous question, discarding its answer and any
// answer already recorded for the current question.
func (s *Session) GoBack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete {
		return &domain.InvalidStateError{Op: "back", State: string(s.state), Err: domain.ErrSessionComplete}
	}
	if s.index == 0 {
		return nil
	}
	s.removeLocked(s.quiz.Questions[s.index].ID)
	s.index--
	s.removeLocked(s.quiz.Questions[s.index].ID)
	s.touchLocked()
	return nil
}

// Finish force-completes the session and scores the answers recorded so far.
func (s *Session) Finish() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete {
		return domain.Result{}, &domain.InvalidStateError{Op: "finish", State: string(s.state), Err: domain.ErrSessionComplete}
	}
	s.completeLocked("")
	return *s.result, nil
}

// Snapshot returns the persistable form of an unfinished session.
func (s *Session) Snapshot() domain.SavedSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SavedSession{
		QuizID:               s.quiz.ID,
		Answers:              append([]domain.Answer(nil), s.answers...),
		CurrentQuestionIndex: s.index,
		StartedAt:            s.startedAt,
		UpdatedAt:            s.updatedAt,
	}
}

// Completed returns the record kept for the result view, once complete.
func (s *Session) Completed() (domain.CompletedQuiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.CompletedQuiz{}, false
	}
	return domain.CompletedQuiz{
		QuizID:      s.quiz.ID,
		QuizSlug:    s.quiz.Slug,
		Answers:     append([]domain.Answer(nil), s.answers...),
		Result:      *s.result,
		Duration:    int(s.completedAt.Sub(s.startedAt).Seconds()),
		CompletedAt: s.completedAt,
	}, true
}

// completeLocked scores the session. It runs once per session since every
// caller rejects an already complete session.
func (s *Session) completeLocked(resultKey string) {
	var result domain.Result
	if resultKey != "" {
		result = scoring.Resolve(s.quiz, resultKey)
	} else {
		result = scoring.Score(s.quiz, s.answers)
	}
	s.result = &result
	s.state = StateComplete
	s.completedAt = s.now()
	s.updatedAt = s.completedAt
}

func (s *Session) touchLocked() {
	if s.state == StateNotStarted {
		s.state = StateInProgress
	}
	s.updatedAt = s.now()
}

func (s *Session) answerIndexLocked(questionID string) int {
	for i := range s.answers {
		if s.answers[i].QuestionID == questionID {
			return i
		}
	}
	return -1
}

func (s *Session) removeLocked(questionID string) {
	if i := s.answerIndexLocked(questionID); i >= 0 {
		s.answers = append(s.answers[:i], s.answers[i+1:]...)
	}
}
