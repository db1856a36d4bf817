package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/domain"
)

var errMailerDisabled = errors.New("mailer not configured")

// partnerDeadline bounds a callback that outlives the request completing the quiz.
const partnerDeadline = 30 * time.Second

// QuizService contains the quiz session use cases.
type QuizService struct {
	quizzes  QuizRepository
	sessions SessionStore
	log      logrus.FieldLogger
	now      func() time.Time
	validate *validator.Validate

	mailer  Mailer
	partner PartnerNotifier
	sinks   []EventSink

	callbacks sync.WaitGroup
}

// ServiceOption configures optional collaborators of a QuizService.
type ServiceOption func(*QuizService)

func WithMailer(m Mailer) ServiceOption {
	return func(s *QuizService) { s.mailer = m }
}

func WithPartnerNotifier(n PartnerNotifier) ServiceOption {
	return func(s *QuizService) { s.partner = n }
}

func WithEventSink(sink EventSink) ServiceOption {
	return func(s *QuizService) { s.sinks = append(s.sinks, sink) }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(quizzes QuizRepository, sessions SessionStore, log logrus.FieldLogger, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		quizzes:  quizzes,
		sessions: sessions,
		log:      log,
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quiz returns a quiz definition by id or slug.
func (s *QuizService) Quiz(ctx context.Context, ref string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, ref)
}

// Catalog lists the available quizzes. Lower priority values come first.
func (s *QuizService) Catalog(ctx context.Context) ([]domain.QuizSummary, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, q.Summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Begin resumes the visitor's in-progress session for a quiz, or starts a
// fresh one. A cached result comes back as a complete session, which stays
// read-only until Retake. Unreadable persisted state is discarded.
func (s *QuizService) Begin(ctx context.Context, owner, ref string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, ref)
	if err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "owner": owner})

	saved, ok, err := s.sessions.Load(ctx, owner, quiz.ID)
	if err != nil {
		log.WithError(err).Warn("ignoring unreadable saved session")
		s.clear(ctx, owner, quiz.ID)
		ok = false
	}
	if ok {
		session, err := ResumeSession(owner, quiz, saved, s.now)
		if err == nil {
			log.WithField("question_index", session.CurrentIndex()).Debug("resumed session")
			return session, nil
		}
		log.WithError(err).Warn("ignoring saved session that does not fit the quiz")
		s.clear(ctx, owner, quiz.ID)
	}

	completed, ok, err := s.sessions.LoadResult(ctx, owner, quiz.ID)
	if err != nil {
		log.WithError(err).Warn("ignoring unreadable saved result")
	}
	if ok {
		log.Debug("restored completed session")
		return RestoreCompleted(owner, quiz, completed, s.now), nil
	}
	return newSessionWithClock(owner, quiz, s.now), nil
}

// Step is the outcome of answering a question.
type Step struct {
	Completed bool
	Result    *domain.Result
}

// Answer records an answer for the current question and advances. On
// completion the result is cached and published.
func (s *QuizService) Answer(ctx context.Context, session *Session, questionID string, value domain.AnswerValue) (Step, error) {
	quiz := session.Quiz()
	number := quiz.QuestionIndex(questionID) + 1
	fresh := session.State() == StateNotStarted
	done, err := session.Submit(questionID, value)
	if err != nil {
		return Step{}, err
	}
	if fresh {
		s.publish(ctx, session, Event{Kind: EventStarted, Title: quiz.Title, TotalQuestions: len(quiz.Questions)})
	}
	v := value
	s.publish(ctx, session, Event{Kind: EventAnswered, QuestionID: questionID, QuestionNumber: number, Answer: &v})

	if !done {
		s.persist(ctx, session)
		return Step{}, nil
	}
	result := s.commit(ctx, session)
	return Step{Completed: true, Result: &result}, nil
}

// Back returns the session to its previous question. On the first question
// nothing is saved or published.
func (s *QuizService) Back(ctx context.Context, session *Session) error {
	before := session.CurrentIndex()
	if err := session.GoBack(); err != nil {
		return err
	}
	if session.CurrentIndex() == before {
		return nil
	}
	s.persist(ctx, session)
	s.publish(ctx, session, Event{Kind: EventBack, QuestionNumber: session.CurrentIndex() + 1})
	return nil
}

// Finish force-completes the session with the answers recorded so far.
func (s *QuizService) Finish(ctx context.Context, session *Session) (domain.Result, error) {
	if _, err := session.Finish(); err != nil {
		return domain.Result{}, err
	}
	return s.commit(ctx, session), nil
}

// Result returns the visitor's cached result for a quiz.
func (s *QuizService) Result(ctx context.Context, owner, ref string) (domain.CompletedQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, ref)
	if err != nil {
		return domain.CompletedQuiz{}, err
	}
	completed, ok, err := s.sessions.LoadResult(ctx, owner, quiz.ID)
	if err != nil {
		s.log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "owner": owner}).WithError(err).Warn("ignoring unreadable saved result")
		return domain.CompletedQuiz{}, domain.ErrResultNotFound
	}
	if !ok {
		return domain.CompletedQuiz{}, domain.ErrResultNotFound
	}
	return completed, nil
}

// Retake discards the cached result and any in-progress state, and returns a
// fresh session.
func (s *QuizService) Retake(ctx context.Context, owner, ref string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.ClearResult(ctx, owner, quiz.ID); err != nil {
		s.log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "owner": owner}).WithError(err).Warn("failed to clear saved result")
	}
	s.clear(ctx, owner, quiz.ID)

	session := newSessionWithClock(owner, quiz, s.now)
	s.publish(ctx, session, Event{Kind: EventRetake, Title: quiz.Title, TotalQuestions: len(quiz.Questions)})
	return session, nil
}

// EmailResult sends the visitor's cached result to an address.
func (s *QuizService) EmailResult(ctx context.Context, owner, ref, address string) error {
	if err := s.validate.Var(address, "required,email"); err != nil {
		return &domain.ValidationError{Field: "email", Reason: "please enter a valid email address", Err: err}
	}
	completed, err := s.Result(ctx, owner, ref)
	if err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, completed.QuizID)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return &domain.DeliveryError{Channel: "email", Err: errMailerDisabled}
	}
	if err := s.mailer.SendResult(ctx, address, quiz, completed); err != nil {
		s.log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "owner": owner}).WithError(err).Error("failed to email result")
		return &domain.DeliveryError{Channel: "email", Err: err}
	}
	return nil
}

// commit moves a freshly completed session out of in-progress storage and
// hands its result to the peripheral collaborators.
func (s *QuizService) commit(ctx context.Context, session *Session) domain.Result {
	completed, _ := session.Completed()
	log := s.log.WithFields(logrus.Fields{"quiz_id": completed.QuizID, "owner": session.Owner()})

	s.clear(ctx, session.Owner(), completed.QuizID)
	if err := s.sessions.SaveResult(ctx, session.Owner(), completed); err != nil {
		log.WithError(err).Warn("failed to save result")
	}

	result := completed.Result
	s.publish(ctx, session, Event{
		Kind:        EventCompleted,
		Result:      &result,
		Duration:    completed.Duration,
		AnswerCount: len(completed.Answers),
	})

	if p := session.Partner(); p.CallbackURL != "" && s.partner != nil {
		s.notifyPartner(ctx, log.WithField("partner_id", p.ID), p.CallbackURL, PartnerResult{PartnerID: p.ID, QuizResult: completed})
	}
	log.WithFields(logrus.Fields{"outcome": result.Outcome, "severity": result.Severity}).Info("quiz completed")
	return completed.Result
}

// notifyPartner posts in the background, detached from the cancellation of the
// request that completed the quiz.
func (s *QuizService) notifyPartner(ctx context.Context, log logrus.FieldLogger, url string, payload PartnerResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), partnerDeadline)
	s.callbacks.Add(1)
	go func() {
		defer s.callbacks.Done()
		defer cancel()
		if err := s.partner.Notify(ctx, url, payload); err != nil {
			log.WithError(err).Warn("partner callback failed")
		}
	}()
}

// Wait blocks until in-flight partner callbacks have finished.
func (s *QuizService) Wait() {
	s.callbacks.Wait()
}

func (s *QuizService) persist(ctx context.Context, session *Session) {
	if err := s.sessions.Save(ctx, session.Owner(), session.Snapshot()); err != nil {
		s.log.WithFields(logrus.Fields{"quiz_id": session.Quiz().ID, "owner": session.Owner()}).WithError(err).Warn("failed to save session")
	}
}

func (s *QuizService) clear(ctx context.Context, owner, quizID string) {
	if err := s.sessions.Clear(ctx, owner, quizID); err != nil {
		s.log.WithFields(logrus.Fields{"quiz_id": quizID, "owner": owner}).WithError(err).Warn("failed to clear saved session")
	}
}

func (s *QuizService) publish(ctx context.Context, session *Session, event Event) {
	if len(s.sinks) == 0 {
		return
	}
	quiz := session.Quiz()
	event.Owner = session.Owner()
	event.QuizID = quiz.ID
	event.QuizSlug = quiz.Slug
	event.PartnerID = session.Partner().ID
	event.At = s.now()
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			s.log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "event": event.Kind}).WithError(err).Warn("failed to publish event")
		}
	}
}
