// Package scoring turns a finished answer list into a Result. Every function
// here is pure: the same quiz and answers always produce the same Result, and
// a compiled quiz never makes scoring fail.
package scoring

import (
	"windshield-quiz-service/internal/domain"
)

// Score computes the result of a completed session.
func Score(quiz domain.Quiz, answers []domain.Answer) domain.Result {
	switch s := quiz.Scoring.(type) {
	case domain.ThresholdScoring:
		return threshold(quiz, s, answers)
	case domain.ConditionalScoring:
		return conditional(quiz, s, answers)
	case domain.RecommendationScoring:
		return recommendation(quiz, s, answers)
	case domain.PercentageScoring:
		return percentage(quiz, s, answers)
	case domain.MixedScoring:
		return mixed(quiz, s, answers)
	case domain.InsuranceScoring:
		return insurance(quiz, s, answers)
	}
	// Unreachable for compiled quizzes; Compile rejects unknown strategies.
	return domain.Result{Severity: domain.SeverityInfo, Outcome: domain.ResultCompleted}
}

// Resolve returns the result for an outcome key forced by an option that
// ended the quiz early.
func Resolve(quiz domain.Quiz, key string) domain.Result {
	if key == "" {
		key = domain.ResultCompleted
	}
	var templates map[string]domain.ResultTemplate
	if quiz.Scoring != nil {
		templates = quiz.Scoring.Templates()
	}
	if t, ok := templates[key]; ok {
		return fromTemplate(key, t, domain.SeverityInfo)
	}
	return domain.Result{Severity: domain.SeverityInfo, Outcome: key}
}

// selection pairs an answer with the options it matched.
type selection struct {
	question domain.Question
	answer   domain.Answer
	options  []domain.Option
}

func selections(quiz domain.Quiz, answers []domain.Answer) []selection {
	out := make([]selection, 0, len(answers))
	for _, a := range answers {
		q, ok := quiz.Question(a.QuestionID)
		if !ok {
			continue
		}
		out = append(out, selection{question: q, answer: a, options: q.Match(a.Value)})
	}
	return out
}

func fromTemplate(key string, t domain.ResultTemplate, fallback domain.Severity) domain.Result {
	r := domain.Result{
		Severity:        t.Severity,
		Outcome:         key,
		Title:           t.Title,
		Message:         t.Message,
		Summary:         t.Summary,
		Explanation:     t.Explanation,
		Recommendations: cloneStrings(t.Recommendations),
		Warnings:        cloneStrings(t.Warnings),
		NextSteps:       cloneStrings(t.NextSteps),
		Color:           t.Color,
	}
	if r.Severity == "" {
		r.Severity = fallback
	}
	return r
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
