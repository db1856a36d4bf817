package scoring

import (
	"windshield-quiz-service/internal/domain"
)

const (
	recommendReplace = "replace"
	recommendRepair  = "repair"
)

// threshold sums option scores. The mandatory and critical_failure results
// take precedence over the range lookup, in that order.
func threshold(quiz domain.Quiz, s domain.ThresholdScoring, answers []domain.Answer) domain.Result {
	var (
		total                                    float64
		priorWork, hasCamera, calibrated, failed bool
	)
	for _, sel := range selections(quiz, answers) {
		for _, opt := range sel.options {
			p, ok := opt.Payload.(domain.ScoredOption)
			if !ok {
				continue
			}
			total += p.Score
			priorWork = priorWork || p.PriorWork
			hasCamera = hasCamera || p.HasCamera
			calibrated = calibrated || p.Calibrated
			failed = failed || p.CriticalFailure
		}
	}

	if t, ok := s.Results[domain.ResultMandatory]; ok && priorWork && hasCamera && !calibrated {
		r := fromTemplate(domain.ResultMandatory, t, domain.SeverityCritical)
		r.Severity = domain.SeverityCritical
		r.TotalScore = floatPtr(total)
		return r
	}
	if t, ok := s.Results[domain.ResultCriticalFailure]; ok && failed {
		r := fromTemplate(domain.ResultCriticalFailure, t, domain.SeverityCritical)
		r.TotalScore = floatPtr(total)
		return r
	}
	if rng, ok := s.Thresholds.Find(total); ok {
		r := fromTemplate(rng.Key, s.Results[rng.Key], domain.Severity(rng.Key))
		if r.Color == "" {
			r.Color = rng.Color
		}
		r.TotalScore = floatPtr(total)
		return r
	}
	return domain.Result{Severity: domain.SeverityInfo, TotalScore: floatPtr(total)}
}

// conditional normally never runs: an option carrying a result key ends the
// session early and Resolve is used instead. When the full sequence was
// answered, the last answered option's key decides.
func conditional(quiz domain.Quiz, _ domain.ConditionalScoring, answers []domain.Answer) domain.Result {
	key := domain.ResultCompleted
	sels := selections(quiz, answers)
	if len(sels) > 0 {
		last := sels[len(sels)-1]
		for _, opt := range last.options {
			if p, ok := opt.Payload.(domain.ConditionalOption); ok && p.Result != "" {
				key = p.Result
				break
			}
		}
	}
	return Resolve(quiz, key)
}

// recommendation is safety-biased: one replace tag outweighs any number of
// repair tags.
func recommendation(quiz domain.Quiz, s domain.RecommendationScoring, answers []domain.Answer) domain.Result {
	rec, severity := recommendRepair, domain.SeveritySafe
	for _, sel := range selections(quiz, answers) {
		for _, opt := range sel.options {
			if p, ok := opt.Payload.(domain.RecommendationOption); ok && p.Recommendation == recommendReplace {
				rec, severity = recommendReplace, domain.SeverityCritical
			}
		}
	}
	r := fromTemplate(rec, s.Results[rec], severity)
	r.Severity = severity
	r.Recommendation = rec
	return r
}

// percentage divides correct answers by answered questions, not by the
// question count of the quiz.
func percentage(quiz domain.Quiz, s domain.PercentageScoring, answers []domain.Answer) domain.Result {
	sels := selections(quiz, answers)
	correct := 0
	for _, sel := range sels {
		if isCorrect(sel) {
			correct++
		}
	}
	total := len(sels)
	pct := 0.0
	if total > 0 {
		pct = float64(correct) / float64(total)
	}

	r := domain.Result{}
	if rng, ok := s.Thresholds.Find(pct); ok {
		r = fromTemplate(rng.Key, s.Results[rng.Key], "")
		r.Level = rng.Key
		if r.Color == "" {
			r.Color = rng.Color
		}
	}
	r.Percentage = floatPtr(pct)
	r.CorrectCount = intPtr(correct)
	r.TotalQuestions = intPtr(total)
	return r
}

func isCorrect(sel selection) bool {
	if len(sel.options) == 0 {
		return false
	}
	for _, opt := range sel.options {
		if p, ok := opt.Payload.(domain.FlaggedOption); !ok || !p.Correct {
			return false
		}
	}
	return true
}

// mixed returns the result of the first rule whose every condition holds.
func mixed(quiz domain.Quiz, s domain.MixedScoring, answers []domain.Answer) domain.Result {
	byQuestion := make(map[string]selection, len(answers))
	for _, sel := range selections(quiz, answers) {
		byQuestion[sel.question.ID] = sel
	}
	for _, rule := range s.Rules {
		if ruleMatches(rule, byQuestion) {
			return Resolve(quiz, rule.Then)
		}
	}
	if t, ok := s.Results[domain.ResultDefault]; ok {
		return fromTemplate(domain.ResultDefault, t, domain.SeverityInfo)
	}
	return domain.Result{Severity: domain.SeverityInfo, Outcome: domain.ResultDefault}
}

func ruleMatches(rule domain.Rule, byQuestion map[string]selection) bool {
	for qid, expected := range rule.If {
		sel, ok := byQuestion[qid]
		if !ok || !conditionHolds(expected, sel) {
			return false
		}
	}
	return true
}

func conditionHolds(expected domain.Expected, sel selection) bool {
	for _, v := range sel.answer.Value.Values() {
		if expected.Accepts(v) {
			return true
		}
	}
	for _, opt := range sel.options {
		if expected.Accepts(opt.ID) || (opt.Value != "" && expected.Accepts(opt.Value)) {
			return true
		}
	}
	return false
}
