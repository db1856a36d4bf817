package domain

import (
	"fmt"
	"sort"
)

const (
	defaultEstimate          = 500
	defaultAssumedDeductible = 250
	insuranceRoleCount       = 7
)

var kindAliases = map[string]QuestionKind{
	"single_choice":   KindSingleChoice,
	"multiple_choice": KindSingleChoice,
	"multi_choice":    KindMultiChoice,
	"multiple_select": KindMultiChoice,
	"free_text":       KindFreeText,
	"text_input":      KindFreeText,
	"dropdown":        KindDropdown,
}

// Compile validates a document and builds the immutable Quiz. Any broken
// reference or missing strategy parameter yields a *DefinitionError.
func Compile(doc Document) (Quiz, error) {
	c := compiler{doc: doc}
	return c.compile()
}

type compiler struct {
	doc Document
}

func (c *compiler) fail(field, format string, args ...any) error {
	return &DefinitionError{QuizID: c.doc.ID, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (c *compiler) compile() (Quiz, error) {
	doc := c.doc
	if doc.ID == "" {
		return Quiz{}, c.fail("id", "missing quiz id")
	}
	if len(doc.Questions) == 0 {
		return Quiz{}, c.fail("questions", "quiz has no questions")
	}
	slug := doc.Slug
	if slug == "" {
		slug = doc.ID
	}

	kind := StrategyKind(doc.Scoring.Type)
	insurance := kind == StrategyMixed && doc.Scoring.Calculator == "insurance"
	if kind == StrategyMixed && doc.Scoring.Calculator != "" && !insurance {
		return Quiz{}, c.fail("scoring.calculator", "unknown calculator %q", doc.Scoring.Calculator)
	}

	questions := make([]Question, 0, len(doc.Questions))
	seen := make(map[string]bool, len(doc.Questions))
	for i, qd := range doc.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if qd.ID == "" {
			return Quiz{}, c.fail(field, "missing question id")
		}
		if seen[qd.ID] {
			return Quiz{}, c.fail(field, "duplicate question id %q", qd.ID)
		}
		seen[qd.ID] = true

		rawKind := firstNonEmpty(qd.Kind, qd.Type)
		qkind, ok := kindAliases[rawKind]
		if !ok {
			return Quiz{}, c.fail(field+".kind", "unknown question kind %q", rawKind)
		}
		q := Question{
			ID:          qd.ID,
			Prompt:      firstNonEmpty(qd.Prompt, qd.Text, qd.Question),
			Description: qd.Description,
			Kind:        qkind,
			Required:    qd.Required,
			Placeholder: qd.Placeholder,
		}
		if q.HasOptions() && len(qd.Options) == 0 {
			return Quiz{}, c.fail(field+".options", "choice question has no options")
		}
		optSeen := make(map[string]bool, len(qd.Options))
		for j, od := range qd.Options {
			ofield := fmt.Sprintf("%s.options[%d]", field, j)
			if od.ID == "" {
				return Quiz{}, c.fail(ofield, "missing option id")
			}
			if optSeen[od.ID] {
				return Quiz{}, c.fail(ofield, "duplicate option id %q", od.ID)
			}
			optSeen[od.ID] = true

			payload, err := c.payload(kind, insurance, ofield, od)
			if err != nil {
				return Quiz{}, err
			}
			q.Options = append(q.Options, Option{ID: od.ID, Label: firstNonEmpty(od.Label, od.Text), Value: od.Value, Payload: payload})
		}
		questions = append(questions, q)
	}

	results, err := c.results()
	if err != nil {
		return Quiz{}, err
	}

	quiz := Quiz{
		ID:          doc.ID,
		Slug:        slug,
		Title:       doc.Title,
		Description: doc.Description,
		Icon:        doc.Icon,
		Duration:    doc.Duration,
		Priority:    doc.Priority,
		Featured:    doc.Featured,
		Questions:   questions,
		Metadata:    doc.Metadata,
		doc:         doc,
	}

	switch {
	case kind == StrategyThreshold:
		if len(doc.Scoring.SeverityThresholds) == 0 {
			return Quiz{}, c.fail("scoring.severityThresholds", "required for threshold_based scoring")
		}
		if err := c.checkRanges("scoring.severityThresholds", doc.Scoring.SeverityThresholds, nil); err != nil {
			return Quiz{}, err
		}
		quiz.Scoring = ThresholdScoring{Thresholds: doc.Scoring.SeverityThresholds, Results: results}
	case kind == StrategyConditional:
		quiz.Scoring = ConditionalScoring{Results: results}
	case kind == StrategyRecommendation:
		quiz.Scoring = RecommendationScoring{Results: results}
	case kind == StrategyPercentage:
		unit := &Range{Min: 0, Max: 1}
		if err := c.checkRanges("scoring.thresholds", doc.Scoring.Thresholds, unit); err != nil {
			return Quiz{}, err
		}
		quiz.Scoring = PercentageScoring{Thresholds: doc.Scoring.Thresholds, Results: results}
	case kind == StrategyMixed && insurance:
		s, err := c.insurance(quiz, results)
		if err != nil {
			return Quiz{}, err
		}
		quiz.Scoring = s
	case kind == StrategyMixed:
		rules, err := c.rules(quiz)
		if err != nil {
			return Quiz{}, err
		}
		quiz.Scoring = MixedScoring{Rules: rules, Results: results}
	default:
		return Quiz{}, c.fail("scoring.type", "unknown scoring type %q", doc.Scoring.Type)
	}
	return quiz, nil
}

func (c *compiler) payload(kind StrategyKind, insurance bool, field string, od OptionDoc) (OptionPayload, error) {
	switch {
	case kind == StrategyThreshold:
		p := ScoredOption{}
		if od.Score != nil {
			p.Score = *od.Score
		}
		for _, f := range od.Flags {
			switch f {
			case "priorWork":
				p.PriorWork = true
			case "hasCamera":
				p.HasCamera = true
			case "calibrated":
				p.Calibrated = true
			case "criticalFailure":
				p.CriticalFailure = true
			default:
				return nil, c.fail(field+".flags", "unknown flag %q", f)
			}
		}
		return p, nil
	case kind == StrategyConditional:
		p := ConditionalOption{EndsQuiz: od.EndQuiz || od.EndsQuizWithResult != "", Result: od.Result}
		if od.EndsQuizWithResult != "" {
			p.Result = od.EndsQuizWithResult
		}
		if p.EndsQuiz && p.Result == "" {
			return nil, c.fail(field, "option ends the quiz without a result key")
		}
		return p, nil
	case kind == StrategyRecommendation:
		return RecommendationOption{Recommendation: od.Recommendation}, nil
	case kind == StrategyPercentage:
		switch od.Flag {
		case "correct", "green":
			return FlaggedOption{Correct: true}, nil
		case "", "incorrect", "red":
			return FlaggedOption{}, nil
		}
		return nil, c.fail(field+".flag", "unknown flag %q", od.Flag)
	case kind == StrategyMixed && insurance:
		p := InsuranceOption{}
		if d := od.Insurance; d != nil {
			class := CoverageClass(d.CoverageClass)
			switch class {
			case "", CoverageComprehensive, CoverageCollision, CoverageUnknown, CoverageNone:
			default:
				return nil, c.fail(field+".insurance.coverageClass", "unknown coverage class %q", d.CoverageClass)
			}
			p = InsuranceOption{
				State:               d.State,
				ZeroDeductibleLaw:   d.ZeroDeductibleLaw,
				GlassRiderAvailable: d.GlassRiderAvailable,
				Covered:             d.Covered,
				IncludesCollision:   d.IncludesCollision,
				CoverageClass:       class,
				Deductible:          d.Deductible,
				ServiceType:         d.ServiceType,
				EstimatedCost:       d.EstimatedCost,
				WaivesDeductible:    d.WaivesDeductible,
				FullGlass:           d.FullGlass,
				PriorClaims:         d.PriorClaims,
			}
		}
		return p, nil
	}
	return PlainOption{}, nil
}

func (c *compiler) results() (map[string]ResultTemplate, error) {
	out := make(map[string]ResultTemplate, len(c.doc.Scoring.Results)+len(c.doc.Scoring.ResultMessages))
	for k, v := range c.doc.Scoring.ResultMessages {
		out[k] = v
	}
	for k, v := range c.doc.Scoring.Results {
		out[k] = v
	}
	for k, v := range out {
		switch v.Severity {
		case "", SeveritySafe, SeverityCaution, SeverityCritical, SeverityInfo:
		default:
			return nil, c.fail("scoring.results."+k+".severity", "unknown severity %q", v.Severity)
		}
	}
	return out, nil
}

func (c *compiler) checkRanges(field string, ranges RangeSet, within *Range) error {
	for i, r := range ranges {
		rfield := fmt.Sprintf("%s[%d]", field, i)
		if r.Key == "" {
			return c.fail(rfield, "range has no key")
		}
		if r.Min > r.Max {
			return c.fail(rfield, "range %q has min %v above max %v", r.Key, r.Min, r.Max)
		}
		if within != nil && (r.Min < within.Min || r.Max > within.Max) {
			return c.fail(rfield, "range %q outside [%v, %v]", r.Key, within.Min, within.Max)
		}
	}
	return nil
}

func (c *compiler) rules(quiz Quiz) ([]Rule, error) {
	docs := append([]RuleDoc(nil), c.doc.Scoring.Rules...)
	if c.doc.Scoring.Logic != nil {
		docs = append(docs, c.doc.Scoring.Logic.Rules...)
	}
	rules := make([]Rule, 0, len(docs))
	for i, rd := range docs {
		field := fmt.Sprintf("scoring.rules[%d]", i)
		if len(rd.If) == 0 {
			return nil, c.fail(field+".if", "rule has no conditions")
		}
		if rd.Then == "" {
			return nil, c.fail(field+".then", "rule has no result key")
		}
		qids := make([]string, 0, len(rd.If))
		for qid := range rd.If {
			qids = append(qids, qid)
		}
		sort.Strings(qids)
		for _, qid := range qids {
			q, ok := quiz.Question(qid)
			if !ok {
				return nil, c.fail(field+".if."+qid, "unknown question")
			}
			expected := rd.If[qid]
			if len(expected) == 0 {
				return nil, c.fail(field+".if."+qid, "no expected values")
			}
			if !q.HasOptions() {
				continue
			}
			for _, v := range expected {
				if len(q.Match(Single(v))) == 0 {
					return nil, c.fail(field+".if."+qid, "unknown option %q", v)
				}
			}
		}
		rules = append(rules, Rule{If: rd.If, Then: rd.Then})
	}
	return rules, nil
}

func (c *compiler) insurance(quiz Quiz, results map[string]ResultTemplate) (InsuranceScoring, error) {
	s := InsuranceScoring{
		DefaultEstimate:   defaultEstimate,
		AssumedDeductible: defaultAssumedDeductible,
		Results:           results,
	}
	var roles InsuranceRoles
	if cfg := c.doc.Scoring.Insurance; cfg != nil {
		roles = cfg.Questions
		if cfg.DefaultEstimate != nil {
			s.DefaultEstimate = *cfg.DefaultEstimate
		}
		if cfg.AssumedDeductible != nil {
			s.AssumedDeductible = *cfg.AssumedDeductible
		}
	}
	if roles == (InsuranceRoles{}) {
		if len(quiz.Questions) < insuranceRoleCount {
			return s, c.fail("questions", "insurance calculator needs %d questions, got %d", insuranceRoleCount, len(quiz.Questions))
		}
		q := quiz.Questions
		roles = InsuranceRoles{
			State:        q[0].ID,
			CoverageType: q[1].ID,
			DamageCause:  q[2].ID,
			Deductible:   q[3].ID,
			ServiceType:  q[4].ID,
			FullGlass:    q[5].ID,
			PriorClaims:  q[6].ID,
		}
	}
	seen := make(map[string]bool, insuranceRoleCount)
	for _, id := range roles.ids() {
		if id == "" {
			return s, c.fail("scoring.insurance.questions", "every calculator role needs a question")
		}
		if _, ok := quiz.Question(id); !ok {
			return s, c.fail("scoring.insurance.questions", "unknown question %q", id)
		}
		if seen[id] {
			return s, c.fail("scoring.insurance.questions", "question %q bound to two roles", id)
		}
		seen[id] = true
	}
	s.Roles = roles
	return s, nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
