package domain

import (
	"encoding/json"
	"time"
)

// Severity is the coarse outcome classification driving result messaging.
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityCaution  Severity = "caution"
	SeverityCritical Severity = "critical"
	SeverityInfo     Severity = "info"
)

// QuestionKind describes the answer shape a question accepts.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single_choice"
	KindMultiChoice  QuestionKind = "multi_choice"
	KindFreeText     QuestionKind = "free_text"
	KindDropdown     QuestionKind = "dropdown"
)

// Quiz is a compiled, immutable quiz definition. Build it with Compile.
type Quiz struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Icon        string
	Duration    int // minutes
	Priority    int
	Featured    bool
	Questions   []Question
	Scoring     Scoring
	Metadata    Metadata

	doc Document
}

// Document returns the source document the quiz was compiled from.
func (q Quiz) Document() Document {
	return q.doc
}

// QuestionIndex returns the position of a question, or -1.
func (q Quiz) QuestionIndex(questionID string) int {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// Question looks up a question by id.
func (q Quiz) Question(questionID string) (Question, bool) {
	if i := q.QuestionIndex(questionID); i >= 0 {
		return q.Questions[i], true
	}
	return Question{}, false
}

// Metadata carries presentation hints that never affect scoring.
type Metadata struct {
	RelatedQuizzes     []string `json:"relatedQuizzes,omitempty" yaml:"relatedQuizzes"`
	RelatedWhitePapers []string `json:"relatedWhitePapers,omitempty" yaml:"relatedWhitePapers"`
	CTAText            string   `json:"ctaText,omitempty" yaml:"ctaText"`
	CTAURL             string   `json:"ctaUrl,omitempty" yaml:"ctaUrl"`
}

type Question struct {
	ID          string
	Prompt      string
	Description string
	Kind        QuestionKind
	Required    bool
	Placeholder string
	Options     []Option
}

// HasOptions reports whether answers are matched against options.
func (q Question) HasOptions() bool {
	return q.Kind != KindFreeText
}

// Match returns the options selected by an answer value. Values that match
// no option are ignored.
func (q Question) Match(v AnswerValue) []Option {
	var matched []Option
	for _, raw := range v.Values() {
		for _, opt := range q.Options {
			if opt.ID == raw || (opt.Value != "" && opt.Value == raw) {
				matched = append(matched, opt)
				break
			}
		}
	}
	return matched
}

// Option is an answer choice. Payload holds the strategy-specific attributes
// and its concrete type is fixed by the quiz's scoring strategy.
type Option struct {
	ID      string
	Label   string
	Value   string
	Payload OptionPayload
}

// OptionPayload is implemented only by the option variants in this package.
type OptionPayload interface {
	optionPayload()
}

// PlainOption carries no scoring attributes (generic mixed quizzes).
type PlainOption struct{}

// ScoredOption is used by threshold_based quizzes.
type ScoredOption struct {
	Score           float64
	PriorWork       bool
	HasCamera       bool
	Calibrated      bool
	CriticalFailure bool
}

// ConditionalOption is used by conditional quizzes.
type ConditionalOption struct {
	EndsQuiz bool
	Result   string
}

// RecommendationOption is used by recommendation_based quizzes.
type RecommendationOption struct {
	Recommendation string
}

// FlaggedOption is used by percentage_based quizzes.
type FlaggedOption struct {
	Correct bool
}

// InsuranceOption carries the attributes read by the insurance cost calculator.
// Which fields matter depends on the role of the question the option belongs to.
type InsuranceOption struct {
	State               string
	ZeroDeductibleLaw   bool
	GlassRiderAvailable bool

	Covered           bool
	IncludesCollision bool

	CoverageClass CoverageClass

	Deductible *float64

	ServiceType      string
	EstimatedCost    *float64
	WaivesDeductible bool

	FullGlass   bool
	PriorClaims bool
}

// CoverageClass is the insurance class a damage cause falls under.
type CoverageClass string

const (
	CoverageComprehensive CoverageClass = "comprehensive"
	CoverageCollision     CoverageClass = "collision"
	CoverageUnknown       CoverageClass = "unknown"
	CoverageNone          CoverageClass = "none"
)

func (PlainOption) optionPayload()          {}
func (ScoredOption) optionPayload()         {}
func (ConditionalOption) optionPayload()    {}
func (RecommendationOption) optionPayload() {}
func (FlaggedOption) optionPayload()        {}
func (InsuranceOption) optionPayload()      {}

// Answer is one recorded response.
type Answer struct {
	QuestionID string      `json:"questionId"`
	Value      AnswerValue `json:"answer"`
	AnsweredAt time.Time   `json:"timestamp"`
}

// AnswerValue is either a single string or a set of strings.
type AnswerValue struct {
	single string
	multi  []string
	isSet  bool
}

// Single builds a single-valued answer.
func Single(v string) AnswerValue {
	return AnswerValue{single: v}
}

// Multi builds a set-valued answer.
func Multi(vs ...string) AnswerValue {
	return AnswerValue{multi: append([]string(nil), vs...), isSet: true}
}

// IsSet reports whether the value was given as a set.
func (v AnswerValue) IsSet() bool { return v.isSet }

// String returns the single value, or the first element of a set.
func (v AnswerValue) String() string {
	if v.isSet {
		if len(v.multi) == 0 {
			return ""
		}
		return v.multi[0]
	}
	return v.single
}

// Values returns the non-empty values.
func (v AnswerValue) Values() []string {
	if !v.isSet {
		if v.single == "" {
			return nil
		}
		return []string{v.single}
	}
	out := make([]string, 0, len(v.multi))
	for _, s := range v.multi {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsEmpty reports whether no value was given.
func (v AnswerValue) IsEmpty() bool {
	return len(v.Values()) == 0
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.isSet {
		vals := v.multi
		if vals == nil {
			vals = []string{}
		}
		return json.Marshal(vals)
	}
	return json.Marshal(v.single)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Single(s)
		return nil
	}
	var vs []string
	if err := json.Unmarshal(data, &vs); err != nil {
		return err
	}
	*v = Multi(vs...)
	return nil
}

// Result is the outcome of a completed session.
type Result struct {
	Severity        Severity       `json:"severity,omitempty"`
	Outcome         string         `json:"outcome,omitempty"`
	Title           string         `json:"title,omitempty"`
	Message         string         `json:"message,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	Explanation     string         `json:"explanation,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	NextSteps       []string       `json:"nextSteps,omitempty"`
	Notes           []string       `json:"notes,omitempty"`
	TotalScore      *float64       `json:"totalScore,omitempty"`
	Percentage      *float64       `json:"percentage,omitempty"`
	CorrectCount    *int           `json:"correctCount,omitempty"`
	TotalQuestions  *int           `json:"totalQuestions,omitempty"`
	Level           string         `json:"level,omitempty"`
	Color           string         `json:"color,omitempty"`
	Recommendation  string         `json:"recommendation,omitempty"`
	CostBreakdown   *CostBreakdown `json:"costBreakdown,omitempty"`
}

// CostBreakdown is attached by the insurance calculator.
type CostBreakdown struct {
	Covered       bool    `json:"covered"`
	Deductible    float64 `json:"deductible"`
	EstimatedCost float64 `json:"estimatedCost"`
	YourCost      float64 `json:"yourCost"`
	InsurancePays float64 `json:"insurancePays"`
}

// ResultTemplate is the authored content for a result key.
type ResultTemplate struct {
	Title           string   `json:"title,omitempty" yaml:"title"`
	Severity        Severity `json:"severity,omitempty" yaml:"severity"`
	Message         string   `json:"message,omitempty" yaml:"message"`
	Summary         string   `json:"summary,omitempty" yaml:"summary"`
	Explanation     string   `json:"explanation,omitempty" yaml:"explanation"`
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations"`
	Warnings        []string `json:"warnings,omitempty" yaml:"warnings"`
	NextSteps       []string `json:"nextSteps,omitempty" yaml:"nextSteps"`
	Color           string   `json:"color,omitempty" yaml:"color"`
}

// SavedSession is the persisted form of an in-progress session.
type SavedSession struct {
	QuizID               string    `json:"quizId"`
	Answers              []Answer  `json:"answers"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	StartedAt            time.Time `json:"startedAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// CompletedQuiz is the persisted record of a finished session.
type CompletedQuiz struct {
	QuizID      string    `json:"quizId"`
	QuizSlug    string    `json:"quizSlug"`
	Answers     []Answer  `json:"answers"`
	Result      Result    `json:"result"`
	Duration    int       `json:"duration"` // seconds
	CompletedAt time.Time `json:"completedAt"`
}

// QuizSummary is the catalog view of a quiz without question content.
type QuizSummary struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Duration      int    `json:"duration"`
	Priority      int    `json:"priority"`
	QuestionCount int    `json:"questionCount"`
	Featured      bool   `json:"featured"`
}

// Summary returns the catalog view of the quiz.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Slug:          q.Slug,
		Title:         q.Title,
		Description:   q.Description,
		Duration:      q.Duration,
		Priority:      q.Priority,
		QuestionCount: len(q.Questions),
		Featured:      q.Featured,
	}
}
