package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/scoring"
)

func conditionalDoc() domain.Document {
	return domain.Document{
		ID: "drive-safe",
		Questions: []domain.QuestionDoc{
			{ID: "sight", Prompt: "Is the crack in your line of sight?", Kind: "single_choice", Options: []domain.OptionDoc{
				{ID: "yes", Label: "Yes", EndQuiz: true, Result: "stop"},
				{ID: "no", Label: "No"},
			}},
			{ID: "size", Prompt: "How long is it?", Kind: "single_choice", Options: []domain.OptionDoc{
				{ID: "small", Label: "Under 6 inches", Result: "repairable"},
				{ID: "large", Label: "Over 6 inches", Result: "monitor"},
			}},
		},
		Scoring: domain.ScoringDoc{
			Type: "conditional",
			Results: map[string]domain.ResultTemplate{
				"stop":       {Title: "Do not drive", Severity: domain.SeverityCritical},
				"repairable": {Title: "Repairable", Severity: domain.SeveritySafe},
			},
		},
	}
}

func TestConditionalUsesLastAnsweredOption(t *testing.T) {
	quiz := compile(t, conditionalDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("sight", "no"), answer("size", "small")})

	assert.Equal(t, "repairable", result.Outcome)
	assert.Equal(t, domain.SeveritySafe, result.Severity)
}

func TestConditionalUnknownKeyFallsBackToInfo(t *testing.T) {
	quiz := compile(t, conditionalDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("sight", "no"), answer("size", "large")})

	assert.Equal(t, domain.Result{Severity: domain.SeverityInfo, Outcome: "monitor"}, result)
}

func TestConditionalWithoutResultKeyCompletes(t *testing.T) {
	quiz := compile(t, conditionalDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("sight", "no")})

	assert.Equal(t, domain.ResultCompleted, result.Outcome)
	assert.Equal(t, domain.SeverityInfo, result.Severity)
}

func TestResolveForcedResult(t *testing.T) {
	quiz := compile(t, conditionalDoc())

	result := scoring.Resolve(quiz, "stop")

	assert.Equal(t, "Do not drive", result.Title)
	assert.Equal(t, domain.SeverityCritical, result.Severity)
}

func recommendationDoc() domain.Document {
	question := func(id string) domain.QuestionDoc {
		return domain.QuestionDoc{ID: id, Prompt: id, Kind: "single_choice", Options: []domain.OptionDoc{
			{ID: "repair", Label: "Small", Recommendation: "repair"},
			{ID: "replace", Label: "Large", Recommendation: "replace"},
		}}
	}
	return domain.Document{
		ID:        "repair-or-replace",
		Questions: []domain.QuestionDoc{question("size"), question("location"), question("depth")},
		Scoring: domain.ScoringDoc{
			Type: "recommendation_based",
			Results: map[string]domain.ResultTemplate{
				"replace": {Title: "Replace your windshield", Severity: domain.SeverityCaution},
				"repair":  {Title: "A repair should do"},
			},
		},
	}
}

func TestRecommendationReplaceDominates(t *testing.T) {
	quiz := compile(t, recommendationDoc())

	result := scoring.Score(quiz, []domain.Answer{
		answer("size", "repair"),
		answer("location", "replace"),
		answer("depth", "repair"),
	})

	assert.Equal(t, "replace", result.Recommendation)
	assert.Equal(t, domain.SeverityCritical, result.Severity)
	assert.Equal(t, "Replace your windshield", result.Title)
}

func TestRecommendationDefaultsToRepair(t *testing.T) {
	quiz := compile(t, recommendationDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("size", "repair"), answer("location", "unknown")})

	assert.Equal(t, "repair", result.Recommendation)
	assert.Equal(t, domain.SeveritySafe, result.Severity)
}

func percentageDoc() domain.Document {
	doc := domain.Document{
		ID: "installer-check",
		Scoring: domain.ScoringDoc{
			Type: "percentage_based",
			Thresholds: domain.RangeSet{
				{Key: "excellent", Min: 0.8, Max: 1},
				{Key: "good", Min: 0.5, Max: 0.79},
			},
			Results: map[string]domain.ResultTemplate{
				"good": {Title: "Mostly qualified", Severity: domain.SeverityCaution},
			},
		},
	}
	for _, id := range []string{"q1", "q2", "q3", "q4", "q5", "q6"} {
		doc.Questions = append(doc.Questions, domain.QuestionDoc{ID: id, Prompt: id, Kind: "single_choice", Options: []domain.OptionDoc{
			{ID: "y", Label: "Yes", Flag: "green"},
			{ID: "n", Label: "No", Flag: "red"},
		}})
	}
	return doc
}

func TestPercentageUsesAnsweredQuestionsAsDenominator(t *testing.T) {
	quiz := compile(t, percentageDoc())

	// q6 was skipped and does not count.
	result := scoring.Score(quiz, []domain.Answer{
		answer("q1", "y"),
		answer("q2", "n"),
		answer("q3", "y"),
		answer("q4", "n"),
		answer("q5", "y"),
	})

	require.NotNil(t, result.Percentage)
	assert.Equal(t, 0.6, *result.Percentage)
	assert.Equal(t, 3, *result.CorrectCount)
	assert.Equal(t, 5, *result.TotalQuestions)
	assert.Equal(t, "good", result.Level)
	assert.Equal(t, domain.SeverityCaution, result.Severity)
}

func TestPercentageWithoutMatchingRange(t *testing.T) {
	quiz := compile(t, percentageDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("q1", "n"), answer("q2", "n")})

	assert.Equal(t, 0.0, *result.Percentage)
	assert.Empty(t, result.Level)
	assert.Empty(t, result.Severity)
}

func TestPercentageMultiChoiceNeedsAllCorrect(t *testing.T) {
	doc := percentageDoc()
	doc.Questions[0].Kind = "multi_choice"
	quiz := compile(t, doc)

	mixedPick := domain.Answer{QuestionID: "q1", Value: domain.Multi("y", "n")}
	result := scoring.Score(quiz, []domain.Answer{mixedPick, answer("q2", "y")})

	assert.Equal(t, 1, *result.CorrectCount)
	assert.Equal(t, 0.5, *result.Percentage)
}

func mixedDoc() domain.Document {
	return domain.Document{
		ID: "glass-type",
		Questions: []domain.QuestionDoc{
			{ID: "vehicle", Prompt: "Vehicle age", Kind: "dropdown", Options: []domain.OptionDoc{
				{ID: "new", Label: "Under 3 years", Value: "new"},
				{ID: "mid", Label: "3-10 years", Value: "mid"},
				{ID: "old", Label: "Over 10 years", Value: "old"},
			}},
			{ID: "lease", Prompt: "Leased?", Kind: "single_choice", Options: []domain.OptionDoc{
				{ID: "yes", Label: "Yes"},
				{ID: "no", Label: "No"},
			}},
		},
		Scoring: domain.ScoringDoc{
			Type: "mixed",
			Rules: []domain.RuleDoc{
				{If: map[string]domain.Expected{"vehicle": {"new"}, "lease": {"yes"}}, Then: "oem"},
				{If: map[string]domain.Expected{"vehicle": {"new", "mid"}}, Then: "oee"},
			},
			Results: map[string]domain.ResultTemplate{
				"oem":     {Title: "Use OEM glass", Severity: domain.SeverityCaution},
				"default": {Title: "Aftermarket is fine", Severity: domain.SeveritySafe},
			},
		},
	}
}

func TestMixedFirstMatchingRuleWins(t *testing.T) {
	quiz := compile(t, mixedDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("vehicle", "new"), answer("lease", "yes")})
	assert.Equal(t, "oem", result.Outcome)
	assert.Equal(t, "Use OEM glass", result.Title)

	result = scoring.Score(quiz, []domain.Answer{answer("vehicle", "mid"), answer("lease", "yes")})
	assert.Equal(t, domain.Result{Severity: domain.SeverityInfo, Outcome: "oee"}, result)
}

func TestMixedFallsBackToDefault(t *testing.T) {
	quiz := compile(t, mixedDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("vehicle", "old"), answer("lease", "no")})

	assert.Equal(t, domain.ResultDefault, result.Outcome)
	assert.Equal(t, "Aftermarket is fine", result.Title)
}

func TestMixedMissingAnswerFailsCondition(t *testing.T) {
	quiz := compile(t, mixedDoc())

	result := scoring.Score(quiz, []domain.Answer{answer("lease", "yes")})

	assert.Equal(t, domain.ResultDefault, result.Outcome)
}
