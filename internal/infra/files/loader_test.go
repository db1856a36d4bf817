package files

import (
	"strings"
	"testing"
	"testing/fstest"

	"windshield-quiz-service/internal/domain"
)

const conditionalYAML = `
id: drive-safe
title: Is it safe to drive?
questions:
  - id: sight
    text: Is the crack in your line of sight?
    type: multiple_choice
    options:
      - {id: "yes", text: "Yes", endQuiz: true, result: stop}
      - {id: "no", text: "No", result: ok}
scoring:
  type: conditional
`

const percentageJSON = `{
  "id": "installer",
  "slug": "installer-check",
  "questions": [{"id": "q1", "prompt": "Certified?", "kind": "single_choice",
    "options": [{"id": "y", "label": "Yes", "flag": "green"}]}],
  "scoring": {"type": "percentage_based"}
}`

func TestLoadReadsYAMLAndJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"drive-safe.yaml":       {Data: []byte(conditionalYAML)},
		"nested/installer.json": {Data: []byte(percentageJSON)},
		"README.md":             {Data: []byte("not a quiz")},
	}

	quizzes, err := Load(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}

	first := quizzes[0]
	if first.ID != "drive-safe" {
		t.Fatalf("expected drive-safe first, got %q", first.ID)
	}
	opt := first.Questions[0].Options[0]
	if first.Questions[0].Prompt != "Is the crack in your line of sight?" || opt.Label != "Yes" {
		t.Fatalf("aliases not applied: %+v", first.Questions[0])
	}
	if p, ok := opt.Payload.(domain.ConditionalOption); !ok || !p.EndsQuiz || p.Result != "stop" {
		t.Fatalf("unexpected payload %#v", opt.Payload)
	}
	if quizzes[1].Slug != "installer-check" {
		t.Fatalf("expected installer-check slug, got %q", quizzes[1].Slug)
	}
}

func TestLoadFailsOnBrokenDefinition(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.yaml": {Data: []byte("id: broken\nquestions: []\nscoring: {type: conditional}\n")},
	}

	_, err := Load(fsys)
	if !domain.IsDefinitionError(err) {
		t.Fatalf("expected definition error, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.yaml") {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte(conditionalYAML)},
		"b.yaml": {Data: []byte(conditionalYAML)},
	}

	if _, err := Load(fsys); !domain.IsDefinitionError(err) {
		t.Fatalf("expected definition error, got %v", err)
	}
}
