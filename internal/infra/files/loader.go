// Package files loads quiz definitions from YAML or JSON documents.
package files

import (
	"fmt"
	"io/fs"
	"path"
	"sort"

	"windshield-quiz-service/internal/domain"
)

// Load compiles every .yaml, .yml and .json document under fsys. The first
// broken definition aborts the load so a bad quiz never reaches visitors.
func Load(fsys fs.FS) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	seen := make(map[string]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		var parse func([]byte) (domain.Quiz, error)
		switch path.Ext(p) {
		case ".yaml", ".yml":
			parse = domain.ParseYAML
		case ".json":
			parse = domain.ParseJSON
		default:
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		quiz, err := parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		for _, ref := range []string{quiz.ID, quiz.Slug} {
			if other, dup := seen[ref]; dup && other != p {
				return fmt.Errorf("%s: %w", p, &domain.DefinitionError{QuizID: quiz.ID, Field: "id", Reason: fmt.Sprintf("%q already defined in %s", ref, other)})
			}
			seen[ref] = p
		}
		quizzes = append(quizzes, quiz)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}
