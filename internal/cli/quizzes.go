package cli

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"windshield-quiz-service/internal/config"
	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/infra/files"
	"windshield-quiz-service/internal/infra/postgres"
	"windshield-quiz-service/internal/logging"
	"windshield-quiz-service/quizzes"
)

// NewQuizzesCmd groups the quiz definition tooling.
func NewQuizzesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quizzes",
		Short: "Validate or import quiz definitions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [dir]",
		Short: "Compile every YAML/JSON definition in dir (default: built-in set)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New("info", "text")
			if err != nil {
				return err
			}
			defs, err := loadDefinitions(args)
			if err != nil {
				return err
			}
			for _, q := range defs {
				logDefinition(log, q).Info("definition ok")
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import [dir]",
		Short: "Upsert definitions from dir (default: built-in set) into Postgres",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defs, err := loadDefinitions(args)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}

			db := postgres.OpenDB(cfg.Postgres.URL)
			defer db.Close()
			writer := postgres.NewQuizWriter(db)
			for _, q := range defs {
				if err := writer.Upsert(cmd.Context(), q); err != nil {
					return err
				}
				logDefinition(log, q).Info("imported")
			}
			return nil
		},
	})
	return cmd
}

func loadDefinitions(args []string) ([]domain.Quiz, error) {
	var fsys fs.FS = quizzes.FS
	if len(args) == 1 {
		fsys = os.DirFS(args[0])
	}
	defs, err := files.Load(fsys)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no quiz definitions found")
	}
	return defs, nil
}

func logDefinition(log logrus.FieldLogger, q domain.Quiz) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"quiz_id":   q.ID,
		"slug":      q.Slug,
		"questions": len(q.Questions),
		"scoring":   q.Scoring.Kind(),
	})
}
