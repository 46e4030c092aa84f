package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"driving-quiz-service/internal/config"
	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/infra/postgres"
	redisstore "driving-quiz-service/internal/infra/redis"
	"driving-quiz-service/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

// catalogFile is the JSON document accepted by the import command.
type catalogFile struct {
	Title     string         `json:"title"`
	Questions []questionFile `json:"questions" validate:"required,min=1,dive"`
}

type questionFile struct {
	ID                 int          `json:"id" validate:"required,gt=0"`
	Title              string       `json:"title" validate:"required"`
	Image              string       `json:"image"`
	CategoryID         int          `json:"categoryId" validate:"gte=0"`
	Screening          bool         `json:"screening"`
	CorrectAnswerIndex int          `json:"correctAnswerIndex" validate:"gte=0"`
	Options            []optionFile `json:"options" validate:"required,min=2,dive"`
}

type optionFile struct {
	Text  string `json:"text" validate:"required"`
	Order int    `json:"order" validate:"gte=0"`
}

// NewImportCmd loads a question catalog file into Postgres.
func NewImportCmd(configPath *string, logger logging.Logger) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a question catalog JSON file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, file, logger)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to catalog JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, path string, logger logging.Logger) error {
	catalog, err := readCatalog(path)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
		return err
	}
	db, err := openBunDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := postgres.NewCatalogImporter(db).Import(ctx, catalog)
	if err != nil {
		return err
	}
	logger.Info("catalog imported", "file", path, "questions", n)

	if cfg.Redis.Addr != "" {
		if err := invalidateCatalogCache(ctx, cfg); err != nil {
			logger.Warn("catalog cache not invalidated", "error", err.Error())
		}
	}
	return nil
}

// invalidateCatalogCache drops the Redis copy of the catalog so running
// servers reload it on their next read.
func invalidateCatalogCache(ctx context.Context, cfg config.Config) error {
	client := newRedisClient(cfg)
	defer client.Close()
	return redisstore.NewQuestionRepository(client, nil, 0).Invalidate(ctx)
}

func readCatalog(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	catalog := make(domain.Catalog, 0, len(file.Questions))
	for _, q := range file.Questions {
		options := make([]domain.Option, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, domain.Option{Text: opt.Text, Order: opt.Order})
		}
		catalog = append(catalog, domain.Question{
			ID:                 q.ID,
			Title:              q.Title,
			Image:              q.Image,
			CategoryID:         q.CategoryID,
			Screening:          q.Screening,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Options:            options,
		})
	}
	return catalog, nil
}
