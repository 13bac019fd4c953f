package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/clearledger/taxintake/internal/checklist"
	"github.com/clearledger/taxintake/internal/config"
	"github.com/clearledger/taxintake/internal/core/ports"
	"github.com/clearledger/taxintake/internal/core/usecase"
	"github.com/clearledger/taxintake/internal/infrastructure/extractor"
	"github.com/clearledger/taxintake/internal/infrastructure/extractor/pdftext"
	"github.com/clearledger/taxintake/internal/infrastructure/extractor/plaintext"
	"github.com/clearledger/taxintake/internal/infrastructure/extractor/spreadsheet"
	"github.com/clearledger/taxintake/internal/infrastructure/llm/ollama"
	"github.com/clearledger/taxintake/internal/infrastructure/notify/logmail"
	"github.com/clearledger/taxintake/internal/infrastructure/queue/nats"
	"github.com/clearledger/taxintake/internal/infrastructure/repository/postgres"
	"github.com/clearledger/taxintake/internal/infrastructure/resilience"
	"github.com/clearledger/taxintake/internal/infrastructure/storageprov/localdir"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Repo       ports.EngagementRepository
	Bus        ports.EventBus
	Dispatcher ports.EventDispatcher

	IntakeUC *usecase.IntakeUseCase
	ReviewUC *usecase.ReviewUseCase
	PollUC   *usecase.PollUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewEngagementRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), log)

	bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Logger:             log,
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	provider, err := localdir.New(cfg.StorageRoot, cfg.DownloadMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("init storage provider: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaModel, executor)
	classifier := ollama.NewClassifier(ollamaClient)

	library, err := checklist.LoadLibraryFile(cfg.ChecklistTemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("load checklist templates: %w", err)
	}
	generator := checklist.NewFallbackGenerator(
		ollama.NewChecklistGenerator(ollamaClient),
		checklist.NewTemplateGenerator(library),
		log,
	)

	extract := extractor.NewRouter(pdftext.New(), spreadsheet.New(), plaintext.New())
	notifier := logmail.New(log)

	assessUC := usecase.NewAssessDocumentUseCase(repo, provider, extract, classifier, log)
	reconcileUC := usecase.NewReconcileUseCase(repo, log)
	dispatcher := usecase.NewDispatcher(repo, assessUC, reconcileUC, generator, notifier, log)

	intakeUC := usecase.NewIntakeUseCase(repo, bus, log)
	reviewUC := usecase.NewReviewUseCase(repo, bus, log)
	pollUC := usecase.NewPollUseCase(
		repo,
		provider,
		bus,
		rate.NewLimiter(rate.Limit(cfg.SyncRatePerSec), 1),
		cfg.StuckThreshold,
		cfg.StaleAfter,
		log,
	)

	return &App{
		Config: cfg,
		Log:    log,

		Repo:       repo,
		Bus:        bus,
		Dispatcher: dispatcher,

		IntakeUC: intakeUC,
		ReviewUC: reviewUC,
		PollUC:   pollUC,

		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
