package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/config"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/extractor"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/fetcher"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/history"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/notify"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/storage"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/summary"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/webpage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClient() *fetcher.Client {
	return fetcher.NewClient(fetcher.ClientOptions{
		UserAgent: a.Config.Sources.UserAgent,
		Timeout:   a.Config.Sources.RequestTimeout,
		Retries:   a.Config.Sources.Retries,
		Backoff:   a.Config.Sources.Backoff,
	}, a.Logger)
}

func (a *App) newHistoryStore() *history.Store {
	return history.NewStore(a.Config.Paths.History, a.Logger)
}

func (a *App) newSummaryStore() *summary.Store {
	return summary.NewStore(a.Config.Paths.Summary, a.Logger)
}

func (a *App) newInjector() *webpage.Injector {
	return webpage.NewInjector(a.Config.Paths.IndexHTML, a.Logger)
}

func (a *App) marketHours() summary.MarketHours {
	return summary.MarketHours{
		OpenHour:  a.Config.Market.OpenHour,
		CloseHour: a.Config.Market.CloseHour,
	}
}

func (a *App) newExtractor() *extractor.Extractor {
	if a.Config.OpenAI.APIKey == "" {
		return nil
	}
	return extractor.New(extractor.Options{
		APIKey:       a.Config.OpenAI.APIKey,
		Model:        a.Config.OpenAI.Model,
		BaseURL:      a.Config.OpenAI.BaseURL,
		Timeout:      a.Config.OpenAI.RequestTimeout,
		MaxHTMLBytes: a.Config.OpenAI.MaxHTMLBytes,
	}, a.Logger)
}

func (a *App) newNotifier() notify.Notifier {
	if !a.Config.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Telegram
	return notify.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 0, a.Logger)
}

func (a *App) openArchive(ctx context.Context) (*storage.Archive, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, storage.PoolConfig{
		DSN:          a.Config.Database.DSN,
		MaxOpenConns: a.Config.Database.MaxOpenConns,
		MinIdleConns: a.Config.Database.MinIdleConns,
	})
	if err != nil {
		return nil, nil, err
	}

	archive := storage.NewArchive(pool)
	closer := func() {
		archive.Close()
	}
	return archive, closer, nil
}
