package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"modelchat/internal/adapter/gemini"
	"modelchat/internal/adapter/httpgw"
	"modelchat/internal/adapter/memory"
	"modelchat/internal/adapter/openai"
	"modelchat/internal/adapter/router"
	"modelchat/internal/adapter/telegram"
	"modelchat/internal/adapter/web"
	"modelchat/internal/config"
	"modelchat/internal/gateway"
	"modelchat/internal/usecase/chat"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := run(cfg); err != nil {
		slog.Error("stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(cfg config.Config) error {
	store := memory.NewStore()
	avail := gateway.NewAvailability()
	chatSvc := chat.NewService(store, gateway.NewAdapter(avail), avail, cfg)
	chatSvc.Greet()

	models := router.New(cfg.Models)
	defer func() {
		if err := models.Close(); err != nil {
			slog.Warn("closing backends", "error", err)
		}
	}()

	server := web.NewServer(cfg, chatSvc)

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		var err error
		bot, err = telegram.NewBot(cfg, chatSvc)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A failed load is not fatal: the chat keeps answering with mock replies.
		_ = gateway.Load(ctx, avail, cfg.GatewayLoadTimeout, loadBackends(cfg, models))
		return nil
	})
	g.Go(func() error {
		return server.Run(ctx)
	})
	if bot != nil {
		g.Go(func() error {
			return bot.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadBackends registers every backend the configuration enables and hands
// back the routed chat capability.
func loadBackends(cfg config.Config, models *router.Router) gateway.Loader {
	return func(ctx context.Context) (*gateway.Handle, error) {
		if cfg.OpenAIKey != "" {
			models.Register(config.ProviderOpenAI, openai.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.MaxCompletionTokens))
		}

		if cfg.GeminiKey != "" {
			client, err := gemini.NewClient(ctx, cfg.GeminiKey)
			if err != nil {
				slog.Warn("gemini backend disabled", "error", err)
			} else {
				models.Register(config.ProviderGemini, client)
			}
		}

		if cfg.GatewayURL != "" {
			client := httpgw.NewClient(cfg.GatewayURL, 0)
			if err := client.Ping(ctx); err != nil {
				slog.Warn("http gateway disabled", "url", cfg.GatewayURL, "error", err)
			} else {
				models.Register(config.ProviderHTTP, client)
			}
		}

		providers := models.Providers()
		if len(providers) == 0 {
			return nil, errors.New("no gateway backends configured")
		}
		slog.Info("gateway backends registered", "providers", providers)
		return models.Handle(), nil
	}
}
