package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/remote-llm/config"
	rediscache "github.com/sweetpotato0/remote-llm/contrib/cache/redis"
	"github.com/sweetpotato0/remote-llm/contrib/provider"
	"github.com/sweetpotato0/remote-llm/contrib/provider/claude"
	"github.com/sweetpotato0/remote-llm/contrib/provider/gemini"
	"github.com/sweetpotato0/remote-llm/contrib/provider/openai"
	"github.com/sweetpotato0/remote-llm/contrib/recorder/mongo"
	"github.com/sweetpotato0/remote-llm/contrib/recorder/postgres"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/llm/fake"
	"github.com/sweetpotato0/remote-llm/remote"
)

// closers run in reverse order on shutdown.
type closers []func() error

func (c closers) Close(logger *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func buildBackend(ctx context.Context, cfg *config.Config, cl *closers) (llm.LLM, error) {
	pcfg := provider.Config{
		APIKey:      cfg.Backend.APIKey,
		BaseURL:     cfg.Backend.BaseURL,
		Model:       cfg.Backend.Model,
		MaxTokens:   int64(cfg.Backend.MaxTokens),
		Temperature: cfg.Backend.Temperature,
		Candidates:  cfg.Backend.Candidates,
	}

	var backend llm.LLM
	switch strings.ToLower(cfg.Backend.Provider) {
	case config.ProviderFake:
		backend = fake.New(cfg.Backend.Responses, fake.WithMode(fake.ModeAsync))
	case config.ProviderOpenAI:
		backend = openai.New(pcfg)
	case config.ProviderClaude:
		backend = claude.New(pcfg)
	case config.ProviderGemini:
		p, err := gemini.New(ctx, pcfg)
		if err != nil {
			return nil, err
		}
		*cl = append(*cl, p.Close)
		backend = p
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Backend.Provider)
	}

	if cfg.Backend.Serialize {
		backend = llm.Serialize(backend)
	}
	if cfg.Cache.Enabled {
		c := rediscache.New(backend, rediscache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Prefix:   cfg.Cache.Prefix,
			TTL:      cfg.Cache.TTL,
		})
		*cl = append(*cl, c.Close)
		backend = c
	}
	return backend, nil
}

func buildRecorder(ctx context.Context, cfg *config.Config, cl *closers) (remote.Recorder, error) {
	switch cfg.Recorder.Kind {
	case config.RecorderPostgres:
		r, err := postgres.New(ctx, postgres.Config{DSN: cfg.Recorder.DSN, Table: cfg.Recorder.Table})
		if err != nil {
			return nil, err
		}
		*cl = append(*cl, r.Close)
		return r, nil
	case config.RecorderMongo:
		r, err := mongo.New(ctx, mongo.Config{
			URI:        cfg.Recorder.URI,
			Database:   cfg.Recorder.Database,
			Collection: cfg.Recorder.Collection,
		})
		if err != nil {
			return nil, err
		}
		*cl = append(*cl, func() error { return r.Close(context.Background()) })
		return r, nil
	default:
		return nil, nil
	}
}
