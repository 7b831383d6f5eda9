package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Glupulse_Assistant/internal/config"
	"Glupulse_Assistant/internal/inference"
	"Glupulse_Assistant/internal/keyword"
	"Glupulse_Assistant/internal/responder"
	"Glupulse_Assistant/internal/server"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func loadKeywords(cfg *config.Config) (*keyword.Responder, error) {
	var (
		kw  *keyword.Responder
		err error
	)
	if cfg.Keyword.File != "" {
		kw, err = keyword.LoadFile(cfg.Keyword.File)
	} else {
		kw, err = keyword.LoadLocale(cfg.Keyword.Locale)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("locale", kw.Locale()).Str("file", cfg.Keyword.File).Msg("keyword advice loaded")
	return kw, nil
}

func buildProvider(cfg *config.Config) (responder.Provider, error) {
	kw, err := loadKeywords(cfg)
	if err != nil {
		return nil, err
	}

	client := inference.New(cfg.Inference.URL, cfg.APIKey,
		inference.WithRetryPolicy(cfg.Inference.MaxAttempts, cfg.Inference.InitialDelay, cfg.Inference.AttemptTimeout),
	)

	apiOpts := []responder.APIOption{
		responder.WithParameters(cfg.Parameters()),
		responder.WithApology(cfg.Chat.Apology),
	}
	if cfg.Inference.RawInput {
		apiOpts = append(apiOpts, responder.WithRawInput())
	}

	return responder.New(responder.Mode(cfg.ResponseMode), responder.Deps{
		Generator:  client,
		Keywords:   kw,
		APIOptions: apiOpts,
	})
}

func main() {
	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}
	config.SetupLogger(cfg.AppEnv, cfg.LogLevel)

	provider, err := buildProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not build response provider")
	}

	apiServer := server.NewServer(cfg, provider)

	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, grpCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", apiServer.Addr).Str("response_mode", provider.Name()).Msg("server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-grpCtx.Done()
		log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
		stop() // Allow Ctrl+C to force shutdown

		// The server has 5 seconds to finish the requests it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Graceful shutdown complete.")
}
