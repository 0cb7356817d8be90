// Binary gateway receives trading alerts over HTTP and forwards them to the
// configured exchange as signed market orders.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/Girro24/sol-vic-gateway/internal/config"
	"github.com/Girro24/sol-vic-gateway/internal/exchange"
	"github.com/Girro24/sol-vic-gateway/internal/metrics"
	"github.com/Girro24/sol-vic-gateway/internal/server"
	"github.com/Girro24/sol-vic-gateway/internal/util"
)

func main() {
	log := util.NewLogger("gateway", os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger("gateway", cfg.LogLevel)

	dispatcher, err := exchange.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("select exchange")
	}
	if cfg.CoinbaseAPIKey == "" || cfg.CoinbaseSecret == "" {
		log.Warn().Msg("exchange credentials not set; order dispatch will be rejected upstream")
	}

	_ = metrics.Serve(cfg.MetricsAddr)
	log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(cfg, dispatcher, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).
			Str("exchange", dispatcher.Name()).Str("pair", cfg.Symbol).
			Str("api_key", cfg.MaskedAPIKey()).Str("webhook_secret", cfg.MaskedWebhookSecret()).
			Msg("gateway started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
