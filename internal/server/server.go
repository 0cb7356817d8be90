// Package server binds auth, normalization, dispatch, and audit into the
// gateway's HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Girro24/sol-vic-gateway/internal/audit"
	"github.com/Girro24/sol-vic-gateway/internal/auth"
	"github.com/Girro24/sol-vic-gateway/internal/config"
	"github.com/Girro24/sol-vic-gateway/internal/exchange"
	"github.com/Girro24/sol-vic-gateway/internal/intent"
	"github.com/Girro24/sol-vic-gateway/internal/metrics"
	"github.com/Girro24/sol-vic-gateway/internal/risk"
	"github.com/Girro24/sol-vic-gateway/internal/trade"
)

const maxBodyBytes = 1 << 20

// Server handles the gateway routes. All fields are set at construction and
// read-only afterwards, so concurrent requests need no locking.
type Server struct {
	cfg        *config.Config
	verifier   *auth.Verifier
	normalizer *intent.Normalizer
	dispatcher exchange.Dispatcher
	sink       *audit.Sink
	limits     risk.Limits
	log        zerolog.Logger

	// audited is signalled after each best-effort audit attempt; tests use
	// it to wait for the fire-and-forget leg. Nil outside tests.
	audited chan struct{}
}

// New wires the gateway components from configuration.
func New(cfg *config.Config, dispatcher exchange.Dispatcher, log zerolog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		verifier:   auth.NewVerifier(cfg.WebhookSecret, cfg.WebhookKey, cfg.AuthPolicy),
		normalizer: intent.NewNormalizer(cfg.Symbol, cfg.DefaultUSD, cfg.AllowImplicitBuy),
		dispatcher: dispatcher,
		sink:       audit.NewSink(cfg.AuditURL),
		limits:     risk.Limits{MaxNotionalPerTrade: decimal.NewFromFloat(cfg.MaxUSD)},
		log:        log,
	}
}

// Handler returns the routed HTTP handler with access logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /hook", s.handleHook)
	return s.accessLog(mux)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "SOL VIC Gateway is live"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "running",
		"exchange": s.dispatcher.Name(),
		"pair":     s.cfg.Symbol,
	})
}

func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.AlertsTotal.WithLabelValues("malformed").Inc()
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ok, method := s.verifier.Verify(raw, r.Header.Get("X-Signature"))
	if !ok {
		metrics.AlertsTotal.WithLabelValues("unauthorized").Inc()
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("alert rejected: unauthorized")
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alert, err := intent.Decode(raw)
	if err == nil {
		var in *trade.Intent
		in, err = s.normalizer.Normalize(alert)
		if err == nil {
			s.dispatch(w, r, raw, method, in)
			return
		}
	}

	metrics.AlertsTotal.WithLabelValues("malformed").Inc()
	s.log.Warn().Err(err).Msg("alert rejected: malformed")
	s.auditAsync(raw, nil, nil, err)
	s.writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, raw []byte, method auth.Method, in *trade.Intent) {
	if !s.limits.Allow(in.QuoteUSD) {
		metrics.AlertsTotal.WithLabelValues("limited").Inc()
		s.log.Warn().Str("quote_usd", in.QuoteUSD.String()).Msg("alert rejected: over notional limit")
		s.auditAsync(raw, in, nil, errors.New("over notional limit"))
		s.writeError(w, http.StatusBadRequest, "order size exceeds configured limit")
		return
	}

	s.log.Info().Str("auth", string(method)).Str("side", string(in.Side)).
		Str("sym", in.Symbol).Str("quote_usd", in.QuoteUSD.StringFixed(2)).
		Str("reason", in.Reason).Msg("alert accepted")

	outcome, err := s.dispatcher.PlaceMarketOrder(r.Context(), in)
	s.auditAsync(raw, in, outcome, err)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	metrics.AlertsTotal.WithLabelValues("ok").Inc()
	placed := any(json.RawMessage(outcome.RawResponse))
	if !json.Valid(outcome.RawResponse) {
		placed = string(outcome.RawResponse)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"exchange": s.dispatcher.Name(),
		"placed":   placed,
	})
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	var upstream *trade.UpstreamError
	if errors.As(err, &upstream) {
		metrics.AlertsTotal.WithLabelValues("rejected").Inc()
		// The venue's status and body pass through verbatim; the caller
		// needs the exact diagnostic, not a rewrite.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(upstream.Status)
		_, _ = w.Write(upstream.Body)
		return
	}
	var unreachable *trade.UnreachableError
	if errors.As(err, &unreachable) {
		metrics.AlertsTotal.WithLabelValues("unreachable").Inc()
		s.log.Error().Err(err).Msg("exchange unreachable")
		s.writeError(w, http.StatusBadGateway, "exchange unreachable")
		return
	}
	if errors.Is(err, trade.ErrUnsupportedExchange) {
		metrics.AlertsTotal.WithLabelValues("malformed").Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.AlertsTotal.WithLabelValues("error").Inc()
	s.log.Error().Err(err).Msg("dispatch failed")
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

// auditAsync records best-effort off the request path. Failures are logged
// and counted, never surfaced to the webhook caller.
func (s *Server) auditAsync(raw []byte, in *trade.Intent, outcome *trade.Outcome, failure error) {
	if !s.sink.Enabled() {
		return
	}
	entry := audit.NewEntry(raw, in, outcome, failure)
	go func() {
		if err := s.sink.Record(context.Background(), entry); err != nil {
			metrics.AuditFailures.Inc()
			s.log.Warn().Err(err).Msg("audit delivery failed")
		}
		if s.audited != nil {
			s.audited <- struct{}{}
		}
	}()
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info().Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", rec.status).Dur("dur", time.Since(start)).
			Str("remote", r.RemoteAddr).Msg("request")
	})
}
