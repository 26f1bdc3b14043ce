package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"harborbook/internal/config"
	"harborbook/internal/domain"
	"harborbook/internal/metrics"
	"harborbook/internal/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer is the listener the checkout page redirects back to. It turns
// return-URL hits into reconciler observations and serves a small ops API
// over the outcome journal.
type HTTPServer struct {
	cfg      config.ListenerConfig
	payments domain.PaymentManager
	journal  domain.OutcomeJournal
	logger   *zerolog.Logger
	server   *http.Server
	auth     *HTTPAuth
}

func NewHTTPServer(cfg config.ListenerConfig, payments domain.PaymentManager, journal domain.OutcomeJournal, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, payments: payments, journal: journal, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/payment/return", srv.handlePaymentReturn)
	mux.HandleFunc("/api/v1/outcomes", srv.auth.Wrap(srv.handleOutcomes))
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("listener started")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handlePaymentReturn receives the browser redirect from the hosted checkout
// page. The full URL (query included) is the reconciliation signal; the body
// we serve back is just a human-readable landing page.
func (s *HTTPServer) handlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("payment_return")

	rawURL := strings.TrimRight(s.cfg.PublicURL, "/") + r.URL.RequestURI()
	outcome, settled := s.payments.HandleNavigation(rawURL)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	switch {
	case settled && outcome.Result == models.OutcomeSuccess:
		fmt.Fprint(w, landingPage("Thanh toán thành công", "Bạn có thể quay lại Telegram để xem đơn đặt chỗ."))
	case settled:
		fmt.Fprint(w, landingPage("Thanh toán đã bị hủy", "Đơn đặt chỗ của bạn vẫn được giữ. Quay lại Telegram để thử lại."))
	default:
		fmt.Fprint(w, landingPage("Đã ghi nhận", "Bạn có thể đóng trang này và quay lại Telegram."))
	}
}

func (s *HTTPServer) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("outcomes")

	since := time.Now().AddDate(0, 0, -30)
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since; expected RFC3339")
			return
		}
		since = parsed
	}

	records, err := s.journal.ListOutcomes(r.Context(), since)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list outcomes")
		writeError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}
	if records == nil {
		records = []models.OutcomeRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"outcomes": records})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func landingPage(title, body string) string {
	return fmt.Sprintf(`<!doctype html><html lang="vi"><head><meta charset="utf-8"><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>`, title, title, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
