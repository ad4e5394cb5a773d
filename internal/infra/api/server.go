package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/infra/logging"
	"masterclass-reconciler/internal/infra/metrics"
	"masterclass-reconciler/internal/usecase"
)

const maxBodyBytes = 64 << 10

// Server exposes payment reconciliation and the reminder trigger over HTTP.
type Server struct {
	payUC       usecase.PaymentUseCase
	remUC       usecase.ReminderUseCase
	operators   *OperatorAuth
	cronSecret  string
	sweepBudget time.Duration
	validate    *validator.Validate
	log         *zerolog.Logger
}

func NewServer(
	payUC usecase.PaymentUseCase,
	remUC usecase.ReminderUseCase,
	operators *OperatorAuth,
	cronSecret string,
	sweepBudget time.Duration,
	logger *zerolog.Logger,
) *Server {
	if sweepBudget <= 0 {
		sweepBudget = 5 * time.Minute
	}
	l := logger.With().Str("component", "API").Logger()
	return &Server{
		payUC:       payUC,
		remUC:       remUC,
		operators:   operators,
		cronSecret:  cronSecret,
		sweepBudget: sweepBudget,
		validate:    validator.New(),
		log:         &l,
	}
}

// NewRouter builds the full handler: middlewares, API routes, health and metrics.
func NewRouter(s *Server, requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Timeout(requestTimeout))
		s.RegisterPayments(r)
	})
	// the sweep brings its own budget
	s.RegisterCron(r)
	return r
}

func (s *Server) RegisterPayments(r chi.Router) {
	r.Post("/payments/verify", s.handleVerify)
	r.Post("/payments/mark-failed", s.handleMarkFailed)
}

func (s *Server) RegisterCron(r chi.Router) {
	r.Get("/cron/reminders", s.handleReminders)
	r.Post("/cron/reminders", s.handleReminders)
}

// ===== DTOs =====

type verifyRequest struct {
	OrderID       string          `json:"order_id" validate:"required,max=128"`
	PaymentID     string          `json:"payment_id" validate:"max=128"`
	Signature     string          `json:"signature" validate:"max=256"`
	ResourceID    string          `json:"resource_id" validate:"required,max=128"`
	SubResourceID string          `json:"sub_resource_id" validate:"max=128"`
	UserID        string          `json:"user_id" validate:"required,max=128"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          string          `json:"mode" validate:"omitempty,oneof=gateway test"`
	Email         string          `json:"email" validate:"omitempty,email,max=254"`
	Name          string          `json:"name" validate:"max=200"`
}

type verifyResponse struct {
	Success bool `json:"success"`
	*usecase.VerifyResult
}

type markFailedRequest struct {
	UserID        string `json:"user_id" validate:"required,max=128"`
	OrderID       string `json:"order_id" validate:"required,max=128"`
	FailureReason string `json:"failure_reason" validate:"max=500"`
	ErrorCode     string `json:"error_code" validate:"max=64"`
}

type sweepResponse struct {
	Success bool `json:"success"`
	*usecase.SweepReport
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ===== Handlers =====

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req verifyRequest
	if err := s.decode(w, r, &req); err != nil {
		s.observeVerify(start, "bad_json")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.observeVerify(start, "invalid_argument")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := usecase.VerifyInput{
		OrderID:       req.OrderID,
		PaymentID:     req.PaymentID,
		Signature:     req.Signature,
		ResourceID:    req.ResourceID,
		SubResourceID: req.SubResourceID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Mode:          usecase.VerifyMode(req.Mode),
		Email:         req.Email,
		Name:          req.Name,
	}
	if in.Mode == usecase.VerifyModeTest {
		in.Operator = s.operators.IsOperator(r)
		status := "unauthorized"
		if in.Operator {
			status = "authorized"
		}
		metrics.IncAuthAttempt("operator", status)
	}

	res, err := s.payUC.Reconcile(r.Context(), in)
	if err != nil {
		s.observeVerify(start, reasonFor(err))
		s.fail(w, r, err)
		return
	}
	s.observeVerify(start, "")
	writeJSON(w, http.StatusOK, verifyResponse{Success: true, VerifyResult: res})
}

func (s *Server) handleMarkFailed(w http.ResponseWriter, r *http.Request) {
	var req markFailedRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "user_id and order_id are required")
		return
	}
	if err := s.payUC.MarkFailed(r.Context(), req.UserID, req.OrderID, req.FailureReason, req.ErrorCode); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(bearerToken(r), s.cronSecret) {
		metrics.IncAuthAttempt("cron", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	metrics.IncAuthAttempt("cron", "authorized")

	ctx, cancel := context.WithTimeout(r.Context(), s.sweepBudget)
	defer cancel()
	report, err := s.remUC.Sweep(ctx, time.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{Success: true, SweepReport: report, Timestamp: time.Now().UTC()})
}

// ===== helpers =====

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeError(w, code, msg)
}

func (s *Server) observeVerify(start time.Time, reason string) {
	result := "ok"
	if reason != "" {
		result = "fail"
	}
	metrics.PaymentVerifyRequests.WithLabelValues(result, reason).Inc()
	metrics.PaymentVerifyDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrTestModeDisabled),
		errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSweepInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrTestModeDisabled):
		return "test_mode"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Success: false, Error: msg})
}
