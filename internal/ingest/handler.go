package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/batch"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/metrics"
)

// Limiter is *ratelimit.Checker.
type Limiter interface {
	Check(ctx context.Context, s ratelimit.Subject) (ratelimit.Result, error)
}

// Response is the body of a synchronous 200.
type Response struct {
	*batch.Result
	Status         string    `json:"status"`
	RawIngestionID uuid.UUID `json:"raw_ingestion_id"`
}

// AcceptedResponse is the body of a 202.
type AcceptedResponse struct {
	JobID          uuid.UUID `json:"job_id"`
	RawIngestionID uuid.UUID `json:"raw_ingestion_id"`
	Status         string    `json:"status"`
}

// Handler serves POST /v1/ingest.
type Handler struct {
	svc     *Service
	auth    auth.Authenticator
	limiter Limiter
	cfg     config.IngestConfig
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, a auth.Authenticator, limiter Limiter, cfg config.IngestConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, auth: a, limiter: limiter, cfg: cfg, logger: logger}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if err := CheckContentType(r.Header.Get("Content-Type")); err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := ReadBody(w, r, h.cfg.MaxRequestBytes)
	if err != nil {
		var tooLarge *BodyTooLargeError
		if errors.As(err, &tooLarge) {
			h.logger.Infow("ingest body too large", "limit", tooLarge.Max, "remote", r.RemoteAddr)
			h.fail(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	ac, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		if auth.IsAuthError(err) {
			h.fail(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Errorw("authentication failed", "err", err)
		h.fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	rl, err := h.limiter.Check(r.Context(), ratelimit.Subject{
		KeyID:    ac.Key.ID,
		KeyLimit: ac.Key.RateLimitPerHour,
		UserID:   ac.User.ID,
		IP:       ratelimit.ClientIP(r),
	})
	var denied *ratelimit.DeniedError
	if errors.As(err, &denied) {
		ratelimit.SetHeaders(w.Header(), denied.Result)
		h.fail(w, http.StatusTooManyRequests, err.Error())
		return
	}
	ratelimit.SetHeaders(w.Header(), rl)

	out, err := h.svc.Ingest(r.Context(), ac, body)
	if err != nil {
		if errors.Is(err, ErrInvalidJSON) {
			h.fail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Errorw("ingest failed", "user_id", ac.User.ID, "err", err)
		h.fail(w, http.StatusInternalServerError, "failed to store payload")
		return
	}

	if out.JobID != nil {
		h.respond(w, http.StatusAccepted, AcceptedResponse{JobID: *out.JobID, RawIngestionID: out.RawID, Status: "accepted"})
		return
	}
	switch {
	case batch.IsRefusal(out.Err):
		h.respond(w, http.StatusRequestEntityTooLarge, map[string]any{"error": out.Err.Error(), "raw_ingestion_id": out.RawID})
	case errors.Is(out.Err, batch.ErrStoreUnavailable):
		h.logger.Errorw("store unavailable", "raw_id", out.RawID, "err", out.Err)
		h.respond(w, http.StatusInternalServerError, map[string]any{"error": "store unavailable", "raw_ingestion_id": out.RawID})
	default:
		if out.Err != nil {
			h.logger.Warnw("ingest interrupted", "raw_id", out.RawID, "err", out.Err)
		}
		res := out.Result
		if res == nil {
			res = &batch.Result{}
		}
		h.respond(w, http.StatusOK, Response{
			Result:         res.Truncated(h.cfg.MaxErrorsPerVariant),
			Status:         StatusOf(out.Result, out.Err),
			RawIngestionID: out.RawID,
		})
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, map[string]string{"error": msg})
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	metrics.Inc(metrics.IngestRequests, prometheus.Labels{"status": strconv.Itoa(status)}, 1)
	h.writeJSON(w, status, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
