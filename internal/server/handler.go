package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/styleglow/analyzer/internal/analysis"
	"github.com/styleglow/analyzer/internal/domain"
	"github.com/styleglow/analyzer/internal/imaging"
	"github.com/styleglow/analyzer/internal/telemetry"
)

// Analyzer runs one analysis request end to end.
type Analyzer interface {
	Analyze(ctx context.Context, req *analysis.Request, notify analysis.NotifyFunc) (*domain.AnalysisResult, error)
}

// Handler exposes the analysis pipeline over HTTP.
type Handler struct {
	analyzer  Analyzer
	logger    *slog.Logger
	limit     int
	remaining func(ctx context.Context) int
}

func NewHandler(analyzer Analyzer, limit int, remaining func(ctx context.Context) int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		analyzer:  analyzer,
		logger:    logger,
		limit:     limit,
		remaining: remaining,
	}
}

// Routes mounts the handler's endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/analyze", h.handleAnalyze)
	r.Get("/healthz", h.handleHealth)
}

type analyzeRequest struct {
	// Image is base64, raw or a data URL.
	Image  string `json:"image"`
	Prompt string `json:"prompt,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.Tracer().Start(r.Context(), "analyze")
	defer span.End()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrDecode("invalid request body"))
		return
	}
	if req.Image == "" {
		h.writeError(w, r, domain.ErrDecode("image is required"))
		return
	}

	image, err := imaging.DecodePayload(req.Image)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Retry progress lands in the request log, not the response.
	notify := func(n analysis.Notification) {
		h.logger.Info("analysis progress",
			slog.String("request_id", GetRequestID(ctx)),
			slog.String("level", string(n.Level)),
			slog.String("message", n.Message),
		)
	}

	result, err := h.analyzer.Analyze(ctx, &analysis.Request{Image: image, Prompt: req.Prompt}, notify)

	if info := GetRateLimits(ctx); info != nil && h.remaining != nil {
		info.Limit = h.limit
		info.Remaining = h.remaining(ctx)
		var derr *domain.Error
		if errors.As(err, &derr) && derr.Kind == domain.ErrorKindRateLimited {
			info.Reset = time.Now().Add(derr.RetryAfter).UTC().Format(time.RFC3339)
		}
	}

	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	status := http.StatusInternalServerError
	kind := "internal"
	message := err.Error()

	var derr *domain.Error
	if errors.As(err, &derr) {
		status = derr.HTTPStatusCode()
		kind = string(derr.Kind)
		message = derr.Message

		if derr.Kind == domain.ErrorKindRateLimited && derr.RetryAfter > 0 {
			// Seconds, rounded up so clients never retry early.
			secs := int((derr.RetryAfter + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", itoa(secs))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Kind: kind, Message: message}})
}
