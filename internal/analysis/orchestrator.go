package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/styleglow/analyzer/internal/domain"
	"github.com/styleglow/analyzer/internal/imaging"
	"github.com/styleglow/analyzer/internal/normalize"
	"github.com/styleglow/analyzer/internal/ratelimit"
	"github.com/styleglow/analyzer/internal/state"
	"github.com/styleglow/analyzer/internal/wire"
)

const (
	defaultMaxWidth       = 1024
	defaultMaxHeight      = 1024
	defaultQuality        = 80
	defaultAttemptTimeout = 60 * time.Second
	defaultPrimaryModel   = "gemini-2.5-flash"
	defaultFallbackModel  = "gemini-2.0-flash"
)

// Request is one analysis invocation: the raw image bytes plus an optional
// prompt override.
type Request struct {
	Image  []byte
	Prompt string
}

// Uploader ships the original image to archival storage. Start must return
// immediately; the upload runs detached and its outcome never influences
// the analysis.
type Uploader interface {
	Start(image []byte)
}

// TokenEstimator estimates prompt token counts for diagnostics.
type TokenEstimator interface {
	Estimate(text string) (int, error)
}

// Orchestrator runs the full analysis pipeline.
type Orchestrator struct {
	limiter *ratelimit.Limiter
	client  *Client
	store   state.Store

	uploader  Uploader
	estimator TokenEstimator
	logger    *slog.Logger

	maxWidth       int
	maxHeight      int
	quality        int
	attemptTimeout time.Duration
	primaryModel   string
	fallbackModel  string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithUploader attaches the background upload sidecar.
func WithUploader(u Uploader) Option {
	return func(o *Orchestrator) { o.uploader = u }
}

// WithTokenEstimator attaches a prompt token estimator for diagnostics.
func WithTokenEstimator(e TokenEstimator) Option {
	return func(o *Orchestrator) { o.estimator = e }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithCompression overrides the compression bounds for model input.
func WithCompression(maxWidth, maxHeight, quality int) Option {
	return func(o *Orchestrator) {
		o.maxWidth = maxWidth
		o.maxHeight = maxHeight
		o.quality = quality
	}
}

// WithAttemptTimeout overrides the per-attempt deadline.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// WithModels sets the primary and fallback model identifiers.
func WithModels(primary, fallback string) Option {
	return func(o *Orchestrator) {
		o.primaryModel = primary
		o.fallbackModel = fallback
	}
}

// New creates an orchestrator over the given collaborators.
func New(limiter *ratelimit.Limiter, client *Client, store state.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		limiter:        limiter,
		client:         client,
		store:          store,
		logger:         slog.Default(),
		maxWidth:       defaultMaxWidth,
		maxHeight:      defaultMaxHeight,
		quality:        defaultQuality,
		attemptTimeout: defaultAttemptTimeout,
		primaryModel:   defaultPrimaryModel,
		fallbackModel:  defaultFallbackModel,
		now:            time.Now,
		sleep:          sleepWithContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs the pipeline: rate-limit gate, compression, the retry/
// fallback attempt sequence, and normalization. notify may be nil. The
// rate-limit slot and usage counter are consumed only on success.
func (o *Orchestrator) Analyze(ctx context.Context, req *Request, notify NotifyFunc) (*domain.AnalysisResult, error) {
	decision, err := o.limiter.CheckAndReserve(ctx, o.now())
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !decision.Allowed {
		return nil, domain.ErrRateLimited(decision.RetryAfter)
	}

	compressed, err := imaging.Compress(req.Image, o.maxWidth, o.maxHeight, o.quality)
	if err != nil {
		return nil, err
	}
	o.logger.Info("image compressed",
		slog.Int("original_bytes", compressed.OriginalBytes),
		slog.Int("compressed_bytes", compressed.CompressedBytes),
		slog.Int("width", compressed.Width),
		slog.Int("height", compressed.Height),
	)

	// Archival upload runs detached; its outcome never affects analysis.
	if o.uploader != nil {
		o.uploader.Start(req.Image)
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = analysisPrompt
	}
	// Logged at the same level as the backend's reported usage so the two
	// can be compared in one log stream.
	if o.estimator != nil {
		if estimate, err := o.estimator.Estimate(prompt); err == nil {
			o.logger.Info("prompt token estimate", slog.Int("tokens", estimate))
		}
	}

	payload := imaging.EncodePayload(compressed.Data)

	raw, err := o.runAttempts(ctx, payload, prompt, notify)
	if err != nil {
		return nil, err
	}

	result, err := normalize.Normalize(raw)
	if err != nil {
		// Malformed payloads are terminal; a retry would fetch the same shape.
		return nil, err
	}

	if err := o.limiter.Commit(ctx, o.now()); err != nil {
		o.logger.Error("rate limit commit failed", slog.String("error", err.Error()))
	}
	if count, err := o.store.Increment(ctx, state.KeyAnalysisCount); err != nil {
		o.logger.Error("usage counter increment failed", slog.String("error", err.Error()))
	} else {
		o.logger.Info("analysis completed", slog.Int64("total_analyses", count))
	}

	if result.TokenUsage != nil {
		o.logger.Info("token usage",
			slog.Int("prompt_tokens", result.TokenUsage.PromptTokens),
			slog.Int("response_tokens", result.TokenUsage.ResponseTokens),
			slog.Int("total_tokens", result.TokenUsage.TotalTokens),
		)
	}

	return result, nil
}

// runAttempts drives the retry/fallback state machine: at most three
// requests, two fixed backoffs, one model switch.
func (o *Orchestrator) runAttempts(ctx context.Context, payload, prompt string, notify NotifyFunc) ([]byte, error) {
	st := statePrimaryFirst
	var raw []byte
	var attemptErr error

	for !st.terminal() {
		number, fallback := st.attempt()
		model := o.primaryModel
		if fallback {
			model = o.fallbackModel
		}

		raw, attemptErr = o.attempt(ctx, payload, prompt, model)
		if attemptErr != nil {
			o.logger.Warn("analysis attempt failed",
				slog.Int("attempt", number),
				slog.String("model", model),
				slog.String("state", st.String()),
				slog.String("error", attemptErr.Error()),
			)
		}

		next, fx := transition(st, classify(attemptErr))
		if fx.notify != nil {
			o.logger.Info("retry notification", slog.String("message", fx.notify.Message))
			if notify != nil {
				notify(*fx.notify)
			}
		}
		if fx.delay > 0 {
			if !o.sleep(ctx, fx.delay) {
				return nil, domain.ErrTimeout("analysis cancelled during backoff")
			}
		}
		if fx.exhausted {
			attemptErr = domain.ErrOverloaded("all analysis attempts exhausted")
		}
		st = next
	}

	if st == stateFailed {
		return nil, attemptErr
	}
	return raw, nil
}

func (o *Orchestrator) attempt(ctx context.Context, payload, prompt, model string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	return o.client.Analyze(attemptCtx, &wire.Request{
		Image:  payload,
		Prompt: prompt,
		Model:  model,
	})
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
