package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/styleglow/analyzer/internal/analysis"
	"github.com/styleglow/analyzer/internal/domain"
)

type fakeAnalyzer struct {
	result *domain.AnalysisResult
	err    error

	gotImage  []byte
	gotPrompt string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req *analysis.Request, notify analysis.NotifyFunc) (*domain.AnalysisResult, error) {
	f.gotImage = req.Image
	f.gotPrompt = req.Prompt
	return f.result, f.err
}

func newTestRouter(a Analyzer, limit int, remaining func(ctx context.Context) int) *chi.Mux {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	h := NewHandler(a, limit, remaining, logger)
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RateLimitHeaderMiddleware)
	h.Routes(r)
	return r
}

func analyzeBody(t *testing.T, image []byte, prompt string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"image":  base64.StdEncoding.EncodeToString(image),
		"prompt": prompt,
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(body)
}

func TestHandleAnalyze_Success(t *testing.T) {
	fake := &fakeAnalyzer{
		result: &domain.AnalysisResult{
			Summary:     "Warm autumn palette suits you.",
			Suggestions: []string{"Try earth tones."},
			Details: map[domain.Category]string{
				domain.CategoryGeneral: "Balanced proportions.",
			},
			RecaptureSuggestions: []string{"Use natural light."},
		},
	}

	router := newTestRouter(fake, 1, func(ctx context.Context) int { return 0 })

	req := httptest.NewRequest("POST", "/v1/analyze", analyzeBody(t, []byte("fake-image"), "focus on color"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result.Summary != fake.result.Summary {
		t.Errorf("summary = %q, want %q", result.Summary, fake.result.Summary)
	}

	if string(fake.gotImage) != "fake-image" {
		t.Errorf("analyzer got image %q, want fake-image", fake.gotImage)
	}
	if fake.gotPrompt != "focus on color" {
		t.Errorf("analyzer got prompt %q", fake.gotPrompt)
	}

	checkHeader(t, rec, "x-ratelimit-limit-requests", "1")
	checkHeader(t, rec, "x-ratelimit-remaining-requests", "0")
}

func TestHandleAnalyze_DataURLAccepted(t *testing.T) {
	fake := &fakeAnalyzer{result: &domain.AnalysisResult{Summary: "ok"}}
	router := newTestRouter(fake, 1, nil)

	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("raw-bytes"))
	body, _ := json.Marshal(map[string]string{"image": payload})

	req := httptest.NewRequest("POST", "/v1/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if string(fake.gotImage) != "raw-bytes" {
		t.Errorf("analyzer got image %q, want raw-bytes", fake.gotImage)
	}
}

func TestHandleAnalyze_RateLimited(t *testing.T) {
	fake := &fakeAnalyzer{err: domain.ErrRateLimited(90 * time.Second)}
	router := newTestRouter(fake, 1, func(ctx context.Context) int { return 0 })

	req := httptest.NewRequest("POST", "/v1/analyze", analyzeBody(t, []byte("img"), ""))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	checkHeader(t, rec, "Retry-After", "90")
	if rec.Header().Get("x-ratelimit-reset-requests") == "" {
		t.Error("expected reset header on rate limited response")
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp.Error.Kind != string(domain.ErrorKindRateLimited) {
		t.Errorf("error kind = %q, want %q", resp.Error.Kind, domain.ErrorKindRateLimited)
	}
}

func TestHandleAnalyze_RetryAfterRoundsUp(t *testing.T) {
	fake := &fakeAnalyzer{err: domain.ErrRateLimited(1500 * time.Millisecond)}
	router := newTestRouter(fake, 1, nil)

	req := httptest.NewRequest("POST", "/v1/analyze", analyzeBody(t, []byte("img"), ""))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	checkHeader(t, rec, "Retry-After", "2")
}

func TestHandleAnalyze_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", domain.ErrTimeout("analysis timed out"), http.StatusGatewayTimeout},
		{"overloaded", domain.ErrOverloaded("model overloaded"), http.StatusServiceUnavailable},
		{"malformed", domain.ErrMalformedResponse("bad payload"), http.StatusBadGateway},
		{"network", domain.ErrNetwork("connection refused"), http.StatusBadGateway},
		{"decode", domain.ErrDecode("not an image"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeAnalyzer{err: tt.err}, 1, nil)

			req := httptest.NewRequest("POST", "/v1/analyze", analyzeBody(t, []byte("img"), ""))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleAnalyze_InvalidBody(t *testing.T) {
	router := newTestRouter(&fakeAnalyzer{}, 1, nil)

	req := httptest.NewRequest("POST", "/v1/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyze_MissingImage(t *testing.T) {
	router := newTestRouter(&fakeAnalyzer{}, 1, nil)

	req := httptest.NewRequest("POST", "/v1/analyze", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyze_BadBase64(t *testing.T) {
	router := newTestRouter(&fakeAnalyzer{}, 1, nil)

	req := httptest.NewRequest("POST", "/v1/analyze", strings.NewReader(`{"image":"%%%not-base64%%%"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(&fakeAnalyzer{}, 1, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
