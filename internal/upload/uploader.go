package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/styleglow/analyzer/internal/imaging"
)

const (
	defaultMaxWidth  = 2048
	defaultMaxHeight = 2048
	defaultQuality   = 92
	defaultTimeout   = 30 * time.Second
	appTag           = "style_glow_ai_app"
)

// Uploader ships the original photo to object storage. It compresses with
// archival bounds, looser than the model-input compressor, since this copy
// is kept rather than analyzed.
type Uploader struct {
	configClient *ConfigClient
	httpClient   *http.Client
	logger       *slog.Logger

	baseURL   string
	maxWidth  int
	maxHeight int
	quality   int
	timeout   time.Duration

	// anonID identifies this installation across uploads within a process.
	anonID string
}

// UploaderOption configures the uploader.
type UploaderOption func(*Uploader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) UploaderOption {
	return func(u *Uploader) { u.httpClient = httpClient }
}

// WithBaseURL overrides the upload service base URL.
func WithBaseURL(baseURL string) UploaderOption {
	return func(u *Uploader) { u.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) UploaderOption {
	return func(u *Uploader) { u.logger = logger }
}

// WithArchivalBounds overrides the archival compression parameters.
func WithArchivalBounds(maxWidth, maxHeight, quality int) UploaderOption {
	return func(u *Uploader) {
		u.maxWidth = maxWidth
		u.maxHeight = maxHeight
		u.quality = quality
	}
}

// WithTimeout overrides the upload deadline.
func WithTimeout(d time.Duration) UploaderOption {
	return func(u *Uploader) { u.timeout = d }
}

// NewUploader creates the sidecar uploader.
func NewUploader(configClient *ConfigClient, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		configClient: configClient,
		httpClient:   http.DefaultClient,
		logger:       slog.Default(),
		baseURL:      "https://api.cloudinary.com",
		maxWidth:     defaultMaxWidth,
		maxHeight:    defaultMaxHeight,
		quality:      defaultQuality,
		timeout:      defaultTimeout,
		anonID:       uuid.New().String(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Start launches the upload as a detached task. It returns immediately;
// the analysis flow never waits on, or learns about, the outcome.
func (u *Uploader) Start(image []byte) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
		defer cancel()

		if url, ok := u.UploadOriginal(ctx, image); ok {
			u.logger.Info("background upload complete", slog.String("url", url))
		}
	}()
}

// UploadOriginal uploads the image and returns its secure URL. All failure
// modes are logged and reported as ok=false; no error ever escapes.
func (u *Uploader) UploadOriginal(ctx context.Context, image []byte) (url string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("background upload panic", slog.Any("panic", r))
			url, ok = "", false
		}
	}()

	cfg, err := u.configClient.Fetch(ctx)
	if err != nil {
		u.logger.Warn("background upload skipped", slog.String("error", err.Error()))
		return "", false
	}

	compressed, err := imaging.Compress(image, u.maxWidth, u.maxHeight, u.quality)
	if err != nil {
		u.logger.Warn("background upload compression failed", slog.String("error", err.Error()))
		return "", false
	}

	secureURL, err := u.post(ctx, cfg, compressed.Data)
	if err != nil {
		u.logger.Warn("background upload failed", slog.String("error", err.Error()))
		return "", false
	}

	return secureURL, true
}

func (u *Uploader) post(ctx context.Context, cfg *Config, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fileField, err := form.CreateFormField("file")
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.WriteString(fileField, "data:image/jpeg;base64,"+imaging.EncodePayload(data)); err != nil {
		return "", fmt.Errorf("failed to write file field: %w", err)
	}

	if err := form.WriteField("upload_preset", cfg.UploadPreset); err != nil {
		return "", fmt.Errorf("failed to write preset field: %w", err)
	}
	if err := form.WriteField("tags", JoinTags([]string{appTag, "go_client"})); err != nil {
		return "", fmt.Errorf("failed to write tags field: %w", err)
	}

	contextKeys := []string{"anon_id", "client_ip", "user_agent", "language", "browser"}
	contextValues := map[string]string{
		"anon_id":    firstNonEmpty(cfg.AnonID, u.anonID),
		"client_ip":  cfg.ClientIP,
		"user_agent": cfg.UserAgent,
		"language":   cfg.Language,
		"browser":    cfg.BrowserName,
	}
	if joined := JoinContext(contextKeys, contextValues); joined != "" {
		if err := form.WriteField("context", joined); err != nil {
			return "", fmt.Errorf("failed to write context field: %w", err)
		}
	}

	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", u.baseURL, cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload response missing secure_url")
	}

	return result.SecureURL, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
