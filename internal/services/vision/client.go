package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"storyloom/internal/config"
	"storyloom/internal/logging"
	"storyloom/internal/services"
)

// Doer abstracts the HTTP client for tests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Analysis is the service's verdict on a photo.
type Analysis struct {
	FaceDetected bool              `json:"face_detected"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Client is a vision-analysis service handle.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    Doer
	log     *slog.Logger
}

func NewClient(cfg config.Vision, httpClient Doer, log *slog.Logger) *Client {
	if httpClient == nil {
		timeout := time.Duration(cfg.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    httpClient,
		log:     logging.NewComponentLogger(log, "vision"),
	}
}

// Analyze submits a photo for facial attribute analysis.
func (c *Client) Analyze(ctx context.Context, photo []byte) (*Analysis, error) {
	if len(photo) == 0 {
		return nil, fmt.Errorf("%w: photo is empty", services.ErrValidation)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", "photo.png")
	if err != nil {
		return nil, fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return nil, fmt.Errorf("write photo part: %w", err)
	}
	if c.model != "" {
		if err := writer.WriteField("model", c.model); err != nil {
			return nil, fmt.Errorf("write model field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", &body)
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "analyze", "analyze", "vision analysis failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analyze response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalService, "analyze", "analyze",
			fmt.Sprintf("vision analysis returned status %d", resp.StatusCode), nil)
	}

	var parsed Analysis
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	c.log.Debug("photo analyzed", logging.Bool("face_detected", parsed.FaceDetected))
	return &parsed, nil
}

// BuildPrompt renders the analyzed attributes into a generation prompt,
// appended to the base prompt in stable attribute order.
func BuildPrompt(base string, analysis *Analysis) string {
	if analysis == nil || len(analysis.Attributes) == 0 {
		return base
	}
	keys := make([]string, 0, len(analysis.Attributes))
	for key := range analysis.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if strings.TrimSpace(base) != "" {
		parts = append(parts, strings.TrimSpace(base))
	}
	for _, key := range keys {
		if value := strings.TrimSpace(analysis.Attributes[key]); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, ", ")
}
