package faceswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"storyloom/internal/config"
	"storyloom/internal/logging"
	"storyloom/internal/services"
)

// Doer abstracts the HTTP client for tests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a face-transformation service handle. Construct one per process
// and pass it by reference; it holds no per-job state.
type Client struct {
	baseURL        string
	apiKey         string
	http           Doer
	pollInterval   time.Duration
	collectTimeout time.Duration
	log            *slog.Logger
}

// NewClient builds a client from configuration. httpClient may be nil, in
// which case a default client with the configured request timeout is used.
func NewClient(cfg config.FaceSwap, httpClient Doer, log *slog.Logger) *Client {
	if httpClient == nil {
		timeout := time.Duration(cfg.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	collectTimeout := time.Duration(cfg.CollectTimeout) * time.Second
	if collectTimeout <= 0 {
		collectTimeout = 10 * time.Minute
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		http:           httpClient,
		pollInterval:   pollInterval,
		collectTimeout: collectTimeout,
		log:            logging.NewComponentLogger(log, "faceswap"),
	}
}

// SubmitRequest carries one transformation submission. Mask is optional;
// a nil Seed lets the service pick its own.
type SubmitRequest struct {
	SourcePhoto        []byte
	TargetIllustration []byte
	Mask               []byte
	Prompt             string
	NegativePrompt     string
	Seed               *int64
}

type submitResponse struct {
	Token string `json:"token"`
}

type statusResponse struct {
	Status string `json:"status"` // "queued", "processing", "completed", "failed"
	Error  string `json:"error,omitempty"`
}

// RandomSeed returns a seed in the service's accepted range [1, 2^31).
func RandomSeed() int64 {
	return rand.Int63n(1<<31-1) + 1
}

// Submit uploads the inputs and returns the service's job token without
// waiting for the render.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if len(req.SourcePhoto) == 0 {
		return "", fmt.Errorf("%w: source photo is empty", services.ErrValidation)
	}
	if len(req.TargetIllustration) == 0 {
		return "", fmt.Errorf("%w: target illustration is empty", services.ErrValidation)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writeFilePart(writer, "source_photo", "source.png", req.SourcePhoto); err != nil {
		return "", err
	}
	if err := writeFilePart(writer, "target_illustration", "target.png", req.TargetIllustration); err != nil {
		return "", err
	}
	if len(req.Mask) > 0 {
		if err := writeFilePart(writer, "mask", "mask.png", req.Mask); err != nil {
			return "", err
		}
	}
	if err := writer.WriteField("prompt", req.Prompt); err != nil {
		return "", fmt.Errorf("write prompt field: %w", err)
	}
	if err := writer.WriteField("negative_prompt", req.NegativePrompt); err != nil {
		return "", fmt.Errorf("write negative_prompt field: %w", err)
	}
	if req.Seed != nil {
		if err := writer.WriteField("seed", strconv.FormatInt(*req.Seed, 10)); err != nil {
			return "", fmt.Errorf("write seed field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/face-transfer", &body)
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "", "submit", "face transfer submission failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", services.Wrap(services.ErrExternalService, "", "submit",
			fmt.Sprintf("face transfer submission returned status %d: %s", resp.StatusCode, truncate(payload)), nil)
	}

	var parsed submitResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if parsed.Token == "" {
		return "", services.Wrap(services.ErrExternalService, "", "submit", "submission response missing token", nil)
	}

	c.log.Debug("face transfer submitted", logging.String("token", parsed.Token))
	return parsed.Token, nil
}

// Collect blocks until the token's result is ready and returns the rendered
// image bytes. The wait is bounded by the configured collect timeout.
func (c *Client) Collect(ctx context.Context, token string) ([]byte, error) {
	deadline := time.Now().Add(c.collectTimeout)
	interval := c.pollInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.status(ctx, token)
		if err != nil {
			return nil, err
		}
		switch status.Status {
		case "completed":
			return c.result(ctx, token)
		case "failed":
			return nil, services.Wrap(services.ErrExternalService, "", "collect",
				fmt.Sprintf("face transfer %s failed: %s", token, status.Error), nil)
		}

		if time.Now().After(deadline) {
			return nil, services.Wrap(services.ErrTimeout, "", "collect",
				fmt.Sprintf("face transfer %s not ready after %s", token, c.collectTimeout), nil)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) status(ctx context.Context, token string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/face-transfer/"+token, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "", "collect", "face transfer status poll failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalService, "", "collect",
			fmt.Sprintf("status poll for %s returned %d: %s", token, resp.StatusCode, truncate(payload)), nil)
	}

	var parsed statusResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &parsed, nil
}

func (c *Client) result(ctx context.Context, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/face-transfer/"+token+"/result", nil)
	if err != nil {
		return nil, fmt.Errorf("build result request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "", "collect", "face transfer result fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, services.Wrap(services.ErrExternalService, "", "collect",
			fmt.Sprintf("result fetch for %s returned %d: %s", token, resp.StatusCode, truncate(payload)), nil)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}

func writeFilePart(writer *multipart.Writer, field, filename string, data []byte) error {
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write %s part: %w", field, err)
	}
	return nil
}

func truncate(payload []byte) string {
	const max = 300
	if len(payload) > max {
		return string(payload[:max]) + "..."
	}
	return string(payload)
}
