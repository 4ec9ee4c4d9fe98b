// Package recognition talks to the optical-recognition backend over HTTP.
package recognition

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/infrastructure/resilience"
)

// Client submits documents to the recognition backend and returns the raw
// response payload. Transport failures map to domain.ErrNetwork, non-2xx
// statuses to domain.ErrService with the backend's detail when available.
// Payload shape is validated downstream by the pipeline.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

func (c *Client) Recognize(ctx context.Context, filename, mimeType string, data []byte) ([]byte, error) {
	var payload []byte
	call := func(ctx context.Context) error {
		raw, err := c.recognizeOnce(ctx, filename, mimeType, data)
		if err != nil {
			return err
		}
		payload = raw
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "recognition.recognize", call, classifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) recognizeOnce(ctx context.Context, filename, mimeType string, data []byte) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart part: %w", err)
	}
	if err := writer.WriteField("mime_type", mimeType); err != nil {
		return nil, fmt.Errorf("write mime field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recognize", &body)
	if err != nil {
		return nil, fmt.Errorf("create recognize request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNetwork, "recognition request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serviceError(resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNetwork, "read recognition response", err)
	}
	return payload, nil
}

func serviceError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return domain.WrapError(domain.ErrService, "recognition backend",
			fmt.Errorf("status %s", resp.Status))
	}
	return domain.WrapError(domain.ErrService, "recognition backend",
		fmt.Errorf("status %s: %s", resp.Status, detail))
}

func classifyHTTPError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if domain.IsKind(err, domain.ErrNetwork) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	// Service errors carry the backend's verdict; retrying the same
	// document would not change it.
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
