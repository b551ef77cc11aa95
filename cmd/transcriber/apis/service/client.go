package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	timeoutDefault = 5 * time.Minute
	maxErrBodyLen  = 4096
)

type ClientConfig struct {
	// The base URL of the service (e.g. http://localhost:8000).
	URL string
	// Sent as a bearer token when set.
	APIKey string
	// The overall timeout for a single request.
	Timeout time.Duration
}

func (c *ClientConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = timeoutDefault
	}
}

func (c ClientConfig) IsValid() error {
	if c.URL == "" {
		return fmt.Errorf("invalid URL: should not be empty")
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL: unsupported scheme %q", u.Scheme)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid Timeout: should be positive")
	}

	return nil
}

// client posts audio as multipart forms and decodes JSON responses.
type client struct {
	cfg ClientConfig
	hc  *http.Client
}

func newClient(cfg ClientConfig) (*client, error) {
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type formFile struct {
	name string
	data io.Reader
}

func (c *client) postForm(ctx context.Context, endpoint string, file formFile, fields map[string]string, out any) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write field %q: %w", k, err)
		}
	}

	fw, err := mw.CreateFormFile("file", file.name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, file.data); err != nil {
		return fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	u := strings.TrimSuffix(c.cfg.URL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyLen))
		return fmt.Errorf("%s %s: %s", endpoint, resp.Status, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
