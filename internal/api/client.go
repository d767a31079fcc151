package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/internal/worker"
	"github.com/routethat/playsim/pkg/core"
)

// Client talks to a running playsim API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new API client. apiKey is sent as the import secret.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the API is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// ListPlays returns the stored plays.
func (c *Client) ListPlays(ctx context.Context) ([]core.SavedPlay, error) {
	var plays []core.SavedPlay
	err := c.do(ctx, http.MethodGet, "/api/v1/plays", nil, &plays)
	return plays, err
}

// SavePlay upserts a play by name.
func (c *Client) SavePlay(ctx context.Context, play core.SavedPlay) error {
	return c.do(ctx, http.MethodPut, "/api/v1/plays/"+url.PathEscape(play.Name), play.Routes, nil)
}

// DeletePlay removes a play; a missing play yields storage.ErrPlayNotFound.
func (c *Client) DeletePlay(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/plays/"+url.PathEscape(name), nil, nil)
}

// Simulate runs a play headless on the server.
func (c *Client) Simulate(ctx context.Context, req worker.SimulateRequest) (*worker.SimulateResponse, error) {
	var resp worker.SimulateResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/simulate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Results lists recent results, newest first.
func (c *Client) Results(ctx context.Context, limit int) ([]core.PlayResult, error) {
	var results []core.PlayResult
	err := c.do(ctx, http.MethodGet, "/api/v1/results?limit="+strconv.Itoa(limit), nil, &results)
	return results, err
}

// ImportPlays uploads a JSON file holding an array of plays.
func (c *Client) ImportPlays(filePath string) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Create multipart form
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	// Write form fields and file in goroutine
	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		_ = writer.WriteField("secret", c.apiKey)

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			errCh <- fmt.Errorf("failed to copy file: %w", err)
			return
		}
		errCh <- nil
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/plays/import", pr)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("import request failed: %w", err)
	}
	defer resp.Body.Close()

	// Check goroutine error
	if writeErr := <-errCh; writeErr != nil {
		return 0, writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return 0, responseError(resp)
	}
	var out struct {
		Imported int `json:"imported"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode import response: %w", err)
	}
	return out.Imported, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError turns an error reply back into a domain error where one maps.
func responseError(resp *http.Response) error {
	var e ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&e)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", storage.ErrPlayNotFound, e.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", worker.ErrInvalidRequest, e.Message)
	case http.StatusNotImplemented:
		return fmt.Errorf("%w: %s", storage.ErrNotSupported, e.Message)
	}
	if e.Message != "" {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, e.Message)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
