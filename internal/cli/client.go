package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/api"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"go.uber.org/zap"
)

type apiErrorResponse struct {
	Error string `json:"error"`
}

// apiError is a non-2xx answer of the query API.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// apiClient talks to the query API served by cmd/server.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func newAPIClient(baseURL, token string, log *zap.Logger) *apiClient {
	return &apiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// do sends body as JSON (when not nil) and decodes a successful answer into out
// (when not nil).
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	targetURL := c.baseURL + path
	c.log.Debug("Requesting", zap.String("method", method), zap.String("url", targetURL))
	req, err := http.NewRequestWithContext(ctx, method, targetURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp apiErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return &apiError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &apiError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse API response: %w", err)
	}
	return nil
}

func (c *apiClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	var resp api.ListProjectsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

func (c *apiClient) GetProject(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", id), nil, &project)
	return project, err
}

func (c *apiClient) CreateVersion(ctx context.Context, req api.VersionRequest) (models.Version, error) {
	var version models.Version
	err := c.do(ctx, http.MethodPost, "/api/v1/versions", req, &version)
	return version, err
}
