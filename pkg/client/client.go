package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is returned for non-200 responses. Code is the HTTP status.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("API error (%d): %s", e.Code, e.Message) }

// Client talks to a running launcher's local API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	// Token is the bearer token written by "dreamlauncher serve".
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

const defaultBaseURL = "http://127.0.0.1:8765/api"

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Timeout: 10 * time.Second,
	}
}

// New creates a new launcher API client. A zero Timeout means no timeout,
// which acquire and install need while an interactive installer runs.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the launcher API answers and accepts the token.
func (c *Client) IsReachable(ctx context.Context) bool {
	err := c.Ping(ctx)
	if err != nil {
		c.logger.Debug("Launcher unreachable", "error", err)
	}
	return err == nil
}

// Ping is IsReachable with the reason. A rejected token is an *APIError
// with Code 401.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/status", nil, nil)
}

// ProbeVersion reads the installed runtime version; installDir may be empty.
func (c *Client) ProbeVersion(ctx context.Context, installDir string) (Version, error) {
	var v Version
	err := c.do(ctx, http.MethodGet, "/version"+dirQuery(installDir), nil, &v)
	return v, err
}

// CheckVersion compares the installed runtime with the required version.
func (c *Client) CheckVersion(ctx context.Context, installDir string) (VersionStatus, error) {
	var st VersionStatus
	err := c.do(ctx, http.MethodGet, "/version/check"+dirQuery(installDir), nil, &st)
	return st, err
}

// Download fetches the installer for major.minor on the launcher side.
func (c *Client) Download(ctx context.Context, major, minor uint32) (DownloadOutcome, error) {
	var out DownloadOutcome
	err := c.do(ctx, http.MethodPost, "/download", Version{Major: major, Minor: minor}, &out)
	return out, err
}

// Install runs an installer already on the launcher's disk.
func (c *Client) Install(ctx context.Context, installerPath string) (InstallOutcome, error) {
	var out InstallOutcome
	err := c.do(ctx, http.MethodPost, "/install", map[string]string{"installer_path": installerPath}, &out)
	return out, err
}

// AcquireAndInstall downloads and installs major.minor.
func (c *Client) AcquireAndInstall(ctx context.Context, major, minor uint32) (InstallOutcome, error) {
	var out InstallOutcome
	err := c.do(ctx, http.MethodPost, "/acquire", Version{Major: major, Minor: minor}, &out)
	return out, err
}

// Launch starts the runtime and returns the launcher's message.
func (c *Client) Launch(ctx context.Context, req LaunchRequest) (string, error) {
	c.logger.Debug("Launching runtime", "address", req.Address)
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/launch", req, &out)
	return out.Message, err
}

// IsRunning asks whether the launcher-owned runtime is alive.
func (c *Client) IsRunning(ctx context.Context) (bool, error) {
	return c.running(ctx, "/running")
}

// IsRunningAnywhere asks whether any runtime process exists on the host.
func (c *Client) IsRunningAnywhere(ctx context.Context) (bool, error) {
	return c.running(ctx, "/running/any")
}

func (c *Client) running(ctx context.Context, path string) (bool, error) {
	var out struct {
		Running bool `json:"running"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Running, err
}

// Status returns the launcher status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

// SetPresence publishes a presence update. A 503 APIError means the update
// did not happen and may be ignored.
func (c *Client) SetPresence(ctx context.Context, req PresenceRequest) error {
	return c.do(ctx, http.MethodPost, "/presence", req, nil)
}

// ClearPresence closes the presence connection.
func (c *Client) ClearPresence(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/presence", nil, nil)
}

func dirQuery(dir string) string {
	if dir == "" {
		return ""
	}
	return "?install_dir=" + url.QueryEscape(dir)
}

// do performs a request; in and out are JSON bodies and may be nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed", "error", err, "path", path)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Error == "" {
		return &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	c.logger.Debug("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return &APIError{Code: resp.StatusCode, Message: errorResp.Error}
}
