package config

import (
	"strconv"
	"time"
)

const (
	apiURLVar      = "API_URL"
	httpTimeoutVar = "HTTP_TIMEOUT_SECONDS"
	refreshPathVar = "REFRESH_PATH"

	defaultAPIBaseURL  = "http://localhost:3000/api"
	defaultHTTPTimeout = 10 * time.Second
	defaultRefreshPath = "/auth/refresh"
)

type Client struct{}

var _ ClientConfig = Client{}

// GetAPIBaseURL returns the base URL all API paths are resolved against
// (e.g., "https://api.example.com/api").
func (Client) GetAPIBaseURL() string {
	return GetEnv(apiURLVar, defaultAPIBaseURL)
}

// GetHTTPTimeout returns the per-call timeout applied to every outbound
// request, independent of the renewal flow.
func (Client) GetHTTPTimeout() time.Duration {
	raw := GetEnv(httpTimeoutVar, "")
	if raw == "" {
		return defaultHTTPTimeout
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return defaultHTTPTimeout
	}
	return time.Duration(seconds) * time.Second
}

// GetRefreshPath returns the token renewal endpoint path.
func (Client) GetRefreshPath() string {
	return GetEnv(refreshPathVar, defaultRefreshPath)
}
