package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/herdsman/internal/infra/buildinfo"
)

// unixPrefix marks a Unix domain socket address.
const unixPrefix = "unix:"

// DefaultTimeout bounds one request.
const DefaultTimeout = 30 * time.Second

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for server.
func NewHTTPClient(server string) *HTTPClient {
	client := &http.Client{Timeout: DefaultTimeout}

	if path, ok := strings.CutPrefix(server, unixPrefix); ok {
		var d net.Dialer
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return d.DialContext(ctx, "unix", path)
			},
		}
		// The host is ignored by the dialer.
		return &HTTPClient{baseURL: "http://unix", client: client}
	}

	baseURL := strings.TrimSuffix(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &HTTPClient{baseURL: baseURL, client: client}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "herdsman/"+buildinfo.Get().Version)
	req.Header.Set("Accept", "application/json")
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// ParseResponse decodes the data of a response envelope into target and
// closes the body. Error statuses become errors carrying the server's
// code and message.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var envelope struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && envelope.Message != "" {
			return fmt.Errorf("[%s] %s", envelope.Code, envelope.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}

	if target != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
