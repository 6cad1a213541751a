// Package client implements the HTTP side of the stof distribution
// protocol: archive download/upload against registries, remote run
// requests, and authenticated admin user management.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/dnscache"
)

// Credentials is an optional Basic-Auth username/password pair. It is
// threaded through each call and never stored on the client.
type Credentials struct {
	Username string
	Password string
}

// apply sets the Authorization header when both parts are present.
func (c *Credentials) apply(req *http.Request) {
	if c != nil && c.Username != "" && c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

// Client talks to registries and runners. A single Client is safe for
// concurrent use; publish fan-out shares one instance.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.Timeout = d
	}
}

// New creates a Client with a DNS-cached transport. Archive transfers can
// be large, so the overall timeout is generous.
func New(opts ...Option) *Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: "stof-cli/1.0",
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// registryPath joins a registry base URL with a stripped package name.
func registryPath(registryURL, strippedName string) string {
	return strings.TrimRight(registryURL, "/") + "/registry/" + strippedName
}

// Download fetches a package archive from a registry. The stripped name
// must already have its leading "@" removed.
func (c *Client) Download(ctx context.Context, registryURL, strippedName string, creds *Credentials) ([]byte, error) {
	url := registryPath(registryURL, strippedName)
	c.logger.Debug("registry download", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewRequestError(ErrDownloadFailed, err.Error())
	}
	req.Header.Set("User-Agent", c.userAgent)
	creds.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewRequestError(ErrDownloadFailed, fmt.Sprintf("%s: %v", strippedName, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewRequestError(ErrDownloadFailed,
			fmt.Sprintf("%s: does not exist or not authenticated (status %d)", strippedName, resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewRequestError(ErrEmptyResponse, fmt.Sprintf("%s: %v", strippedName, err))
	}
	if len(data) == 0 {
		return nil, NewRequestError(ErrEmptyResponse, strippedName)
	}
	return data, nil
}

// Upload publishes archive bytes to a registry with an HTTP PUT.
// The response's text body is returned for reporting regardless of status.
func (c *Client) Upload(ctx context.Context, registryURL, strippedName string, archive []byte, creds *Credentials) (string, error) {
	url := registryPath(registryURL, strippedName)
	c.logger.Debug("registry upload", "url", url, "bytes", len(archive))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(archive))
	if err != nil {
		return "", NewRequestError(ErrPublishFailed, err.Error())
	}
	req.Header.Set("User-Agent", c.userAgent)
	creds.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", NewRequestError(ErrPublishFailed, fmt.Sprintf("%s: %v", url, err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	text := strings.TrimSpace(string(body))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return text, NewRequestError(ErrPublishFailed,
			fmt.Sprintf("%s: status %d: %s", url, resp.StatusCode, text))
	}
	return text, nil
}

// Remove deletes a package from a registry with an HTTP DELETE, returning
// the response's text body.
func (c *Client) Remove(ctx context.Context, registryURL, strippedName string, creds *Credentials) (string, error) {
	url := registryPath(registryURL, strippedName)
	c.logger.Debug("registry delete", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return "", NewRequestError(ErrPublishFailed, err.Error())
	}
	req.Header.Set("User-Agent", c.userAgent)
	creds.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", NewRequestError(ErrPublishFailed, fmt.Sprintf("%s: %v", url, err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	text := strings.TrimSpace(string(body))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return text, NewRequestError(ErrPublishFailed,
			fmt.Sprintf("%s: status %d: %s", url, resp.StatusCode, text))
	}
	return text, nil
}

// RunResponse is the decoded wire envelope of a remote run: the response
// content type (defaulted to the binary document form when the server
// sends none) and the raw document bytes.
type RunResponse struct {
	ContentType string
	Body        []byte
}

// Run posts a unit of work to a runner's /run endpoint. The content type
// tags the body format: a file extension, or the package-archive marker.
func (c *Client) Run(ctx context.Context, address, contentType string, body []byte, creds *Credentials) (*RunResponse, error) {
	url := strings.TrimRight(address, "/") + "/run"
	c.logger.Debug("remote run", "url", url, "content-type", contentType, "bytes", len(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewRequestError(ErrRunFailed, err.Error())
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", contentType)
	creds.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewRequestError(ErrRunFailed, fmt.Sprintf("%s: %v", address, err))
	}
	defer resp.Body.Close()

	respType := resp.Header.Get("Content-Type")
	if respType == "" {
		respType = "bstof"
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewRequestError(ErrRunFailed, fmt.Sprintf("%s: %v", address, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewRequestError(ErrRunFailed,
			fmt.Sprintf("%s: status %d: %s", address, resp.StatusCode, strings.TrimSpace(string(data))))
	}
	return &RunResponse{ContentType: respType, Body: data}, nil
}

// SetUser creates or updates a user on a runner. The admin credentials
// are required; the payload is the textual key:value form the runner's
// /admin/users endpoint expects.
func (c *Client) SetUser(ctx context.Context, address string, admin Credentials, username, password string, perms int64, scope string) (string, error) {
	payload := fmt.Sprintf("username: %s\npassword: %s\nperms: %d\nscope: %s\n", username, password, perms, scope)
	return c.adminRequest(ctx, http.MethodPost, address, admin, payload)
}

// DeleteUser removes a user on a runner.
func (c *Client) DeleteUser(ctx context.Context, address string, admin Credentials, username string) (string, error) {
	payload := fmt.Sprintf("username: %s\n", username)
	return c.adminRequest(ctx, http.MethodDelete, address, admin, payload)
}

func (c *Client) adminRequest(ctx context.Context, method, address string, admin Credentials, payload string) (string, error) {
	url := strings.TrimRight(address, "/") + "/admin/users"
	c.logger.Debug("admin request", "method", method, "url", url)

	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(payload))
	if err != nil {
		return "", NewRequestError(ErrAdminRequest, err.Error())
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "text/plain")
	admin.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", NewRequestError(ErrAdminRequest, fmt.Sprintf("%s: %v", address, err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	text := strings.TrimSpace(string(body))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return text, NewRequestError(ErrAdminRequest,
			fmt.Sprintf("%s: status %d: %s", address, resp.StatusCode, text))
	}
	return text, nil
}
