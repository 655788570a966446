// API service for making HTTP requests to the NeteaseCloudMusicApi proxy
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/desertthunder/cloudmatch/internal/metrics"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

const (
	defaultBaseURL   = "http://localhost:3000"
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 5.0
)

// APIService provides methods for making HTTP requests to the proxy.
//
// It owns the session cookie, throttles outgoing requests and maps transport failures onto the shared error taxonomy.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    metrics.Recorder
	now        func() time.Time

	mu     sync.RWMutex
	cookie string
}

// APIOptions configures an [APIService]. Zero values select defaults.
type APIOptions struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Metrics   metrics.Recorder
}

// NewAPIService creates a new API service instance for the proxy at baseURL.
//
// When client is nil a client with opts.Timeout is created.
func NewAPIService(baseURL string, client *http.Client, opts APIOptions) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		metrics:    opts.Metrics,
		now:        time.Now,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Envelope is the status wrapper carried by every proxy response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

// Text returns whichever message field the provider filled in.
func (e Envelope) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// APIError is a response the proxy answered but that cannot be treated as success.
type APIError struct {
	Endpoint string
	Status   int
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d, code %d: %s", e.Endpoint, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d, code %d", e.Endpoint, e.Status, e.Code)
}

// Unwrap classifies the failure so callers can use [errors.Is] with the shared sentinels.
func (e *APIError) Unwrap() []error {
	switch {
	case e.Code == 301 || e.Status == http.StatusUnauthorized || e.Status == http.StatusMovedPermanently:
		return []error{shared.ErrAuth}
	case e.Status >= 500:
		return []error{shared.ErrNetwork, shared.ErrServiceUnavailable}
	default:
		return []error{shared.ErrAPIRequest}
	}
}

// SetCookie stores the session cookie sent with every request.
func (a *APIService) SetCookie(cookie string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cookie = cookie
}

// Cookie returns the current session cookie.
func (a *APIService) Cookie() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cookie
}

// ClearCookie forgets the session cookie.
func (a *APIService) ClearCookie() {
	a.SetCookie("")
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := a.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return a.do(ctx, req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := a.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(ctx, req)
}

// Call performs a GET against endpoint with params, checks the envelope and decodes the body into result.
//
// Provider codes other than 301 are returned in the [Envelope] for the caller to interpret.
func (a *APIService) Call(ctx context.Context, endpoint string, params url.Values, result any) (*Envelope, error) {
	req, err := a.newRequest(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 {
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: string(resp.Body)}
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: string(resp.Body)}
		}
		return nil, fmt.Errorf("%w: failed to decode response from %s: %v", shared.ErrAPIRequest, endpoint, err)
	}

	if env.Code == 301 || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusMovedPermanently {
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Code: env.Code, Message: env.Text()}
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return nil, fmt.Errorf("%w: failed to decode response from %s: %v", shared.ErrAPIRequest, endpoint, err)
		}
	}

	return &env, nil
}

// newRequest builds a request carrying the session cookie and a cache-busting timestamp.
func (a *APIService) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Request, error) {
	fullURL := a.baseURL + path

	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(a.now().UnixMilli(), 10))
	if cookie := a.Cookie(); cookie != "" {
		params.Set("cookie", cookie)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL+sep+params.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", redactURLError(err))
	}
	return req, nil
}

func (a *APIService) do(ctx context.Context, req *http.Request) (*APIResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.metrics.ObserveRequest(req.URL.Path, 0, time.Since(start))
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	a.metrics.ObserveRequest(req.URL.Path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// classifyTransportError maps client failures to ErrNetwork, adding ErrTimeout for deadlines.
//
// Cancellation by the caller is passed through unchanged.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request cancelled: %w", ctx.Err())
	}

	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	err = redactURLError(err)
	if timeout {
		return fmt.Errorf("%w: %w: %v", shared.ErrNetwork, shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: request failed: %v", shared.ErrNetwork, err)
}

// redactURLError strips the query string, which carries the session cookie, from client errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	redacted := *urlErr
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		redacted.URL = u.String()
	} else {
		redacted.URL, _, _ = strings.Cut(urlErr.URL, "?")
	}
	return &redacted
}
