package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsboard/internal/model"

	"github.com/tidwall/gjson"
)

const DefaultEndpoint = "https://newsapi.org/v2/top-headlines"

var (
	// ErrTransport marks failures to reach the API at all.
	ErrTransport = errors.New("headlines api unreachable")
	// ErrMalformed marks a 200 response whose body is not a headlines payload.
	ErrMalformed = errors.New("malformed headlines response")
)

// StatusError is returned when the API answers with anything but 200.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" && !strings.HasSuffix(e.Status, e.Message) {
		return fmt.Sprintf("headlines api returned %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("headlines api returned %s", e.Status)
}

// BuildURL attaches the filter to the endpoint as q, country and category.
// Empty values stay in the query string as empty parameters.
func BuildURL(endpoint string, f model.Filter) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("endpoint %q is not absolute", endpoint)
	}

	q := u.Query()
	q.Set("q", f.Search)
	q.Set("country", string(f.Country))
	q.Set("category", string(f.Category))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type Options struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the top-headlines endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		http:     hc,
	}
}

// Headlines builds the URL for f and fetches it.
func (c *Client) Headlines(ctx context.Context, f model.Filter) (*model.Headlines, error) {
	rawURL, err := BuildURL(c.endpoint, f)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, rawURL)
}

// Fetch performs the GET against rawURL. The API key travels in the
// X-API-KEY header, never in the query string.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*model.Headlines, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, body)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not json", ErrMalformed)
	}
	if !gjson.GetBytes(body, "articles").IsArray() {
		return nil, fmt.Errorf("%w: no articles array", ErrMalformed)
	}

	var headlines model.Headlines
	if err := json.Unmarshal(body, &headlines); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &headlines, nil
}

func statusError(resp *http.Response, body []byte) *StatusError {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	msg := http.StatusText(resp.StatusCode)
	if m := gjson.GetBytes(body, "message"); m.Exists() && m.String() != "" {
		msg = m.String()
	}
	return &StatusError{
		Code:    resp.StatusCode,
		Status:  status,
		Message: msg,
	}
}
