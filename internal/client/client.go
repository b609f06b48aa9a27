package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// APIError is a failure reported by the server, either through an HTTP error
// status or through a {"status":"error"} body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// UserMessage is the message the server wants shown.
func (e *APIError) UserMessage() string { return e.Message }

// NotFound reports whether the server says the target does not exist.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound ||
		strings.Contains(strings.ToLower(e.Message), "not found")
}

// Is lets callers match errors.Is(err, ledger.ErrEntryNotFound) and
// errors.Is(err, ledger.ErrRemote).
func (e *APIError) Is(target error) bool {
	switch target {
	case ledger.ErrEntryNotFound:
		return e.NotFound()
	case ledger.ErrRemote:
		return true
	}
	return false
}

// envelope is the body of every API response.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ListFilter narrows an entry listing. Zero fields are ignored.
type ListFilter struct {
	Party string
	From  ledger.Date
	To    ledger.Date
}

func (f ListFilter) values() url.Values {
	params := url.Values{}
	if f.Party != "" {
		params.Set("party", f.Party)
	}
	if !f.From.IsZero() {
		params.Set("from", f.From.String())
	}
	if !f.To.IsZero() {
		params.Set("to", f.To.String())
	}
	return params
}

func (c *Client) ListEntries(ctx context.Context, l ledger.Ledger, filter ListFilter) ([]ledger.Entry, error) {
	path := ledger.CollectionPath(l)
	if q := filter.values().Encode(); q != "" {
		path += "?" + q
	}
	var result []ledger.Entry
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateEntry(ctx context.Context, e *ledger.Entry) (*ledger.Entry, error) {
	var result ledger.Entry
	if err := c.post(ctx, ledger.CollectionPath(e.Ledger), e, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetEntry fetches one entry of a ledger.
func (c *Client) GetEntry(ctx context.Context, l ledger.Ledger, id string) (*ledger.Entry, error) {
	if id == "" {
		return nil, ledger.ErrMissingID
	}
	var result ledger.Entry
	if err := c.get(ctx, ledger.CollectionPath(l)+"/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteEntry removes id from the collection selected by kind. Vendor kinds
// share one endpoint and pass their entry type along.
func (c *Client) DeleteEntry(ctx context.Context, kind ledger.Kind, id string) error {
	if id == "" {
		return ledger.ErrMissingID
	}
	route, err := ledger.RouteFor(kind)
	if err != nil {
		return err
	}
	path := route.Path + "/" + url.PathEscape(id)
	if route.EntryType != "" {
		path += "?" + url.Values{"entry_type": {route.EntryType}}.Encode()
	}
	return c.del(ctx, path)
}

// Ping checks if the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doRequest(req, result)
}

func (c *Client) del(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doRequest(req, nil)
}

func (c *Client) put(ctx context.Context, path string, body any, result any) error {
	return c.send(ctx, "PUT", path, body, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.send(ctx, "POST", path, body, result)
}

func (c *Client) send(ctx context.Context, method, path string, body any, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, result)
}

func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrRemote, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ledger.ErrRemote, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(bodyBytes, &env)

	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(bodyBytes))
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if len(bodyBytes) == 0 {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode response: %w", ledger.ErrRemote, decodeErr)
	}
	if env.Status != "" && env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("%w: decode data: %w", ledger.ErrRemote, err)
		}
	}
	return nil
}
