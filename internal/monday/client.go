package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the platform's public GraphQL endpoint.
const DefaultURL = "https://api.monday.com/v2"

// maxErrorBody caps how much of a failed response body is kept for logging.
const maxErrorBody = 4 << 10

// HTTPDoer is the subset of *http.Client the Client needs. Tests substitute
// a fake transport here.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	// URL is the GraphQL endpoint. Defaults to DefaultURL.
	URL string

	// Token is sent verbatim as the Authorization header.
	Token string

	// Version pins the API-Version header. Empty lets the platform choose.
	Version string

	// Timeout applies to the default *http.Client only.
	Timeout time.Duration

	// HTTP overrides the transport.
	HTTP HTTPDoer
}

// Client sends GraphQL operations to the platform. Safe for concurrent use.
// Each call is a single request/response; there is no retry.
type Client struct {
	url     string
	token   string
	version string
	http    HTTPDoer
}

// NewClient creates a Client from the given options.
func NewClient(opts Options) *Client {
	c := &Client{
		url:     opts.URL,
		token:   opts.Token,
		version: opts.Version,
		http:    opts.HTTP,
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: opts.Timeout}
	}
	return c
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data         json.RawMessage `json:"data"`
	Errors       []GraphQLError  `json:"errors"`
	ErrorMessage string          `json:"error_message"`
	ErrorCode    string          `json:"error_code"`
}

// Do executes op with the given variables and decodes the "data" member of
// the response into out. Any transport failure, non-2xx status, or GraphQL
// error yields an error; platform-reported failures are *APIError.
func (c *Client) Do(ctx context.Context, op Operation, vars map[string]any, out any) (err error) {
	start := time.Now()
	defer func() { observe(op, start, err) }()

	if err := op.checkVariables(vars); err != nil {
		return err
	}

	body, err := json.Marshal(request{Query: op.Document(), Variables: vars})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", op.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", op.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	if c.version != "" {
		req.Header.Set("API-Version", c.version)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s request: %w", op.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", op.Name, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Operation:  op.Name,
			StatusCode: resp.StatusCode,
			Code:       env.ErrorCode,
		}
		if decodeErr == nil {
			apiErr.Messages = env.messages()
		}
		if len(apiErr.Messages) == 0 {
			apiErr.Messages = []string{truncate(strings.TrimSpace(string(raw)), maxErrorBody)}
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decoding %s response: %w", op.Name, decodeErr)
	}

	if msgs := env.messages(); len(msgs) > 0 {
		return &APIError{
			Operation:  op.Name,
			StatusCode: resp.StatusCode,
			Code:       env.ErrorCode,
			Messages:   msgs,
			Errors:     env.Errors,
		}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s response carried no data", op.Name)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", op.Name, err)
	}

	slog.Debug("monday operation complete",
		slog.String("operation", op.Name),
		slog.Duration("latency", time.Since(start)),
	)
	return nil
}

func (e envelope) messages() []string {
	var msgs []string
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	if e.ErrorMessage != "" {
		msgs = append(msgs, e.ErrorMessage)
	}
	return msgs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
