// Package bitskins is a client for the BitSkins v1 HTTP API. Every call is
// authenticated with the account API key and a fresh TOTP code, and every
// response envelope is translated into either a *Response or one of the
// error types in errors.go.
package bitskins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultBaseURL = "https://bitskins.com/api/v1"
	defaultTimeout = 30 * time.Second
)

// Credentials holds the API key and the shared TOTP secret. It is immutable
// and formats as a redacted placeholder.
type Credentials struct {
	apiKey     string
	totpSecret string
}

func NewCredentials(apiKey, totpSecret string) Credentials {
	return Credentials{apiKey: apiKey, totpSecret: totpSecret}
}

func (Credentials) String() string   { return "bitskins.Credentials{REDACTED}" }
func (Credentials) GoString() string { return "bitskins.Credentials{REDACTED}" }

// CodeGenerator produces the one-time code sent with each request.
type CodeGenerator interface {
	Code(secret string, at time.Time) (string, error)
}

type totpGenerator struct{}

func (totpGenerator) Code(secret string, at time.Time) (string, error) {
	return totp.GenerateCode(secret, at)
}

// Client is safe for concurrent use. Its only state is the credentials and
// the underlying HTTP client.
type Client struct {
	creds   Credentials
	client  *resty.Client
	baseURL string
	codes   CodeGenerator
	now     func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the transport, e.g. to share a connection pool.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		timeout := c.client.GetClient().Timeout
		c.client = resty.NewWithClient(hc).SetHeader("User-Agent", userAgent)
		if hc.Timeout == 0 {
			c.client.SetTimeout(timeout)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.SetTimeout(d) }
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(c *Client) { c.codes = g }
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

const userAgent = "bitskins-trader/1.0"

func NewClient(apiKey, totpSecret string, opts ...Option) *Client {
	client := resty.New()
	client.SetTimeout(defaultTimeout)
	client.SetHeader("User-Agent", userAgent)

	c := &Client{
		creds:   NewCredentials(apiKey, totpSecret),
		client:  client,
		baseURL: DefaultBaseURL,
		codes:   totpGenerator{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a decoded "success" envelope. The body is kept verbatim.
type Response struct {
	Status string
	Data   json.RawMessage
	raw    json.RawMessage
}

// Raw returns the response body as received.
func (r *Response) Raw() json.RawMessage { return r.raw }

// Decode unmarshals the whole body into v.
func (r *Response) Decode(v interface{}) error { return json.Unmarshal(r.raw, v) }

// DecodeData unmarshals the data member of the envelope into v.
func (r *Response) DecodeData(v interface{}) error {
	if len(r.Data) == 0 {
		return errors.New("bitskins: response has no data")
	}
	return json.Unmarshal(r.Data, v)
}

// MarshalJSON emits the body exactly as BitSkins sent it.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return json.Marshal(envelope{Status: &r.Status, Data: r.Data})
	}
	return r.raw, nil
}

type envelope struct {
	Status *string         `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type failure struct {
	ErrorMessage string `json:"error_message"`
}

// call performs one GET against endpoint. query holds the already validated
// operation parameters.
func (c *Client) call(ctx context.Context, endpoint, query string) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	code, err := c.codes.Code(c.creds.totpSecret, c.now())
	if err != nil {
		return nil, &UsageError{Op: endpoint, Param: "totp_secret", Reason: err.Error()}
	}

	auth, err := encodeParams(endpoint, 0,
		textParam("api_key", c.creds.apiKey),
		textParam("code", code),
	)
	if err != nil {
		return nil, err
	}
	if query != "" {
		auth += "&" + query
	}
	url := fmt.Sprintf("%s/%s/?%s", c.baseURL, endpoint, auth)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, &TransportError{Op: endpoint, Err: err}
	}

	return parseEnvelope(endpoint, resp.StatusCode(), resp.Body())
}

func parseEnvelope(op string, status int, body []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Op: op, StatusCode: status, Err: err}
	}
	if env.Status == nil {
		return nil, &ProtocolError{Op: op, StatusCode: status, Err: errors.New("missing status field")}
	}

	if *env.Status == "fail" {
		var f failure
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &f); err != nil {
				return nil, &ProtocolError{Op: op, StatusCode: status, Err: fmt.Errorf("decode failure data: %w", err)}
			}
		}
		return nil, &RemoteAPIError{Op: op, StatusCode: status, Message: f.ErrorMessage}
	}

	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return &Response{Status: *env.Status, Data: env.Data, raw: raw}, nil
}
