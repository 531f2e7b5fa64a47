// Package restgateway talks to the futures exchange REST API with HMAC-SHA256 signed requests.
package restgateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"go.uber.org/zap"
)

const (
	MainnetBaseURL = "https://fapi.binance.com"
	TestnetBaseURL = "https://testnet.binancefuture.com"

	DefaultTimeout = 10 * time.Second

	apiKeyHeader = "X-MBX-APIKEY"
)

type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	Timeout    time.Duration
	RecvWindow int64
}

type Client struct {
	apiKey     string
	secret     []byte
	baseURL    string
	recvWindow int64
	httpClient *http.Client
	now        func() time.Time
	logger     logging.ILogger
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Timeout is kept as given.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithClock overrides the timestamp source used for signing.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

func NewClient(cfg Config, logger logging.ILogger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = TestnetBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		apiKey:     cfg.APIKey,
		secret:     []byte(cfg.APISecret),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		recvWindow: cfg.RecvWindow,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

type errorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// do sends one request and decodes a 2xx JSON body into out. It never retries.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, signed bool, out any) error {
	if params == nil {
		params = url.Values{}
	}
	logged := flatten(params)

	if signed {
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		if c.recvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
		}
	}
	payload := params.Encode()
	if signed {
		payload += "&signature=" + Sign(c.secret, payload)
	}

	apiErr := func(status int, err error) *model.APIError {
		return &model.APIError{Method: method, Endpoint: endpoint, Params: logged, StatusCode: status, Err: err}
	}

	target := c.baseURL + endpoint
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(payload)
	} else if payload != "" {
		target += "?" + payload
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return apiErr(0, err)
	}
	if signed {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.LogError(ctx, err, "exchange.request", zap.String("method", method), zap.String("endpoint", endpoint))
		return apiErr(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiErr(resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := apiErr(resp.StatusCode, nil)
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && (eb.Code != 0 || eb.Msg != "") {
			e.Code, e.Message = eb.Code, eb.Msg
		} else {
			e.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Error(ctx, "exchange rejected request",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Int("code", e.Code),
			zap.String("message", e.Message),
		)
		return e
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apiErr(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func flatten(v url.Values) map[string]string {
	if len(v) == 0 {
		return nil
	}
	out := make(map[string]string, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}
