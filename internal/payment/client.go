// Package payment はホスト型チェックアウトを提供する決済ゲートウェイのクライアント。
// 失敗しても再試行しない。
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ゲートウェイ起因の失敗（502で返す）
	ErrGateway = errors.New("payment gateway error")

	// vendorが秘密鍵を登録していない
	ErrMissingSecretKey = errors.New("payment secret key not configured")
)

// Error はゲートウェイの応答エラー。errors.Is(err, ErrGateway) が真になる。
type Error struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("payment gateway: %s", e.Detail)
	}
	return fmt.Sprintf("payment gateway: %d %s: %s", e.StatusCode, e.Code, e.Detail)
}

func (e *Error) Is(target error) bool {
	return target == ErrGateway
}

// Gateway はusecaseから使う口
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, secretKey string, req CheckoutRequest) (CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, secretKey, sessionID string) (CheckoutSession, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreakerSettings はテストで閾値を下げるため
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) {
		st.IsSuccessful = isSuccessful
		c.cb = gobreaker.NewCircuitBreaker[[]byte](st)
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
		cb: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "payment-gateway",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: isSuccessful,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// 4xxは呼び出し側の問題なのでブレーカーの失敗に数えない
func isSuccessful(err error) bool {
	var ge *Error
	if errors.As(err, &ge) && ge.StatusCode >= 400 && ge.StatusCode < 500 {
		return true
	}
	return err == nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, secretKey string, req CheckoutRequest) (CheckoutSession, error) {
	if len(req.PaymentMethodTypes) == 0 {
		req.PaymentMethodTypes = DefaultPaymentMethodTypes
	}
	body, err := json.Marshal(envelope[createAttributes]{Data: createAttributes{Attributes: req}})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("marshal checkout request: %w", err)
	}

	raw, err := c.do(ctx, secretKey, http.MethodPost, "/v1/checkout_sessions", body)
	if err != nil {
		return CheckoutSession{}, err
	}
	return decodeSession(raw)
}

func (c *Client) GetCheckoutSession(ctx context.Context, secretKey, sessionID string) (CheckoutSession, error) {
	if sessionID == "" {
		return CheckoutSession{}, &Error{Detail: "empty checkout session id"}
	}
	raw, err := c.do(ctx, secretKey, http.MethodGet, "/v1/checkout_sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return CheckoutSession{}, err
	}
	return decodeSession(raw)
}

func (c *Client) do(ctx context.Context, secretKey, method, path string, body []byte) ([]byte, error) {
	if secretKey == "" {
		return nil, ErrMissingSecretKey
	}

	raw, err := c.cb.Execute(func() ([]byte, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", BasicAuth(secretKey))
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &Error{Detail: err.Error()}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, &Error{StatusCode: resp.StatusCode, Detail: "read body: " + err.Error()}
		}
		if resp.StatusCode >= 300 {
			return nil, decodeError(resp.StatusCode, data)
		}
		return data, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &Error{Detail: "payment gateway unavailable: " + err.Error()}
	}
	return raw, err
}

// BasicAuth は secretKey + ":" をbase64にしたヘッダ値
func BasicAuth(secretKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":"))
}

func decodeSession(raw []byte) (CheckoutSession, error) {
	var env envelope[sessionData]
	if err := json.Unmarshal(raw, &env); err != nil {
		return CheckoutSession{}, &Error{Detail: "decode response: " + err.Error()}
	}
	if env.Data.ID == "" {
		return CheckoutSession{}, &Error{Detail: "response without checkout session id"}
	}
	return env.Data.toSession(), nil
}

func decodeError(status int, raw []byte) error {
	ge := &Error{StatusCode: status, Detail: http.StatusText(status)}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && len(eb.Errors) > 0 {
		ge.Code = eb.Errors[0].Code
		ge.Detail = eb.Errors[0].Detail
	}
	return ge
}

var _ Gateway = (*Client)(nil)
