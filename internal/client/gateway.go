package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rewe/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Method is one of the HTTP verbs the gateway can dispatch.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
)

type handler func(r *resty.Request, url string) (*resty.Response, error)

var handlers = map[Method]handler{
	MethodGet:    (*resty.Request).Get,
	MethodPost:   (*resty.Request).Post,
	MethodPut:    (*resty.Request).Put,
	MethodDelete: (*resty.Request).Delete,
}

var methodNames = map[Method]string{
	MethodGet:    "GET",
	MethodPost:   "POST",
	MethodPut:    "PUT",
	MethodDelete: "DELETE",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Valid reports whether the gateway has a handler for m.
func (m Method) Valid() bool {
	_, ok := handlers[m]
	return ok
}

// ParseMethod maps a verb name (any case) onto a Method.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if strings.EqualFold(n, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported HTTP method %q", domain.ErrPrecondition, name)
}

// Session hands out the shared HTTP client, nil until it was initialized.
type Session interface {
	Client() *resty.Client
}

// ProxyRotator is implemented by sessions that can switch to another proxy.
type ProxyRotator interface {
	RotateProxy() bool
}

// Call describes a single request to the shop API.
type Call struct {
	BaseURL   string // defaults to the gateway base URL
	APIPrefix string // e.g. "shop/api/"
	Endpoint  string
	Params    Params
	Method    Method
	Body      any               // JSON body
	Form      map[string]string // form body, ignored when Body is set
	Header    map[string]string
}

// Gateway is the only place that talks to the network.
type Gateway struct {
	session Session
	pacer   Pacer
	breaker *Breaker
	baseURL string
}

func NewGateway(session Session, pacer Pacer, baseURL string) *Gateway {
	if pacer == nil {
		pacer = NewFixedDelay(0)
	}
	return &Gateway{
		session: session,
		pacer:   pacer,
		baseURL: baseURL,
	}
}

// WithBreaker makes g stop sending requests for a while after a 429. A
// session that can rotate proxies gets one retry on a fresh proxy first.
func (g *Gateway) WithBreaker(b *Breaker) *Gateway {
	g.breaker = b
	return g
}

// BaseURL returns the default base URL calls are resolved against.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// URL joins base, prefix and endpoint of c.
func (g *Gateway) URL(c Call) string {
	base := c.BaseURL
	if base == "" {
		base = g.baseURL
	}
	return JoinURL(base, c.APIPrefix, c.Endpoint)
}

// JoinURL concatenates URL parts with exactly one slash between them.
func JoinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		out += "/" + part
	}
	return out
}

// Do paces, builds and dispatches c and returns the raw response.
func (g *Gateway) Do(ctx context.Context, c Call) (*resty.Response, error) {
	return g.DoURL(ctx, c.Method, g.URL(c), c)
}

// DoURL dispatches c against an already resolved target URL.
func (g *Gateway) DoURL(ctx context.Context, method Method, target string, c Call) (*resty.Response, error) {
	dispatch, ok := handlers[method]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported HTTP method %s", domain.ErrPrecondition, method)
	}

	var httpClient *resty.Client
	if g.session != nil {
		httpClient = g.session.Client()
	}
	if httpClient == nil {
		log.Error("Session not initialized before request")
		return nil, fmt.Errorf("%w: session not initialized", domain.ErrPrecondition)
	}

	if g.breaker != nil {
		if remaining := g.breaker.Remaining(); remaining > 0 {
			return nil, fmt.Errorf("%w: requests disabled for %v more", domain.ErrQuotaExceeded, remaining.Round(time.Second))
		}
	}

	if query := c.Params.Encode(); query != "" {
		target += "?" + query
	}

	resp, err := g.dispatch(ctx, httpClient, dispatch, method, target, c)
	if err != nil || g.breaker == nil || !quotaExceeded(resp.StatusCode()) {
		return resp, err
	}

	if rotator, ok := g.session.(ProxyRotator); ok && rotator.RotateProxy() {
		log.Infof("🔄 Quota exceeded, retrying %s on a new proxy", target)
		resp, err = g.dispatch(ctx, g.session.Client(), dispatch, method, target, c)
		if err != nil || !quotaExceeded(resp.StatusCode()) {
			return resp, err
		}
	}

	g.breaker.Trip()
	return resp, nil
}

func (g *Gateway) dispatch(ctx context.Context, httpClient *resty.Client, send handler, method Method, target string, c Call) (*resty.Response, error) {
	if err := g.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}

	req := httpClient.R().SetContext(ctx)
	if len(c.Header) > 0 {
		req.SetHeaders(c.Header)
	}
	switch {
	case c.Body != nil:
		req.SetBody(c.Body)
	case len(c.Form) > 0:
		req.SetFormData(c.Form)
	}

	log.Debugf("%s %s", method, target)

	resp, err := send(req, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to call %s: %w", target, err)
	}

	return resp, nil
}

// Call dispatches c and returns the decoded JSON body.
func (g *Gateway) Call(ctx context.Context, c Call) (json.RawMessage, error) {
	resp, err := g.Do(ctx, c)
	if err != nil {
		return nil, err
	}
	return Decode(resp)
}

// Decode validates the body of resp as JSON.
func Decode(resp *resty.Response) (json.RawMessage, error) {
	var body json.RawMessage
	if err := json.Unmarshal([]byte(resp.String()), &body); err != nil {
		return nil, fmt.Errorf("%w: status %d: %w", domain.ErrDecode, resp.StatusCode(), err)
	}
	return body, nil
}
