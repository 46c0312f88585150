package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rewe/crawler/internal/domain"
	"rewe/crawler/internal/proxy"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

const DefaultHandshakeURL = "https://www.rewe.de/api/wksmarketsearch/configuration"

// Options configure how the shared client is created.
type Options struct {
	StoreID      string
	ZipCode      string // not relevant for the shop but must be sent
	CookieFile   string
	HandshakeURL string
	Timeout      time.Duration
	Headers      map[string]string // DefaultHeaders() when nil
	Proxy        proxy.ProxySupplier
}

// Manager owns the one long lived HTTP client and its cookies. It is not
// safe for concurrent use.
type Manager struct {
	opts    Options
	client  *resty.Client
	cookies map[string]string
	proxy   string
}

func NewManager(opts Options) *Manager {
	if opts.HandshakeURL == "" {
		opts.HandshakeURL = DefaultHandshakeURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Manager{opts: opts}
}

// Client returns the initialized client or nil before Ensure succeeded.
func (m *Manager) Client() *resty.Client {
	return m.client
}

// Cookies returns a copy of the cookies the client was created with.
func (m *Manager) Cookies() map[string]string {
	out := make(map[string]string, len(m.cookies))
	for k, v := range m.cookies {
		out[k] = v
	}
	return out
}

// Ensure returns the shared client, creating it on first use.
func (m *Manager) Ensure(ctx context.Context) (*resty.Client, error) {
	if m.client != nil {
		return m.client, nil
	}

	log.Debug("Session is not initialized. Loading cookies...")

	cookies, err := m.loadCookies(ctx)
	if err != nil {
		return nil, err
	}

	headers := m.opts.Headers
	if headers == nil {
		headers = DefaultHeaders()
	}

	client := resty.New().
		SetTimeout(m.opts.Timeout).
		SetHeaders(headers)

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, name := range sortedNames(cookies) {
		httpCookies = append(httpCookies, &http.Cookie{Name: name, Value: cookies[name]})
	}
	client.SetCookies(httpCookies)

	if m.opts.Proxy != nil {
		if proxyURL := m.opts.Proxy.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			m.proxy = proxyURL
			log.Infof("🔗 Using proxy: %s", proxyURL)
		}
	}

	m.client = client
	m.cookies = cookies

	log.Infof("✅ Session ready with %d cookies", len(cookies))
	return m.client, nil
}

// loadCookies prefers the persisted cookie file and falls back to the
// market handshake.
func (m *Manager) loadCookies(ctx context.Context) (map[string]string, error) {
	if m.opts.CookieFile != "" {
		cookies, err := LoadCookieFile(m.opts.CookieFile)
		if err == nil && len(cookies) > 0 {
			return cookies, nil
		}
		if err != nil {
			log.Errorf("Could not load cookies from file: %v", err)
		}
	}

	cookies, err := m.handshake(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not get cookies from web: %w", domain.ErrConfiguration, err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: no cookies in handshake response", domain.ErrConfiguration)
	}
	if _, ok := cookies[MarketsCookie]; !ok {
		log.Warnf("%s not in handshake response", MarketsCookie)
	}

	return cookies, nil
}

func (m *Manager) handshake(ctx context.Context) (map[string]string, error) {
	if m.opts.StoreID == "" {
		return nil, fmt.Errorf("store id not set")
	}

	client := resty.New().SetTimeout(m.opts.Timeout)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"selectedService": "PICKUP",
			"customerZipCode": m.opts.ZipCode,
			"wwIdent":         m.opts.StoreID,
		}).
		Post(m.opts.HandshakeURL)
	if err != nil {
		return nil, fmt.Errorf("handshake request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("handshake failed: %s", resp.Status())
	}

	cookies := make(map[string]string)
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}
	return cookies, nil
}

// RotateProxy moves the client to the next proxy of the pool. It reports
// false when there is no client or no other proxy.
func (m *Manager) RotateProxy() bool {
	if m.client == nil || m.opts.Proxy == nil {
		return false
	}
	proxyURL := m.opts.Proxy.Get()
	if proxyURL == "" || proxyURL == m.proxy {
		return false
	}
	m.client.SetProxy(proxyURL)
	m.proxy = proxyURL
	log.Infof("🔄 Switched to proxy: %s", proxyURL)
	return true
}

// Close releases the client. Safe to call more than once.
func (m *Manager) Close() error {
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}
