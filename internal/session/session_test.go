package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"rewe/crawler/internal/domain"
	"rewe/crawler/internal/proxy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCookieFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCookieFileEncodesMarketsCookie(t *testing.T) {
	path := writeCookieFile(t, `{"cookies": {
		"wksMarketsCookie": {"b": 1, "a": "x y"},
		"rstp": "plain",
		"count": 5
	}}`)

	cookies, err := LoadCookieFile(path)
	require.NoError(t, err)

	assert.Equal(t, "%7B%22a%22%3A%22x+y%22%2C%22b%22%3A1%7D", cookies[MarketsCookie])
	assert.Equal(t, "plain", cookies["rstp"])
	assert.Equal(t, "5", cookies["count"])
}

func TestLoadCookieFileErrors(t *testing.T) {
	_, err := LoadCookieFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadCookieFile(writeCookieFile(t, `{"cookies": `))
	assert.Error(t, err)
}

func TestCompactJSON(t *testing.T) {
	out, err := CompactJSON([]byte(`{ "z": [1, 2.50], "a": {"y": "<b>", "x": null} }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":null,"y":"<b>"},"z":[1,2.5]}`, out)
}

func TestCompactJSONCanonicalForm(t *testing.T) {
	cases := map[string]string{
		`{"city":"Köln","price":2.50,"n":1e2}`: `{"city":"K\u00f6ln","n":100.0,"price":2.5}`,
		`["😀","tab\tquote\"","\u007f"]`:        `["\ud83d\ude00","tab\tquote\"","\u007f"]`,
		`[-0,-0.0,12345678901234567890]`:       `[0,-0.0,12345678901234567890]`,
		`[0.0001,0.00001,1e15,1e16,-1.5e300]`:  `[0.0001,1e-05,1000000000000000.0,1e+16,-1.5e+300]`,
		`[true,false,null,"a/b"]`:              `[true,false,null,"a/b"]`,
	}

	for in, want := range cases {
		out, err := CompactJSON([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, out, in)
	}
}

func TestEnsureUsesCookieFile(t *testing.T) {
	var cookieHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookieHeader = r.Header.Get("Cookie")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "0", r.Header.Get("DNT"))
	}))
	defer server.Close()

	m := NewManager(Options{
		StoreID:      "8534540",
		CookieFile:   writeCookieFile(t, `{"cookies": {"rstp": "abc"}}`),
		HandshakeURL: "http://127.0.0.1:1/unreachable",
	})
	defer m.Close()

	c, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, m.Client())

	_, err = c.R().Get(server.URL)
	require.NoError(t, err)
	assert.Contains(t, cookieHeader, "rstp=abc")
}

func TestEnsureFallsBackToHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		http.SetCookie(w, &http.Cookie{Name: MarketsCookie, Value: "market"})
		http.SetCookie(w, &http.Cookie{Name: "MRefererUrl", Value: "direct"})
	}))
	defer server.Close()

	m := NewManager(Options{
		StoreID:      "8534540",
		ZipCode:      "56073",
		CookieFile:   filepath.Join(t.TempDir(), "missing.json"),
		HandshakeURL: server.URL,
	})
	defer m.Close()

	_, err := m.Ensure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{MarketsCookie: "market", "MRefererUrl": "direct"}, m.Cookies())
}

func TestEnsureWithoutAnyCookieSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	m := NewManager(Options{StoreID: "8534540", HandshakeURL: server.URL})

	_, err := m.Ensure(context.Background())
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Nil(t, m.Client())
}

func TestEnsureWithoutStoreID(t *testing.T) {
	m := NewManager(Options{})

	_, err := m.Ensure(context.Background())
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewManager(Options{
		StoreID:    "8534540",
		CookieFile: writeCookieFile(t, `{"cookies": {"rstp": "abc"}}`),
	})
	_, err := m.Ensure(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Client())
}

func TestRotateProxy(t *testing.T) {
	m := NewManager(Options{
		StoreID:    "8534540",
		CookieFile: writeCookieFile(t, `{"cookies": {"rstp": "abc"}}`),
		Proxy:      proxy.NewRoundRobin([]string{"http://10.0.0.1:8080", "http://10.0.0.2:8080"}),
	})
	assert.False(t, m.RotateProxy(), "no client yet")

	_, err := m.Ensure(context.Background())
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.RotateProxy())
}

func TestLocaleLanguage(t *testing.T) {
	env := func(values map[string]string) func(string) string {
		return func(key string) string { return values[key] }
	}

	assert.Equal(t, "de-DE", localeLanguage(env(map[string]string{"LANG": "de_DE.UTF-8"})))
	assert.Equal(t, "en-US", localeLanguage(env(map[string]string{"LC_ALL": "en_US.UTF-8", "LANG": "de_DE.UTF-8"})))
	assert.Equal(t, "fr-FR", localeLanguage(env(map[string]string{"LC_ALL": "C", "LC_MESSAGES": "fr_FR@euro"})))
	assert.Equal(t, "de-DE", localeLanguage(env(map[string]string{"LANG": "C.UTF-8"})))
	assert.Equal(t, "de-DE", localeLanguage(env(nil)))
}

func TestDefaultHeaders(t *testing.T) {
	headers := DefaultHeaders()

	assert.Contains(t, UserAgents(), headers["User-Agent"])
	assert.NotEmpty(t, headers["Accept-Language"])
	assert.Equal(t, "0", headers["DNT"])
}
