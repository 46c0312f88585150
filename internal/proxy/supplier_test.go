package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobin(t *testing.T) {
	s := NewRoundRobin([]string{"http://a:1", "http://b:2"})

	assert.Equal(t, "http://a:1", s.Get())
	assert.Equal(t, "http://b:2", s.Get())
	assert.Equal(t, "http://a:1", s.Get())
}

func TestEmptyPool(t *testing.T) {
	s, err := NewProxySupplier(context.Background(), nil, "https://www.rewe.de/")
	require.NoError(t, err)
	assert.Empty(t, s.Get())
}

func TestNewProxySupplierDropsBrokenProxies(t *testing.T) {
	// a plain HTTP proxy receives the absolute target URL and may answer itself
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer working.Close()

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	defer rejecting.Close()

	s, err := NewProxySupplier(context.Background(),
		[]string{rejecting.URL, working.URL, "http://127.0.0.1:1"},
		"http://shop.example/")
	require.NoError(t, err)

	assert.Equal(t, working.URL, s.Get())
	assert.Equal(t, working.URL, s.Get())
}
